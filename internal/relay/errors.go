package relay

// Stage names the step of a relay call that failed
type Stage string

const (
	StageReceive Stage = "receive"
	StageDecode  Stage = "decode"
	StageEncode  Stage = "encode"
	StageBuild   Stage = "build"
	StageSend    Stage = "send"
	StageRead    Stage = "read"
)

// Error is a local failure of a relay call. Upstream non-2xx answers are
// not errors; they come back as a Response.
type Error struct {
	Stage Stage
	Err   error
}

// Error returns the cause's text alone since it is shown to the caller verbatim
func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
