package relay

import (
	"encoding/json"

	"github.com/dgellow/cors-relay/internal/config"
)

// Envelope is the body a browser posts to the relay route
type Envelope struct {
	APIKey   config.Secret   `json:"apiKey"`
	Endpoint string          `json:"endpoint"`
	Payload  json.RawMessage `json:"payload"`
}

// DecodeEnvelope parses an inbound body. Only JSON syntax is checked:
// missing fields come back as zero values and fail later, if at all.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{Stage: StageDecode, Err: err}
	}
	return &env, nil
}

// encodePayload re-serializes the payload for the outbound body.
// An absent payload is sent as JSON null.
func (e *Envelope) encodePayload() ([]byte, error) {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, &Error{Stage: StageEncode, Err: err}
	}
	return body, nil
}

// Response is what the upstream answered, buffered in full
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the upstream answered with a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
