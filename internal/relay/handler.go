// Package relay forwards a browser's API call to a remote HTTPS endpoint
// and hands the answer back unchanged.
package relay

import (
	"errors"
	"net/http"
	"time"

	"github.com/dgellow/cors-relay/internal/ioutil"
	jsonwriter "github.com/dgellow/cors-relay/internal/json"
	"github.com/dgellow/cors-relay/internal/log"
)

// logBodyLimit bounds how much of an upstream error body is logged
const logBodyLimit = 2048

// Handler serves the relay route
type Handler struct {
	forwarder    *Forwarder
	maxBodyBytes int64
}

// NewHandler creates the relay route handler
func NewHandler(f *Forwarder, opts Options) *Handler {
	return &Handler{
		forwarder:    f,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// ServeHTTP runs receive, decode, forward and relay. Exactly one response
// is written whatever happens.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := ioutil.ReadAll(r.Body, h.maxBodyBytes)
	if err != nil {
		if errors.Is(err, ioutil.ErrTooLarge) {
			log.LogWarnWithFields("relay", "Request body too large", map[string]any{
				"limit": h.maxBodyBytes,
			})
			jsonwriter.WriteRequestTooLarge(w, err.Error())
			return
		}
		h.fail(w, &Error{Stage: StageReceive, Err: err})
		return
	}

	env, err := DecodeEnvelope(body)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp, err := h.forwarder.Forward(r.Context(), env)
	if err != nil {
		h.fail(w, err)
		return
	}

	fields := map[string]any{
		"endpoint":    env.Endpoint,
		"status":      resp.StatusCode,
		"bytes":       len(resp.Body),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if resp.OK() {
		log.LogDebugWithFields("relay", "Upstream request succeeded", fields)
	} else {
		fields["body"] = ioutil.Truncate(resp.Body, logBodyLimit)
		log.LogWarnWithFields("relay", "Upstream returned error", fields)
	}

	_ = jsonwriter.WriteRaw(w, resp.StatusCode, resp.Body)
}

// fail writes the 500 {"error": ...} answer for a local failure
func (h *Handler) fail(w http.ResponseWriter, err error) {
	stage := Stage("unknown")
	var relayErr *Error
	if errors.As(err, &relayErr) {
		stage = relayErr.Stage
	}

	log.LogErrorWithFields("relay", "Relay failed", map[string]any{
		"stage": string(stage),
		"error": err.Error(),
	})
	jsonwriter.WriteInternalServerError(w, err.Error())
}
