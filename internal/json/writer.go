package json

import (
	"encoding/json"
	"net/http"

	"github.com/dgellow/cors-relay/internal/log"
)

// ErrorResponse is the body of every locally generated failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteResponse encodes data as JSON with the given status code
func WriteResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.LogError("Failed to encode JSON response: %v", err)
		return err
	}
	return nil
}

// WriteRaw writes already-encoded JSON bytes without touching them
func WriteRaw(w http.ResponseWriter, statusCode int, body []byte) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		log.LogDebug("Failed to write response body: %v", err)
		return err
	}
	return nil
}

// WriteError writes {"error": message}
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	if err := WriteResponse(w, statusCode, ErrorResponse{Error: message}); err != nil {
		// Headers are already out, nothing more to send
		log.LogDebug("Failed to write error response: %v", err)
	}
}

func WriteInternalServerError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

func WriteRequestTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, message)
}
