package helpers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Stable error strings for API error responses.
const (
	ErrMsgUnauthorized = "unauthorized"
	ErrMsgForbidden    = "forbidden"
	ErrMsgNotFound     = "not found"
)

// ErrorResponse is the error payload for all API failures.
// swagger:model ErrorResponse
type ErrorResponse struct {
	OK                bool   `json:"ok"`
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

// WriteJSON sets Content-Type to application/json, writes statusCode, and
// encodes v as the response body.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse with the given status and stable error
// string.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{OK: false, Error: message})
}

// WriteRateLimited writes a 429 with a Retry-After header and the remaining
// window in the body.
func WriteRateLimited(w http.ResponseWriter, message string, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
		OK:                false,
		Error:             message,
		RetryAfterSeconds: retryAfterSeconds,
	})
}
