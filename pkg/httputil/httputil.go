// Package httputil holds the small JSON request/response helpers shared by
// every HTTP handler.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// maxBodyBytes bounds request bodies before decoding.
const maxBodyBytes = 1 << 20 // 1MB

// ErrorResponse is the JSON body for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// RespondError writes a JSON error body with the given status.
func RespondError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	RespondJSON(w, status, ErrorResponse{Error: fmt.Sprintf(format, args...)})
}

// DecodeJSON decodes a request body into v, rejecting unknown fields and
// bodies over the size limit.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// IsClientError reports whether err should map to a 4xx rather than a 5xx.
// Handlers call it with the sentinel errors of the domain packages.
func IsClientError(err error, sentinels ...error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
