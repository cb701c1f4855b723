package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/notescan/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends the error message verbatim; the status follows its kind.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrMissingAPIKey):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.UserErrorf(common.ErrInvalidInput, "invalid request body: %v", err)
	}
	return nil
}

func badRequest(format string, args ...any) error {
	return common.UserErrorf(common.ErrInvalidInput, format, args...)
}
