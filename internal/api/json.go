package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"keyshelf/internal/domain"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object into dst. Unknown fields, trailing
// data, and oversized bodies are rejected as invalid input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.ErrValidation("request body too large")
		case errors.Is(err, io.EOF):
			return domain.ErrValidation("request body is required")
		default:
			return domain.ErrValidation("invalid request body: %v", err)
		}
	}
	if dec.More() {
		return domain.ErrValidation("invalid request body: trailing data")
	}
	return nil
}
