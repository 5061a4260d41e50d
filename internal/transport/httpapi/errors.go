package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/ports"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, ports.ErrStaleRevision):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		resp.Field = vErr.Field
	}
	writeJSON(w, statusFor(err), resp)
}

func writeBadRequest(w http.ResponseWriter, field string, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, Field: field})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func decodeBody(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return &domain.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}
