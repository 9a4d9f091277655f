package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pkordes/secret-santa/internal/domain"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a message for people.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBody writes an ErrorResponse.
func writeBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError rejects a request before it reaches the service layer
// (e.g. missing or malformed body, unparseable parameter).
func requestError(w http.ResponseWriter, message string) {
	writeBody(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// writeError maps err onto a status code and error body:
//
//	domain.ErrNotFound   → 404
//	domain.ErrValidation → 422
//	domain.ErrInfeasible → 409
//	domain.ErrConflict   → 409
//	anything else        → 500, logged, message hidden
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeBody(w, http.StatusNotFound, "not_found", unwrapMessage(err))
	case errors.Is(err, domain.ErrValidation):
		writeBody(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
	case errors.Is(err, domain.ErrInfeasible):
		writeBody(w, http.StatusConflict, "pairing_infeasible", unwrapMessage(err))
	case errors.Is(err, domain.ErrConflict):
		writeBody(w, http.StatusConflict, "conflict", unwrapMessage(err))
	default:
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeBody(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part of err: the message of the
// innermost *domain.Error, without the "service.X.Y:" prefixes added on the
// way up.
func unwrapMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
