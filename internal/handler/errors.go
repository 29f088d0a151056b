package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error":{...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// internalErrorBody is sent when a response value cannot be encoded.
const internalErrorBody = `{"error":{"code":"internal_error","message":"response could not be encoded"}}` + "\n"

// writeJSON encodes v before committing the status, so an unencodable value
// becomes a 500 instead of a success status with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		buf.WriteString(internalErrorBody)
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// notFound writes a 404. The caller supplies the message (e.g. "roteiro not
// found") because the handler is the layer that knows what was being looked up.
func notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, "not_found", message)
}

// badRequest writes a 422 for input rejected before reaching the service layer.
func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// decodeJSON reads the request body into v. It writes the error response
// itself and returns false when the body is missing, malformed or too large.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		badRequest(w, "request body is required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// serviceError maps a service error onto a status code. Unknown errors are
// logged and reported as 500 without leaking their text.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		badRequest(w, unwrapMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		notFound(w, notFoundMessage)
	case errors.Is(err, domain.ErrDuplicateKey):
		writeError(w, http.StatusConflict, "conflict", unwrapMessage(err))
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "quota_exceeded", unwrapMessage(err))
	case errors.Is(err, domain.ErrQueryUnsupported):
		writeError(w, http.StatusServiceUnavailable, "query_unsupported", "filtered queries are unavailable while storage is degraded")
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// sentinelPrefixes are the texts of the sentinels whose trailing detail is
// safe to show to clients.
var sentinelPrefixes = []string{
	domain.ErrValidation.Error() + ": ",
	domain.ErrDuplicateKey.Error() + ": ",
	domain.ErrQuotaExceeded.Error() + ": ",
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.RoteiroService.Save: validation error: title is required" -> "title is required"
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, prefix := range sentinelPrefixes {
		if i := strings.Index(msg, prefix); i >= 0 {
			return msg[i+len(prefix):]
		}
	}
	for _, sentinel := range []error{domain.ErrValidation, domain.ErrDuplicateKey, domain.ErrQuotaExceeded} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return msg
}
