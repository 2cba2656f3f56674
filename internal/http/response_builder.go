package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// transactionResponse is the wire form of a transaction.
type transactionResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Type      core.Kind  `json:"type"`
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	Date      time.Time  `json:"date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Type:      t.Kind,
		Category:  string(t.Category),
		Amount:    t.Amount,
		Date:      t.OccurredAt.UTC(),
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps the error taxonomy to a status code and a client-safe
// message. Storage and unexpected errors never leak their text.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, "missing bearer token", applog.ErrorTypeAuth
	case errors.Is(err, core.ErrInvalidCredential):
		return http.StatusUnauthorized, "invalid or expired token", applog.ErrorTypeAuth
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, err.Error(), applog.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFoundOrForbidden):
		return http.StatusNotFound, core.ErrNotFoundOrForbidden.Error(), applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrUpstream):
		return http.StatusBadGateway, "forecast service unavailable", applog.ErrorTypeUpstream
	case errors.Is(err, core.ErrStorage):
		return http.StatusInternalServerError, "internal server error", applog.ErrorTypeDatabase
	default:
		return http.StatusInternalServerError, "internal server error", applog.ErrorTypeInternal
	}
}

// writeError logs err with its taxonomy kind and writes the mapped response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg, errType := statusFor(err)

	fields := applog.NewFields().WithOperation(op).WithError(err, errType)
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="fintrack"`)
	}
	writeMessage(w, status, msg)
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, "authenticate", err)
}

func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded", applog.FieldPath, r.URL.Path, applog.FieldMethod, r.Method)
	writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}
