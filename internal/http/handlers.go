package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/forecast"
	applog "fintrack/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the store answers within the ready timeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	if err := s.ledger.Ready(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": map[string]string{"store": "failed"},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{"store": "ok"},
	})
}

// owner returns the verified caller. The auth middleware guarantees one on
// every /api route; a missing identity is treated as unauthenticated.
func owner(r *http.Request) (string, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return "", core.ErrUnauthenticated
	}
	return id.UserID, nil
}

func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		return "", errEmptyID
	}
	return id, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}

	txs, err := s.ledger.List(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}

	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = toResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	in, err := decodeTransaction(r, s.maxBodyBytes)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	t, err := s.ledger.Create(r.Context(), ownerID, in)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+t.ID)
	writeJSON(w, http.StatusCreated, toResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, core.ErrNotFoundOrForbidden)
		return
	}

	in, err := decodeTransaction(r, s.maxBodyBytes)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}

	t, err := s.ledger.Update(r.Context(), ownerID, id, in)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, core.ErrNotFoundOrForbidden)
		return
	}

	if err := s.ledger.Delete(r.Context(), ownerID, id); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.writeError(w, r, applog.OpInsights, err)
		return
	}

	report, err := s.ledger.Insights(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, applog.OpInsights, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.writeError(w, r, applog.OpForecast, err)
		return
	}
	horizon, err := parsePeriods(r, s.defaultHorizon)
	if err != nil {
		s.writeError(w, r, applog.OpForecast, err)
		return
	}

	points, err := s.ledger.Forecast(r.Context(), ownerID, horizon)
	if err != nil {
		s.writeError(w, r, applog.OpForecast, err)
		return
	}
	if points == nil {
		points = []forecast.Point{}
	}
	writeJSON(w, http.StatusOK, points)
}
