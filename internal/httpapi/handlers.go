package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/alerting"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/benchmark"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/storage"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusRequest is the body of a status update.
type StatusRequest struct {
	Status domain.AlertStatus `json:"status"`
}

// ClearResponse reports how many resolved alerts were deleted.
type ClearResponse struct {
	Deleted int `json:"deleted"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, RequestID: w.Header().Get("X-Request-ID")})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alerts.GenerateAllAlerts(r.Context()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alerts.GetAlertStatistics(r.Context()))
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.alerts.UpdateAlertStatus(r.Context(), id, req.Status)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, alerting.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, alerting.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("alert_id", id).Msg("update alert status")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleClearResolved(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	n, err := s.alerts.ClearOldAlerts(r.Context(), days)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("clear resolved alerts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{Deleted: n})
}

func (s *Server) handleIntelligence(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()

	window := 0
	if v := q.Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "window must be a positive integer")
			return
		}
		window = n
	}

	ci, err := s.intelligence.Analyze(r.Context(), id, window)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("alert_id", id).Msg("analyze alert")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if ci == nil {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, benchmark.Enrich(ci, q.Get("sector")))
}
