package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mlserve/retrain-engine/internal/config"
	"github.com/mlserve/retrain-engine/internal/coordinator"
	"github.com/mlserve/retrain-engine/internal/pipeline"
	"github.com/mlserve/retrain-engine/internal/policy"
	"github.com/mlserve/retrain-engine/internal/state"
)

// #region health

// handleHealth reports process liveness.
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"retraining": s.coord.Status().Retraining,
	})
}

// #endregion health

// #region status

// handleStatus returns the lock-free engine snapshot.
// GET /retrain/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Status())
}

// handleAttempts returns the operational attempt log, newest first.
// GET /retrain/attempts?limit=N
func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	attempts, err := s.coord.Attempts(limit)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	if attempts == nil {
		attempts = []state.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

// #endregion status

// #region trigger

// TriggerRequest is the body for POST /retrain/trigger.
type TriggerRequest struct {
	Reason string `json:"reason"`
	Force  bool   `json:"force,omitempty"`
	// Defer records the request for the next scheduled evaluation instead of
	// running it inline.
	Defer bool `json:"defer,omitempty"`
}

// TriggerResponse reports the decision. A blocked decision is a valid
// outcome, not an error.
type TriggerResponse struct {
	Accepted bool          `json:"accepted"`
	Queued   bool          `json:"queued,omitempty"`
	Reason   policy.Reason `json:"reason,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	NewScore *float64      `json:"new_score,omitempty"`
}

// handleTrigger runs (or defers) a manual retrain request.
// POST /retrain/trigger
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.Reason == "" {
		req.Reason = "manual trigger"
	}

	if req.Defer {
		if err := s.coord.Enqueue(req.Reason); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, TriggerResponse{Accepted: true, Queued: true})
		return
	}

	manual := &state.ManualRequest{Reason: req.Reason, Force: req.Force}
	outcome, err := s.coord.EvaluateAndMaybeRetrain(r.Context(), manual)
	if err != nil {
		s.writeOutcomeError(w, outcome, err)
		return
	}

	writeJSON(w, http.StatusOK, TriggerResponse{
		Accepted: outcome.Decision.ShouldRetrain,
		Reason:   outcome.Decision.Reason,
		Detail:   outcome.Decision.Detail,
		NewScore: outcome.NewScore,
	})
}

func (s *Server) writeOutcomeError(w http.ResponseWriter, outcome coordinator.Outcome, err error) {
	switch {
	case errors.Is(err, pipeline.ErrRun):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	case errors.Is(err, coordinator.ErrPersistence):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		// The retrain may still be running; the caller should re-query status.
		writeJSON(w, http.StatusGatewayTimeout, TriggerResponse{
			Accepted: outcome.Decision.ShouldRetrain,
			Reason:   outcome.Decision.Reason,
			Detail:   "retrain still in progress; re-query /retrain/status",
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

// #endregion trigger

// #region config

// handleConfig applies a validated, immutable config swap and echoes the new
// effective config.
// POST /retrain/config
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var overrides config.Overrides
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	next, err := s.coord.UpdateConfig(overrides)
	if err != nil {
		if errors.Is(err, config.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, next)
}

// #endregion config
