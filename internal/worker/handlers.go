package worker

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/pacekeeper/pacekeeper/internal/schedule"
	"github.com/pacekeeper/pacekeeper/internal/worker/session"
	"github.com/pacekeeper/pacekeeper/internal/worker/sse"
	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// morningRequest is the body for POST /api/morning.
type morningRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	Utterance string `json:"utterance"`
}

// stateCheckRequest is the body for POST /api/state-check.
type stateCheckRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	Utterance string `json:"utterance" validate:"required"`
}

// completeRequest is the body for POST /api/segment/complete.
type completeRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// decode parses and validates a JSON request body.
func (s *Service) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleMorning runs one morning-analysis turn.
func (s *Service) handleMorning(w http.ResponseWriter, r *http.Request) {
	var req morningRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.sessionManager.StartMorningAnalysis(r.Context(), req.UserID, req.Utterance)
	if err != nil {
		log.Error().Err(err).Str("user", req.UserID).Msg("Morning analysis failed")
		s.writeError(w, http.StatusInternalServerError, "morning analysis failed")
		return
	}

	if result.Summary != nil {
		s.sseBroadcaster.Broadcast(sse.Event{Type: "status", UserID: req.UserID, Payload: result.Summary})
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleStateCheck classifies one utterance and runs the intervention
// decision against the live schedule.
func (s *Service) handleStateCheck(w http.ResponseWriter, r *http.Request) {
	var req stateCheckRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.sessionManager.StateCheck(r.Context(), req.UserID, req.Utterance)
	if err != nil {
		log.Error().Err(err).Str("user", req.UserID).Msg("State check failed")
		s.writeError(w, http.StatusInternalServerError, "state check failed")
		return
	}

	if result.Intervention.Level != models.LevelNone {
		s.sseBroadcaster.Broadcast(sse.Event{Type: "intervention", UserID: req.UserID, Payload: result.Intervention})
	}
	if result.Summary != nil {
		s.sseBroadcaster.Broadcast(sse.Event{Type: "status", UserID: req.UserID, Payload: result.Summary})
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleCompleteSegment advances the schedule when an external timer fires.
func (s *Service) handleCompleteSegment(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !s.decode(w, r, &req) {
		return
	}

	summary, err := s.sessionManager.CompleteCurrentSegment(r.Context(), req.UserID)
	switch {
	case errors.Is(err, session.ErrNoSchedule):
		s.writeError(w, http.StatusNotFound, "no schedule for today")
		return
	case errors.Is(err, schedule.ErrDayEnded):
		s.writeError(w, http.StatusConflict, "day has ended")
		return
	case err != nil:
		log.Error().Err(err).Str("user", req.UserID).Msg("Segment completion failed")
		s.writeError(w, http.StatusInternalServerError, "segment completion failed")
		return
	}

	s.sseBroadcaster.Broadcast(sse.Event{Type: "status", UserID: req.UserID, Payload: summary})
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"updated_schedule_summary": summary})
}

// handleStatus is the read-only polling endpoint.
func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	status, err := s.sessionManager.GetStatus(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("Status query failed")
		s.writeError(w, http.StatusInternalServerError, "status query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// handleHealth reports liveness.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	})
}

// handleReady reports readiness, including database reachability.
func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() || s.store.Ping() != nil {
		s.writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
