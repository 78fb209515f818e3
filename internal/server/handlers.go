package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"SignalFeed/internal/ideas"
	"SignalFeed/internal/model"
	"SignalFeed/internal/recommend"
	"SignalFeed/internal/recorder"
	"SignalFeed/internal/scheduler"

	"github.com/go-chi/chi/v5"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// date reads the optional ?date=YYYY-MM-DD parameter.
func (s *Server) date(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return s.cfg.Today(), nil
	}
	return time.Parse(model.DateLayout, v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store != nil {
		if err := s.cfg.Store.Ping(r.Context()); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	date, err := s.date(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	// A client that disconnects must not abort the per-user fan-out midway.
	summary, err := s.cfg.Runs.RunForDate(context.WithoutCancel(r.Context()), date)
	switch {
	case errors.Is(err, scheduler.ErrBusy):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, recommend.ErrRunFailed):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, summary)
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	runs, err := s.cfg.Store.Runs(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.RunRecord{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleIdeas(w http.ResponseWriter, r *http.Request) {
	date, err := s.date(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	all, err := s.cfg.Store.Ideas(r.Context(), date)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sections := ideas.Partition(all)
	if sections.Strategic == nil {
		sections.Strategic = []model.CanonicalIdea{}
	}
	if sections.Opportunistic == nil {
		sections.Opportunistic = []model.CanonicalIdea{}
	}
	if sections.Risk == nil {
		sections.Risk = []model.CanonicalIdea{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"date":     model.FormatDate(date),
		"sections": sections,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	date, err := s.date(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	userID := chi.URLParam(r, "userID")
	feed, err := s.cfg.Store.Feed(r.Context(), userID, date)
	if errors.Is(err, recorder.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "no recommendations for user on date")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"userId": userID,
		"date":   model.FormatDate(date),
		"items":  feed,
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.cfg.Alerts.EvaluateAlerts(r.Context())
	if errors.Is(err, scheduler.ErrNoMonitor) {
		s.writeError(w, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	s.writeJSON(w, http.StatusOK, alerts)
}
