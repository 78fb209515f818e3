package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"SignalFeed/internal/model"

	"github.com/go-chi/chi/v5"
)

const maxBody = 1 << 20

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return false
	}
	return true
}

func validDate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Focus     *float64 `json:"focus"`
		RiskLevel *float64 `json:"riskLevel"`
		Horizon   string   `json:"horizon"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	p := model.UserAgentProfile{
		UserID:    chi.URLParam(r, "userID"),
		Focus:     model.DefaultFocus,
		RiskLevel: model.DefaultRiskLevel,
		Horizon:   body.Horizon,
	}
	if body.Focus != nil {
		p.Focus = *body.Focus
	}
	if body.RiskLevel != nil {
		p.RiskLevel = *body.RiskLevel
	}
	if p.Horizon == "" {
		p.Horizon = model.DefaultHorizon
	}
	if p.Focus < 0 || p.Focus > 1 || p.RiskLevel < 0 || p.RiskLevel > 1 {
		s.writeError(w, http.StatusBadRequest, "focus and riskLevel must be within [0, 1]")
		return
	}
	if err := s.cfg.Admin.SaveProfile(r.Context(), p); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSaveRegime(w http.ResponseWriter, r *http.Request) {
	var st model.RegimeState
	if !s.decodeBody(w, r, &st) {
		return
	}
	if !validDate(st.Date) || st.Regime == "" {
		s.writeError(w, http.StatusBadRequest, "date (YYYY-MM-DD) and regime are required")
		return
	}
	if err := s.cfg.Admin.SaveRegimeState(r.Context(), st); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSaveCrisis(w http.ResponseWriter, r *http.Request) {
	var st model.CrisisState
	if !s.decodeBody(w, r, &st) {
		return
	}
	if !validDate(st.Date) {
		s.writeError(w, http.StatusBadRequest, "date (YYYY-MM-DD) is required")
		return
	}
	if err := s.cfg.Admin.SaveCrisisState(r.Context(), st); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSavePosition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID       int64   `json:"id"`
		UserID   string  `json:"userId"`
		Symbol   string  `json:"symbol"`
		BuyPrice float64 `json:"buyPrice"`
		Quantity float64 `json:"quantity"`
		SellDate string  `json:"sellDate"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.UserID == "" || body.Symbol == "" || body.BuyPrice <= 0 {
		s.writeError(w, http.StatusBadRequest, "userId, symbol and a positive buyPrice are required")
		return
	}
	p := model.Position{
		ID:       body.ID,
		UserID:   body.UserID,
		Symbol:   strings.ToUpper(body.Symbol),
		BuyPrice: body.BuyPrice,
		Quantity: body.Quantity,
	}
	if body.SellDate != "" {
		t, err := time.Parse(model.DateLayout, body.SellDate)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid sellDate, want YYYY-MM-DD")
			return
		}
		p.SellDate = &t
	}
	id, err := s.cfg.Admin.SavePosition(r.Context(), p)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	p.ID = id
	s.writeJSON(w, http.StatusOK, p)
}
