package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SignalFeed/internal/model"
)

// RegimeState returns the regime row for date, or nil when none exists.
func (s *Store) RegimeState(ctx context.Context, date time.Time) (*model.RegimeState, error) {
	var (
		st                         model.RegimeState
		leadership, drivers, flags string
	)
	err := s.db.QueryRowContext(ctx, `SELECT date, regime, volatility_regime, leadership, macro_drivers, risk_flags, confidence
		FROM regime_states WHERE date = ?`, model.FormatDate(date)).
		Scan(&st.Date, &st.Regime, &st.VolatilityRegime, &leadership, &drivers, &flags, &st.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query regime state: %w", err)
	}
	for _, col := range []struct {
		raw string
		dst *[]string
	}{{leadership, &st.Leadership}, {drivers, &st.MacroDrivers}, {flags, &st.RiskFlags}} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("decode regime state: %w", err)
		}
	}
	return &st, nil
}

// SaveRegimeState inserts or replaces the regime row for st.Date.
func (s *Store) SaveRegimeState(ctx context.Context, st model.RegimeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	leadership, _ := json.Marshal(nonNil(st.Leadership))
	drivers, _ := json.Marshal(nonNil(st.MacroDrivers))
	flags, _ := json.Marshal(nonNil(st.RiskFlags))
	_, err := s.db.ExecContext(ctx, `INSERT INTO regime_states
		(date, regime, volatility_regime, leadership, macro_drivers, risk_flags, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			regime = excluded.regime,
			volatility_regime = excluded.volatility_regime,
			leadership = excluded.leadership,
			macro_drivers = excluded.macro_drivers,
			risk_flags = excluded.risk_flags,
			confidence = excluded.confidence`,
		st.Date, st.Regime, st.VolatilityRegime, string(leadership), string(drivers), string(flags), st.Confidence)
	if err != nil {
		return fmt.Errorf("save regime state: %w", err)
	}
	return nil
}

// CrisisState returns the crisis row for date, or nil when none exists.
func (s *Store) CrisisState(ctx context.Context, date time.Time) (*model.CrisisState, error) {
	var st model.CrisisState
	err := s.db.QueryRowContext(ctx, `SELECT date, is_active FROM crisis_states WHERE date = ?`, model.FormatDate(date)).
		Scan(&st.Date, &st.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query crisis state: %w", err)
	}
	return &st, nil
}

// SaveCrisisState inserts or replaces the crisis row for st.Date.
func (s *Store) SaveCrisisState(ctx context.Context, st model.CrisisState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO crisis_states (date, is_active) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET is_active = excluded.is_active`, st.Date, st.IsActive)
	if err != nil {
		return fmt.Errorf("save crisis state: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
