package recorder

import (
	"context"
	"database/sql"
	"fmt"

	"SignalFeed/internal/model"
)

// ListProfiles returns every user profile ordered by user id. Unset fields
// take the documented defaults.
func (s *Store) ListProfiles(ctx context.Context) ([]model.UserAgentProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, focus, risk_level, horizon FROM user_profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []model.UserAgentProfile
	for rows.Next() {
		var (
			p         model.UserAgentProfile
			focus     sql.NullFloat64
			riskLevel sql.NullFloat64
			horizon   sql.NullString
		)
		if err := rows.Scan(&p.UserID, &focus, &riskLevel, &horizon); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Focus = model.DefaultFocus
		if focus.Valid {
			p.Focus = focus.Float64
		}
		p.RiskLevel = model.DefaultRiskLevel
		if riskLevel.Valid {
			p.RiskLevel = riskLevel.Float64
		}
		p.Horizon = model.DefaultHorizon
		if horizon.Valid && horizon.String != "" {
			p.Horizon = horizon.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveProfile inserts or replaces a user profile.
func (s *Store) SaveProfile(ctx context.Context, p model.UserAgentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO user_profiles (user_id, focus, risk_level, horizon) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			focus = excluded.focus,
			risk_level = excluded.risk_level,
			horizon = excluded.horizon`,
		p.UserID, p.Focus, p.RiskLevel, p.Horizon)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
