package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalFeed/internal/model"
)

// SavePosition inserts a new position (ID 0) or updates an existing one, and
// returns its id.
func (s *Store) SavePosition(ctx context.Context, p model.Position) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sellDate sql.NullString
	if p.SellDate != nil {
		sellDate = sql.NullString{String: model.FormatDate(*p.SellDate), Valid: true}
	}

	if p.ID == 0 {
		res, err := s.db.ExecContext(ctx, `INSERT INTO positions (user_id, symbol, buy_price, quantity, sell_date)
			VALUES (?, ?, ?, ?, ?)`, p.UserID, p.Symbol, p.BuyPrice, p.Quantity, sellDate)
		if err != nil {
			return 0, fmt.Errorf("insert position: %w", err)
		}
		return res.LastInsertId()
	}

	_, err := s.db.ExecContext(ctx, `UPDATE positions SET user_id = ?, symbol = ?, buy_price = ?, quantity = ?, sell_date = ?
		WHERE id = ?`, p.UserID, p.Symbol, p.BuyPrice, p.Quantity, sellDate, p.ID)
	if err != nil {
		return 0, fmt.Errorf("update position: %w", err)
	}
	return p.ID, nil
}

// ListOpenPositions returns positions without a sell date across all users.
func (s *Store) ListOpenPositions(ctx context.Context) ([]model.Position, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, symbol, buy_price, quantity, sell_date
		FROM positions WHERE sell_date IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var out []model.Position
	for rows.Next() {
		var (
			p        model.Position
			sellDate sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Symbol, &p.BuyPrice, &p.Quantity, &sellDate); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		if sellDate.Valid {
			t, err := time.Parse(model.DateLayout, sellDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse sell date: %w", err)
			}
			p.SellDate = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
