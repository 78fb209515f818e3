package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SignalFeed/internal/model"
)

// ReplaceIdeas deletes the canonical ideas for date and inserts ideas in one
// transaction. A repeated idea id keeps the last occurrence.
func (s *Store) ReplaceIdeas(ctx context.Context, date time.Time, ideas []model.CanonicalIdea) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := model.FormatDate(date)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM canonical_ideas WHERE date = ?`, day); err != nil {
		return fmt.Errorf("delete ideas: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO canonical_ideas (date, idea_id, position, category, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, idea_id) DO UPDATE SET
			position = excluded.position,
			category = excluded.category,
			payload = excluded.payload`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, idea := range ideas {
		payload, err := json.Marshal(idea)
		if err != nil {
			return fmt.Errorf("encode idea %s: %w", idea.IdeaID, err)
		}
		if _, err := stmt.ExecContext(ctx, day, idea.IdeaID, i, idea.Category, string(payload)); err != nil {
			return fmt.Errorf("insert idea %s: %w", idea.IdeaID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug().Str("date", day).Int("ideas", len(ideas)).Msg("canonical ideas replaced")
	return nil
}

// Ideas returns the canonical ideas for date in generator order.
func (s *Store) Ideas(ctx context.Context, date time.Time) ([]model.CanonicalIdea, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM canonical_ideas WHERE date = ? ORDER BY position`, model.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("query ideas: %w", err)
	}
	defer rows.Close()

	var out []model.CanonicalIdea
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		var idea model.CanonicalIdea
		if err := json.Unmarshal([]byte(payload), &idea); err != nil {
			return nil, fmt.Errorf("decode idea: %w", err)
		}
		out = append(out, idea)
	}
	return out, rows.Err()
}

// UpsertFeed stores one user's feed for date, replacing any earlier feed.
func (s *Store) UpsertFeed(ctx context.Context, userID string, date time.Time, feed []model.CanonicalIdea) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if feed == nil {
		feed = []model.CanonicalIdea{}
	}
	payload, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO user_recommendations (user_id, date, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		userID, model.FormatDate(date), string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert feed: %w", err)
	}
	return nil
}

// Feed returns one user's feed for date, or ErrNotFound.
func (s *Store) Feed(ctx context.Context, userID string, date time.Time) ([]model.CanonicalIdea, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM user_recommendations WHERE user_id = ? AND date = ?`,
		userID, model.FormatDate(date)).Scan(&payload)
	if err != nil {
		return nil, notFound(err, "query feed")
	}
	var feed []model.CanonicalIdea
	if err := json.Unmarshal([]byte(payload), &feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return feed, nil
}
