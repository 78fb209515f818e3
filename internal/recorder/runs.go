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

// RecordRun persists one run record.
func (s *Store) RecordRun(ctx context.Context, rec model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary sql.NullString
	if rec.Summary != nil {
		b, err := json.Marshal(rec.Summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		summary = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO agent_runs
		(id, date, model, mode, prompt_tokens, completion_tokens, total_tokens,
		 success, error, started_at, duration_ms, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Date, rec.Model, rec.Mode,
		rec.Usage.PromptTokens, rec.Usage.CompletionTokens, rec.Usage.TotalTokens,
		rec.Success, rec.Error, rec.StartedAt.UnixMilli(), rec.DurationMs, summary)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, date, model, mode, prompt_tokens, completion_tokens, total_tokens,
		success, error, started_at, duration_ms, summary
		FROM agent_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []model.RunRecord
	for rows.Next() {
		var (
			rec       model.RunRecord
			runErr    sql.NullString
			startedAt int64
			summary   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Model, &rec.Mode,
			&rec.Usage.PromptTokens, &rec.Usage.CompletionTokens, &rec.Usage.TotalTokens,
			&rec.Success, &runErr, &startedAt, &rec.DurationMs, &summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Error = runErr.String
		rec.StartedAt = time.UnixMilli(startedAt).UTC()
		if summary.Valid {
			rec.Summary = &model.RunSummary{}
			if err := json.Unmarshal([]byte(summary.String), rec.Summary); err != nil {
				return nil, fmt.Errorf("decode summary: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
