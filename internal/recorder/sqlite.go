package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store persists regime state, profiles, positions, ideas, feeds and runs in
// SQLite. Writes are serialized; SQLite allows a single writer anyway.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

var _ Recorder = (*Store)(nil)

// Open opens (or creates) the SQLite database and runs migrations. Use
// ":memory:" for a throwaway database.
func Open(dbPath string, log zerolog.Logger) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive and shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, log: log.With().Str("component", "store").Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS regime_states (
			date              TEXT PRIMARY KEY,
			regime            TEXT NOT NULL,
			volatility_regime TEXT NOT NULL,
			leadership        TEXT NOT NULL DEFAULT '[]',
			macro_drivers     TEXT NOT NULL DEFAULT '[]',
			risk_flags        TEXT NOT NULL DEFAULT '[]',
			confidence        REAL NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS crisis_states (
			date      TEXT PRIMARY KEY,
			is_active INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id    TEXT PRIMARY KEY,
			focus      REAL,
			risk_level REAL,
			horizon    TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS positions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id   TEXT NOT NULL,
			symbol    TEXT NOT NULL,
			buy_price REAL NOT NULL,
			quantity  REAL NOT NULL,
			sell_date TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_open ON positions(sell_date)`,

		`CREATE TABLE IF NOT EXISTS canonical_ideas (
			date     TEXT NOT NULL,
			idea_id  TEXT NOT NULL,
			position INTEGER NOT NULL,
			category TEXT NOT NULL,
			payload  TEXT NOT NULL,
			PRIMARY KEY (date, idea_id)
		)`,

		`CREATE TABLE IF NOT EXISTS user_recommendations (
			user_id    TEXT NOT NULL,
			date       TEXT NOT NULL,
			payload    TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS agent_runs (
			id                TEXT PRIMARY KEY,
			date              TEXT NOT NULL,
			model             TEXT,
			mode              TEXT,
			prompt_tokens     INTEGER,
			completion_tokens INTEGER,
			total_tokens      INTEGER,
			success           INTEGER NOT NULL,
			error             TEXT,
			started_at        INTEGER NOT NULL,
			duration_ms       INTEGER,
			summary           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON agent_runs(started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
