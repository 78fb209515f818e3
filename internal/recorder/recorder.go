package recorder

import (
	"context"
	"errors"
	"time"

	"SignalFeed/internal/model"
)

// ErrNotFound is returned by readers when no row exists.
var ErrNotFound = errors.New("not found")

// Recorder persists run history and serves the stored idea pool and feeds.
type Recorder interface {
	RecordRun(ctx context.Context, rec model.RunRecord) error
	Runs(ctx context.Context, limit int) ([]model.RunRecord, error)
	Ideas(ctx context.Context, date time.Time) ([]model.CanonicalIdea, error)
	Feed(ctx context.Context, userID string, date time.Time) ([]model.CanonicalIdea, error)
	Ping(ctx context.Context) error
	Close() error
}
