package recommend

import (
	"context"
	"time"

	"SignalFeed/internal/model"
)

// RegimeSource returns the daily regime and crisis rows. A nil record with a
// nil error means no row exists for the date.
type RegimeSource interface {
	RegimeState(ctx context.Context, date time.Time) (*model.RegimeState, error)
	CrisisState(ctx context.Context, date time.Time) (*model.CrisisState, error)
}

// MarketSource supplies the current asset snapshots for the candidate pool.
type MarketSource interface {
	Snapshots(ctx context.Context) ([]model.AssetSnapshot, error)
}

// GenerateRequest is the input handed to a candidate generator.
type GenerateRequest struct {
	Date   time.Time
	Regime model.RegimeState
	Crisis model.CrisisState
	Pool   []model.AssetSnapshot
}

// GenerationResult is the raw generator output. Ideas are untrusted.
type GenerationResult struct {
	Ideas      []model.CandidateIdea
	Model      string
	Usage      model.Usage
	Mode       string
	DurationMs int64
}

// CandidateGenerator produces raw ideas for a date.
type CandidateGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error)
}

// ProfileStore lists every user profile in a stable order.
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]model.UserAgentProfile, error)
}

// IdeaStore replaces the canonical ideas for a date atomically.
type IdeaStore interface {
	ReplaceIdeas(ctx context.Context, date time.Time, ideas []model.CanonicalIdea) error
}

// FeedStore upserts one user's feed for a date.
type FeedStore interface {
	UpsertFeed(ctx context.Context, userID string, date time.Time, feed []model.CanonicalIdea) error
}

// TelemetrySink records run outcomes. Failures never affect the run.
type TelemetrySink interface {
	RecordRun(ctx context.Context, rec model.RunRecord) error
}
