package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"SignalFeed/internal/ideas"
	"SignalFeed/internal/model"
	"SignalFeed/internal/strategy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrRunFailed wraps any error that aborts a whole run.
var ErrRunFailed = errors.New("recommendation run failed")

// DefaultConcurrency bounds the per-user fan-out when none is configured.
const DefaultConcurrency = 4

// Deps groups the orchestrator collaborators.
type Deps struct {
	Regime    RegimeSource
	Market    MarketSource
	Generator CandidateGenerator
	Profiles  ProfileStore
	Ideas     IdeaStore
	Feeds     FeedStore
	Telemetry TelemetrySink
}

// Orchestrator runs the daily distribution for a date.
type Orchestrator struct {
	deps        Deps
	signals     strategy.Config
	concurrency int
	log         zerolog.Logger
	now         func() time.Time
}

// NewOrchestrator creates an orchestrator. Market and Telemetry may be nil.
func NewOrchestrator(deps Deps, signals strategy.Config, concurrency int, log zerolog.Logger) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{
		deps:        deps,
		signals:     signals,
		concurrency: concurrency,
		log:         log.With().Str("component", "orchestrator").Logger(),
		now:         time.Now,
	}
}

// RunForDate produces the canonical idea pool and every user's feed for date.
// Steps up to persisting canonical ideas are fatal; per-user failures are
// reported in the summary without stopping other users.
func (o *Orchestrator) RunForDate(ctx context.Context, date time.Time) (*model.RunSummary, error) {
	started := o.now()
	rec := model.RunRecord{
		ID:        uuid.NewString(),
		Date:      model.FormatDate(date),
		StartedAt: started,
	}

	summary, gen, err := o.run(ctx, date)
	if gen != nil {
		rec.Model = gen.Model
		rec.Mode = gen.Mode
		rec.Usage = gen.Usage
	}
	rec.DurationMs = o.now().Sub(started).Milliseconds()
	rec.Summary = summary
	rec.Success = err == nil
	if err != nil {
		rec.Error = err.Error()
	}
	o.record(ctx, rec)

	if err != nil {
		o.log.Error().Err(err).Str("date", rec.Date).Msg("run failed")
		return nil, err
	}
	o.log.Info().
		Str("date", rec.Date).
		Int("users", summary.UsersProcessed).
		Int("failed", summary.UsersFailed).
		Int("feed_items", summary.FeedItems).
		Int64("duration_ms", rec.DurationMs).
		Msg("run complete")
	return summary, nil
}

func (o *Orchestrator) run(ctx context.Context, date time.Time) (*model.RunSummary, *GenerationResult, error) {
	regime, crisis, err := o.loadState(ctx, date)
	if err != nil {
		return nil, nil, fail("load regime", err)
	}

	pool, err := o.pool(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fail("load market", err)
		}
		// Missing market data degrades the pool; the generator still runs on regime state.
		o.log.Warn().Err(err).Msg("market data unavailable, continuing with an empty pool")
		pool = nil
	}

	gen, err := o.deps.Generator.Generate(ctx, GenerateRequest{Date: date, Regime: regime, Crisis: crisis, Pool: pool})
	if err != nil {
		return nil, nil, fail("generate candidates", err)
	}
	if gen == nil {
		return nil, nil, fail("generate candidates", errors.New("generator returned no result"))
	}

	canonical := ideas.NormalizeAll(gen.Ideas, date)
	sections := ideas.Partition(canonical)

	if err := o.deps.Ideas.ReplaceIdeas(ctx, date, canonical); err != nil {
		return nil, gen, fail("persist ideas", err)
	}

	profiles, err := o.deps.Profiles.ListProfiles(ctx)
	if err != nil {
		return nil, gen, fail("list profiles", err)
	}
	sort.SliceStable(profiles, func(i, j int) bool { return profiles[i].UserID < profiles[j].UserID })

	summary := &model.RunSummary{
		Date:          model.FormatDate(date),
		Strategic:     len(sections.Strategic),
		Opportunistic: len(sections.Opportunistic),
		Risk:          len(sections.Risk),
	}
	o.distribute(ctx, date, sections, profiles, crisis.IsActive, summary)
	return summary, gen, nil
}

func (o *Orchestrator) loadState(ctx context.Context, date time.Time) (model.RegimeState, model.CrisisState, error) {
	regime := model.DefaultRegimeState(date)
	crisis := model.CrisisState{Date: model.FormatDate(date)}

	r, err := o.deps.Regime.RegimeState(ctx, date)
	if err != nil {
		return regime, crisis, err
	}
	if r != nil {
		regime = *r
	}
	c, err := o.deps.Regime.CrisisState(ctx, date)
	if err != nil {
		return regime, crisis, err
	}
	if c != nil {
		crisis = *c
	}
	return regime, crisis, nil
}

func (o *Orchestrator) pool(ctx context.Context) ([]model.AssetSnapshot, error) {
	if o.deps.Market == nil {
		return nil, nil
	}
	snaps, err := o.deps.Market.Snapshots(ctx)
	if err != nil {
		return nil, err
	}
	return strategy.ScoreAll(snaps, o.signals), nil
}

// distribute personalizes and upserts every user's feed concurrently. Each
// task captures its own outcome so one failure never cancels its siblings.
func (o *Orchestrator) distribute(ctx context.Context, date time.Time, sections model.Sections, profiles []model.UserAgentProfile, crisis bool, summary *model.RunSummary) {
	type outcome struct {
		items int
		err   error
	}
	results := make([]outcome, len(profiles))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, profile := range profiles {
		g.Go(func() error {
			feed := Personalize(sections, profile, crisis)
			if err := o.deps.Feeds.UpsertFeed(ctx, profile.UserID, date, feed); err != nil {
				results[i] = outcome{err: err}
				return nil
			}
			results[i] = outcome{items: len(feed)}
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		if res.err != nil {
			summary.UsersFailed++
			summary.Failures = append(summary.Failures, model.UserFailure{UserID: profiles[i].UserID, Error: res.err.Error()})
			o.log.Warn().Err(res.err).Str("user_id", profiles[i].UserID).Msg("feed upsert failed")
			continue
		}
		summary.UsersProcessed++
		summary.FeedItems += res.items
	}
}

func (o *Orchestrator) record(ctx context.Context, rec model.RunRecord) {
	if o.deps.Telemetry == nil {
		return
	}
	if err := o.deps.Telemetry.RecordRun(ctx, rec); err != nil {
		o.log.Warn().Err(err).Str("run_id", rec.ID).Msg("telemetry record failed")
	}
}

func fail(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRunFailed, step, err)
}
