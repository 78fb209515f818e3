package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalFeed/internal/model"
	"SignalFeed/internal/strategy"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runDate = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

type fakeRegime struct {
	regime    *model.RegimeState
	crisis    *model.CrisisState
	regimeErr error
}

func (f *fakeRegime) RegimeState(context.Context, time.Time) (*model.RegimeState, error) {
	return f.regime, f.regimeErr
}

func (f *fakeRegime) CrisisState(context.Context, time.Time) (*model.CrisisState, error) {
	return f.crisis, nil
}

type fakeGenerator struct {
	GenerateFunc func(ctx context.Context, req GenerateRequest) (*GenerationResult, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error) {
	return f.GenerateFunc(ctx, req)
}

type fakeMarket struct {
	snaps []model.AssetSnapshot
	err   error
}

func (f *fakeMarket) Snapshots(context.Context) ([]model.AssetSnapshot, error) {
	return f.snaps, f.err
}

// memStore keeps ideas and feeds in memory with replace/upsert semantics.
type memStore struct {
	mu         sync.Mutex
	profiles   []model.UserAgentProfile
	ideas      map[string][]model.CanonicalIdea
	feeds      map[string][]model.CanonicalIdea
	replaceErr error
	failUsers  map[string]bool
	runs       []model.RunRecord
	runErr     error
}

func newMemStore(profiles ...model.UserAgentProfile) *memStore {
	return &memStore{
		profiles:  profiles,
		ideas:     map[string][]model.CanonicalIdea{},
		feeds:     map[string][]model.CanonicalIdea{},
		failUsers: map[string]bool{},
	}
}

func (m *memStore) ListProfiles(context.Context) ([]model.UserAgentProfile, error) {
	out := make([]model.UserAgentProfile, len(m.profiles))
	copy(out, m.profiles)
	return out, nil
}

func (m *memStore) ReplaceIdeas(_ context.Context, date time.Time, ideas []model.CanonicalIdea) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ideas[model.FormatDate(date)] = ideas
	return nil
}

func (m *memStore) UpsertFeed(_ context.Context, userID string, date time.Time, feed []model.CanonicalIdea) error {
	if m.failUsers[userID] {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[userID+"/"+model.FormatDate(date)] = feed
	return nil
}

func (m *memStore) RecordRun(_ context.Context, rec model.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, rec)
	return m.runErr
}

func candidates() []model.CandidateIdea {
	return []model.CandidateIdea{
		{"category": "strategic", "symbol": "AAPL", "action": "BUY", "confidence": 0.9},
		{"category": "strategic", "symbol": "MSFT", "action": "BUY", "confidence": 0.5},
		{"category": "opportunistic", "symbol": "NVDA", "action": "BUY", "confidence": 0.7},
		{"category": "risk", "title": "Rates", "bullets": []any{"10y rising"}},
	}
}

func staticGenerator(ideas []model.CandidateIdea) *fakeGenerator {
	return &fakeGenerator{GenerateFunc: func(context.Context, GenerateRequest) (*GenerationResult, error) {
		return &GenerationResult{Ideas: ideas, Model: "test-model", Mode: "ai", Usage: model.Usage{TotalTokens: 42}}, nil
	}}
}

func newTestOrchestrator(regime *fakeRegime, gen CandidateGenerator, store *memStore) *Orchestrator {
	return NewOrchestrator(Deps{
		Regime:    regime,
		Generator: gen,
		Profiles:  store,
		Ideas:     store,
		Feeds:     store,
		Telemetry: store,
	}, strategy.DefaultConfig(), 2, zerolog.Nop())
}

func TestRunForDate_PersistsIdeasAndFeeds(t *testing.T) {
	store := newMemStore(
		model.UserAgentProfile{UserID: "bob", Focus: 0.5, RiskLevel: 0.5},
		model.UserAgentProfile{UserID: "alice", Focus: 0.5, RiskLevel: 0.2},
	)
	o := newTestOrchestrator(&fakeRegime{}, staticGenerator(candidates()), store)

	summary, err := o.RunForDate(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-14", summary.Date)
	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Zero(t, summary.UsersFailed)
	assert.Equal(t, 2, summary.Strategic)
	assert.Equal(t, 1, summary.Opportunistic)
	assert.Equal(t, 1, summary.Risk)

	require.Len(t, store.ideas["2025-03-14"], 4)
	assert.Len(t, store.feeds["bob/2025-03-14"], 4)
	// alice's threshold is 0.55 so the 0.5 MSFT idea is dropped.
	assert.Len(t, store.feeds["alice/2025-03-14"], 3)
	assert.Equal(t, 7, summary.FeedItems)

	require.Len(t, store.runs, 1)
	run := store.runs[0]
	assert.True(t, run.Success)
	assert.Equal(t, "test-model", run.Model)
	assert.Equal(t, 42, run.Usage.TotalTokens)
	assert.NotEmpty(t, run.ID)
}

func TestRunForDate_DefaultsWhenRegimeMissing(t *testing.T) {
	var got GenerateRequest
	gen := &fakeGenerator{GenerateFunc: func(_ context.Context, req GenerateRequest) (*GenerationResult, error) {
		got = req
		return &GenerationResult{}, nil
	}}
	o := newTestOrchestrator(&fakeRegime{}, gen, newMemStore())

	_, err := o.RunForDate(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, model.DefaultRegimeState(runDate), got.Regime)
	assert.False(t, got.Crisis.IsActive)
}

func TestRunForDate_ScoresMarketPool(t *testing.T) {
	var got GenerateRequest
	gen := &fakeGenerator{GenerateFunc: func(_ context.Context, req GenerateRequest) (*GenerationResult, error) {
		got = req
		return &GenerationResult{}, nil
	}}
	store := newMemStore()
	o := NewOrchestrator(Deps{
		Regime:    &fakeRegime{},
		Market:    &fakeMarket{snaps: []model.AssetSnapshot{{Symbol: "AAPL", Price: 100}}},
		Generator: gen,
		Profiles:  store,
		Ideas:     store,
		Feeds:     store,
	}, strategy.DefaultConfig(), 1, zerolog.Nop())

	_, err := o.RunForDate(context.Background(), runDate)
	require.NoError(t, err)
	require.Len(t, got.Pool, 1)
	require.NotNil(t, got.Pool[0].Confluence)
	assert.Equal(t, model.Hold, got.Pool[0].Confluence.Recommendation)
}

func TestRunForDate_MarketOutageDegradesToEmptyPool(t *testing.T) {
	var got GenerateRequest
	gen := &fakeGenerator{GenerateFunc: func(_ context.Context, req GenerateRequest) (*GenerationResult, error) {
		got = req
		return &GenerationResult{Ideas: candidates()}, nil
	}}
	store := newMemStore(model.UserAgentProfile{UserID: "u", Focus: 0.5, RiskLevel: 0.5})
	o := NewOrchestrator(Deps{
		Regime:    &fakeRegime{},
		Market:    &fakeMarket{err: errors.New("all symbols failed")},
		Generator: gen,
		Profiles:  store,
		Ideas:     store,
		Feeds:     store,
	}, strategy.DefaultConfig(), 1, zerolog.Nop())

	summary, err := o.RunForDate(context.Background(), runDate)
	require.NoError(t, err)
	assert.Empty(t, got.Pool)
	assert.Equal(t, 1, summary.UsersProcessed)
	assert.Len(t, store.ideas["2025-03-14"], 4)
}

func TestRunForDate_CrisisTagsEveryItem(t *testing.T) {
	store := newMemStore(model.UserAgentProfile{UserID: "u", Focus: 0.5, RiskLevel: 0.5})
	regime := &fakeRegime{crisis: &model.CrisisState{Date: "2025-03-14", IsActive: true}}
	o := newTestOrchestrator(regime, staticGenerator(candidates()), store)

	_, err := o.RunForDate(context.Background(), runDate)
	require.NoError(t, err)

	feed := store.feeds["u/2025-03-14"]
	require.NotEmpty(t, feed)
	for _, idea := range feed {
		assert.Contains(t, idea.Tags, model.CrisisModeTag)
	}
	for _, idea := range store.ideas["2025-03-14"] {
		assert.NotContains(t, idea.Tags, model.CrisisModeTag, "canonical pool is never personalized")
	}
}

func TestRunForDate_FatalSteps(t *testing.T) {
	boom := errors.New("boom")

	t.Run("regime", func(t *testing.T) {
		store := newMemStore()
		o := newTestOrchestrator(&fakeRegime{regimeErr: boom}, staticGenerator(candidates()), store)
		_, err := o.RunForDate(context.Background(), runDate)
		require.ErrorIs(t, err, ErrRunFailed)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, store.ideas)
	})

	t.Run("generator", func(t *testing.T) {
		store := newMemStore(model.UserAgentProfile{UserID: "u"})
		gen := &fakeGenerator{GenerateFunc: func(context.Context, GenerateRequest) (*GenerationResult, error) {
			return nil, boom
		}}
		o := newTestOrchestrator(&fakeRegime{}, gen, store)
		_, err := o.RunForDate(context.Background(), runDate)
		require.ErrorIs(t, err, ErrRunFailed)
		assert.Empty(t, store.ideas)
		assert.Empty(t, store.feeds)
		require.Len(t, store.runs, 1)
		assert.False(t, store.runs[0].Success)
		assert.Contains(t, store.runs[0].Error, "boom")
	})

	t.Run("persist ideas", func(t *testing.T) {
		store := newMemStore(model.UserAgentProfile{UserID: "u"})
		store.replaceErr = boom
		o := newTestOrchestrator(&fakeRegime{}, staticGenerator(candidates()), store)
		_, err := o.RunForDate(context.Background(), runDate)
		require.ErrorIs(t, err, ErrRunFailed)
		assert.Empty(t, store.feeds)
		require.Len(t, store.runs, 1)
		assert.Equal(t, "test-model", store.runs[0].Model)
	})
}

func TestRunForDate_UserFailureIsolated(t *testing.T) {
	store := newMemStore(
		model.UserAgentProfile{UserID: "a", Focus: 0.5, RiskLevel: 0.5},
		model.UserAgentProfile{UserID: "b", Focus: 0.5, RiskLevel: 0.5},
		model.UserAgentProfile{UserID: "c", Focus: 0.5, RiskLevel: 0.5},
	)
	store.failUsers["b"] = true
	o := newTestOrchestrator(&fakeRegime{}, staticGenerator(candidates()), store)

	summary, err := o.RunForDate(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Equal(t, 1, summary.UsersFailed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "b", summary.Failures[0].UserID)
	assert.Contains(t, store.feeds, "a/2025-03-14")
	assert.Contains(t, store.feeds, "c/2025-03-14")
	assert.NotContains(t, store.feeds, "b/2025-03-14")
}

func TestRunForDate_TelemetryFailureIgnored(t *testing.T) {
	store := newMemStore(model.UserAgentProfile{UserID: "u", Focus: 0.5, RiskLevel: 0.5})
	store.runErr = errors.New("sink down")
	o := newTestOrchestrator(&fakeRegime{}, staticGenerator(candidates()), store)

	summary, err := o.RunForDate(context.Background(), runDate)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UsersProcessed)
}

func TestRunForDate_Idempotent(t *testing.T) {
	store := newMemStore(
		model.UserAgentProfile{UserID: "a", Focus: 0.8, RiskLevel: 0.2},
		model.UserAgentProfile{UserID: "b", Focus: 0.2, RiskLevel: 0.9},
	)
	o := newTestOrchestrator(&fakeRegime{}, staticGenerator(candidates()), store)

	_, err := o.RunForDate(context.Background(), runDate)
	require.NoError(t, err)
	firstIdeas := store.ideas["2025-03-14"]
	firstFeeds := map[string][]model.CanonicalIdea{}
	for k, v := range store.feeds {
		firstFeeds[k] = v
	}

	_, err = o.RunForDate(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, firstIdeas, store.ideas["2025-03-14"])
	assert.Equal(t, firstFeeds, store.feeds)
	assert.Len(t, store.runs, 2)
}
