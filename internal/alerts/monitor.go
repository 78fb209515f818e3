package alerts

import (
	"context"
	"fmt"
	"strings"

	"SignalFeed/internal/model"
	"SignalFeed/internal/strategy"

	"github.com/rs/zerolog"
)

// SnapshotSource returns a consistent set of snapshots for the given symbols.
type SnapshotSource interface {
	Collect(ctx context.Context, symbols []string) ([]model.AssetSnapshot, error)
}

// PositionSource lists open positions across users.
type PositionSource interface {
	ListOpenPositions(ctx context.Context) ([]model.Position, error)
}

// Monitor runs one alert evaluation pass over the watchlist and open positions.
type Monitor struct {
	snapshots SnapshotSource
	positions PositionSource
	watchlist []string
	cfg       strategy.Config
	log       zerolog.Logger
}

// NewMonitor creates a Monitor.
func NewMonitor(snapshots SnapshotSource, positions PositionSource, watchlist []string, cfg strategy.Config, log zerolog.Logger) *Monitor {
	return &Monitor{
		snapshots: snapshots,
		positions: positions,
		watchlist: watchlist,
		cfg:       cfg,
		log:       log.With().Str("component", "alert_monitor").Logger(),
	}
}

// Evaluate collects a frozen snapshot set and synthesizes alerts from it.
func (m *Monitor) Evaluate(ctx context.Context) ([]model.Alert, error) {
	var positions []model.Position
	if m.positions != nil {
		var err error
		positions, err = m.positions.ListOpenPositions(ctx)
		if err != nil {
			return nil, fmt.Errorf("list open positions: %w", err)
		}
	}

	symbols := make([]string, 0, len(m.watchlist)+len(positions))
	symbols = append(symbols, m.watchlist...)
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	snaps, err := m.snapshots.Collect(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("collect snapshots: %w", err)
	}

	scored := strategy.ScoreAll(snaps, m.cfg)
	watched := make(map[string]bool, len(m.watchlist))
	for _, s := range m.watchlist {
		watched[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	candidates := make([]model.AssetSnapshot, 0, len(scored))
	for _, s := range scored {
		if watched[s.Symbol] {
			candidates = append(candidates, s)
		}
	}

	out := Synthesize(candidates, positions, IndexBySymbol(scored), m.cfg)
	m.log.Info().
		Int("assets", len(candidates)).
		Int("positions", len(positions)).
		Int("alerts", len(out)).
		Msg("alert pass complete")
	return out, nil
}
