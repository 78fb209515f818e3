package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SignalFeed/internal/calculator"
	"SignalFeed/internal/model"

	"github.com/rs/zerolog"
)

// HistoryDays is how many daily bars are requested per symbol. SMA200 needs
// at least 200 of them.
const HistoryDays = 260

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.OHLCV
	Err   map[string]error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if err, ok := m.Err[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, days), nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches price history and turns it into asset snapshots.
type Collector struct {
	Fetcher Fetcher
	Symbols []string
	log     zerolog.Logger
}

// NewCollector creates a new Collector over the configured watchlist.
func NewCollector(fetcher Fetcher, symbols []string, log zerolog.Logger) *Collector {
	return &Collector{
		Fetcher: fetcher,
		Symbols: symbols,
		log:     log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// Snapshots collects the configured watchlist.
func (c *Collector) Snapshots(ctx context.Context) ([]model.AssetSnapshot, error) {
	return c.Collect(ctx, c.Symbols)
}

// Collect fetches bars and computes indicators for each symbol. Symbols that
// fail are logged and skipped; an error is returned only when every symbol failed.
func (c *Collector) Collect(ctx context.Context, symbols []string) ([]model.AssetSnapshot, error) {
	out := make([]model.AssetSnapshot, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	var lastErr error

	for _, raw := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, HistoryDays)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("fetch daily bars failed, skipping")
			lastErr = err
			continue
		}
		if len(bars) == 0 {
			c.log.Warn().Str("symbol", symbol).Msg("no bars returned, skipping")
			continue
		}
		out = append(out, BuildSnapshot(symbol, bars))
	}

	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("collect %d symbols: %w", len(seen), lastErr)
	}
	return out, nil
}

// BuildSnapshot assembles a snapshot from daily bars (oldest first).
func BuildSnapshot(symbol string, bars []model.OHLCV) model.AssetSnapshot {
	snap := model.AssetSnapshot{
		Symbol:        symbol,
		ChangePercent: calculator.ChangePercent(bars),
		Indicators:    calculator.Compute(bars),
	}
	if len(bars) > 0 {
		snap.Price = bars[len(bars)-1].Close
	}
	return snap
}
