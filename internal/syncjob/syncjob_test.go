package syncjob

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/query"
	"github.com/wonny/krxquery/pkg/logger"
)

const sampleYAML = `
jobs:
  - name: blue-chips
    schedule: "30 16 * * 1-5"
    tickers: ["005930", "000660", "035420"]
    adjusted: true
    lookback_days: 5
    workers: 2
  - name: monthly-ranking
    kind: price_change
    schedule: "@daily"
    lookback_days: 30
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Jobs, 2)

	j := cfg.Jobs[0]
	assert.Equal(t, KindOHLCV, j.Kind)
	assert.Equal(t, []string{"005930", "000660", "035420"}, j.Tickers)
	assert.True(t, j.Adjusted)
	assert.Equal(t, 2, j.Workers)

	assert.Equal(t, KindPriceChange, cfg.Jobs[1].Kind)
	assert.Equal(t, 1, cfg.Jobs[1].Workers)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "jobs:\n  - name: a\n    schedule: '@daily'\n    tickers: ['005930']\n    tickerz: []\n"},
		{"no jobs", "jobs: []\n"},
		{"missing schedule", "jobs:\n  - name: a\n    tickers: ['005930']\n"},
		{"missing tickers", "jobs:\n  - name: a\n    schedule: '@daily'\n"},
		{"bad freq", "jobs:\n  - name: a\n    schedule: '@daily'\n    tickers: ['005930']\n    freq: w\n"},
		{"monthly ohlcv", "jobs:\n  - name: a\n    schedule: '@daily'\n    tickers: ['005930']\n    freq: m\n"},
		{"bad kind", "jobs:\n  - name: a\n    kind: etf\n    schedule: '@daily'\n"},
		{"duplicate", "jobs:\n  - name: a\n    kind: price_change\n    schedule: '@daily'\n  - name: a\n    kind: price_change\n    schedule: '@daily'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_BadFreqIsInvalidArgument(t *testing.T) {
	_, err := Parse([]byte("jobs:\n  - name: a\n    schedule: '@daily'\n    tickers: ['005930']\n    freq: w\n"))
	assert.ErrorIs(t, err, dates.ErrInvalidArgument)
}

type fakeSource struct {
	mu      sync.Mutex
	fail    map[string]bool
	freqs   []dates.Frequency
	ohlcv   []string
	from    dates.Date
	to      dates.Date
	changes []market.PriceChange
}

func (f *fakeSource) MarketOHLCVByDate(ctx context.Context, from, to dates.Date, ticker string, opts query.OHLCVOptions) (*frame.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ohlcv = append(f.ohlcv, ticker)
	f.freqs = append(f.freqs, opts.Freq)
	if f.fail[ticker] {
		return nil, errors.New("upstream 500")
	}
	tbl := frame.NewTable("open", "high", "low", "close", "volume")
	_ = tbl.Append(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 1, 2, 0.5, 1.5, 100)
	return tbl, nil
}

func (f *fakeSource) MarketPriceChangeByTicker(ctx context.Context, from, to dates.Date) ([]market.PriceChange, error) {
	f.from, f.to = from, to
	return f.changes, nil
}

type fakeStore struct {
	mu       sync.Mutex
	saved    map[string]int
	adjusted bool
	from, to time.Time
	changes  []market.PriceChange
}

func (f *fakeStore) SaveOHLCV(ctx context.Context, ticker string, adjusted bool, tbl *frame.Table) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]int{}
	}
	f.saved[ticker] = tbl.Len()
	f.adjusted = adjusted
	return tbl.Len(), nil
}

func (f *fakeStore) SavePriceChanges(ctx context.Context, from, to time.Time, changes []market.PriceChange) error {
	f.from, f.to, f.changes = from, to, changes
	return nil
}

var fixedNow = dates.FixedClock(time.Date(2024, 1, 31, 17, 0, 0, 0, time.UTC))

func TestOHLCVJob_Run(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	src, store := &fakeSource{}, &fakeStore{}
	job, err := NewOHLCVJob(cfg.Jobs[0], src, store, fixedNow, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, map[string]int{"005930": 1, "000660": 1, "035420": 1}, store.saved)
	assert.True(t, store.adjusted)

	sort.Strings(src.ohlcv)
	assert.Equal(t, []string{"000660", "005930", "035420"}, src.ohlcv)
	assert.Equal(t, "blue-chips", job.Name())
	assert.Equal(t, "30 16 * * 1-5", job.Schedule())
}

func TestParse_NonDailyOHLCVRejected(t *testing.T) {
	for _, freq := range []string{"m", "y"} {
		t.Run(freq, func(t *testing.T) {
			_, err := Parse([]byte("jobs:\n  - name: a\n    schedule: '@daily'\n    tickers: ['005930']\n    freq: " + freq + "\n"))
			assert.ErrorIs(t, err, dates.ErrInvalidArgument)
		})
	}

	// price_change jobs ignore freq
	_, err := Parse([]byte("jobs:\n  - name: b\n    kind: price_change\n    schedule: '@daily'\n    freq: m\n"))
	assert.NoError(t, err)
}

func TestNewOHLCVJob_NonDailyRejected(t *testing.T) {
	cfg := JobConfig{Name: "a", Schedule: "@daily", Tickers: []string{"005930"}, Freq: "y", Workers: 1, LookbackDays: 7}

	_, err := NewOHLCVJob(cfg, &fakeSource{}, &fakeStore{}, fixedNow, logger.Nop())
	assert.ErrorIs(t, err, dates.ErrInvalidArgument)
}

func TestOHLCVJob_FetchesDailyBars(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	src := &fakeSource{}
	job, err := NewOHLCVJob(cfg.Jobs[0], src, &fakeStore{}, fixedNow, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, src.freqs, 3)
	for _, f := range src.freqs {
		assert.Equal(t, dates.Day, f)
	}
}

func TestOHLCVJob_PartialFailure(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	src, store := &fakeSource{fail: map[string]bool{"000660": true}}, &fakeStore{}
	job, err := NewOHLCVJob(cfg.Jobs[0], src, store, fixedNow, logger.Nop())
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 tickers failed")
	assert.Len(t, store.saved, 2)
}

func TestOHLCVJob_Cancelled(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	src := &fakeSource{}
	job, err := NewOHLCVJob(cfg.Jobs[0], src, &fakeStore{}, fixedNow, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := job.Sync(ctx)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
	assert.Empty(t, src.ohlcv)
}

func TestPriceChangeJob_Run(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	src := &fakeSource{changes: []market.PriceChange{{Ticker: "005930", ChangeRate: -7.39}}}
	store := &fakeStore{}
	job := NewPriceChangeJob(cfg.Jobs[1], src, store, fixedNow, logger.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "20240101", src.from.String())
	assert.Equal(t, "20240131", src.to.String())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), store.from)
	assert.Len(t, store.changes, 1)
}

func TestBuild(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	jobs, err := Build(cfg, &fakeSource{}, &fakeStore{}, fixedNow, logger.Nop())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.IsType(t, &OHLCVJob{}, jobs[0])
	assert.IsType(t, &PriceChangeJob{}, jobs[1])
}
