package syncjob

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/query"
	"github.com/wonny/krxquery/pkg/logger"
)

// OHLCVSource is the query used by OHLCVJob
type OHLCVSource interface {
	MarketOHLCVByDate(ctx context.Context, from, to dates.Date, ticker string, opts query.OHLCVOptions) (*frame.Table, error)
}

// OHLCVStore persists OHLCV tables
type OHLCVStore interface {
	SaveOHLCV(ctx context.Context, ticker string, adjusted bool, tbl *frame.Table) (int, error)
}

// FetchResult represents the result of syncing one ticker
type FetchResult struct {
	Ticker string
	Rows   int
	Error  error
}

// OHLCVJob pulls the last LookbackDays of OHLCV for each ticker
// ⭐ SSOT: OHLCV 동기화는 이 Job에서만
type OHLCVJob struct {
	cfg    JobConfig
	source OHLCVSource
	store  OHLCVStore
	clock  dates.Clock
	logger *logger.Logger
}

// NewOHLCVJob creates a job from a validated config entry
func NewOHLCVJob(cfg JobConfig, source OHLCVSource, store OHLCVStore, clock dates.Clock, log *logger.Logger) (*OHLCVJob, error) {
	freq, err := dates.ParseFrequency(cfg.Freq)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", cfg.Name, err)
	}
	// daily_ohlcv is keyed by trading day
	if freq != dates.Day {
		return nil, fmt.Errorf("job %s: ohlcv jobs store daily bars, freq must be d: %w", cfg.Name, dates.ErrInvalidArgument)
	}
	if clock == nil {
		clock = dates.SystemClock{}
	}
	return &OHLCVJob{
		cfg:    cfg,
		source: source,
		store:  store,
		clock:  clock,
		logger: log.WithField("job", cfg.Name),
	}, nil
}

func (j *OHLCVJob) Name() string     { return j.cfg.Name }
func (j *OHLCVJob) Schedule() string { return j.cfg.Schedule }

// Run syncs every ticker with a pool of cfg.Workers workers. Per-ticker
// failures are logged; Run fails when any ticker failed.
func (j *OHLCVJob) Run(ctx context.Context) error {
	results := j.Sync(ctx)

	failed := 0
	var firstErr error
	for _, r := range results {
		if r.Error != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", r.Ticker, r.Error)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tickers failed, first: %w", failed, len(results), firstErr)
	}
	return nil
}

// Sync fetches and stores every configured ticker and returns per-ticker
// results in completion order
func (j *OHLCVJob) Sync(ctx context.Context) []FetchResult {
	now := j.clock.Now()
	from := dates.At(now.AddDate(0, 0, -j.cfg.LookbackDays))
	to := dates.At(now)

	j.logger.WithFields(map[string]interface{}{
		"tickers": len(j.cfg.Tickers),
		"from":    from.String(),
		"to":      to.String(),
		"workers": j.cfg.Workers,
	}).Info("Starting OHLCV sync")

	tickerCh := make(chan string, len(j.cfg.Tickers))
	resultCh := make(chan FetchResult, len(j.cfg.Tickers))

	var wg sync.WaitGroup
	for i := 0; i < j.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			j.worker(ctx, workerID, tickerCh, resultCh, from, to)
		}(i)
	}

	for _, t := range j.cfg.Tickers {
		tickerCh <- t
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]FetchResult, 0, len(j.cfg.Tickers))
	failCount := 0
	for r := range resultCh {
		results = append(results, r)
		if r.Error != nil {
			failCount++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"success": len(results) - failCount,
		"failed":  failCount,
	}).Info("OHLCV sync completed")
	return results
}

func (j *OHLCVJob) worker(ctx context.Context, workerID int, tickerCh <-chan string, resultCh chan<- FetchResult, from, to dates.Date) {
	for ticker := range tickerCh {
		if err := ctx.Err(); err != nil {
			resultCh <- FetchResult{Ticker: ticker, Error: err}
			continue
		}

		tbl, err := j.source.MarketOHLCVByDate(ctx, from, to, ticker, query.OHLCVOptions{
			Freq:     dates.Day,
			Adjusted: j.cfg.Adjusted,
		})
		if err != nil {
			j.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"ticker": ticker,
			}).Error("Failed to fetch OHLCV")
			resultCh <- FetchResult{Ticker: ticker, Error: err}
			continue
		}

		n, err := j.store.SaveOHLCV(ctx, ticker, j.cfg.Adjusted, tbl)
		if err != nil {
			j.logger.WithError(err).WithField("ticker", ticker).Error("Failed to save OHLCV")
		}
		resultCh <- FetchResult{Ticker: ticker, Rows: n, Error: err}
	}
}
