package syncjob

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/pkg/logger"
)

// PriceChangeSource is the query used by PriceChangeJob
type PriceChangeSource interface {
	MarketPriceChangeByTicker(ctx context.Context, from, to dates.Date) ([]market.PriceChange, error)
}

// PriceChangeStore persists price-change snapshots
type PriceChangeStore interface {
	SavePriceChanges(ctx context.Context, from, to time.Time, changes []market.PriceChange) error
}

// PriceChangeJob stores the survivorship-corrected price change ranking
// over the trailing LookbackDays
type PriceChangeJob struct {
	cfg    JobConfig
	source PriceChangeSource
	store  PriceChangeStore
	clock  dates.Clock
	logger *logger.Logger
}

// NewPriceChangeJob creates a job from a validated config entry
func NewPriceChangeJob(cfg JobConfig, source PriceChangeSource, store PriceChangeStore, clock dates.Clock, log *logger.Logger) *PriceChangeJob {
	if clock == nil {
		clock = dates.SystemClock{}
	}
	return &PriceChangeJob{
		cfg:    cfg,
		source: source,
		store:  store,
		clock:  clock,
		logger: log.WithField("job", cfg.Name),
	}
}

func (j *PriceChangeJob) Name() string     { return j.cfg.Name }
func (j *PriceChangeJob) Schedule() string { return j.cfg.Schedule }

// Run fetches and stores one snapshot
func (j *PriceChangeJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -j.cfg.LookbackDays)

	rows, err := j.source.MarketPriceChangeByTicker(ctx, dates.At(from), dates.At(to))
	if err != nil {
		return fmt.Errorf("price change: %w", err)
	}
	if err := j.store.SavePriceChanges(ctx, from, to, rows); err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"from": from.Format(dates.DayLayout),
		"to":   to.Format(dates.DayLayout),
		"rows": len(rows),
	}).Info("Price change snapshot stored")
	return nil
}
