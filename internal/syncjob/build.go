package syncjob

import (
	"fmt"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/scheduler"
	"github.com/wonny/krxquery/pkg/logger"
)

// Source is everything the jobs query
type Source interface {
	OHLCVSource
	PriceChangeSource
}

// Store is everything the jobs persist
type Store interface {
	OHLCVStore
	PriceChangeStore
}

// Build turns a config into scheduler jobs
func Build(cfg *Config, source Source, store Store, clock dates.Clock, log *logger.Logger) ([]scheduler.Job, error) {
	jobs := make([]scheduler.Job, 0, len(cfg.Jobs))
	for _, jc := range cfg.Jobs {
		switch jc.Kind {
		case KindOHLCV:
			j, err := NewOHLCVJob(jc, source, store, clock, log)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, j)
		case KindPriceChange:
			jobs = append(jobs, NewPriceChangeJob(jc, source, store, clock, log))
		default:
			return nil, fmt.Errorf("job %s: unknown kind %q", jc.Name, jc.Kind)
		}
	}
	return jobs, nil
}
