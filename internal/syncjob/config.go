// Package syncjob defines the periodic collection jobs that pull query
// results into the store.
package syncjob

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/krxquery/internal/dates"
)

// Job kinds
const (
	KindOHLCV       = "ohlcv"
	KindPriceChange = "price_change"
)

// Config is the sync.yaml document
type Config struct {
	Jobs []JobConfig `yaml:"jobs"`
}

// JobConfig describes one scheduled job
type JobConfig struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`     // ohlcv (default) or price_change
	Schedule     string   `yaml:"schedule"` // cron expression
	Tickers      []string `yaml:"tickers"`  // ohlcv only
	Adjusted     bool     `yaml:"adjusted"`
	Freq         string   `yaml:"freq"` // ohlcv jobs accept only d
	LookbackDays int      `yaml:"lookback_days"`
	Workers      int      `yaml:"workers"`
}

// Load reads and validates a sync config file.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sync config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a sync config document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode sync config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Jobs) == 0 {
		return fmt.Errorf("sync config: no jobs")
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i := range c.Jobs {
		j := &c.Jobs[i]
		if j.Name == "" {
			return fmt.Errorf("sync config: job %d has no name", i)
		}
		if seen[j.Name] {
			return fmt.Errorf("sync config: duplicate job %q", j.Name)
		}
		seen[j.Name] = true

		if j.Kind == "" {
			j.Kind = KindOHLCV
		}
		if j.Schedule == "" {
			return fmt.Errorf("job %s: schedule is required", j.Name)
		}
		if j.LookbackDays <= 0 {
			j.LookbackDays = 7
		}
		if j.Workers <= 0 {
			j.Workers = 1
		}
		freq, err := dates.ParseFrequency(j.Freq)
		if err != nil {
			return fmt.Errorf("job %s: %w", j.Name, err)
		}

		switch j.Kind {
		case KindOHLCV:
			if len(j.Tickers) == 0 {
				return fmt.Errorf("job %s: tickers are required", j.Name)
			}
			if freq != dates.Day {
				return fmt.Errorf("job %s: ohlcv jobs store daily bars, freq must be d: %w", j.Name, dates.ErrInvalidArgument)
			}
		case KindPriceChange:
		default:
			return fmt.Errorf("job %s: unknown kind %q", j.Name, j.Kind)
		}
	}
	return nil
}
