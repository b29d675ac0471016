package query

import (
	"context"
	"fmt"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/resample"
)

// IndexTickerList lists index codes of m on date (nil: today)
func (s *Service) IndexTickerList(ctx context.Context, date *dates.Date, m market.Market) ([]string, error) {
	day := dates.At(s.clock.Now()).Normalize(dates.Day)
	if date != nil {
		day = date.Normalize(dates.Day)
	}

	idx, err := s.krx.IndexTickerList(ctx, day, m)
	if err != nil {
		return nil, fmt.Errorf("index list %s %s: %w", m, day, err)
	}

	out := make([]string, len(idx))
	for i, x := range idx {
		out[i] = x.Ticker
	}
	return out, nil
}

// IndexTickerName resolves an index code to its name
func (s *Service) IndexTickerName(ctx context.Context, ticker string) (string, error) {
	name, err := s.krx.IndexName(ctx, ticker)
	if err != nil {
		return "", fmt.Errorf("index name %s: %w", ticker, err)
	}
	return name, nil
}

// IndexPortfolioDepositFile lists the constituents of an index on date
// (nil: nearest business day)
func (s *Service) IndexPortfolioDepositFile(ctx context.Context, ticker string, date *dates.Date) ([]string, error) {
	day, err := s.orBusinessDay(ctx, date)
	if err != nil {
		return nil, err
	}

	tickers, err := s.krx.IndexPortfolio(ctx, day, ticker)
	if err != nil {
		return nil, fmt.Errorf("index portfolio %s %s: %w", ticker, day, err)
	}
	return tickers, nil
}

// IndexOHLCVByDate returns an index's OHLCV between from and to. Unlike the
// stock queries, a structured from date is rendered at freq granularity.
func (s *Service) IndexOHLCVByDate(ctx context.Context, from, to dates.Date, ticker string, freq dates.Frequency, nameDisplay bool) (*frame.Table, error) {
	f, t := from.Normalize(freq), to.Normalize(dates.Day)

	tbl, err := s.krx.IndexOHLCVByDate(ctx, f, t, ticker)
	if err != nil {
		return nil, fmt.Errorf("index ohlcv %s %s~%s: %w", ticker, f, t, err)
	}

	if nameDisplay && !tbl.Empty() {
		if tbl.Name, err = s.IndexTickerName(ctx, ticker); err != nil {
			return nil, err
		}
	}
	return resample.Resample(tbl, freq, resample.OHLCVRules)
}

// IndexPriceChangeByName returns every index's move between from and to
func (s *Service) IndexPriceChangeByName(ctx context.Context, from, to dates.Date, m market.Market) ([]market.IndexChange, error) {
	f, t := from.Normalize(dates.Day), to.Normalize(dates.Day)
	rows, err := s.krx.IndexPriceChange(ctx, f, t, m)
	if err != nil {
		return nil, fmt.Errorf("index price change %s %s~%s: %w", m, f, t, err)
	}
	return rows, nil
}
