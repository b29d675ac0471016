package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/delisting"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/resample"
)

// MarketTickerList lists the tickers of m on date (nil: nearest business day)
func (s *Service) MarketTickerList(ctx context.Context, date *dates.Date, m market.Market) ([]string, error) {
	day, err := s.orBusinessDay(ctx, date)
	if err != nil {
		return nil, err
	}

	secs, err := s.krx.TickerList(ctx, day, m)
	if err != nil {
		return nil, fmt.Errorf("ticker list %s %s: %w", m, day, err)
	}

	tickers := make([]string, len(secs))
	for i, sec := range secs {
		tickers[i] = sec.Ticker
	}
	return tickers, nil
}

// MarketTickerName resolves a ticker's display name. Tickers unknown to the
// KRX finder (e.g. recently delisted) fall back to Naver.
func (s *Service) MarketTickerName(ctx context.Context, ticker string) (string, error) {
	sec, err := s.krx.Security(ctx, ticker)
	if err == nil {
		return sec.Name, nil
	}
	if !errors.Is(err, ErrTickerNotFound) {
		return "", fmt.Errorf("ticker name %s: %w", ticker, err)
	}

	name, nerr := s.naver.TickerName(ctx, ticker)
	if nerr != nil {
		return "", fmt.Errorf("ticker name %s: %w", ticker, nerr)
	}
	return name, nil
}

// BusinessDays returns the trading days of a calendar month
func (s *Service) BusinessDays(ctx context.Context, year int, month time.Month) ([]time.Time, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	t, err := s.MarketOHLCVByDate(ctx, dates.At(first), dates.At(last), delisting.ProbeTicker, OHLCVOptions{Adjusted: true})
	if err != nil {
		return nil, err
	}
	if t.Empty() {
		return nil, nil
	}

	var days []time.Time
	for _, d := range t.Dates() {
		if d.Month() == month && d.Year() == year {
			days = append(days, d)
		}
	}
	return days, nil
}

// OHLCVOptions tunes MarketOHLCVByDate
type OHLCVOptions struct {
	Freq        dates.Frequency
	Adjusted    bool // Naver adjusted prices instead of KRX raw prices
	NameDisplay bool // set the table Name to the security name
}

// MarketOHLCVByDate returns a stock's OHLCV between from and to
func (s *Service) MarketOHLCVByDate(ctx context.Context, from, to dates.Date, ticker string, opts OHLCVOptions) (*frame.Table, error) {
	f, t := from.Normalize(dates.Day), to.Normalize(dates.Day)

	var (
		tbl *frame.Table
		err error
	)
	if opts.Adjusted {
		tbl, err = s.naver.OHLCVByDate(ctx, f, t, ticker)
	} else {
		var sec *market.Security
		if sec, err = s.krx.Security(ctx, ticker); err == nil {
			tbl, err = s.krx.OHLCVByDate(ctx, f, t, sec.ISIN)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ohlcv %s %s~%s: %w", ticker, f, t, err)
	}

	if opts.NameDisplay && !tbl.Empty() {
		if tbl.Name, err = s.MarketTickerName(ctx, ticker); err != nil {
			return nil, err
		}
	}

	return resample.Resample(tbl, opts.Freq, resample.OHLCVRules)
}

// MarketOHLCVByTicker returns every stock's OHLCV on date
func (s *Service) MarketOHLCVByTicker(ctx context.Context, date dates.Date, m market.Market) ([]market.Quote, error) {
	day := date.Normalize(dates.Day)
	rows, err := s.krx.OHLCVByTicker(ctx, day, m)
	if err != nil {
		return nil, fmt.Errorf("ohlcv by ticker %s %s: %w", m, day, err)
	}
	return rows, nil
}

// MarketCapByDate returns a stock's capitalisation between from and to
func (s *Service) MarketCapByDate(ctx context.Context, from, to dates.Date, ticker string, freq dates.Frequency) (*frame.Table, error) {
	f, t := from.Normalize(dates.Day), to.Normalize(dates.Day)

	sec, err := s.krx.Security(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("market cap %s: %w", ticker, err)
	}
	tbl, err := s.krx.MarketCapByDate(ctx, f, t, sec.ISIN)
	if err != nil {
		return nil, fmt.Errorf("market cap %s %s~%s: %w", ticker, f, t, err)
	}
	return resample.Resample(tbl, freq, resample.MarketCapRules)
}

// MarketCapByTicker returns every stock's capitalisation on date
func (s *Service) MarketCapByTicker(ctx context.Context, date dates.Date, m market.Market) ([]market.Cap, error) {
	day := date.Normalize(dates.Day)
	rows, err := s.krx.MarketCapByTicker(ctx, day, m)
	if err != nil {
		return nil, fmt.Errorf("market cap by ticker %s %s: %w", m, day, err)
	}
	return rows, nil
}

// ForeignExhaustionByTicker returns foreign ownership on date. limitOnly
// restricts the result to stocks that carry a foreign ownership limit.
func (s *Service) ForeignExhaustionByTicker(ctx context.Context, date dates.Date, m market.Market, limitOnly bool) ([]market.ForeignHolding, error) {
	day := date.Normalize(dates.Day)
	rows, err := s.krx.ForeignHoldingByTicker(ctx, day, m, limitOnly)
	if err != nil {
		return nil, fmt.Errorf("foreign holding %s %s: %w", m, day, err)
	}
	return rows, nil
}

// MarketPriceChangeByTicker returns every stock's price change between
// from and to, including stocks delisted inside the range (see
// delisting.Backfill). Two sequential requests are made after the range
// query: a lookahead probe for the first session and the start-day query.
func (s *Service) MarketPriceChangeByTicker(ctx context.Context, from, to dates.Date) ([]market.PriceChange, error) {
	f, t := from.Normalize(dates.Day), to.Normalize(dates.Day)

	ranged, err := s.krx.PriceChangeByTicker(ctx, f, t)
	if err != nil {
		return nil, fmt.Errorf("price change %s~%s: %w", f, t, err)
	}
	if len(ranged) == 0 {
		return ranged, nil
	}

	start, err := s.effectiveStart(ctx, f)
	if err != nil {
		return nil, err
	}

	startRows, err := s.krx.PriceChangeByTicker(ctx, start, start)
	if err != nil {
		return nil, fmt.Errorf("price change %s: %w", start, err)
	}

	return delisting.Backfill(ranged, startRows), nil
}

// MarketTradingVolumeByDate returns market trading volume between from and
// to. on selects the column group shown next to the total: session, kind,
// buy, sell, or all. An unknown group yields a nil table.
func (s *Service) MarketTradingVolumeByDate(ctx context.Context, from, to dates.Date, m market.Market, on string, freq dates.Frequency) (*frame.Table, error) {
	return s.tradingByDate(ctx, from, to, m, market.Volume, on, freq)
}

// MarketTradingValueByDate is MarketTradingVolumeByDate for traded value
func (s *Service) MarketTradingValueByDate(ctx context.Context, from, to dates.Date, m market.Market, on string, freq dates.Frequency) (*frame.Table, error) {
	return s.tradingByDate(ctx, from, to, m, market.Value, on, freq)
}

func (s *Service) tradingByDate(ctx context.Context, from, to dates.Date, m market.Market, measure market.Measure, on string, freq dates.Frequency) (*frame.Table, error) {
	f, t := from.Normalize(dates.Day), to.Normalize(dates.Day)

	groups, err := s.krx.TradingByDate(ctx, f, t, m, measure)
	if err != nil {
		return nil, fmt.Errorf("trading %s %s~%s: %w", m, f, t, err)
	}

	selected, err := selectGroups(groups, on)
	if err != nil || selected == nil {
		return nil, err
	}
	return resample.Resample(selected, freq, resample.SumAll(selected.Columns()...))
}

func selectGroups(groups market.TradingGroups, on string) (*frame.Table, error) {
	total, ok := groups[market.GroupTotal]
	if !ok {
		return frame.NewTable(), nil
	}

	names := []string{on}
	if on == market.GroupAll {
		names = market.GroupOrder[1:]
	} else if _, ok := groups[on]; !ok {
		return nil, nil
	}

	out := total
	for _, n := range names {
		g, ok := groups[n]
		if !ok {
			continue
		}
		var err error
		if out, err = out.Concat(g); err != nil {
			return nil, fmt.Errorf("merge %s: %w", n, err)
		}
	}
	return out, nil
}

// ShortingStatusByDate returns a stock's short selling status between from
// and to
func (s *Service) ShortingStatusByDate(ctx context.Context, from, to dates.Date, ticker string) (*frame.Table, error) {
	f, t := from.Normalize(dates.Day), to.Normalize(dates.Day)

	sec, err := s.krx.Security(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("shorting status %s: %w", ticker, err)
	}
	tbl, err := s.krx.ShortingStatusByDate(ctx, f, t, sec.ISIN)
	if err != nil {
		return nil, fmt.Errorf("shorting status %s %s~%s: %w", ticker, f, t, err)
	}
	return tbl, nil
}

// ShortingVolumeByTicker returns every stock's short selling volume on date
func (s *Service) ShortingVolumeByTicker(ctx context.Context, date dates.Date, m market.Market) ([]market.ShortVolume, error) {
	day := date.Normalize(dates.Day)
	rows, err := s.krx.ShortingVolumeByTicker(ctx, day, m)
	if err != nil {
		return nil, fmt.Errorf("shorting volume %s %s: %w", m, day, err)
	}
	return rows, nil
}
