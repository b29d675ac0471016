// Package query is the public query surface: it normalises date arguments,
// dispatches to the KRX or Naver client and reshapes the results.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/delisting"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
)

// ErrNoBusinessDay is returned when the KOSPI probe finds no session in
// the last week
var ErrNoBusinessDay = errors.New("no business day in the last 7 days")

// ErrTickerNotFound is returned by sources that cannot resolve a ticker
var ErrTickerNotFound = market.ErrTickerNotFound

// KospiIndex is the KOSPI composite index code used to probe trading days
const KospiIndex = "1001"

// KRX is the KRX data portal. All dates are YYYYMMDD strings except where
// a query takes a month/year granularity.
type KRX interface {
	TickerList(ctx context.Context, date string, m market.Market) ([]market.Security, error)
	Security(ctx context.Context, ticker string) (*market.Security, error)

	OHLCVByDate(ctx context.Context, from, to, isin string) (*frame.Table, error)
	OHLCVByTicker(ctx context.Context, date string, m market.Market) ([]market.Quote, error)
	MarketCapByDate(ctx context.Context, from, to, isin string) (*frame.Table, error)
	MarketCapByTicker(ctx context.Context, date string, m market.Market) ([]market.Cap, error)
	ForeignHoldingByTicker(ctx context.Context, date string, m market.Market, limitOnly bool) ([]market.ForeignHolding, error)
	PriceChangeByTicker(ctx context.Context, from, to string) ([]market.PriceChange, error)
	FundamentalByDate(ctx context.Context, from, to, isin string) (*frame.Table, error)
	FundamentalByTicker(ctx context.Context, date string, m market.Market) ([]market.Fundamental, error)
	TradingByDate(ctx context.Context, from, to string, m market.Market, measure market.Measure) (market.TradingGroups, error)

	IndexTickerList(ctx context.Context, date string, m market.Market) ([]market.Index, error)
	IndexName(ctx context.Context, ticker string) (string, error)
	IndexOHLCVByDate(ctx context.Context, from, to, ticker string) (*frame.Table, error)
	IndexPortfolio(ctx context.Context, date, ticker string) ([]string, error)
	IndexPriceChange(ctx context.Context, from, to string, m market.Market) ([]market.IndexChange, error)

	ShortingStatusByDate(ctx context.Context, from, to, isin string) (*frame.Table, error)
	ShortingVolumeByTicker(ctx context.Context, date string, m market.Market) ([]market.ShortVolume, error)
}

// Naver is the secondary quote provider, used for adjusted prices
type Naver interface {
	OHLCVByDate(ctx context.Context, from, to, ticker string) (*frame.Table, error)
	TickerName(ctx context.Context, ticker string) (string, error)
}

// Service implements the query functions on top of the two sources
// ⭐ SSOT: 조회 API는 이 서비스에서만
type Service struct {
	krx   KRX
	naver Naver
	clock dates.Clock
}

// NewService wires the sources. A nil clock uses the system clock.
func NewService(krx KRX, naver Naver, clock dates.Clock) *Service {
	if clock == nil {
		clock = dates.SystemClock{}
	}
	return &Service{krx: krx, naver: naver, clock: clock}
}

// NearestBusinessDay returns the most recent KOSPI session within the
// 7 days ending today, as YYYYMMDD.
func (s *Service) NearestBusinessDay(ctx context.Context) (string, error) {
	now := s.clock.Now()
	from := dates.At(now.AddDate(0, 0, -7)).Normalize(dates.Day)
	to := dates.At(now).Normalize(dates.Day)

	t, err := s.krx.IndexOHLCVByDate(ctx, from, to, KospiIndex)
	if err != nil {
		return "", fmt.Errorf("probe business day: %w", err)
	}
	if t.Empty() {
		return "", ErrNoBusinessDay
	}
	return t.Date(t.Len() - 1).Format(dates.DayLayout), nil
}

// orBusinessDay resolves an optional date argument to a YYYYMMDD string,
// defaulting to the nearest business day
func (s *Service) orBusinessDay(ctx context.Context, date *dates.Date) (string, error) {
	if date != nil {
		return date.Normalize(dates.Day), nil
	}
	return s.NearestBusinessDay(ctx)
}

// effectiveStart finds the first trading day on/after from by probing the
// oldest listed stock over a 7-day lookahead
func (s *Service) effectiveStart(ctx context.Context, from string) (string, error) {
	nominal, err := dates.ParseDay(from)
	if err != nil {
		return "", fmt.Errorf("parse start date %q: %w", from, err)
	}
	to, _ := dates.AddDays(from, delisting.LookaheadDays)

	probe, err := s.MarketOHLCVByDate(ctx, dates.Str(from), dates.Str(to), delisting.ProbeTicker, OHLCVOptions{Adjusted: true})
	if err != nil {
		return "", fmt.Errorf("probe trading days: %w", err)
	}
	if probe.Empty() {
		return from, nil
	}
	start, _ := delisting.EffectiveStart(probe.Dates(), nominal)
	return start.Format(dates.DayLayout), nil
}
