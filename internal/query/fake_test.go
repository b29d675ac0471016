package query

import (
	"context"
	"time"

	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
)

type call struct {
	method string
	args   []string
}

// fakeKRX records calls and serves canned data
type fakeKRX struct {
	calls []call

	securities  map[string]market.Security
	tables      map[string]*frame.Table // keyed by method
	priceChange map[string][]market.PriceChange
	fundamental []market.Fundamental
	trading     market.TradingGroups
	indexes     []market.Index
	err         error
}

func (f *fakeKRX) record(method string, args ...string) {
	f.calls = append(f.calls, call{method: method, args: args})
}

func (f *fakeKRX) table(method string) *frame.Table {
	if t, ok := f.tables[method]; ok {
		return t
	}
	return frame.NewTable()
}

func (f *fakeKRX) TickerList(ctx context.Context, date string, m market.Market) ([]market.Security, error) {
	f.record("TickerList", date, string(m))
	var out []market.Security
	for _, s := range f.securities {
		out = append(out, s)
	}
	return out, f.err
}

func (f *fakeKRX) Security(ctx context.Context, ticker string) (*market.Security, error) {
	f.record("Security", ticker)
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.securities[ticker]
	if !ok {
		return nil, ErrTickerNotFound
	}
	return &s, nil
}

func (f *fakeKRX) OHLCVByDate(ctx context.Context, from, to, isin string) (*frame.Table, error) {
	f.record("OHLCVByDate", from, to, isin)
	return f.table("OHLCVByDate"), f.err
}

func (f *fakeKRX) OHLCVByTicker(ctx context.Context, date string, m market.Market) ([]market.Quote, error) {
	f.record("OHLCVByTicker", date, string(m))
	return []market.Quote{{Ticker: "005930", Close: 72500}}, f.err
}

func (f *fakeKRX) MarketCapByDate(ctx context.Context, from, to, isin string) (*frame.Table, error) {
	f.record("MarketCapByDate", from, to, isin)
	return f.table("MarketCapByDate"), f.err
}

func (f *fakeKRX) MarketCapByTicker(ctx context.Context, date string, m market.Market) ([]market.Cap, error) {
	f.record("MarketCapByTicker", date, string(m))
	return nil, f.err
}

func (f *fakeKRX) ForeignHoldingByTicker(ctx context.Context, date string, m market.Market, limitOnly bool) ([]market.ForeignHolding, error) {
	f.record("ForeignHoldingByTicker", date, string(m))
	return nil, f.err
}

func (f *fakeKRX) PriceChangeByTicker(ctx context.Context, from, to string) ([]market.PriceChange, error) {
	f.record("PriceChangeByTicker", from, to)
	if f.err != nil {
		return nil, f.err
	}
	return f.priceChange[from+"-"+to], nil
}

func (f *fakeKRX) FundamentalByDate(ctx context.Context, from, to, isin string) (*frame.Table, error) {
	f.record("FundamentalByDate", from, to, isin)
	return f.table("FundamentalByDate"), f.err
}

func (f *fakeKRX) FundamentalByTicker(ctx context.Context, date string, m market.Market) ([]market.Fundamental, error) {
	f.record("FundamentalByTicker", date, string(m))
	return f.fundamental, f.err
}

func (f *fakeKRX) TradingByDate(ctx context.Context, from, to string, m market.Market, measure market.Measure) (market.TradingGroups, error) {
	f.record("TradingByDate", from, to, string(m))
	return f.trading, f.err
}

func (f *fakeKRX) IndexTickerList(ctx context.Context, date string, m market.Market) ([]market.Index, error) {
	f.record("IndexTickerList", date, string(m))
	return f.indexes, f.err
}

func (f *fakeKRX) IndexName(ctx context.Context, ticker string) (string, error) {
	f.record("IndexName", ticker)
	for _, x := range f.indexes {
		if x.Ticker == ticker {
			return x.Name, nil
		}
	}
	return "", ErrTickerNotFound
}

func (f *fakeKRX) IndexOHLCVByDate(ctx context.Context, from, to, ticker string) (*frame.Table, error) {
	f.record("IndexOHLCVByDate", from, to, ticker)
	return f.table("IndexOHLCVByDate"), f.err
}

func (f *fakeKRX) IndexPortfolio(ctx context.Context, date, ticker string) ([]string, error) {
	f.record("IndexPortfolio", date, ticker)
	return []string{"005930", "000660"}, f.err
}

func (f *fakeKRX) IndexPriceChange(ctx context.Context, from, to string, m market.Market) ([]market.IndexChange, error) {
	f.record("IndexPriceChange", from, to, string(m))
	return nil, f.err
}

func (f *fakeKRX) ShortingStatusByDate(ctx context.Context, from, to, isin string) (*frame.Table, error) {
	f.record("ShortingStatusByDate", from, to, isin)
	return f.table("ShortingStatusByDate"), f.err
}

func (f *fakeKRX) ShortingVolumeByTicker(ctx context.Context, date string, m market.Market) ([]market.ShortVolume, error) {
	f.record("ShortingVolumeByTicker", date, string(m))
	return nil, f.err
}

func (f *fakeKRX) called(method string) []call {
	var out []call
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

// fakeNaver serves adjusted OHLCV from a single table
type fakeNaver struct {
	calls []call
	ohlcv *frame.Table
	names map[string]string
	err   error
}

func (f *fakeNaver) OHLCVByDate(ctx context.Context, from, to, ticker string) (*frame.Table, error) {
	f.calls = append(f.calls, call{method: "OHLCVByDate", args: []string{from, to, ticker}})
	if f.err != nil {
		return nil, f.err
	}
	if f.ohlcv == nil {
		return frame.NewTable(), nil
	}
	return f.ohlcv, nil
}

func (f *fakeNaver) TickerName(ctx context.Context, ticker string) (string, error) {
	f.calls = append(f.calls, call{method: "TickerName", args: []string{ticker}})
	if n, ok := f.names[ticker]; ok {
		return n, nil
	}
	return "", ErrTickerNotFound
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
