package krx

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/resample"
)

const (
	bldIndexList      = "dbms/MDC/STAT/standard/MDCSTAT00401"
	bldIndexDaily     = "dbms/MDC/STAT/standard/MDCSTAT00301"
	bldIndexPortfolio = "dbms/MDC/STAT/standard/MDCSTAT00601"
	bldIndexChange    = "dbms/MDC/STAT/standard/MDCSTAT00201"
)

var indexFields = []field{
	{"OPNPRC_IDX", resample.ColOpen},
	{"HGPRC_IDX", resample.ColHigh},
	{"LWPRC_IDX", resample.ColLow},
	{"CLSPRC_IDX", resample.ColClose},
	{"ACC_TRDVOL", resample.ColVolume},
}

// indexGroup maps a market to the KRX index family code
func indexGroup(m market.Market) (string, error) {
	switch m {
	case market.All, "":
		return "01", nil
	case market.KOSPI:
		return "02", nil
	case market.KOSDAQ:
		return "03", nil
	default:
		return "", fmt.Errorf("unsupported index market: %s", m)
	}
}

// splitIndexTicker splits "1028" into the KRX indIdx/indIdx2 pair ("1", "028")
func splitIndexTicker(ticker string) (string, string, error) {
	if len(ticker) != 4 {
		return "", "", fmt.Errorf("index ticker %q: want 4 digits", ticker)
	}
	return ticker[:1], ticker[1:], nil
}

// IndexTickerList lists the indices of m that existed on date. The ticker
// is the index type digit followed by the three digit index code.
func (c *Client) IndexTickerList(ctx context.Context, date string, m market.Market) ([]market.Index, error) {
	group, err := indexGroup(m)
	if err != nil {
		return nil, err
	}
	day, err := dates.ParseDay(date)
	if err != nil {
		return nil, fmt.Errorf("index list date %q: %w", date, err)
	}

	rows, err := c.post(ctx, bldIndexList, url.Values{"idxIndMidclssCd": {group}})
	if err != nil {
		return nil, fmt.Errorf("index list %s: %w", m, err)
	}

	var out []market.Index
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range rows {
		ticker := r.str("IND_TP_CD") + r.str("IDX_IND_CD")
		name := r.str("IDX_NM")
		c.indexNames[ticker] = name

		// base dates look like "1980.01.04"
		if base, err := dates.ParseDay(r.str("BAS_TM_CONTN")); err == nil && base.After(day) {
			continue
		}
		out = append(out, market.Index{Ticker: ticker, Name: name})
	}
	return out, nil
}

// IndexName resolves an index ticker, loading the index lists on first use
func (c *Client) IndexName(ctx context.Context, ticker string) (string, error) {
	if name, ok := c.indexName(ticker); ok {
		return name, nil
	}

	today := dates.At(dates.SystemClock{}.Now()).Normalize(dates.Day)
	for _, m := range []market.Market{market.KOSPI, market.KOSDAQ, market.All} {
		if _, err := c.IndexTickerList(ctx, today, m); err != nil {
			return "", err
		}
		if name, ok := c.indexName(ticker); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("index %s: %w", ticker, market.ErrTickerNotFound)
}

func (c *Client) indexName(ticker string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.indexNames[ticker]
	return name, ok
}

// IndexOHLCVByDate returns daily OHLCV for one index
func (c *Client) IndexOHLCVByDate(ctx context.Context, from, to, ticker string) (*frame.Table, error) {
	idx, idx2, err := splitIndexTicker(ticker)
	if err != nil {
		return nil, err
	}

	rows, err := c.post(ctx, bldIndexDaily, url.Values{
		"indIdx":  {idx},
		"indIdx2": {idx2},
		"strtDd":  {from},
		"endDd":   {to},
	})
	if err != nil {
		return nil, fmt.Errorf("index daily %s: %w", ticker, err)
	}
	return buildTable(rows, "TRD_DD", indexFields)
}

// IndexPortfolio lists the constituent tickers of an index on date
func (c *Client) IndexPortfolio(ctx context.Context, date, ticker string) ([]string, error) {
	idx, idx2, err := splitIndexTicker(ticker)
	if err != nil {
		return nil, err
	}

	rows, err := c.post(ctx, bldIndexPortfolio, url.Values{
		"indIdx":  {idx},
		"indIdx2": {idx2},
		"trdDd":   {date},
	})
	if err != nil {
		return nil, fmt.Errorf("index portfolio %s %s: %w", ticker, date, err)
	}

	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if code := r.str("ISU_SRT_CD"); code != "" {
			out = append(out, code)
		}
	}
	return out, nil
}

// IndexPriceChange returns every index's move between from and to
func (c *Client) IndexPriceChange(ctx context.Context, from, to string, m market.Market) ([]market.IndexChange, error) {
	group, err := indexGroup(m)
	if err != nil {
		return nil, err
	}

	rows, err := c.post(ctx, bldIndexChange, url.Values{
		"idxIndMidclssCd": {group},
		"strtDd":          {from},
		"endDd":           {to},
	})
	if err != nil {
		return nil, fmt.Errorf("index change %s %s~%s: %w", m, from, to, err)
	}

	out := make([]market.IndexChange, 0, len(rows))
	for _, r := range rows {
		out = append(out, market.IndexChange{
			Name:       r.str("IDX_NM"),
			Open:       r.num("OPN_DD_INDX"),
			Close:      r.num("END_DD_INDX"),
			ChangeRate: r.num("FLUC_RT"),
			Volume:     r.num("ACC_TRDVOL"),
			Value:      r.num("ACC_TRDVAL"),
		})
	}
	return out, nil
}
