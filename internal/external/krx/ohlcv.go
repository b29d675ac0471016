package krx

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/resample"
)

const (
	bldStockDaily  = "dbms/MDC/STAT/standard/MDCSTAT01701"
	bldPriceChange = "dbms/MDC/STAT/standard/MDCSTAT01602"
)

var ohlcvFields = []field{
	{"TDD_OPNPRC", resample.ColOpen},
	{"TDD_HGPRC", resample.ColHigh},
	{"TDD_LWPRC", resample.ColLow},
	{"TDD_CLSPRC", resample.ColClose},
	{"ACC_TRDVOL", resample.ColVolume},
}

// stockDaily fetches the per-stock daily block, which carries both price
// and capitalisation columns
func (c *Client) stockDaily(ctx context.Context, from, to, isin string) ([]record, error) {
	rows, err := c.post(ctx, bldStockDaily, url.Values{
		"isuCd":  {isin},
		"strtDd": {from},
		"endDd":  {to},
	})
	if err != nil {
		return nil, fmt.Errorf("stock daily %s: %w", isin, err)
	}
	return rows, nil
}

// OHLCVByDate returns unadjusted daily OHLCV for one stock
func (c *Client) OHLCVByDate(ctx context.Context, from, to, isin string) (*frame.Table, error) {
	rows, err := c.stockDaily(ctx, from, to, isin)
	if err != nil {
		return nil, err
	}
	return buildTable(rows, "TRD_DD", ohlcvFields)
}

// OHLCVByTicker returns every stock's OHLCV on date
func (c *Client) OHLCVByTicker(ctx context.Context, date string, m market.Market) ([]market.Quote, error) {
	rows, err := c.allPrices(ctx, date, m)
	if err != nil {
		return nil, err
	}

	out := make([]market.Quote, 0, len(rows))
	for _, r := range rows {
		out = append(out, market.Quote{
			Ticker:     r.str("ISU_SRT_CD"),
			Name:       r.str("ISU_ABBRV"),
			Open:       r.num("TDD_OPNPRC"),
			High:       r.num("TDD_HGPRC"),
			Low:        r.num("TDD_LWPRC"),
			Close:      r.num("TDD_CLSPRC"),
			Volume:     r.num("ACC_TRDVOL"),
			Value:      r.num("ACC_TRDVAL"),
			ChangeRate: r.num("FLUC_RT"),
		})
	}
	return out, nil
}

func (c *Client) allPrices(ctx context.Context, date string, m market.Market) ([]record, error) {
	id, err := mktID(m)
	if err != nil {
		return nil, err
	}
	rows, err := c.post(ctx, bldAllPrices, url.Values{
		"mktId": {id},
		"trdDd": {date},
		"share": {"1"},
		"money": {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("all prices %s %s: %w", m, date, err)
	}
	return rows, nil
}

// PriceChangeByTicker returns every listed stock's move from the base price
// of from to the close of to. Stocks delisted inside the range are absent.
func (c *Client) PriceChangeByTicker(ctx context.Context, from, to string) ([]market.PriceChange, error) {
	rows, err := c.post(ctx, bldPriceChange, url.Values{
		"mktId":     {"ALL"},
		"strtDd":    {from},
		"endDd":     {to},
		"adjStkPrc": {"2"},
	})
	if err != nil {
		return nil, fmt.Errorf("price change %s~%s: %w", from, to, err)
	}

	out := make([]market.PriceChange, 0, len(rows))
	for _, r := range rows {
		out = append(out, market.PriceChange{
			Ticker:     r.str("ISU_SRT_CD"),
			Name:       r.str("ISU_ABBRV"),
			Open:       r.num("BAS_PRC"),
			Close:      r.num("TDD_CLSPRC"),
			Change:     r.num("CMPPREVDD_PRC"),
			ChangeRate: r.num("FLUC_RT"),
			Volume:     r.num("ACC_TRDVOL"),
			Value:      r.num("ACC_TRDVAL"),
		})
	}
	return out, nil
}
