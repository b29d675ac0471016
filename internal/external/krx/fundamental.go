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
	bldFundamentalAll   = "dbms/MDC/STAT/standard/MDCSTAT03501"
	bldFundamentalStock = "dbms/MDC/STAT/standard/MDCSTAT03502"
)

var fundamentalFields = []field{
	{"DVD_YLD", resample.ColDIV},
	{"BPS", resample.ColBPS},
	{"PER", resample.ColPER},
	{"EPS", resample.ColEPS},
	{"PBR", resample.ColPBR},
}

// FundamentalByDate returns daily DIV/BPS/PER/EPS/PBR for one stock
func (c *Client) FundamentalByDate(ctx context.Context, from, to, isin string) (*frame.Table, error) {
	rows, err := c.post(ctx, bldFundamentalStock, url.Values{
		"searchType": {"2"},
		"mktId":      {"ALL"},
		"isuCd":      {isin},
		"strtDd":     {from},
		"endDd":      {to},
	})
	if err != nil {
		return nil, fmt.Errorf("fundamental %s: %w", isin, err)
	}
	return buildTable(rows, "TRD_DD", fundamentalFields)
}

// FundamentalByTicker returns every stock's ratios on date
func (c *Client) FundamentalByTicker(ctx context.Context, date string, m market.Market) ([]market.Fundamental, error) {
	id, err := mktID(m)
	if err != nil {
		return nil, err
	}

	rows, err := c.post(ctx, bldFundamentalAll, url.Values{
		"searchType": {"1"},
		"mktId":      {id},
		"trdDd":      {date},
	})
	if err != nil {
		return nil, fmt.Errorf("fundamental %s %s: %w", m, date, err)
	}

	out := make([]market.Fundamental, 0, len(rows))
	for _, r := range rows {
		out = append(out, market.Fundamental{
			Ticker: r.str("ISU_SRT_CD"),
			Name:   r.str("ISU_ABBRV"),
			Close:  r.num("TDD_CLSPRC"),
			DIV:    r.num("DVD_YLD"),
			BPS:    r.num("BPS"),
			PER:    r.num("PER"),
			EPS:    r.num("EPS"),
			PBR:    r.num("PBR"),
		})
	}
	return out, nil
}
