package krx

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/resample"
)

const bldForeignHolding = "dbms/MDC/STAT/standard/MDCSTAT03701"

var marketCapFields = []field{
	{"MKTCAP", resample.ColMarketCap},
	{"ACC_TRDVOL", resample.ColVolume},
	{"ACC_TRDVAL", resample.ColValue},
	{"LIST_SHRS", resample.ColShares},
}

// MarketCapByDate returns daily capitalisation and listed shares for one
// stock
func (c *Client) MarketCapByDate(ctx context.Context, from, to, isin string) (*frame.Table, error) {
	rows, err := c.stockDaily(ctx, from, to, isin)
	if err != nil {
		return nil, err
	}
	return buildTable(rows, "TRD_DD", marketCapFields)
}

// MarketCapByTicker returns every stock's market cap on date
// ⭐ SSOT: KRX 시가총액/상장주식수 조회는 이 함수에서만
func (c *Client) MarketCapByTicker(ctx context.Context, date string, m market.Market) ([]market.Cap, error) {
	rows, err := c.allPrices(ctx, date, m)
	if err != nil {
		return nil, err
	}

	out := make([]market.Cap, 0, len(rows))
	for _, r := range rows {
		code := r.str("ISU_SRT_CD")
		if code == "" {
			continue
		}
		out = append(out, market.Cap{
			Ticker:    code,
			Name:      r.str("ISU_ABBRV"),
			Close:     r.num("TDD_CLSPRC"),
			MarketCap: r.num("MKTCAP"),
			Volume:    r.num("ACC_TRDVOL"),
			Value:     r.num("ACC_TRDVAL"),
			Shares:    r.num("LIST_SHRS"),
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"market": m,
		"date":   date,
		"count":  len(out),
	}).Info("Fetched market caps from KRX")
	return out, nil
}

// ForeignHoldingByTicker returns foreign ownership per stock on date.
// limitOnly keeps only stocks with a foreign ownership limit.
func (c *Client) ForeignHoldingByTicker(ctx context.Context, date string, m market.Market, limitOnly bool) ([]market.ForeignHolding, error) {
	id, err := mktID(m)
	if err != nil {
		return nil, err
	}

	addTp := "1"
	if limitOnly {
		addTp = "2"
	}

	rows, err := c.post(ctx, bldForeignHolding, url.Values{
		"searchType": {"1"},
		"mktId":      {id},
		"trdDd":      {date},
		"addTpCd":    {addTp},
	})
	if err != nil {
		return nil, fmt.Errorf("foreign holding %s %s: %w", m, date, err)
	}

	out := make([]market.ForeignHolding, 0, len(rows))
	for _, r := range rows {
		out = append(out, market.ForeignHolding{
			Ticker:         r.str("ISU_SRT_CD"),
			Name:           r.str("ISU_ABBRV"),
			Shares:         r.num("LIST_SHRS"),
			ForeignShares:  r.num("FORN_HD_QTY"),
			ForeignRate:    r.num("FORN_SHR_RT"),
			LimitShares:    r.num("FORN_ORD_LMT_QTY"),
			ExhaustionRate: r.num("FORN_LMT_EXHST_RT"),
		})
	}
	return out, nil
}
