package krx

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/krxquery/internal/market"
)

const (
	bldFinder    = "dbms/comm/finder/finder_stkisu"
	bldAllPrices = "dbms/MDC/STAT/standard/MDCSTAT01501"
)

// Security resolves a short ticker to its ISIN, name and market. Results
// are memoised for the client's lifetime.
func (c *Client) Security(ctx context.Context, ticker string) (*market.Security, error) {
	c.mu.Lock()
	sec, ok := c.securities[ticker]
	c.mu.Unlock()
	if ok {
		return &sec, nil
	}

	rows, err := c.post(ctx, bldFinder, url.Values{
		"mktsel":     {"ALL"},
		"typeNo":     {"0"},
		"searchText": {ticker},
	})
	if err != nil {
		return nil, fmt.Errorf("finder %s: %w", ticker, err)
	}

	for _, r := range rows {
		if r.str("short_code") != ticker {
			continue
		}
		sec = market.Security{
			Ticker: ticker,
			ISIN:   r.str("full_code"),
			Name:   r.str("codeName"),
			Market: marketFromName(r.str("marketEngName")),
		}
		c.mu.Lock()
		c.securities[ticker] = sec
		c.mu.Unlock()
		return &sec, nil
	}

	return nil, fmt.Errorf("finder %s: %w", ticker, market.ErrTickerNotFound)
}

// TickerList lists the securities traded in m on date
func (c *Client) TickerList(ctx context.Context, date string, m market.Market) ([]market.Security, error) {
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
		return nil, err
	}

	out := make([]market.Security, 0, len(rows))
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range rows {
		code := r.str("ISU_SRT_CD")
		if code == "" {
			continue
		}
		sec := market.Security{
			Ticker: code,
			ISIN:   r.str("ISU_CD"),
			Name:   r.str("ISU_ABBRV"),
			Market: marketFromName(r.str("MKT_NM")),
		}
		if sec.ISIN != "" {
			c.securities[code] = sec
		}
		out = append(out, sec)
	}

	c.logger.WithFields(map[string]interface{}{
		"market": m,
		"date":   date,
		"count":  len(out),
	}).Info("Fetched ticker list from KRX")
	return out, nil
}

func marketFromName(s string) market.Market {
	switch s {
	case "KOSPI", "유가증권", "코스피":
		return market.KOSPI
	case "KOSDAQ", "코스닥", "KOSDAQ GLOBAL":
		return market.KOSDAQ
	case "KONEX", "코넥스":
		return market.KONEX
	default:
		return market.Market(s)
	}
}
