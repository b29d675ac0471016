package krx

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/krxquery/internal/market"
)

const bldTradingTrend = "dbms/MDC/STAT/standard/MDCSTAT02001"

// tradingGroups lays out the daily trading trend block. Keys are suffixes
// of TRDVOL_ (volume) or TRDVAL_ (value).
var tradingGroups = []struct {
	name   string
	fields []field
}{
	{market.GroupTotal, []field{{"TOT", "total"}}},
	{market.GroupSession, []field{
		{"REG", "regular"},
		{"PRE_OVTM", "pre_market"},
		{"AFT_OVTM", "after_hours"},
	}},
	{market.GroupKind, []field{
		{"STK", "stock"},
		{"ETF", "etf"},
		{"ETN", "etn"},
		{"ELW", "elw"},
	}},
	{market.GroupBuy, []field{
		{"BID_INST", "buy_institution"},
		{"BID_FORN", "buy_foreign"},
		{"BID_INDV", "buy_individual"},
		{"BID_ETC", "buy_other"},
	}},
	{market.GroupSell, []field{
		{"ASK_INST", "sell_institution"},
		{"ASK_FORN", "sell_foreign"},
		{"ASK_INDV", "sell_individual"},
		{"ASK_ETC", "sell_other"},
	}},
}

// TradingByDate returns the market's daily trading volume or value split
// into column groups. Groups absent from the response are omitted.
func (c *Client) TradingByDate(ctx context.Context, from, to string, m market.Market, measure market.Measure) (market.TradingGroups, error) {
	id, err := mktID(m)
	if err != nil {
		return nil, err
	}

	prefix, volVal := "TRDVOL_", "1"
	if measure == market.Value {
		prefix, volVal = "TRDVAL_", "2"
	}

	rows, err := c.post(ctx, bldTradingTrend, url.Values{
		"mktId":     {id},
		"strtDd":    {from},
		"endDd":     {to},
		"inqTpCd":   {"2"},
		"trdVolVal": {volVal},
	})
	if err != nil {
		return nil, fmt.Errorf("trading trend %s %s~%s: %w", m, from, to, err)
	}

	out := make(market.TradingGroups)
	if len(rows) == 0 {
		return out, nil
	}

	for _, g := range tradingGroups {
		fields := make([]field, 0, len(g.fields))
		for _, f := range g.fields {
			key := prefix + f.key
			if _, ok := rows[0][key]; ok {
				fields = append(fields, field{key: key, col: f.col})
			}
		}
		if len(fields) == 0 {
			continue
		}

		t, err := buildTable(rows, "TRD_DD", fields)
		if err != nil {
			return nil, fmt.Errorf("trading group %s: %w", g.name, err)
		}
		out[g.name] = t
	}

	c.logger.WithFields(map[string]interface{}{
		"market": m,
		"from":   from,
		"to":     to,
		"groups": len(out),
	}).Debug("Fetched market trading trend")
	return out, nil
}
