package krx

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
)

const (
	bldShortingStatus = "dbms/MDC/STAT/srt/MDCSTAT30001"
	bldShortingVolume = "dbms/MDC/STAT/srt/MDCSTAT30101"
)

var shortingFields = []field{
	{"CVSRTSELL_TRDVOL", "short_volume"},
	{"CVSRTSELL_TRDVAL", "short_value"},
	{"STR_CONST_VAL1", "balance"},
	{"STR_CONST_VAL2", "balance_value"},
}

// ShortingStatusByDate returns daily short selling volume and balance for
// one stock
func (c *Client) ShortingStatusByDate(ctx context.Context, from, to, isin string) (*frame.Table, error) {
	rows, err := c.post(ctx, bldShortingStatus, url.Values{
		"isuCd":  {isin},
		"strtDd": {from},
		"endDd":  {to},
	})
	if err != nil {
		return nil, fmt.Errorf("shorting status %s: %w", isin, err)
	}
	return buildTable(rows, "TRD_DD", shortingFields)
}

// ShortingVolumeByTicker returns every stock's short selling volume on date
func (c *Client) ShortingVolumeByTicker(ctx context.Context, date string, m market.Market) ([]market.ShortVolume, error) {
	id, err := mktID(m)
	if err != nil {
		return nil, err
	}

	rows, err := c.post(ctx, bldShortingVolume, url.Values{
		"searchType": {"1"},
		"mktId":      {id},
		"trdDd":      {date},
		"inqCond":    {"STMFRTSCIFDRFS"},
	})
	if err != nil {
		return nil, fmt.Errorf("shorting volume %s %s: %w", m, date, err)
	}

	out := make([]market.ShortVolume, 0, len(rows))
	for _, r := range rows {
		ticker := r.str("ISU_SRT_CD")
		if ticker == "" {
			ticker = r.str("ISU_CD")
		}
		out = append(out, market.ShortVolume{
			Ticker:      ticker,
			Name:        r.str("ISU_ABBRV"),
			ShortVolume: r.num("CVSRTSELL_TRDVOL"),
			Volume:      r.num("ACC_TRDVOL"),
			ShortRatio:  r.num("TRDVOL_WT"),
		})
	}
	return out, nil
}
