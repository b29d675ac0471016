package query

import (
	"context"
	"fmt"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/resample"
)

// DerivePBR computes PBR as PER*EPS/BPS. A zero BPS yields 0.
func DerivePBR(per, eps, bps float64) float64 {
	if bps == 0 {
		return 0
	}
	return per * eps / bps
}

// MarketFundamentalByDate returns a stock's DIV/BPS/PER/EPS/PBR between
// from and to. PBR is recomputed from PER, EPS and BPS before resampling.
func (s *Service) MarketFundamentalByDate(ctx context.Context, from, to dates.Date, ticker string, freq dates.Frequency, nameDisplay bool) (*frame.Table, error) {
	f, t := from.Normalize(dates.Day), to.Normalize(dates.Day)

	sec, err := s.krx.Security(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fundamental %s: %w", ticker, err)
	}

	tbl, err := s.krx.FundamentalByDate(ctx, f, t, sec.ISIN)
	if err != nil {
		return nil, fmt.Errorf("fundamental %s %s~%s: %w", ticker, f, t, err)
	}
	if tbl.Empty() {
		return tbl, nil
	}

	if nameDisplay {
		tbl.Name = sec.Name
	}

	if err := derivePBRColumn(tbl); err != nil {
		return nil, err
	}
	return resample.Resample(tbl, freq, resample.FundamentalRules)
}

func derivePBRColumn(tbl *frame.Table) error {
	per, eps, bps := tbl.Column(resample.ColPER), tbl.Column(resample.ColEPS), tbl.Column(resample.ColBPS)
	if per == nil || eps == nil || bps == nil {
		return fmt.Errorf("fundamental table lacks per/eps/bps columns: %v", tbl.Columns())
	}

	pbr := make([]float64, tbl.Len())
	for i := range pbr {
		pbr[i] = DerivePBR(per[i], eps[i], bps[i])
	}
	return tbl.SetColumn(resample.ColPBR, pbr)
}

// MarketFundamentalByTicker returns every stock's ratios on date with PBR
// recomputed per row
func (s *Service) MarketFundamentalByTicker(ctx context.Context, date dates.Date, m market.Market) ([]market.Fundamental, error) {
	day := date.Normalize(dates.Day)
	rows, err := s.krx.FundamentalByTicker(ctx, day, m)
	if err != nil {
		return nil, fmt.Errorf("fundamental by ticker %s %s: %w", m, day, err)
	}

	for i := range rows {
		rows[i].PBR = DerivePBR(rows[i].PER, rows[i].EPS, rows[i].BPS)
	}
	return rows, nil
}
