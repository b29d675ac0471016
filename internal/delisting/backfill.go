// Package delisting compensates for a KRX quirk: the ranged price-change
// query only reports securities still listed at the end of the range, so
// anything delisted inside the window silently disappears. Backfill puts
// those securities back as total losses so range rankings stay free of
// survivorship bias.
package delisting

import (
	"time"
)

// PriceChange is one security's price change over a date range
type PriceChange struct {
	Ticker     string  `json:"ticker"`
	Name       string  `json:"name"`
	Open       float64 `json:"open"`  // base price at the start of the range
	Close      float64 `json:"close"` // price at the end of the range
	Change     float64 `json:"change"`
	ChangeRate float64 `json:"change_rate"` // percent
	Volume     float64 `json:"volume"`
	Value      float64 `json:"value"`
}

// DelistedChangeRate is the percent change reported for a backfilled row
const DelistedChangeRate = -100.0

// LookaheadDays bounds the search for the first trading day on or after a
// nominal start date
const LookaheadDays = 7

// ProbeTicker is used to discover trading days. 000020 (동화약품) is the
// oldest listed company and has traded on every session.
const ProbeTicker = "000020"

// Backfill appends a synthetic row for every ticker in startRows that is
// missing from rangeRows. The synthetic row keeps the start-day name and
// open, and reports close 0, change -open, rate -100, no volume or value.
//
// The change of -open is an approximation: no closing trade exists for a
// delisted security, so the start-day open stands in for the loss.
//
// An empty rangeRows is returned unchanged. Inputs are never mutated.
func Backfill(rangeRows, startRows []PriceChange) []PriceChange {
	if len(rangeRows) == 0 {
		return rangeRows
	}

	listed := make(map[string]struct{}, len(rangeRows))
	for _, r := range rangeRows {
		listed[r.Ticker] = struct{}{}
	}

	var missing []PriceChange
	for _, s := range startRows {
		if _, ok := listed[s.Ticker]; ok {
			continue
		}
		missing = append(missing, PriceChange{
			Ticker:     s.Ticker,
			Name:       s.Name,
			Open:       s.Open,
			Close:      0,
			Change:     -s.Open,
			ChangeRate: DelistedChangeRate,
			Volume:     0,
			Value:      0,
		})
	}

	if len(missing) == 0 {
		return rangeRows
	}

	out := make([]PriceChange, 0, len(rangeRows)+len(missing))
	out = append(out, rangeRows...)
	return append(out, missing...)
}

// EffectiveStart picks the first trading day on or after nominal from
// tradingDays (the index of a lookahead probe). With no candidates the
// nominal date is returned and ok is false.
func EffectiveStart(tradingDays []time.Time, nominal time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, d := range tradingDays {
		if d.Before(nominal) {
			continue
		}
		if !found || d.Before(best) {
			best = d
			found = true
		}
	}
	if !found {
		return nominal, false
	}
	return best, true
}
