// Package market holds the ticker-keyed row types exchanged between the
// data-source clients and the query layer.
package market

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/krxquery/internal/delisting"
	"github.com/wonny/krxquery/internal/frame"
)

// ErrTickerNotFound is returned by sources that cannot resolve a ticker
var ErrTickerNotFound = errors.New("ticker not found")

// Market is a KRX market segment
type Market string

const (
	All    Market = "ALL"
	KOSPI  Market = "KOSPI"
	KOSDAQ Market = "KOSDAQ"
	KONEX  Market = "KONEX"
)

// ParseMarket accepts a market name in any case
func ParseMarket(s string) (Market, error) {
	switch m := Market(strings.ToUpper(strings.TrimSpace(s))); m {
	case All, KOSPI, KOSDAQ, KONEX:
		return m, nil
	case "":
		return All, nil
	default:
		return "", fmt.Errorf("unknown market %q", s)
	}
}

// Security identifies a listed stock
type Security struct {
	Ticker string `json:"ticker"`
	ISIN   string `json:"isin"`
	Name   string `json:"name"`
	Market Market `json:"market"`
}

// Quote is one stock's OHLCV for a single day
type Quote struct {
	Ticker     string  `json:"ticker"`
	Name       string  `json:"name"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	Value      float64 `json:"value"`
	ChangeRate float64 `json:"change_rate"`
}

// Cap is one stock's capitalisation for a single day
type Cap struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Close     float64 `json:"close"`
	MarketCap float64 `json:"market_cap"`
	Volume    float64 `json:"volume"`
	Value     float64 `json:"value"`
	Shares    float64 `json:"shares"`
}

// Fundamental is one stock's valuation ratios for a single day
type Fundamental struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Close  float64 `json:"close"`
	DIV    float64 `json:"div"`
	BPS    float64 `json:"bps"`
	PER    float64 `json:"per"`
	EPS    float64 `json:"eps"`
	PBR    float64 `json:"pbr"`
}

// ForeignHolding is foreign ownership against the foreign limit
type ForeignHolding struct {
	Ticker         string  `json:"ticker"`
	Name           string  `json:"name"`
	Shares         float64 `json:"shares"`
	ForeignShares  float64 `json:"foreign_shares"`
	ForeignRate    float64 `json:"foreign_rate"`
	LimitShares    float64 `json:"limit_shares"`
	ExhaustionRate float64 `json:"exhaustion_rate"`
}

// PriceChange is re-exported so callers need not import delisting
type PriceChange = delisting.PriceChange

// Index identifies a KRX index
type Index struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// IndexChange is an index's move over a date range
type IndexChange struct {
	Name       string  `json:"name"`
	Open       float64 `json:"open"`
	Close      float64 `json:"close"`
	ChangeRate float64 `json:"change_rate"`
	Volume     float64 `json:"volume"`
	Value      float64 `json:"value"`
}

// ShortVolume is short-selling volume for one stock on one day
type ShortVolume struct {
	Ticker      string  `json:"ticker"`
	Name        string  `json:"name"`
	ShortVolume float64 `json:"short_volume"`
	Volume      float64 `json:"volume"`
	ShortRatio  float64 `json:"short_ratio"`
}

// Measure selects volume or value for the market trading tables
type Measure int

const (
	Volume Measure = iota
	Value
)

// Trading groups returned by the market trading endpoints. GroupTotal is
// always present.
const (
	GroupTotal   = "total"
	GroupSession = "session"
	GroupKind    = "kind"
	GroupBuy     = "buy"
	GroupSell    = "sell"
	GroupAll     = "all"
)

// TradingGroups is a market trading table split by column group
type TradingGroups map[string]*frame.Table

// GroupOrder is the column order used when every group is requested
var GroupOrder = []string{GroupTotal, GroupSession, GroupKind, GroupBuy, GroupSell}
