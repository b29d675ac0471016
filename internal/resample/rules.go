package resample

// Column names shared by the KRX and Naver clients
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
	ColValue  = "value"

	ColMarketCap = "market_cap"
	ColShares    = "shares"

	ColDIV = "div"
	ColBPS = "bps"
	ColPER = "per"
	ColEPS = "eps"
	ColPBR = "pbr"
)

// OHLCVRules aggregates price bars
var OHLCVRules = Rules{
	ColOpen:   First,
	ColHigh:   Max,
	ColLow:    Min,
	ColClose:  Last,
	ColVolume: Sum,
}

// MarketCapRules aggregates market capitalisation rows
var MarketCapRules = Rules{
	ColMarketCap: Last,
	ColVolume:    Sum,
	ColValue:     Sum,
	ColShares:    Last,
}

// FundamentalRules keeps the first observation of each period. PBR must be
// derived before resampling.
var FundamentalRules = Rules{
	ColDIV: First,
	ColBPS: First,
	ColPER: First,
	ColEPS: First,
	ColPBR: First,
}

// SumAll builds a rule table summing every listed column (trading volume
// and value tables, whose columns depend on the selected grouping)
func SumAll(columns ...string) Rules {
	r := make(Rules, len(columns))
	for _, c := range columns {
		r[c] = Sum
	}
	return r
}
