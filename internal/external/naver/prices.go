package naver

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/resample"
)

// bar is one daily candle from the chart API
type bar struct {
	date                   time.Time
	open, high, low, close float64
	volume                 float64
}

var priceRowRe = regexp.MustCompile(`\["(\d{8})",\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+)`)

// OHLCVByDate returns adjusted daily OHLCV between from and to (YYYYMMDD)
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) OHLCVByDate(ctx context.Context, from, to, ticker string) (*frame.Table, error) {
	params := url.Values{
		"symbol":      {ticker},
		"requestType": {"1"},
		"startTime":   {from},
		"endTime":     {to},
		"timeframe":   {"day"},
	}

	body, err := c.fetch(ctx, c.chartURL+"/siseJson.naver?"+params.Encode())
	if err != nil {
		return nil, err
	}

	bars := parsePriceResponse(string(body))

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"from":   from,
		"to":     to,
		"count":  len(bars),
	}).Debug("Fetched prices")

	return toTable(bars)
}

func toTable(bars []bar) (*frame.Table, error) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].date.Before(bars[j].date) })

	t := frame.NewTable(resample.ColOpen, resample.ColHigh, resample.ColLow, resample.ColClose, resample.ColVolume)
	for i, b := range bars {
		if i > 0 && b.date.Equal(bars[i-1].date) {
			continue
		}
		if err := t.Append(b.date, b.open, b.high, b.low, b.close, b.volume); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// parsePriceResponse parses the chart API body, a JavaScript array literal
// with single-quoted headers
func parsePriceResponse(body string) []bar {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	// Try JSON parsing first
	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parsePriceJSON(rawData)
	}

	// Fallback to regex parsing
	return parsePriceRegex(body)
}

// parsePriceJSON parses JSON array format
func parsePriceJSON(rawData [][]interface{}) []bar {
	var bars []bar
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue // Skip header
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		tradeDate, err := dates.ParseDay(strings.Trim(dateStr, "\""))
		if err != nil {
			continue
		}

		bars = append(bars, bar{
			date:   tradeDate,
			open:   toFloat(row[1]),
			high:   toFloat(row[2]),
			low:    toFloat(row[3]),
			close:  toFloat(row[4]),
			volume: toFloat(row[5]),
		})
	}
	return bars
}

// parsePriceRegex parses using regex (fallback)
func parsePriceRegex(body string) []bar {
	matches := priceRowRe.FindAllStringSubmatch(body, -1)

	var bars []bar
	for _, match := range matches {
		tradeDate, err := dates.ParseDay(match[1])
		if err != nil {
			continue
		}

		bars = append(bars, bar{
			date:   tradeDate,
			open:   toFloat(match[2]),
			high:   toFloat(match[3]),
			low:    toFloat(match[4]),
			close:  toFloat(match[5]),
			volume: toFloat(match[6]),
		})
	}
	return bars
}

// toFloat converts various types to float64
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		n, _ := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return n
	default:
		return 0
	}
}
