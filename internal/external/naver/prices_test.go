package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/resample"
	"github.com/wonny/krxquery/pkg/config"
	"github.com/wonny/krxquery/pkg/httputil"
	"github.com/wonny/krxquery/pkg/logger"
)

const chartBody = `[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
["20240102", 78200, 79800, 78200, 79600, 17142847, 53.5],
["20240103", 78500, 78800, 77000, 77000, 21753644, 53.41]
]`

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	log := logger.Nop()
	return NewClient(httputil.New(&config.Config{}, log), log, srv.URL, srv.URL)
}

func TestParsePriceJSON(t *testing.T) {
	tests := []struct {
		name    string
		rawData [][]interface{}
		want    int
	}{
		{
			name: "valid data with header",
			rawData: [][]interface{}{
				{"날짜", "시가", "고가", "저가", "종가", "거래량"},
				{"20240115", 72300.0, 73000.0, 72000.0, 72500.0, 1000000.0},
				{"20240116", 72500.0, 73500.0, 72300.0, 73000.0, 1200000.0},
			},
			want: 2,
		},
		{
			name: "valid data with string numbers",
			rawData: [][]interface{}{
				{"날짜", "시가", "고가", "저가", "종가", "거래량"},
				{"20240115", "72300", "73000", "72000", "72500", "1000000"},
			},
			want: 1,
		},
		{
			name:    "empty data",
			rawData: [][]interface{}{},
			want:    0,
		},
		{
			name: "data with insufficient columns",
			rawData: [][]interface{}{
				{"날짜", "시가"},
				{"20240115", 72300.0, 73000.0},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePriceJSON(tt.rawData)
			assert.Len(t, got, tt.want)
			for _, b := range got {
				assert.False(t, b.date.IsZero())
				assert.Positive(t, b.close)
			}
		})
	}
}

func TestParsePriceRegex(t *testing.T) {
	// trailing comma makes the body invalid JSON
	body := `[["날짜","시가","고가","저가","종가","거래량"],
	["20240115", 72300, 73000, 72000, 72500, 1000000, 52.1],
	["20240116", 72500, 73500, 72300, 73000, 1200000, 52.2],]`

	got := parsePriceResponse(body)
	require.Len(t, got, 2)
	assert.Equal(t, 73000.0, got[1].close)
	assert.Equal(t, 1200000.0, got[1].volume)
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 12.5, toFloat(12.5))
	assert.Equal(t, 7.0, toFloat(7))
	assert.Equal(t, 72500.0, toFloat(" 72500 "))
	assert.Equal(t, 0.0, toFloat(nil))
}

func TestOHLCVByDate(t *testing.T) {
	var query string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/siseJson.naver", r.URL.Path)
		query = r.URL.RawQuery
		w.Write([]byte(chartBody))
	}))

	tbl, err := c.OHLCVByDate(context.Background(), "20240102", "20240103", "005930")
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), tbl.Date(1))
	assert.Equal(t, []float64{79600, 77000}, tbl.Column(resample.ColClose))
	assert.Equal(t, []string{resample.ColOpen, resample.ColHigh, resample.ColLow, resample.ColClose, resample.ColVolume}, tbl.Columns())
	assert.Contains(t, query, "symbol=005930")
	assert.Contains(t, query, "startTime=20240102")
}

func TestOHLCVByDate_NoRows(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율']]`))
	}))

	tbl, err := c.OHLCVByDate(context.Background(), "20240106", "20240107", "005930")
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
}

func TestOHLCVByDate_StatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.OHLCVByDate(context.Background(), "20240102", "20240103", "005930")
	var se *httputil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestTickerName(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "000010" {
			w.Write([]byte(`<html><body><div class="wrap_company"><h2><a href="#">조흥은행</a></h2></div></body></html>`))
			return
		}
		w.Write([]byte(`<html><body><div class="error">없는 종목</div></body></html>`))
	}))

	name, err := c.TickerName(context.Background(), "000010")
	require.NoError(t, err)
	assert.Equal(t, "조흥은행", name)

	_, err = c.TickerName(context.Background(), "999999")
	assert.ErrorIs(t, err, market.ErrTickerNotFound)
}
