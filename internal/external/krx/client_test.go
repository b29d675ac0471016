package krx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/resample"
	"github.com/wonny/krxquery/pkg/config"
	"github.com/wonny/krxquery/pkg/httputil"
	"github.com/wonny/krxquery/pkg/logger"
	"github.com/wonny/krxquery/pkg/redis"
)

// portal serves canned bodies keyed by bld and counts requests
type portal struct {
	bodies   map[string]string
	requests atomic.Int32
	forms    []url.Values
}

func (p *portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.requests.Add(1)
	if r.Method != http.MethodPost || r.URL.Path != jsonPath {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.forms = append(p.forms, r.PostForm)

	body, ok := p.bodies[r.PostForm.Get("bld")]
	if !ok {
		http.Error(w, "LOGOUT", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func newTestClient(t *testing.T, p *portal) *Client {
	t.Helper()
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	log := logger.Nop()
	return NewClient(httputil.New(&config.Config{}, log), log, srv.URL)
}

const finderBody = `{"block1":[
	{"full_code":"KR7005930003","short_code":"005930","codeName":"삼성전자","marketEngName":"KOSPI"},
	{"full_code":"KR7005931001","short_code":"005935","codeName":"삼성전자우","marketEngName":"KOSPI"}
]}`

func TestSecurity_ResolvesAndMemoises(t *testing.T) {
	p := &portal{bodies: map[string]string{bldFinder: finderBody}}
	c := newTestClient(t, p)

	sec, err := c.Security(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, "KR7005930003", sec.ISIN)
	assert.Equal(t, "삼성전자", sec.Name)
	assert.Equal(t, market.KOSPI, sec.Market)

	_, err = c.Security(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.requests.Load())
	assert.Equal(t, "005930", p.forms[0].Get("searchText"))
}

func TestSecurity_NotFound(t *testing.T) {
	p := &portal{bodies: map[string]string{bldFinder: `{"block1":[]}`}}
	c := newTestClient(t, p)

	_, err := c.Security(context.Background(), "999999")
	assert.ErrorIs(t, err, market.ErrTickerNotFound)
}

func TestOHLCVByDate_SortsAscending(t *testing.T) {
	p := &portal{bodies: map[string]string{bldStockDaily: `{"output":[
		{"TRD_DD":"2024/01/03","TDD_OPNPRC":"78,500","TDD_HGPRC":"78,800","TDD_LWPRC":"77,000","TDD_CLSPRC":"77,000","ACC_TRDVOL":"21,753,644","ACC_TRDVAL":"1,688,000,000,000","MKTCAP":"459,668,000,000,000","LIST_SHRS":"5,969,782,550"},
		{"TRD_DD":"2024/01/02","TDD_OPNPRC":"78,200","TDD_HGPRC":"79,800","TDD_LWPRC":"78,200","TDD_CLSPRC":"79,600","ACC_TRDVOL":"17,142,847","ACC_TRDVAL":"1,354,000,000,000","MKTCAP":"475,190,000,000,000","LIST_SHRS":"5,969,782,550"}
	]}`}}
	c := newTestClient(t, p)

	tbl, err := c.OHLCVByDate(context.Background(), "20240102", "20240103", "KR7005930003")
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), tbl.Date(0))
	assert.Equal(t, []float64{79600, 77000}, tbl.Column(resample.ColClose))
	assert.Equal(t, []float64{17142847, 21753644}, tbl.Column(resample.ColVolume))

	form := p.forms[0]
	assert.Equal(t, "KR7005930003", form.Get("isuCd"))
	assert.Equal(t, "20240102", form.Get("strtDd"))
	assert.Equal(t, "ko_KR", form.Get("locale"))

	caps, err := c.MarketCapByDate(context.Background(), "20240102", "20240103", "KR7005930003")
	require.NoError(t, err)
	assert.Equal(t, []float64{5969782550, 5969782550}, caps.Column(resample.ColShares))
}

func TestOHLCVByDate_Empty(t *testing.T) {
	p := &portal{bodies: map[string]string{bldStockDaily: `{"output":[]}`}}
	c := newTestClient(t, p)

	tbl, err := c.OHLCVByDate(context.Background(), "20240106", "20240107", "KR7005930003")
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
}

func TestPriceChangeByTicker(t *testing.T) {
	p := &portal{bodies: map[string]string{bldPriceChange: `{"OutBlock_1":[
		{"ISU_SRT_CD":"005930","ISU_ABBRV":"삼성전자","BAS_PRC":"78,500","TDD_CLSPRC":"72,700","CMPPREVDD_PRC":"-5,800","FLUC_RT":"-7.39","ACC_TRDVOL":"300,000,000","ACC_TRDVAL":"22,000,000,000,000"}
	]}`}}
	c := newTestClient(t, p)

	rows, err := c.PriceChangeByTicker(context.Background(), "20240102", "20240131")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, market.PriceChange{
		Ticker: "005930", Name: "삼성전자", Open: 78500, Close: 72700,
		Change: -5800, ChangeRate: -7.39, Volume: 3e8, Value: 2.2e13,
	}, rows[0])
	assert.Equal(t, "ALL", p.forms[0].Get("mktId"))
}

func TestTradingByDate_OmitsMissingGroups(t *testing.T) {
	p := &portal{bodies: map[string]string{bldTradingTrend: `{"output":[
		{"TRD_DD":"2024/01/03","TRDVOL_TOT":"900","TRDVOL_REG":"850","TRDVOL_AFT_OVTM":"50"},
		{"TRD_DD":"2024/01/02","TRDVOL_TOT":"700","TRDVOL_REG":"690","TRDVOL_AFT_OVTM":"10"}
	]}`}}
	c := newTestClient(t, p)

	groups, err := c.TradingByDate(context.Background(), "20240102", "20240103", market.KOSPI, market.Volume)
	require.NoError(t, err)
	require.Contains(t, groups, market.GroupTotal)
	require.Contains(t, groups, market.GroupSession)
	assert.NotContains(t, groups, market.GroupKind)

	assert.Equal(t, []string{"regular", "after_hours"}, groups[market.GroupSession].Columns())
	assert.Equal(t, []float64{700, 900}, groups[market.GroupTotal].Column("total"))
	assert.Equal(t, "STK", p.forms[0].Get("mktId"))
	assert.Equal(t, "1", p.forms[0].Get("trdVolVal"))
}

func TestIndexTickerList_FiltersByBaseDate(t *testing.T) {
	p := &portal{bodies: map[string]string{bldIndexList: `{"output":[
		{"IDX_NM":"코스피","IND_TP_CD":"1","IDX_IND_CD":"001","BAS_TM_CONTN":"1980.01.04"},
		{"IDX_NM":"코스피 200","IND_TP_CD":"1","IDX_IND_CD":"028","BAS_TM_CONTN":"1990.01.03"},
		{"IDX_NM":"코스피 200 헬스케어","IND_TP_CD":"1","IDX_IND_CD":"160","BAS_TM_CONTN":"2010.01.04"}
	]}`}}
	c := newTestClient(t, p)

	got, err := c.IndexTickerList(context.Background(), "20000104", market.KOSPI)
	require.NoError(t, err)
	assert.Equal(t, []market.Index{{Ticker: "1001", Name: "코스피"}, {Ticker: "1028", Name: "코스피 200"}}, got)
	assert.Equal(t, "02", p.forms[0].Get("idxIndMidclssCd"))

	name, err := c.IndexName(context.Background(), "1160")
	require.NoError(t, err)
	assert.Equal(t, "코스피 200 헬스케어", name)
	assert.Equal(t, int32(1), p.requests.Load())
}

func TestIndexOHLCVByDate_SplitsTicker(t *testing.T) {
	p := &portal{bodies: map[string]string{bldIndexDaily: `{"output":[
		{"TRD_DD":"2024/01/02","OPNPRC_IDX":"2,645.47","HGPRC_IDX":"2,676.13","LWPRC_IDX":"2,643.56","CLSPRC_IDX":"2,669.81","ACC_TRDVOL":"414,000"}
	]}`}}
	c := newTestClient(t, p)

	tbl, err := c.IndexOHLCVByDate(context.Background(), "20240102", "20240102", "1028")
	require.NoError(t, err)
	assert.Equal(t, []float64{2669.81}, tbl.Column(resample.ColClose))
	assert.Equal(t, "1", p.forms[0].Get("indIdx"))
	assert.Equal(t, "028", p.forms[0].Get("indIdx2"))

	_, err = c.IndexOHLCVByDate(context.Background(), "20240102", "20240102", "28")
	assert.Error(t, err)
}

func TestPost_StatusError(t *testing.T) {
	c := newTestClient(t, &portal{bodies: map[string]string{}})

	_, err := c.FundamentalByTicker(context.Background(), "20240102", market.KOSPI)
	require.Error(t, err)

	var se *httputil.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

func TestUnsupportedMarket(t *testing.T) {
	c := newTestClient(t, &portal{})

	_, err := c.OHLCVByTicker(context.Background(), "20240102", market.Market("NYSE"))
	assert.Error(t, err)
	_, err = c.IndexPriceChange(context.Background(), "20240102", "20240103", market.KONEX)
	assert.Error(t, err)
}

func TestPost_CacheHitSkipsUpstream(t *testing.T) {
	p := &portal{bodies: map[string]string{}}
	db, mock := redismock.NewClientMock()
	c := newTestClient(t, p).WithCache(redis.NewCache(redis.NewFromClient(db), "krxquery", time.Hour))

	form := url.Values{
		"bld":         {bldFinder},
		"locale":      {"ko_KR"},
		"csvxls_isNo": {"false"},
		"mktsel":      {"ALL"},
		"typeNo":      {"0"},
		"searchText":  {"005930"},
	}
	mock.ExpectGet("krxquery:cache:" + redis.RequestKey("krx", form)).SetVal(finderBody)

	sec, err := c.Security(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, "KR7005930003", sec.ISIN)
	assert.Equal(t, int32(0), p.requests.Load())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettled(t *testing.T) {
	c := newTestClient(t, &portal{}).WithClock(dates.FixedClock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))

	tests := []struct {
		name string
		form url.Values
		want bool
	}{
		{"no dates", url.Values{"searchText": {"005930"}}, true},
		{"past day", url.Values{"trdDd": {"20240112"}}, true},
		{"today", url.Values{"trdDd": {"20240115"}}, false},
		{"past range", url.Values{"strtDd": {"20240101"}, "endDd": {"20240112"}}, true},
		{"range ending today", url.Values{"strtDd": {"20240101"}, "endDd": {"20240115"}}, false},
		{"range ending later", url.Values{"strtDd": {"20240101"}, "endDd": {"20241231"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.settled(tt.form))
		})
	}
}

func TestPost_TodayBypassesCache(t *testing.T) {
	p := &portal{bodies: map[string]string{bldAllPrices: `{"OutBlock_1":[
		{"ISU_SRT_CD":"005930","ISU_ABBRV":"삼성전자","TDD_OPNPRC":"71,000","TDD_HGPRC":"72,000","TDD_LWPRC":"70,500","TDD_CLSPRC":"71,500","ACC_TRDVOL":"1,000","ACC_TRDVAL":"71,500,000","FLUC_RT":"0.70"}
	]}`}}
	db, mock := redismock.NewClientMock()
	c := newTestClient(t, p).
		WithCache(redis.NewCache(redis.NewFromClient(db), "krxquery", time.Hour)).
		WithClock(dates.FixedClock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))

	form := url.Values{
		"bld":         {bldAllPrices},
		"locale":      {"ko_KR"},
		"csvxls_isNo": {"false"},
		"mktId":       {"STK"},
		"trdDd":       {"20240115"},
		"share":       {"1"},
		"money":       {"1"},
	}
	// a stale morning snapshot sitting in Redis must not be served
	mock.ExpectGet("krxquery:cache:" + redis.RequestKey("krx", form)).SetVal(`{"OutBlock_1":[{"ISU_SRT_CD":"005930","TDD_CLSPRC":"70,000"}]}`)

	for i := 0; i < 2; i++ {
		quotes, err := c.OHLCVByTicker(context.Background(), "20240115", market.KOSPI)
		require.NoError(t, err)
		require.Len(t, quotes, 1)
		assert.Equal(t, 71500.0, quotes[0].Close)
	}
	assert.Equal(t, int32(2), p.requests.Load())
	assert.Error(t, mock.ExpectationsWereMet(), "cache must not be consulted for today")
}

func TestShortingStatusByDate(t *testing.T) {
	p := &portal{bodies: map[string]string{bldShortingStatus: `{"OutBlock_1":[
		{"TRD_DD":"2024/01/03","CVSRTSELL_TRDVOL":"1,200","CVSRTSELL_TRDVAL":"92,400,000","STR_CONST_VAL1":"5,000","STR_CONST_VAL2":"385,000,000"},
		{"TRD_DD":"2024/01/02","CVSRTSELL_TRDVOL":"800","CVSRTSELL_TRDVAL":"63,680,000","STR_CONST_VAL1":"4,000","STR_CONST_VAL2":"318,400,000"}
	]}`}}
	c := newTestClient(t, p)

	tbl, err := c.ShortingStatusByDate(context.Background(), "20240102", "20240103", "KR7005930003")
	require.NoError(t, err)
	assert.Equal(t, []string{"short_volume", "short_value", "balance", "balance_value"}, tbl.Columns())
	assert.Equal(t, []float64{800, 1200}, tbl.Column("short_volume"))
	assert.Equal(t, []float64{4000, 5000}, tbl.Column("balance"))
	assert.Equal(t, "KR7005930003", p.forms[0].Get("isuCd"))
}

func TestShortingVolumeByTicker(t *testing.T) {
	p := &portal{bodies: map[string]string{bldShortingVolume: `{"OutBlock_1":[
		{"ISU_SRT_CD":"005930","ISU_ABBRV":"삼성전자","CVSRTSELL_TRDVOL":"1,200","ACC_TRDVOL":"21,753,644","TRDVOL_WT":"0.01"}
	]}`}}
	c := newTestClient(t, p)

	rows, err := c.ShortingVolumeByTicker(context.Background(), "20240103", market.KOSDAQ)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, market.ShortVolume{Ticker: "005930", Name: "삼성전자", ShortVolume: 1200, Volume: 21753644, ShortRatio: 0.01}, rows[0])
	assert.Equal(t, "KSQ", p.forms[0].Get("mktId"))
}

func TestForeignHoldingByTicker_LimitOnly(t *testing.T) {
	p := &portal{bodies: map[string]string{bldForeignHolding: `{"output":[
		{"ISU_SRT_CD":"005930","ISU_ABBRV":"삼성전자","LIST_SHRS":"5,969,782,550","FORN_HD_QTY":"3,209,000,000","FORN_SHR_RT":"53.75","FORN_ORD_LMT_QTY":"5,969,782,550","FORN_LMT_EXHST_RT":"53.75"}
	]}`}}
	c := newTestClient(t, p)

	rows, err := c.ForeignHoldingByTicker(context.Background(), "20240103", market.KOSPI, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 53.75, rows[0].ExhaustionRate)
	assert.Equal(t, float64(3209000000), rows[0].ForeignShares)
	assert.Equal(t, "2", p.forms[0].Get("addTpCd"))
	assert.Equal(t, "STK", p.forms[0].Get("mktId"))
}

func TestFundamentalByTicker_DashIsZero(t *testing.T) {
	p := &portal{bodies: map[string]string{bldFundamentalAll: `{"output":[
		{"ISU_SRT_CD":"005930","ISU_ABBRV":"삼성전자","TDD_CLSPRC":"77,000","DVD_YLD":"1.87","BPS":"50,817","PER":"-","EPS":"-","PBR":"1.52"}
	]}`}}
	c := newTestClient(t, p)

	rows, err := c.FundamentalByTicker(context.Background(), "20240103", market.All)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, market.Fundamental{Ticker: "005930", Name: "삼성전자", Close: 77000, DIV: 1.87, BPS: 50817, PBR: 1.52}, rows[0])
}
