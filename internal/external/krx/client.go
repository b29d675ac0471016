package krx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/pkg/httputil"
	"github.com/wonny/krxquery/pkg/logger"
	"github.com/wonny/krxquery/pkg/redis"
)

const (
	jsonPath   = "/comm/bldAttendant/getJsonData.cmd"
	loaderPath = "/contents/MDC/MDI/mdiLoader/index.cmd?menuId=MDC0201020101"
)

// Client talks to the KRX data portal (data.krx.co.kr)
// ⭐ SSOT: KRX 데이터 포털 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	cache      *redis.Cache
	clock      dates.Clock

	mu         sync.Mutex
	securities map[string]market.Security
	indexNames map[string]string
}

// NewClient creates a new KRX client. baseURL is normally
// http://data.krx.co.kr; tests point it at an httptest server.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Named("krx"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		clock:      dates.SystemClock{},
		securities: make(map[string]market.Security),
		indexNames: make(map[string]string),
	}
}

// WithCache enables the raw response cache
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

// WithClock sets the clock that decides which requests are still live
func (c *Client) WithClock(clock dates.Clock) *Client {
	c.clock = clock
	return c
}

// record is one row of a KRX JSON block. Values are mostly strings with
// thousands separators; a few blocks return bare numbers.
type record map[string]any

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (r record) num(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case string:
		return parseKRXFloat(v)
	default:
		return 0
	}
}

// response holds the block names KRX uses across endpoints
type response struct {
	OutBlock1 []record `json:"OutBlock_1"`
	Output    []record `json:"output"`
	Block1    []record `json:"block1"`
}

func (r response) rows() []record {
	switch {
	case len(r.OutBlock1) > 0:
		return r.OutBlock1
	case len(r.Output) > 0:
		return r.Output
	default:
		return r.Block1
	}
}

// post sends a bld request and returns the decoded rows
func (c *Client) post(ctx context.Context, bld string, params url.Values) ([]record, error) {
	form := url.Values{
		"bld":         {bld},
		"locale":      {"ko_KR"},
		"csvxls_isNo": {"false"},
	}
	for k, v := range params {
		form[k] = v
	}

	body, err := c.fetch(ctx, bld, form)
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		preview := string(body)
		if len(preview) > 500 {
			preview = preview[:500]
		}
		c.logger.WithField("response_preview", preview).Error("Failed to parse KRX response")
		return nil, fmt.Errorf("decode KRX response %s: %w", bld, err)
	}

	rows := resp.rows()
	c.logger.WithFields(map[string]interface{}{
		"bld":  bld,
		"rows": len(rows),
	}).Debug("KRX response received")
	return rows, nil
}

func (c *Client) fetch(ctx context.Context, bld string, form url.Values) ([]byte, error) {
	do := func() ([]byte, error) {
		encoded := form.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+jsonPath, strings.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(encoded)), nil }

		// KRX rejects requests without browser-like headers
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
		req.Header.Set("Origin", c.baseURL)
		req.Header.Set("Referer", c.baseURL+loaderPath)

		body, err := c.httpClient.ReadAll(req)
		if err != nil {
			return nil, fmt.Errorf("KRX %s: %w", bld, err)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, fmt.Errorf("KRX %s: empty body", bld)
		}
		return body, nil
	}

	if c.cache == nil || !c.settled(form) {
		return do()
	}
	return c.cache.GetOrFetch(ctx, redis.RequestKey("krx", form), do)
}

// settled reports whether every date in the request is before today.
// Today's session is still trading, so those answers are never cached.
func (c *Client) settled(form url.Values) bool {
	today := c.clock.Now().Format("20060102")
	for _, key := range []string{"trdDd", "endDd"} {
		if d := form.Get(key); d != "" && d >= today {
			return false
		}
	}
	return true
}

// field maps a KRX response key to a table column
type field struct {
	key string
	col string
}

func columns(fields []field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.col
	}
	return out
}

// buildTable turns dated rows into a Table. KRX lists the newest day
// first; rows are sorted ascending and duplicate days dropped.
func buildTable(rows []record, dateKey string, fields []field) (*frame.Table, error) {
	type dated struct {
		day time.Time
		row record
	}

	list := make([]dated, 0, len(rows))
	for _, r := range rows {
		d, err := dates.ParseDay(r.str(dateKey))
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", dateKey, r.str(dateKey), err)
		}
		list = append(list, dated{day: d, row: r})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].day.Before(list[j].day) })

	t := frame.NewTable(columns(fields)...)
	vals := make([]float64, len(fields))
	for i, d := range list {
		if i > 0 && d.day.Equal(list[i-1].day) {
			continue
		}
		for j, f := range fields {
			vals[j] = d.row.num(f.key)
		}
		if err := t.Append(d.day, vals...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// mktID maps a market to the KRX mktId parameter
func mktID(m market.Market) (string, error) {
	switch m {
	case market.All, "":
		return "ALL", nil
	case market.KOSPI:
		return "STK", nil
	case market.KOSDAQ:
		return "KSQ", nil
	case market.KONEX:
		return "KNX", nil
	default:
		return "", fmt.Errorf("unsupported market: %s", m)
	}
}
