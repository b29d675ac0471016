package naver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/wonny/krxquery/pkg/httputil"
	"github.com/wonny/krxquery/pkg/logger"
)

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string // finance.naver.com pages
	chartURL   string // fchart.stock.naver.com
}

// NewClient creates a new Naver Finance client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, chartURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Named("naver"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		chartURL:   strings.TrimRight(chartURL, "/"),
	}
}

// fetch GETs fullURL with browser headers and returns the body
func (c *Client) fetch(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://finance.naver.com/")

	body, err := c.httpClient.ReadAll(req)
	if err != nil {
		return nil, fmt.Errorf("naver %s: %w", req.URL.Path, err)
	}
	return body, nil
}
