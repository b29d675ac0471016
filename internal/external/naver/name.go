package naver

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/krxquery/internal/market"
)

// TickerName scrapes a stock's display name from its Naver item page.
// Naver keeps pages for delisted tickers the KRX finder no longer knows.
func (c *Client) TickerName(ctx context.Context, ticker string) (string, error) {
	params := url.Values{"code": {ticker}}
	body, err := c.fetch(ctx, c.baseURL+"/item/main.naver?"+params.Encode())
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse HTML failed: %w", err)
	}

	name := strings.TrimSpace(doc.Find("div.wrap_company h2 a").First().Text())
	if name == "" {
		return "", fmt.Errorf("naver item %s: %w", ticker, market.ErrTickerNotFound)
	}
	return name, nil
}
