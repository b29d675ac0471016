package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/query"
	"github.com/wonny/krxquery/pkg/logger"
)

// Querier is the part of query.Service the API exposes
type Querier interface {
	MarketOHLCVByDate(ctx context.Context, from, to dates.Date, ticker string, opts query.OHLCVOptions) (*frame.Table, error)
	MarketCapByDate(ctx context.Context, from, to dates.Date, ticker string, freq dates.Frequency) (*frame.Table, error)
	MarketFundamentalByDate(ctx context.Context, from, to dates.Date, ticker string, freq dates.Frequency, nameDisplay bool) (*frame.Table, error)
	MarketTickerList(ctx context.Context, date *dates.Date, m market.Market) ([]string, error)
	MarketPriceChangeByTicker(ctx context.Context, from, to dates.Date) ([]market.PriceChange, error)
	IndexOHLCVByDate(ctx context.Context, from, to dates.Date, ticker string, freq dates.Frequency, nameDisplay bool) (*frame.Table, error)
}

// QueryHandler serves read-only market data
// ⭐ SSOT: 조회 API 핸들러는 이 구조체에서만
type QueryHandler struct {
	svc    Querier
	logger *logger.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(svc Querier, log *logger.Logger) *QueryHandler {
	return &QueryHandler{svc: svc, logger: log}
}

// rangeParams holds the common from/to/freq query parameters
type rangeParams struct {
	from, to dates.Date
	freq     dates.Frequency
	name     bool
}

func parseRange(r *http.Request) (rangeParams, error) {
	q := r.URL.Query()
	var p rangeParams

	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		return p, fmt.Errorf("'from' and 'to' are required (YYYYMMDD): %w", dates.ErrInvalidArgument)
	}
	p.from, p.to = dates.Str(from), dates.Str(to)

	freq, err := dates.ParseFrequency(q.Get("freq"))
	if err != nil {
		return p, err
	}
	p.freq = freq

	if v := q.Get("name"); v != "" {
		if p.name, err = strconv.ParseBool(v); err != nil {
			return p, fmt.Errorf("invalid 'name' flag %q: %w", v, dates.ErrInvalidArgument)
		}
	}
	return p, nil
}

func (h *QueryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Query failed")
	}
	respondError(w, status, err.Error())
}

// GetOHLCV returns a stock's OHLCV table
// GET /api/stocks/{ticker}/ohlcv?from=&to=&freq=&adjusted=
func (h *QueryHandler) GetOHLCV(w http.ResponseWriter, r *http.Request) {
	p, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	adjusted := true
	if v := r.URL.Query().Get("adjusted"); v != "" {
		if adjusted, err = strconv.ParseBool(v); err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid 'adjusted' flag %q", v))
			return
		}
	}

	tbl, err := h.svc.MarketOHLCVByDate(r.Context(), p.from, p.to, mux.Vars(r)["ticker"], query.OHLCVOptions{
		Freq:        p.freq,
		Adjusted:    adjusted,
		NameDisplay: p.name,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tbl)
}

// GetMarketCap returns a stock's market capitalisation table
// GET /api/stocks/{ticker}/cap?from=&to=&freq=
func (h *QueryHandler) GetMarketCap(w http.ResponseWriter, r *http.Request) {
	p, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tbl, err := h.svc.MarketCapByDate(r.Context(), p.from, p.to, mux.Vars(r)["ticker"], p.freq)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tbl)
}

// GetFundamental returns a stock's valuation ratios
// GET /api/stocks/{ticker}/fundamental?from=&to=&freq=
func (h *QueryHandler) GetFundamental(w http.ResponseWriter, r *http.Request) {
	p, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tbl, err := h.svc.MarketFundamentalByDate(r.Context(), p.from, p.to, mux.Vars(r)["ticker"], p.freq, p.name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tbl)
}

// GetTickers lists the tickers of a market. Without date the nearest
// business day is used.
// GET /api/markets/{market}/tickers?date=
func (h *QueryHandler) GetTickers(w http.ResponseWriter, r *http.Request) {
	m, err := market.ParseMarket(mux.Vars(r)["market"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var date *dates.Date
	if v := r.URL.Query().Get("date"); v != "" {
		d := dates.Str(v)
		date = &d
	}

	tickers, err := h.svc.MarketTickerList(r.Context(), date, m)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tickers == nil {
		tickers = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"market":  m,
		"count":   len(tickers),
		"tickers": tickers,
	})
}

// GetPriceChange returns every stock's move between from and to,
// including stocks delisted inside the range
// GET /api/price-change?from=&to=
func (h *QueryHandler) GetPriceChange(w http.ResponseWriter, r *http.Request) {
	p, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	changes, err := h.svc.MarketPriceChangeByTicker(r.Context(), p.from, p.to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if changes == nil {
		changes = []market.PriceChange{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":    p.from.Normalize(dates.Day),
		"to":      p.to.Normalize(dates.Day),
		"count":   len(changes),
		"changes": changes,
	})
}

// GetIndexOHLCV returns an index's OHLCV table
// GET /api/indices/{ticker}/ohlcv?from=&to=&freq=
func (h *QueryHandler) GetIndexOHLCV(w http.ResponseWriter, r *http.Request) {
	p, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tbl, err := h.svc.IndexOHLCVByDate(r.Context(), p.from, p.to, mux.Vars(r)["ticker"], p.freq, p.name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tbl)
}
