package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/delisting"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/query"
)

var (
	changeFlags rangeFlags
	changeSort  bool

	snapshotDate      string
	snapshotMarket    string
	snapshotKind      string
	snapshotLimitOnly bool

	tradingFlags   rangeFlags
	tradingMarket  string
	tradingMeasure string
	tradingOn      string
)

// changeCmd represents the change command
var changeCmd = &cobra.Command{
	Use:   "change",
	Short: "전 종목 기간 등락률 (상장폐지 포함)",
	Long: `기간 중 전 종목의 시작가/종가/등락률을 조회합니다.

기간 중 상장폐지된 종목도 포함되며 종가 0, 등락률 -100 으로 표시됩니다.

Example:
  go run ./cmd/krxq change --from 20240101 --to 20240131 --sort`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, _, err := changeFlags.dates()
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		changes, err := a.service.MarketPriceChangeByTicker(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		if changeSort {
			sort.SliceStable(changes, func(i, j int) bool { return changes[i].ChangeRate > changes[j].ChangeRate })
		}

		delisted := 0
		rows := make([][]string, len(changes))
		for i, c := range changes {
			if c.ChangeRate == delisting.DelistedChangeRate && c.Close == 0 {
				delisted++
			}
			rows[i] = []string{c.Ticker, c.Name, num(c.Open), num(c.Close), num(c.Change), num(c.ChangeRate), num(c.Volume), num(c.Value)}
		}

		PrintQueryHeader(QueryMetadata{Title: "Price change", Period: changeFlags.period()})
		if err := printGrid([]string{"ticker", "name", "open", "close", "change", "change_rate", "volume", "value"}, rows); err != nil {
			return err
		}
		if outputFormat == formatTable && delisted > 0 {
			PrintInfo(fmt.Sprintf("%d delisted in range", delisted))
		}
		return nil
	},
}

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "특정일 전 종목 시세/시총/지표",
	Long: `특정일 전 종목 데이터를 조회합니다.

Kinds:
  ohlcv        - 시가/고가/저가/종가/거래량
  cap          - 시가총액/상장주식수
  fundamental  - DIV/BPS/PER/EPS/PBR
  foreign      - 외국인 보유/한도소진율
  shorting     - 공매도 거래량

--date 를 생략하면 가장 최근 영업일 기준입니다.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := market.ParseMarket(snapshotMarket)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		day := snapshotDate
		if day == "" {
			if day, err = a.service.NearestBusinessDay(ctx); err != nil {
				return err
			}
		}

		header, rows, err := snapshotRows(ctx, a.service, dates.Str(day), m)
		if err != nil {
			return err
		}
		PrintQueryHeader(QueryMetadata{Title: "Snapshot " + snapshotKind + " " + day, Market: string(m)})
		return printGrid(header, rows)
	},
}

func snapshotRows(ctx context.Context, svc *query.Service, day dates.Date, m market.Market) ([]string, [][]string, error) {
	var rows [][]string
	switch snapshotKind {
	case "ohlcv":
		quotes, err := svc.MarketOHLCVByTicker(ctx, day, m)
		if err != nil {
			return nil, nil, err
		}
		for _, q := range quotes {
			rows = append(rows, []string{q.Ticker, q.Name, num(q.Open), num(q.High), num(q.Low), num(q.Close), num(q.Volume), num(q.Value), num(q.ChangeRate)})
		}
		return []string{"ticker", "name", "open", "high", "low", "close", "volume", "value", "change_rate"}, rows, nil

	case "cap":
		caps, err := svc.MarketCapByTicker(ctx, day, m)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range caps {
			rows = append(rows, []string{c.Ticker, c.Name, num(c.Close), num(c.MarketCap), num(c.Volume), num(c.Value), num(c.Shares)})
		}
		return []string{"ticker", "name", "close", "market_cap", "volume", "value", "shares"}, rows, nil

	case "fundamental":
		funds, err := svc.MarketFundamentalByTicker(ctx, day, m)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range funds {
			rows = append(rows, []string{f.Ticker, f.Name, num(f.Close), num(f.DIV), num(f.BPS), num(f.PER), num(f.EPS), num(f.PBR)})
		}
		return []string{"ticker", "name", "close", "div", "bps", "per", "eps", "pbr"}, rows, nil

	case "foreign":
		holdings, err := svc.ForeignExhaustionByTicker(ctx, day, m, snapshotLimitOnly)
		if err != nil {
			return nil, nil, err
		}
		for _, h := range holdings {
			rows = append(rows, []string{h.Ticker, h.Name, num(h.Shares), num(h.ForeignShares), num(h.ForeignRate), num(h.LimitShares), num(h.ExhaustionRate)})
		}
		return []string{"ticker", "name", "shares", "foreign_shares", "foreign_rate", "limit_shares", "exhaustion_rate"}, rows, nil

	case "shorting":
		volumes, err := svc.ShortingVolumeByTicker(ctx, day, m)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range volumes {
			rows = append(rows, []string{v.Ticker, v.Name, num(v.ShortVolume), num(v.Volume), num(v.ShortRatio)})
		}
		return []string{"ticker", "name", "short_volume", "volume", "short_ratio"}, rows, nil

	default:
		return nil, nil, fmt.Errorf("unknown snapshot kind %q: %w", snapshotKind, dates.ErrInvalidArgument)
	}
}

// tradingCmd represents the trading command
var tradingCmd = &cobra.Command{
	Use:   "trading",
	Short: "시장 거래량/거래대금 추이",
	Long: `시장 전체의 일별 거래량 또는 거래대금을 조회합니다.

--on 은 합계 옆에 표시할 그룹을 고릅니다: session, kind, buy, sell, all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, freq, err := tradingFlags.dates()
		if err != nil {
			return err
		}
		m, err := market.ParseMarket(tradingMarket)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fetch := a.service.MarketTradingVolumeByDate
		switch tradingMeasure {
		case "volume":
		case "value":
			fetch = a.service.MarketTradingValueByDate
		default:
			return fmt.Errorf("unknown measure %q (want volume or value): %w", tradingMeasure, dates.ErrInvalidArgument)
		}

		tbl, err := fetch(cmd.Context(), from, to, m, tradingOn, freq)
		if err != nil {
			return err
		}
		if tbl == nil {
			return fmt.Errorf("unknown group %q: %w", tradingOn, dates.ErrInvalidArgument)
		}
		PrintQueryHeader(QueryMetadata{Title: "Trading " + tradingMeasure, Period: tradingFlags.period(), Market: string(m)})
		return printFrame(tbl)
	},
}

func init() {
	rootCmd.AddCommand(changeCmd, snapshotCmd, tradingCmd)

	changeFlags.register(changeCmd, false)
	changeCmd.Flags().BoolVar(&changeSort, "sort", false, "sort by change rate, descending")

	snapshotCmd.Flags().StringVar(&snapshotDate, "date", "", "trading date (YYYYMMDD)")
	snapshotCmd.Flags().StringVar(&snapshotMarket, "market", "KOSPI", "market (KOSPI|KOSDAQ|KONEX|ALL)")
	snapshotCmd.Flags().StringVar(&snapshotKind, "kind", "ohlcv", "ohlcv|cap|fundamental|foreign|shorting")
	snapshotCmd.Flags().BoolVar(&snapshotLimitOnly, "limit-only", false, "foreign: only stocks with an ownership limit")

	tradingFlags.register(tradingCmd, true)
	tradingCmd.Flags().StringVar(&tradingMarket, "market", "KOSPI", "market (KOSPI|KOSDAQ|KONEX|ALL)")
	tradingCmd.Flags().StringVar(&tradingMeasure, "measure", "volume", "volume|value")
	tradingCmd.Flags().StringVar(&tradingOn, "on", market.GroupSession, "session|kind|buy|sell|all")
}
