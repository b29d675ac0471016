package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/market"
	"github.com/wonny/krxquery/internal/query"
)

var (
	ohlcvFlags    rangeFlags
	ohlcvAdjusted bool

	capFlags         rangeFlags
	fundamentalFlags rangeFlags
	shortingFlags    rangeFlags

	tickersDate string
)

// ohlcvCmd represents the ohlcv command
var ohlcvCmd = &cobra.Command{
	Use:   "ohlcv [ticker]",
	Short: "종목 OHLCV 조회",
	Long: `종목의 시가/고가/저가/종가/거래량을 조회합니다.

--adjusted (기본값) 는 네이버 수정주가, --adjusted=false 는 KRX 원주가를
사용합니다. --freq m/y 는 월/연 단위로 리샘플링합니다.

Example:
  go run ./cmd/krxq ohlcv 005930 --from 20240101 --to 20241231 --freq m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, freq, err := ohlcvFlags.dates()
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tbl, err := a.service.MarketOHLCVByDate(cmd.Context(), from, to, args[0], query.OHLCVOptions{
			Freq:        freq,
			Adjusted:    ohlcvAdjusted,
			NameDisplay: ohlcvFlags.name,
		})
		if err != nil {
			return err
		}
		PrintQueryHeader(QueryMetadata{Title: "OHLCV " + args[0], Period: ohlcvFlags.period()})
		return printFrame(tbl)
	},
}

// capCmd represents the cap command
var capCmd = &cobra.Command{
	Use:   "cap [ticker]",
	Short: "종목 시가총액 조회",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, freq, err := capFlags.dates()
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tbl, err := a.service.MarketCapByDate(cmd.Context(), from, to, args[0], freq)
		if err != nil {
			return err
		}
		PrintQueryHeader(QueryMetadata{Title: "Market cap " + args[0], Period: capFlags.period()})
		return printFrame(tbl)
	},
}

// fundamentalCmd represents the fundamental command
var fundamentalCmd = &cobra.Command{
	Use:   "fundamental [ticker]",
	Short: "종목 DIV/BPS/PER/EPS/PBR 조회",
	Long: `종목의 배당수익률과 BPS/PER/EPS/PBR 을 조회합니다.
PBR 은 PER*EPS/BPS 로 다시 계산하며 BPS 가 0 이면 0 입니다.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, freq, err := fundamentalFlags.dates()
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tbl, err := a.service.MarketFundamentalByDate(cmd.Context(), from, to, args[0], freq, fundamentalFlags.name)
		if err != nil {
			return err
		}
		PrintQueryHeader(QueryMetadata{Title: "Fundamental " + args[0], Period: fundamentalFlags.period()})
		return printFrame(tbl)
	},
}

// shortingCmd represents the shorting command
var shortingCmd = &cobra.Command{
	Use:   "shorting [ticker]",
	Short: "종목 공매도 현황 조회",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, _, err := shortingFlags.dates()
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tbl, err := a.service.ShortingStatusByDate(cmd.Context(), from, to, args[0])
		if err != nil {
			return err
		}
		PrintQueryHeader(QueryMetadata{Title: "Shorting " + args[0], Period: shortingFlags.period()})
		return printFrame(tbl)
	},
}

// tickersCmd represents the tickers command
var tickersCmd = &cobra.Command{
	Use:   "tickers [market]",
	Short: "시장별 종목 코드 목록",
	Long: `시장(KOSPI, KOSDAQ, KONEX, ALL)의 종목 코드를 조회합니다.
--date 를 생략하면 가장 최근 영업일 기준입니다.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := market.All
		if len(args) == 1 {
			var err error
			if m, err = market.ParseMarket(args[0]); err != nil {
				return err
			}
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tickers, err := a.service.MarketTickerList(cmd.Context(), optionalDate(tickersDate), m)
		if err != nil {
			return err
		}

		rows := make([][]string, len(tickers))
		for i, t := range tickers {
			rows[i] = []string{t}
		}
		PrintQueryHeader(QueryMetadata{Title: "Tickers", Market: string(m)})
		return printGrid([]string{"ticker"}, rows)
	},
}

// nameCmd represents the name command
var nameCmd = &cobra.Command{
	Use:   "name [ticker]",
	Short: "종목명 조회",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.service.MarketTickerName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(name)
		return nil
	},
}

// daysCmd represents the days command
var daysCmd = &cobra.Command{
	Use:   "days [YYYYMM]",
	Short: "월간 영업일 목록",
	Long: `해당 월의 영업일을 조회합니다. 인자를 생략하면 가장 최근 영업일을
출력합니다.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var month time.Time
		if len(args) == 1 {
			var err error
			if month, err = time.Parse("200601", strings.TrimSpace(args[0])); err != nil {
				return fmt.Errorf("month %q (want YYYYMM): %w", args[0], dates.ErrInvalidArgument)
			}
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if month.IsZero() {
			day, err := a.service.NearestBusinessDay(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(day)
			return nil
		}

		days, err := a.service.BusinessDays(cmd.Context(), month.Year(), month.Month())
		if err != nil {
			return err
		}
		rows := make([][]string, len(days))
		for i, d := range days {
			rows[i] = []string{d.Format(dates.DayLayout)}
		}
		return printGrid([]string{"date"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(ohlcvCmd, capCmd, fundamentalCmd, shortingCmd, tickersCmd, nameCmd, daysCmd)

	ohlcvFlags.register(ohlcvCmd, true)
	ohlcvCmd.Flags().BoolVar(&ohlcvAdjusted, "adjusted", true, "adjusted prices from Naver")

	capFlags.register(capCmd, true)
	fundamentalFlags.register(fundamentalCmd, true)
	shortingFlags.register(shortingCmd, false)

	tickersCmd.Flags().StringVar(&tickersDate, "date", "", "listing date (YYYYMMDD)")
}
