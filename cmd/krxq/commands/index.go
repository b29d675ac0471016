package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/krxquery/internal/market"
)

var (
	indexOHLCVFlags  rangeFlags
	indexChangeFlags rangeFlags

	indexListDate   string
	indexListMarket string
	indexPDFDate    string
	indexChangeMkt  string
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "지수 조회",
	Long: `KRX 지수를 조회합니다.

Subcommands:
  list    - 지수 코드 목록
  ohlcv   - 지수 OHLCV
  pdf     - 지수 구성 종목
  change  - 지수 기간 등락률

Example:
  go run ./cmd/krxq index list --market KOSPI
  go run ./cmd/krxq index ohlcv 1001 --from 20240101 --to 20241231 --freq m`,
}

var (
	indexListCmd = &cobra.Command{
		Use:   "list",
		Short: "지수 코드 목록",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := market.ParseMarket(indexListMarket)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			tickers, err := a.service.IndexTickerList(ctx, optionalDate(indexListDate), m)
			if err != nil {
				return err
			}

			rows := make([][]string, len(tickers))
			for i, t := range tickers {
				name, err := a.service.IndexTickerName(ctx, t)
				if err != nil {
					return err
				}
				rows[i] = []string{t, name}
			}
			PrintQueryHeader(QueryMetadata{Title: "Indices", Market: string(m)})
			return printGrid([]string{"ticker", "name"}, rows)
		},
	}

	indexOHLCVCmd = &cobra.Command{
		Use:   "ohlcv [ticker]",
		Short: "지수 OHLCV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, freq, err := indexOHLCVFlags.dates()
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tbl, err := a.service.IndexOHLCVByDate(cmd.Context(), from, to, args[0], freq, indexOHLCVFlags.name)
			if err != nil {
				return err
			}
			PrintQueryHeader(QueryMetadata{Title: "Index OHLCV " + args[0], Period: indexOHLCVFlags.period()})
			return printFrame(tbl)
		},
	}

	indexPDFCmd = &cobra.Command{
		Use:   "pdf [ticker]",
		Short: "지수 구성 종목",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tickers, err := a.service.IndexPortfolioDepositFile(cmd.Context(), args[0], optionalDate(indexPDFDate))
			if err != nil {
				return err
			}
			rows := make([][]string, len(tickers))
			for i, t := range tickers {
				rows[i] = []string{t}
			}
			PrintQueryHeader(QueryMetadata{Title: "Index constituents " + args[0]})
			return printGrid([]string{"ticker"}, rows)
		},
	}

	indexChangeCmd = &cobra.Command{
		Use:   "change",
		Short: "지수 기간 등락률",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, _, err := indexChangeFlags.dates()
			if err != nil {
				return err
			}
			m, err := market.ParseMarket(indexChangeMkt)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			changes, err := a.service.IndexPriceChangeByName(cmd.Context(), from, to, m)
			if err != nil {
				return err
			}
			rows := make([][]string, len(changes))
			for i, c := range changes {
				rows[i] = []string{c.Name, num(c.Open), num(c.Close), num(c.ChangeRate), num(c.Volume), num(c.Value)}
			}
			PrintQueryHeader(QueryMetadata{Title: "Index change", Period: indexChangeFlags.period(), Market: string(m)})
			return printGrid([]string{"name", "open", "close", "change_rate", "volume", "value"}, rows)
		},
	}
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexListCmd, indexOHLCVCmd, indexPDFCmd, indexChangeCmd)

	indexListCmd.Flags().StringVar(&indexListDate, "date", "", "base date (YYYYMMDD, default today)")
	indexListCmd.Flags().StringVar(&indexListMarket, "market", "KOSPI", "market (KOSPI|KOSDAQ|ALL)")

	indexOHLCVFlags.register(indexOHLCVCmd, true)

	indexPDFCmd.Flags().StringVar(&indexPDFDate, "date", "", "base date (YYYYMMDD)")

	indexChangeFlags.register(indexChangeCmd, false)
	indexChangeCmd.Flags().StringVar(&indexChangeMkt, "market", "KOSPI", "market (KOSPI|KOSDAQ|ALL)")
}
