package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose      bool
	outputFormat string
	noCache      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "krxq",
	Short: "KRX 시세/지표 조회 CLI",
	Long: `krxq - KRX data portal and Naver Finance query tool

KRX 데이터 포털과 네이버 금융에서 주가, 시가총액, 펀더멘털, 지수 데이터를
조회합니다. 상장폐지 종목을 포함한 기간 등락률을 계산하고, 정기 수집과
parquet/csv 내보내기를 지원합니다.

Usage:
  go run ./cmd/krxq [command]

Examples:
  go run ./cmd/krxq ohlcv 005930 --from 20240101 --to 20240131
  go run ./cmd/krxq change --from 20240101 --to 20240131 -o csv
  go run ./cmd/krxq tickers KOSPI
  go run ./cmd/krxq serve --port 8090`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels in-flight upstream requests.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format (table|csv|json)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the Redis response cache")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return checkFormat()
	}
}
