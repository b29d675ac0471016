package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/krxquery/internal/export"
	"github.com/wonny/krxquery/internal/frame"
	"github.com/wonny/krxquery/internal/query"
)

var (
	exportFlags    rangeFlags
	exportKind     string
	exportOut      string
	exportAdjusted bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [ticker...]",
	Short: "시계열을 parquet/csv 파일로 내보내기",
	Long: `종목별 시계열을 파일로 저장합니다.

.parquet 은 (key, date, field, value) 긴 형식으로 여러 종목을 한 파일에,
.csv 는 종목 하나의 넓은 형식으로 저장합니다.

Kinds: ohlcv, cap, fundamental, index

Example:
  go run ./cmd/krxq export 005930 000660 --from 20240101 --to 20241231 --out prices.parquet
  go run ./cmd/krxq export 1001 --kind index --from 20240101 --to 20241231 --out kospi.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportFlags.register(exportCmd, true)
	exportCmd.Flags().StringVar(&exportKind, "kind", "ohlcv", "ohlcv|cap|fundamental|index")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (.parquet or .csv)")
	exportCmd.Flags().BoolVar(&exportAdjusted, "adjusted", true, "ohlcv: adjusted prices from Naver")
	_ = exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
	from, to, freq, err := exportFlags.dates()
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(exportOut))
	if ext != ".parquet" && ext != ".csv" {
		return fmt.Errorf("--out must end in .parquet or .csv, got %q", exportOut)
	}
	if ext == ".csv" && len(args) > 1 {
		return fmt.Errorf("csv export takes one ticker, got %d", len(args))
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	fetch := func(ticker string) (*frame.Table, error) {
		switch exportKind {
		case "ohlcv":
			return a.service.MarketOHLCVByDate(ctx, from, to, ticker, query.OHLCVOptions{Freq: freq, Adjusted: exportAdjusted})
		case "cap":
			return a.service.MarketCapByDate(ctx, from, to, ticker, freq)
		case "fundamental":
			return a.service.MarketFundamentalByDate(ctx, from, to, ticker, freq, false)
		case "index":
			return a.service.IndexOHLCVByDate(ctx, from, to, ticker, freq, false)
		default:
			return nil, fmt.Errorf("unknown export kind %q", exportKind)
		}
	}

	if ext == ".csv" {
		tbl, err := fetch(args[0])
		if err != nil {
			return err
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		if err := export.WriteCSV(f, tbl); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("%d rows written to %s", tbl.Len(), exportOut))
		return nil
	}

	var records []export.Record
	for _, ticker := range args {
		tbl, err := fetch(ticker)
		if err != nil {
			return err
		}
		records = append(records, export.Records(ticker, tbl)...)
		a.log.WithFields(map[string]interface{}{
			"ticker": ticker,
			"rows":   tbl.Len(),
		}).Debug("Fetched export series")
	}

	if err := export.WriteRecords(exportOut, records); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("%d records written to %s", len(records), exportOut))
	return nil
}
