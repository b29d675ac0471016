package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/export"
	"github.com/wonny/krxquery/internal/frame"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func checkFormat() error {
	switch outputFormat {
	case formatTable, formatCSV, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, csv or json)", outputFormat)
	}
}

// QueryMetadata describes a query for the table header
type QueryMetadata struct {
	Title  string
	Period *Period // Optional
	Market string  // Optional
}

// Period represents a date range
type Period struct {
	StartDate string
	EndDate   string
}

// PrintQueryHeader prints a formatted query header. Only the table
// format gets one.
func PrintQueryHeader(meta QueryMetadata) {
	if outputFormat != formatTable {
		return
	}
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", meta.Title)
	PrintSeparator()
	if meta.Period != nil {
		fmt.Printf("  Period    : %s ~ %s\n", meta.Period.StartDate, meta.Period.EndDate)
	}
	if meta.Market != "" {
		fmt.Printf("  Market    : %s\n", meta.Market)
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	for i := 0; i < totalWidth; i++ {
		fmt.Print("─")
	}
	fmt.Println()
}

// PrintTableRow prints a table row. Width is counted in runes so Korean
// names line up.
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Print(val)
		for pad := widths[i] - utf8.RuneCountInString(val); pad > 0; pad-- {
			fmt.Print(" ")
		}
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// printGrid renders header + rows in the selected output format
func printGrid(header []string, rows [][]string) error {
	switch outputFormat {
	case formatCSV:
		w := csv.NewWriter(os.Stdout)
		if err := w.Write(header); err != nil {
			return err
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		return w.Error()
	case formatJSON:
		out := make([]map[string]string, len(rows))
		for i, row := range rows {
			out[i] = make(map[string]string, len(header))
			for j, col := range header {
				out[i][col] = row[j]
			}
		}
		return printJSON(out)
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, v := range row {
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
	}
	PrintTableHeader(header, widths)
	for _, row := range rows {
		PrintTableRow(row, widths)
	}
	fmt.Printf("\n(%d rows)\n", len(rows))
	return nil
}

// printFrame renders a date-indexed table
func printFrame(tbl *frame.Table) error {
	switch outputFormat {
	case formatCSV:
		return export.WriteCSV(os.Stdout, tbl)
	case formatJSON:
		return printJSON(tbl)
	}

	if tbl.Empty() {
		PrintWarning("no rows")
		return nil
	}
	if tbl.Name != "" {
		fmt.Printf("  %s\n\n", tbl.Name)
	}

	header := append([]string{"date"}, tbl.Columns()...)
	rows := make([][]string, tbl.Len())
	for i := range rows {
		row := []string{tbl.Date(i).Format(dates.DayLayout)}
		for _, v := range tbl.Row(i) {
			row = append(row, num(v))
		}
		rows[i] = row
	}
	return printGrid(header, rows)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
