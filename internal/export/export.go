// Package export writes query tables to files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
)

// Record is one cell of a table in long format
type Record struct {
	Key   string  `json:"key" parquet:"key"`
	Date  string  `json:"date" parquet:"date"` // YYYYMMDD
	Field string  `json:"field" parquet:"field"`
	Value float64 `json:"value" parquet:"value"`
}

// Records flattens tbl into long format, one record per cell, ordered by
// date then column
func Records(key string, tbl *frame.Table) []Record {
	if tbl.Empty() {
		return nil
	}

	cols := tbl.Columns()
	out := make([]Record, 0, tbl.Len()*len(cols))
	for i := 0; i < tbl.Len(); i++ {
		day := tbl.Date(i).Format(dates.DayLayout)
		row := tbl.Row(i)
		for c, name := range cols {
			out = append(out, Record{Key: key, Date: day, Field: name, Value: row[c]})
		}
	}
	return out
}

// WriteParquet writes tbl to path as long-format records keyed by key
// (normally the ticker)
func WriteParquet(path, key string, tbl *frame.Table) error {
	return WriteRecords(path, Records(key, tbl))
}

// WriteRecords writes long-format records, possibly for several keys, to
// one parquet file
func WriteRecords(path string, records []Record) error {
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}

// ReadParquet reads records written by WriteParquet
func ReadParquet(path string) ([]Record, error) {
	rows, err := parquet.ReadFile[Record](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}

// WriteCSV writes tbl in wide format with a leading date column. A nil
// table writes only the date header.
func WriteCSV(w io.Writer, tbl *frame.Table) error {
	if tbl == nil {
		tbl = frame.NewTable()
	}
	cw := csv.NewWriter(w)

	cols := tbl.Columns()
	if err := cw.Write(append([]string{"date"}, cols...)); err != nil {
		return err
	}

	rec := make([]string, len(cols)+1)
	for i := 0; i < tbl.Len(); i++ {
		rec[0] = tbl.Date(i).Format(dates.DayLayout)
		for c, v := range tbl.Row(i) {
			rec[c+1] = floatStr(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
