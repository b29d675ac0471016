// Package frame holds the date-indexed tables returned by the query layer.
package frame

import (
	"encoding/json"
	"fmt"
	"time"
)

// Table is an ordered, date-indexed set of rows with named float64 columns.
// Dates are strictly increasing, one row per trading day.
type Table struct {
	// Name is an optional display title (the security or index name)
	Name string

	index   []time.Time
	columns []string
	pos     map[string]int
	rows    [][]float64
}

// NewTable creates an empty table with the given columns
func NewTable(columns ...string) *Table {
	t := &Table{columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.pos = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.pos[c] = i
	}
}

// Append adds a row. The date must be after the last row's date.
func (t *Table) Append(date time.Time, values ...float64) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("append %s: got %d values for %d columns", date.Format("2006-01-02"), len(values), len(t.columns))
	}
	if n := len(t.index); n > 0 && !date.After(t.index[n-1]) {
		return fmt.Errorf("append %s: dates must be strictly increasing (last %s)",
			date.Format("2006-01-02"), t.index[n-1].Format("2006-01-02"))
	}
	t.index = append(t.index, date)
	t.rows = append(t.rows, append([]float64(nil), values...))
	return nil
}

func (t *Table) Len() int    { return len(t.index) }
func (t *Table) Empty() bool { return t == nil || len(t.index) == 0 }

// Columns returns the column names in order
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Date returns the index value of row i
func (t *Table) Date(i int) time.Time { return t.index[i] }

// Dates returns a copy of the index
func (t *Table) Dates() []time.Time { return append([]time.Time(nil), t.index...) }

// Row returns a copy of row i
func (t *Table) Row(i int) []float64 { return append([]float64(nil), t.rows[i]...) }

// Has reports whether the table has column name
func (t *Table) Has(name string) bool {
	_, ok := t.pos[name]
	return ok
}

// Value returns the cell at row i, column name
func (t *Table) Value(i int, name string) (float64, bool) {
	c, ok := t.pos[name]
	if !ok {
		return 0, false
	}
	return t.rows[i][c], true
}

// Column returns a copy of the named column, or nil when absent
func (t *Table) Column(name string) []float64 {
	c, ok := t.pos[name]
	if !ok {
		return nil
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[c]
	}
	return out
}

// SetColumn replaces or adds a column. values must have one entry per row.
func (t *Table) SetColumn(name string, values []float64) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("set column %q: got %d values for %d rows", name, len(values), len(t.rows))
	}
	c, ok := t.pos[name]
	if !ok {
		t.columns = append(t.columns, name)
		c = len(t.columns) - 1
		t.pos[name] = c
		for i := range t.rows {
			t.rows[i] = append(t.rows[i], 0)
		}
	}
	for i, v := range values {
		t.rows[i][c] = v
	}
	return nil
}

// Select returns a new table with only the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		c, ok := t.pos[n]
		if !ok {
			return nil, fmt.Errorf("select: unknown column %q", n)
		}
		idx[i] = c
	}

	out := NewTable(names...)
	out.Name = t.Name
	out.index = append([]time.Time(nil), t.index...)
	out.rows = make([][]float64, len(t.rows))
	for r, row := range t.rows {
		vals := make([]float64, len(idx))
		for i, c := range idx {
			vals[i] = row[c]
		}
		out.rows[r] = vals
	}
	return out, nil
}

// Rename renames columns in place. Unknown keys are ignored.
func (t *Table) Rename(names map[string]string) {
	for i, c := range t.columns {
		if n, ok := names[c]; ok {
			t.columns[i] = n
		}
	}
	t.reindex()
}

// Concat joins other's columns onto t. Both tables must share the index;
// columns already present in t are skipped.
func (t *Table) Concat(other *Table) (*Table, error) {
	if len(other.index) != len(t.index) {
		return nil, fmt.Errorf("concat: index length %d != %d", len(other.index), len(t.index))
	}
	for i := range t.index {
		if !t.index[i].Equal(other.index[i]) {
			return nil, fmt.Errorf("concat: index mismatch at row %d", i)
		}
	}

	cols := t.Columns()
	var take []int
	for i, c := range other.columns {
		if !t.Has(c) {
			cols = append(cols, c)
			take = append(take, i)
		}
	}

	out := NewTable(cols...)
	out.Name = t.Name
	out.index = append([]time.Time(nil), t.index...)
	out.rows = make([][]float64, len(t.rows))
	for r := range t.rows {
		row := append([]float64(nil), t.rows[r]...)
		for _, c := range take {
			row = append(row, other.rows[r][c])
		}
		out.rows[r] = row
	}
	return out, nil
}

type tableJSON struct {
	Name    string      `json:"name,omitempty"`
	Columns []string    `json:"columns"`
	Index   []string    `json:"index"`
	Data    [][]float64 `json:"data"`
}

// MarshalJSON encodes the table in split orientation: column names, the
// date index as YYYY-MM-DD and one value array per row.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{Columns: []string{}, Index: []string{}, Data: [][]float64{}}
	if t != nil {
		out.Name = t.Name
		out.Columns = append(out.Columns, t.columns...)
		for i, d := range t.index {
			out.Index = append(out.Index, d.Format("2006-01-02"))
			out.Data = append(out.Data, t.rows[i])
		}
	}
	return json.Marshal(out)
}
