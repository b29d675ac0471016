// Package resample aggregates daily tables into monthly or yearly ones.
// Upstream sources only serve daily rows, so every coarser view is derived
// here deterministically without extra requests.
package resample

import (
	"fmt"
	"time"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/frame"
)

// ErrInvalidArgument is returned for frequencies outside {Day, Month, Year}
var ErrInvalidArgument = dates.ErrInvalidArgument

// Rule is a per-column aggregation function
type Rule int

const (
	First Rule = iota
	Last
	Min
	Max
	Sum
)

func (r Rule) String() string {
	switch r {
	case First:
		return "first"
	case Last:
		return "last"
	case Min:
		return "min"
	case Max:
		return "max"
	case Sum:
		return "sum"
	default:
		return fmt.Sprintf("Rule(%d)", int(r))
	}
}

func (r Rule) apply(vals []float64) float64 {
	switch r {
	case First:
		return vals[0]
	case Last:
		return vals[len(vals)-1]
	case Min:
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case Max:
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m
	default:
		var s float64
		for _, v := range vals {
			s += v
		}
		return s
	}
}

// Rules maps a column name to its aggregation. Columns without a rule are
// dropped from the resampled table.
type Rules map[string]Rule

// Resample aggregates t to freq. Day, or an empty table, returns t itself.
// Month rows are indexed at the month's last calendar day, Year rows at
// Dec 31. Only periods that contain at least one row are emitted.
func Resample(t *frame.Table, freq dates.Frequency, rules Rules) (*frame.Table, error) {
	var bucket func(time.Time) time.Time
	switch freq {
	case dates.Day:
		return t, nil
	case dates.Month:
		bucket = monthEnd
	case dates.Year:
		bucket = yearEnd
	default:
		return nil, fmt.Errorf("resample to %v: %w", freq, ErrInvalidArgument)
	}

	if t.Empty() {
		return t, nil
	}

	var cols []string
	var rs []Rule
	var data [][]float64
	for _, c := range t.Columns() {
		if r, ok := rules[c]; ok {
			cols = append(cols, c)
			rs = append(rs, r)
			data = append(data, t.Column(c))
		}
	}

	out := frame.NewTable(cols...)
	out.Name = t.Name

	// rows are sorted, so each period is a contiguous run
	start := 0
	for i := 1; i <= t.Len(); i++ {
		if i < t.Len() && bucket(t.Date(i)).Equal(bucket(t.Date(start))) {
			continue
		}
		vals := make([]float64, len(cols))
		for j := range cols {
			vals[j] = rs[j].apply(data[j][start:i])
		}
		if err := out.Append(bucket(t.Date(start)), vals...); err != nil {
			return nil, err
		}
		start = i
	}
	return out, nil
}

func monthEnd(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, d.Location())
}

func yearEnd(d time.Time) time.Time {
	return time.Date(d.Year(), time.December, 31, 0, 0, 0, 0, d.Location())
}
