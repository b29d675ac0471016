// Package dates normalises the date arguments accepted by the query layer
// into the string forms the KRX and Naver endpoints expect.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidArgument is returned for unsupported frequency values
var ErrInvalidArgument = errors.New("invalid argument")

// Frequency is the granularity of a time series query
type Frequency int

const (
	Day Frequency = iota
	Month
	Year
)

// ParseFrequency accepts "d", "m" or "y" (any case)
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(s) {
	case "d", "":
		return Day, nil
	case "m":
		return Month, nil
	case "y":
		return Year, nil
	default:
		return 0, fmt.Errorf("frequency %q (want d, m or y): %w", s, ErrInvalidArgument)
	}
}

func (f Frequency) String() string {
	switch f {
	case Day:
		return "d"
	case Month:
		return "m"
	case Year:
		return "y"
	default:
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
}

// Layout returns the Go time layout for f
func (f Frequency) Layout() string {
	switch f {
	case Year:
		return "2006"
	case Month:
		return "200601"
	default:
		return DayLayout
	}
}

// DayLayout is the KRX/Naver YYYYMMDD format
const DayLayout = "20060102"

// Date is a query date argument: either a string the caller already
// formatted, or a structured time.
type Date struct {
	raw  string
	t    time.Time
	isTs bool
}

// Str wraps a pre-formatted date string. It is forwarded unvalidated.
func Str(s string) Date { return Date{raw: s} }

// At wraps a structured time
func At(t time.Time) Date { return Date{t: t, isTs: true} }

// Normalize renders d for a request at frequency f. Strings pass through.
func (d Date) Normalize(f Frequency) string {
	if !d.isTs {
		return d.raw
	}
	return d.t.Format(f.Layout())
}

// String renders d at daily granularity
func (d Date) String() string { return d.Normalize(Day) }

// ParseDay parses a YYYYMMDD string (hyphens and slashes are tolerated,
// KRX returns "2024/01/15" in some blocks)
func ParseDay(s string) (time.Time, error) {
	s = strings.NewReplacer("/", "", "-", "", ".", "").Replace(strings.TrimSpace(s))
	return time.Parse(DayLayout, s)
}

// AddDays shifts a YYYYMMDD string by n calendar days
func AddDays(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", day, err)
	}
	return t.AddDate(0, 0, n).Format(DayLayout), nil
}

// Clock supplies "now" to the queries that default to the latest
// business day.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Asia/Seoul when available
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return time.Now().In(loc)
	}
	return time.Now()
}

// FixedClock always returns the same instant
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
