package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/krxquery/internal/dates"
)

// rangeFlags are the --from/--to/--freq flags shared by the time series
// commands
type rangeFlags struct {
	from string
	to   string
	freq string
	name bool
}

func (f *rangeFlags) register(cmd *cobra.Command, withFreq bool) {
	cmd.Flags().StringVar(&f.from, "from", "", "start date (YYYYMMDD)")
	cmd.Flags().StringVar(&f.to, "to", "", "end date (YYYYMMDD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	if withFreq {
		cmd.Flags().StringVar(&f.freq, "freq", "d", "frequency (d|m|y)")
		cmd.Flags().BoolVar(&f.name, "name", false, "show the security name")
	}
}

func (f *rangeFlags) dates() (dates.Date, dates.Date, dates.Frequency, error) {
	freq, err := dates.ParseFrequency(f.freq)
	if err != nil {
		return dates.Date{}, dates.Date{}, 0, err
	}
	if _, err := dates.ParseDay(f.from); err != nil {
		return dates.Date{}, dates.Date{}, 0, fmt.Errorf("--from %q: %w", f.from, dates.ErrInvalidArgument)
	}
	if _, err := dates.ParseDay(f.to); err != nil {
		return dates.Date{}, dates.Date{}, 0, fmt.Errorf("--to %q: %w", f.to, dates.ErrInvalidArgument)
	}
	return dates.Str(f.from), dates.Str(f.to), freq, nil
}

func (f *rangeFlags) period() *Period {
	return &Period{StartDate: f.from, EndDate: f.to}
}

// optionalDate turns an empty --date into nil (nearest business day)
func optionalDate(s string) *dates.Date {
	if s == "" {
		return nil
	}
	d := dates.Str(s)
	return &d
}
