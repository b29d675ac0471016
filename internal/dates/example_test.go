package dates_test

import (
	"fmt"
	"time"

	"github.com/wonny/krxquery/internal/dates"
)

// ExampleDate_Normalize shows how structured dates follow the frequency
// while caller strings pass through
func ExampleDate_Normalize() {
	d := dates.At(time.Date(2020, 3, 5, 0, 0, 0, 0, time.UTC))
	fmt.Println(d.Normalize(dates.Day))
	fmt.Println(d.Normalize(dates.Month))
	fmt.Println(d.Normalize(dates.Year))
	fmt.Println(dates.Str("2020-03-05").Normalize(dates.Month))
	// Output:
	// 20200305
	// 202003
	// 2020
	// 2020-03-05
}
