package krx

import (
	"strconv"
	"strings"
)

// parseKRXFloat parses strings like "+1,459,781", "-3.25" or "-".
// Blank, dash and malformed values are 0.
func parseKRXFloat(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}

	s = strings.TrimPrefix(s, "+")

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}
