package krx

import (
	"testing"
)

func TestParseKRXFloat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"positive with comma", "+1,459,781", 1459781},
		{"negative with comma", "-1,240,182", -1240182},
		{"positive without sign", "1000000", 1000000},
		{"decimal rate", "-3.25", -3.25},
		{"with spaces", " +1,234 ", 1234},
		{"dash", "-", 0},
		{"zero", "0", 0},
		{"empty string", "", 0},
		{"invalid", "abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseKRXFloat(tt.input); got != tt.want {
				t.Errorf("parseKRXFloat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
