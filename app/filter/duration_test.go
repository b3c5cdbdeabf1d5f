package filter

import (
	"math"
	"testing"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		minutes float64
		ok      bool
	}{
		{"5", 5.0 / 60, true},
		{"2:30", 2.5, true},
		{"1:02:00", 62, true},
		{" 10:00 ", 10, true},
		{":30", 0.5, true},
		{"1::", 60, true},
		{"abc", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"1:2:3:4", 0, false},
		{"-1:00", 0, false},
		{"1:x0", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			minutes, ok := ParseDuration(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseDuration(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if math.Abs(minutes-tt.minutes) > 1e-9 {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, minutes, tt.minutes)
			}
		})
	}
}
