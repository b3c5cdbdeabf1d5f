package filter

import (
	"math"
	"strconv"
	"strings"
)

// ParseDuration converts a clock-style label ("SS", "MM:SS" or "H:MM:SS")
// into minutes. ok is false when the label could not be read; callers must
// treat that as an unknown duration, never as a short one.
func ParseDuration(text string) (minutes float64, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return 0, false
	}

	// seconds, minutes, hours from the right
	weights := []float64{1, 60, 3600}
	var seconds float64
	for i := 0; i < len(parts); i++ {
		segment := strings.TrimSpace(parts[len(parts)-1-i])
		if segment == "" {
			continue
		}

		value, err := strconv.ParseFloat(segment, 64)
		if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, false
		}
		seconds += value * weights[i]
	}

	return seconds / 60, true
}
