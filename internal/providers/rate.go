package providers

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRate converts a speaking rate into a speed multiplier. It accepts a
// relative percentage ("-2%", "+10%") or a plain multiplier ("0.98").
// An empty rate is normal speed.
func ParseRate(rate string) (float64, error) {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return 1.0, nil
	}

	if pct, ok := strings.CutSuffix(rate, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimPrefix(pct, "+"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid rate %q: %w", rate, err)
		}
		speed := 1.0 + v/100.0
		if speed <= 0 {
			return 0, fmt.Errorf("invalid rate %q: speed must be positive", rate)
		}
		return speed, nil
	}

	v, err := strconv.ParseFloat(rate, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid rate %q: speed must be positive", rate)
	}
	return v, nil
}
