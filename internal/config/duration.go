package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// parseTimeoutSeconds accepts whole seconds ("30") or a Go duration string ("45s", "1m").
// Durations are rounded up to whole seconds. The result must be > 0.
func parseTimeoutSeconds(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty timeout")
	}
	if n, ok := wholeNumber(s); ok {
		if n <= 0 {
			return 0, fmt.Errorf("timeout must be > 0")
		}
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be > 0")
	}
	return int(math.Ceil(d.Seconds())), nil
}

func parseRetryAttempts(raw string) (int, error) {
	n, ok := wholeNumber(strings.TrimSpace(raw))
	if !ok {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("retry attempts must be >= 0")
	}
	return n, nil
}

// wholeNumber parses an integer, also accepting integral floats such as "2.0" or "3e1".
func wholeNumber(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
