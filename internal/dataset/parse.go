package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ParseCount reads listing counters such as "3.4万", "1,024" or "99+".
// It reports false for empty or unparseable input.
func ParseCount(s string) (int64, bool) {
	s = strings.NewReplacer(",", "", "+", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	mult := 1.0
	if strings.HasSuffix(s, "万") {
		mult = 10000
		s = strings.TrimSuffix(s, "万")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if mult != 1 {
		return int64(math.Round(f * mult)), true
	}
	return int64(f), true
}

// ParseCost reads a per-person cost. Empty, unparseable and non-finite
// values are reported as unknown.
func ParseCost(s string) (float64, bool) {
	s = strings.NewReplacer(",", "", "元", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDays reads a trip length; "99+" reads as 99.
func ParseDays(s string) (int, bool) {
	n, ok := ParseCount(s)
	if !ok || n < 0 {
		return 0, false
	}
	return int(n), true
}
