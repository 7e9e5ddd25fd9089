package recommend

import (
	"math"
	"strconv"
	"strings"
)

// DefaultTopK is the result count used by NewQuery.
const DefaultTopK = 5

// Query is one recommendation request. Empty filter strings and a
// non-positive Budget disable the corresponding filter.
type Query struct {
	Interest string
	City     string
	Theme    string
	People   string
	Budget   float64
	TopK     int
}

// NewQuery returns a query for interest with the default result count.
func NewQuery(interest string) Query {
	return Query{Interest: interest, TopK: DefaultTopK}
}

// ParseBudget reads a budget ceiling from user input. Blank input means no
// budget. The second result is false for malformed input, which callers
// treat as no budget as well.
func ParseBudget(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < 0 {
		return 0, true
	}
	return v, true
}
