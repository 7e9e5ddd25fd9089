package dataset

import (
	"strings"
)

// Placeholder is the filler the cleaning stage writes into empty categorical cells.
const Placeholder = "无"

// Record is one travel post from the travelbook listing.
type Record struct {
	Title       string
	Author      string
	People      string // companionship mode, e.g. 家庭, 独自一人
	Theme       string
	Cost        float64
	HasCost     bool
	Views       int64
	Likes       int64
	Comments    int64
	Destination string
	Itinerary   string
	Link        string
	DepartDate  string
	Days        int
	Month       int

	// Text is the synthesized title/people/theme field used for matching.
	Text string
}

// SynthesizeText joins the non-empty, non-placeholder title, people and
// theme values with single spaces.
func SynthesizeText(title, people, theme string) string {
	fields := make([]string, 0, 3)
	for _, v := range []string{title, people, theme} {
		v = strings.TrimSpace(v)
		if v == "" || v == Placeholder {
			continue
		}
		fields = append(fields, v)
	}
	return strings.Join(fields, " ")
}
