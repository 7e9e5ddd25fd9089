// Package insight computes the descriptive aggregates shown next to the
// recommender: popular destinations and their costs, companionship and theme
// breakdowns, trip lengths, departure years and frequent terms.
package insight

import (
	"regexp"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/travel-insight/backend/internal/dataset"
)

// Source is the read-only view of a corpus the aggregates need.
type Source interface {
	Len() int
	Record(i int) dataset.Record
	Tokens(i int) []string
}

// Count is a label with its number of records.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Share is a Count with its percentage of all labelled records.
type Share struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// DestinationStat describes one destination.
type DestinationStat struct {
	Destination string  `json:"destination"`
	Count       int     `json:"count"`
	MeanCost    float64 `json:"mean_cost"`
	CostSamples int     `json:"cost_samples"`
}

// DestinationReport lists the most frequent destinations plus the mean,
// minimum and maximum of their mean costs.
type DestinationReport struct {
	Items    []DestinationStat `json:"items"`
	MeanCost float64           `json:"mean_cost"`
	MinCost  float64           `json:"min_cost"`
	MaxCost  float64           `json:"max_cost"`
}

var yearPattern = regexp.MustCompile(`(20\d{2})`)

// TopDestinations ranks destinations by record count. Mean costs only use
// records with a known, positive cost.
func TopDestinations(src Source, limit int) DestinationReport {
	type acc struct {
		count   int
		costSum float64
		costN   int
	}
	byDest := make(map[string]*acc)
	for i := 0; i < src.Len(); i++ {
		rec := src.Record(i)
		if rec.Destination == "" {
			continue
		}
		a := byDest[rec.Destination]
		if a == nil {
			a = &acc{}
			byDest[rec.Destination] = a
		}
		a.count++
		if rec.HasCost && rec.Cost > 0 {
			a.costSum += rec.Cost
			a.costN++
		}
	}

	counts := make([]Count, 0, len(byDest))
	for dest, a := range byDest {
		counts = append(counts, Count{Label: dest, Count: a.count})
	}
	counts = topN(counts, limit)

	report := DestinationReport{Items: make([]DestinationStat, 0, len(counts))}
	var meanSum float64
	var meanN int
	for _, c := range counts {
		a := byDest[c.Label]
		stat := DestinationStat{Destination: c.Label, Count: a.count, CostSamples: a.costN}
		if a.costN > 0 {
			stat.MeanCost = a.costSum / float64(a.costN)
			if meanN == 0 || stat.MeanCost < report.MinCost {
				report.MinCost = stat.MeanCost
			}
			if meanN == 0 || stat.MeanCost > report.MaxCost {
				report.MaxCost = stat.MeanCost
			}
			meanSum += stat.MeanCost
			meanN++
		}
		report.Items = append(report.Items, stat)
	}
	if meanN > 0 {
		report.MeanCost = meanSum / float64(meanN)
	}
	return report
}

// Companions breaks records down by companionship mode.
func Companions(src Source, limit int) []Share {
	counts := countBy(src, func(r dataset.Record) string { return r.People })
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	counts = topN(counts, limit)

	out := make([]Share, 0, len(counts))
	for _, c := range counts {
		out = append(out, Share{
			Label:   c.Label,
			Count:   c.Count,
			Percent: 100 * float64(c.Count) / float64(total),
		})
	}
	return out
}

// Themes returns the most frequent themes. The placeholder theme is skipped.
func Themes(src Source, limit int) []Count {
	return topN(countBy(src, func(r dataset.Record) string {
		if r.Theme == dataset.Placeholder {
			return ""
		}
		return r.Theme
	}), limit)
}

// Durations returns record counts per trip length in ascending days.
func Durations(src Source) []Count {
	byDays := make(map[int]int)
	for i := 0; i < src.Len(); i++ {
		if d := src.Record(i).Days; d > 0 {
			byDays[d]++
		}
	}
	days := make([]int, 0, len(byDays))
	for d := range byDays {
		days = append(days, d)
	}
	sort.Ints(days)

	out := make([]Count, 0, len(days))
	for _, d := range days {
		out = append(out, Count{Label: strconv.Itoa(d), Count: byDays[d]})
	}
	return out
}

// Years returns record counts per departure year in ascending order.
func Years(src Source) []Count {
	counts := countBy(src, func(r dataset.Record) string {
		return yearPattern.FindString(r.DepartDate)
	})
	sort.Slice(counts, func(i, j int) bool { return counts[i].Label < counts[j].Label })
	return counts
}

// TopTerms returns the most frequent tokens of at least two characters,
// the input of a word cloud.
func TopTerms(src Source, limit int) []Count {
	freq := make(map[string]int)
	for i := 0; i < src.Len(); i++ {
		for _, tok := range src.Tokens(i) {
			if utf8.RuneCountInString(tok) > 1 {
				freq[tok]++
			}
		}
	}
	counts := make([]Count, 0, len(freq))
	for term, n := range freq {
		counts = append(counts, Count{Label: term, Count: n})
	}
	return topN(counts, limit)
}

func countBy(src Source, key func(dataset.Record) string) []Count {
	byKey := make(map[string]int)
	for i := 0; i < src.Len(); i++ {
		if k := key(src.Record(i)); k != "" {
			byKey[k]++
		}
	}
	out := make([]Count, 0, len(byKey))
	for k, n := range byKey {
		out = append(out, Count{Label: k, Count: n})
	}
	return out
}

// topN sorts by count descending, label ascending, and truncates to limit
// when limit is positive.
func topN(counts []Count, limit int) []Count {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
