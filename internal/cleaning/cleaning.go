package cleaning

import (
	"strings"
	"time"

	"github.com/travel-insight/backend/internal/dataset"
)

// Options holds the column-level cleaning rules
type Options struct {
	MaxDays       int
	DefaultPeople string
	DefaultTheme  string
	// GuideMarker drops listing entries that are guides rather than trip notes.
	GuideMarker string
}

func DefaultOptions() Options {
	return Options{
		MaxDays:       15,
		DefaultPeople: "独自一人",
		DefaultTheme:  dataset.Placeholder,
		GuideMarker:   "攻略",
	}
}

// Report counts what each rule removed.
type Report struct {
	Input       int `json:"input"`
	Guides      int `json:"guides"`
	BadDuration int `json:"bad_duration"`
	MissingDate int `json:"missing_date"`
	Output      int `json:"output"`
}

// Clean filters and fills crawled records. The input slice is not modified.
func Clean(records []dataset.Record, opts Options) ([]dataset.Record, Report) {
	report := Report{Input: len(records)}
	out := make([]dataset.Record, 0, len(records))

	for _, rec := range records {
		if opts.GuideMarker != "" && strings.Contains(rec.Title, opts.GuideMarker) {
			report.Guides++
			continue
		}
		if rec.Days <= 0 || rec.Days > opts.MaxDays {
			report.BadDuration++
			continue
		}
		if strings.TrimSpace(rec.DepartDate) == "" {
			report.MissingDate++
			continue
		}

		if !rec.HasCost {
			rec.Cost = 0
			rec.HasCost = true
		}
		if strings.TrimSpace(rec.People) == "" {
			rec.People = opts.DefaultPeople
		}
		if strings.TrimSpace(rec.Theme) == "" {
			rec.Theme = opts.DefaultTheme
		}
		out = append(out, rec)
	}

	report.Output = len(out)
	return out, report
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006-1-2", "2006-01"}

// Enrich derives the travel month, a destination when none was crawled and
// the synthesized text field.
func Enrich(records []dataset.Record) []dataset.Record {
	out := make([]dataset.Record, len(records))
	for i, rec := range records {
		if rec.Month == 0 {
			rec.Month = departMonth(rec.DepartDate)
		}
		if rec.Destination == "" {
			rec.Destination = dataset.DeriveDestination(rec.Title)
		}
		rec.Text = dataset.SynthesizeText(rec.Title, rec.People, rec.Theme)
		out[i] = rec
	}
	return out
}

func departMonth(date string) int {
	date = strings.TrimSpace(date)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return int(t.Month())
		}
	}
	return 0
}
