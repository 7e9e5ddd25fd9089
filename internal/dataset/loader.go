package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"unicode/utf8"
)

var (
	ErrEmptyCorpus        = errors.New("no usable rows")
	ErrInvalidEncoding    = errors.New("file is not valid UTF-8")
	ErrMissingTextColumns = errors.New("none of the title, people or theme columns present")
)

// DataLoadError reports why a dataset file could not be turned into records.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// LoadStats summarises one load.
type LoadStats struct {
	Rows      int  // data rows read
	Dropped   int  // rows without synthesized text
	Delimiter rune // detected field separator
}

var destinationPattern = regexp.MustCompile(`(\p{Han}{2,8})[游行]`)

// DeriveDestination extracts a place name from titles such as "厦门三日游".
func DeriveDestination(title string) string {
	m := destinationPattern.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return m[1]
}

// Load reads a tab or comma separated travel table from path.
func Load(path string) ([]Record, LoadStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadStats{}, &DataLoadError{Path: path, Err: err}
	}
	records, stats, err := Parse(data)
	if err != nil {
		return nil, stats, &DataLoadError{Path: path, Err: err}
	}
	return records, stats, nil
}

// Parse decodes an in-memory table. The delimiter is a tab when the header
// line contains one, a comma otherwise.
func Parse(data []byte) ([]Record, LoadStats, error) {
	var stats LoadStats
	if !utf8.Valid(data) {
		return nil, stats, ErrInvalidEncoding
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	stats.Delimiter = ','
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.IndexByte(header, '\t') >= 0 {
		stats.Delimiter = '\t'
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = stats.Delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	head, err := r.Read()
	if err == io.EOF {
		return nil, stats, ErrEmptyCorpus
	}
	if err != nil {
		return nil, stats, fmt.Errorf("read header: %w", err)
	}

	schema := ResolveSchema(head)
	if !schema.Has(ColTitle) && !schema.Has(ColPeople) && !schema.Has(ColTheme) {
		return nil, stats, ErrMissingTextColumns
	}

	var records []Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		rec := recordFromRow(schema, row)
		if rec.Text == "" {
			stats.Dropped++
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, stats, ErrEmptyCorpus
	}
	return records, stats, nil
}

func recordFromRow(s Schema, row []string) Record {
	rec := Record{
		Title:       s.Get(row, ColTitle),
		Author:      s.Get(row, ColAuthor),
		People:      s.Get(row, ColPeople),
		Theme:       s.Get(row, ColTheme),
		Destination: s.Get(row, ColDestination),
		Itinerary:   s.Get(row, ColItinerary),
		Link:        s.Get(row, ColLink),
		DepartDate:  s.Get(row, ColDepartDate),
	}
	rec.Cost, rec.HasCost = ParseCost(s.Get(row, ColCost))
	rec.Views, _ = ParseCount(s.Get(row, ColViews))
	rec.Likes, _ = ParseCount(s.Get(row, ColLikes))
	rec.Comments, _ = ParseCount(s.Get(row, ColComments))
	rec.Days, _ = ParseDays(s.Get(row, ColDays))
	if m, err := strconv.ParseFloat(s.Get(row, ColMonth), 64); err == nil && m >= 1 && m <= 12 {
		rec.Month = int(m)
	}
	if rec.Destination == "" {
		rec.Destination = DeriveDestination(rec.Title)
	}
	rec.Text = SynthesizeText(rec.Title, rec.People, rec.Theme)
	return rec
}
