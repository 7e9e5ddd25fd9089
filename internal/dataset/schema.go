package dataset

import (
	"strconv"
	"strings"
)

// Column identifies a logical attribute of a Record independent of the
// header spelling used by a particular export.
type Column int

const (
	ColTitle Column = iota
	ColAuthor
	ColPeople
	ColTheme
	ColCost
	ColViews
	ColLikes
	ColComments
	ColDestination
	ColItinerary
	ColLink
	ColDepartDate
	ColDays
	ColMonth
	numColumns
)

// columnAliases lists accepted header names per column. The first alias is
// the canonical name used when writing.
var columnAliases = [numColumns][]string{
	ColTitle:       {"标题", "title"},
	ColAuthor:      {"作者", "author"},
	ColPeople:      {"人物", "人数", "people"},
	ColTheme:       {"主题", "玩法", "theme"},
	ColCost:        {"费用", "人均费用", "cost"},
	ColViews:       {"浏览", "浏览次数", "阅读数", "views"},
	ColLikes:       {"点赞", "likes"},
	ColComments:    {"评论", "comments"},
	ColDestination: {"目的地", "城市", "destination", "city"},
	ColItinerary:   {"行程", "itinerary"},
	ColLink:        {"链接", "link", "url"},
	ColDepartDate:  {"出发日期", "出发时间", "日期", "date"},
	ColDays:        {"天数", "旅行时长", "行程天数", "days"},
	ColMonth:       {"旅行月份", "month"},
}

// Header returns the canonical header row in column order.
func Header() []string {
	out := make([]string, numColumns)
	for c := Column(0); c < numColumns; c++ {
		out[c] = columnAliases[c][0]
	}
	return out
}

// Schema maps logical columns to field positions of one concrete file.
type Schema struct {
	index [numColumns]int
}

// ResolveSchema matches header names against the alias table. Header names
// are compared after BOM stripping, trimming and lower-casing; for each
// column the earliest alias present wins.
func ResolveSchema(header []string) Schema {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		key := normalizeHeader(name)
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	var s Schema
	for c := Column(0); c < numColumns; c++ {
		s.index[c] = -1
		for _, alias := range columnAliases[c] {
			if pos, ok := positions[strings.ToLower(alias)]; ok {
				s.index[c] = pos
				break
			}
		}
	}
	return s
}

// Has reports whether the file carries column c.
func (s Schema) Has(c Column) bool {
	return s.index[c] >= 0
}

// Get returns the trimmed value of column c in row, or "" when absent.
func (s Schema) Get(row []string, c Column) string {
	pos := s.index[c]
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

func normalizeHeader(name string) string {
	name = strings.ReplaceAll(name, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(name))
}

// Row formats rec in the column order of Header.
func Row(rec Record) []string {
	row := make([]string, numColumns)
	row[ColTitle] = rec.Title
	row[ColAuthor] = rec.Author
	row[ColPeople] = rec.People
	row[ColTheme] = rec.Theme
	if rec.HasCost {
		row[ColCost] = strconv.FormatFloat(rec.Cost, 'f', -1, 64)
	}
	row[ColViews] = strconv.FormatInt(rec.Views, 10)
	row[ColLikes] = strconv.FormatInt(rec.Likes, 10)
	row[ColComments] = strconv.FormatInt(rec.Comments, 10)
	row[ColDestination] = rec.Destination
	row[ColItinerary] = rec.Itinerary
	row[ColLink] = rec.Link
	row[ColDepartDate] = rec.DepartDate
	if rec.Days > 0 {
		row[ColDays] = strconv.Itoa(rec.Days)
	}
	if rec.Month > 0 {
		row[ColMonth] = strconv.Itoa(rec.Month)
	}
	return row
}
