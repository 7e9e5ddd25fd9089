package recommend

import (
	"sort"
	"strings"

	"github.com/travel-insight/backend/internal/dataset"
	"github.com/travel-insight/backend/internal/search"
)

const (
	// FallbackReason explains picks that share no term with the query.
	FallbackReason = "为您推荐热门游记"

	matchReasonPrefix = "匹配兴趣词："
	matchSeparator    = "、"
)

// Recommendation is a ranked record projection returned to callers.
type Recommendation struct {
	Rank         int
	Title        string
	People       string
	Theme        string
	Destination  string
	Cost         float64
	HasCost      bool
	Views        int64
	Likes        int64
	Link         string
	Score        float64
	Reason       string
	MatchedTerms []string
}

type candidate struct {
	index int
	score float64
}

// Recommend filters, ranks and explains records for q. It never returns an
// error: an empty interest, K <= 0 or filters that exclude everything give
// an empty, non-nil slice.
func (c *FittedCorpus) Recommend(q Query) []Recommendation {
	results := []Recommendation{}
	interest := strings.TrimSpace(q.Interest)
	if interest == "" || q.TopK <= 0 {
		return results
	}

	survivors := c.filter(q)
	if len(survivors) == 0 {
		return results
	}

	queryTokens, err := c.tokenizer.Tokenize(interest)
	if err != nil {
		c.logger.WithError(err).Warn("Query tokenization failed, ranking without terms")
		queryTokens = []string{}
	}
	queryVec := c.vectorizer.Transform(queryTokens)
	if queryVec.IsZero() {
		c.logger.WithField("interest", interest).Debug("Query shares no vocabulary term")
	}

	ranked := make([]candidate, len(survivors))
	for i, idx := range survivors {
		ranked[i] = candidate{index: idx, score: search.CosineSimilarity(queryVec, c.vectors[idx])}
	}
	// survivors are in corpus order, so a stable sort breaks ties by it
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > q.TopK {
		ranked = ranked[:q.TopK]
	}

	for rank, cand := range ranked {
		rec := &c.records[cand.index]
		matched := matchedTerms(queryTokens, c.tokens[cand.index])
		results = append(results, Recommendation{
			Rank:         rank + 1,
			Title:        rec.Title,
			People:       rec.People,
			Theme:        rec.Theme,
			Destination:  rec.Destination,
			Cost:         rec.Cost,
			HasCost:      rec.HasCost,
			Views:        rec.Views,
			Likes:        rec.Likes,
			Link:         rec.Link,
			Score:        cand.score,
			Reason:       explain(matched),
			MatchedTerms: matched,
		})
	}
	return results
}

// filter returns the indices of records passing every supplied filter, in
// corpus order.
func (c *FittedCorpus) filter(q Query) []int {
	city := search.Normalize(strings.TrimSpace(q.City))
	theme := search.Normalize(strings.TrimSpace(q.Theme))
	people := search.Normalize(strings.TrimSpace(q.People))

	out := make([]int, 0, len(c.records))
	for i := range c.records {
		f := &c.folded[i]
		if city != "" && !strings.Contains(f.destination, city) && !strings.Contains(f.title, city) {
			continue
		}
		if theme != "" && !strings.Contains(f.theme, theme) {
			continue
		}
		if people != "" && !strings.Contains(f.people, people) {
			continue
		}
		if q.Budget > 0 && !withinBudget(&c.records[i], q.Budget) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// withinBudget excludes unknown and zero costs; zero is what the cleaning
// stage writes for a missing cost.
func withinBudget(rec *dataset.Record, budget float64) bool {
	return rec.HasCost && rec.Cost > 0 && rec.Cost <= budget
}

// matchedTerms returns the distinct query tokens present in doc, in query
// order.
func matchedTerms(query, doc []string) []string {
	if len(query) == 0 || len(doc) == 0 {
		return nil
	}
	inDoc := make(map[string]struct{}, len(doc))
	for _, t := range doc {
		inDoc[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(query))
	var out []string
	for _, t := range query {
		if _, ok := inDoc[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func explain(matched []string) string {
	if len(matched) == 0 {
		return FallbackReason
	}
	return matchReasonPrefix + strings.Join(matched, matchSeparator)
}
