package recommend_test

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travel-insight/backend/internal/dataset"
	"github.com/travel-insight/backend/internal/recommend"
	"github.com/travel-insight/backend/internal/search"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", "recommend")
}

func record(title, people, theme string, cost float64) dataset.Record {
	return dataset.Record{
		Title:   title,
		People:  people,
		Theme:   theme,
		Cost:    cost,
		HasCost: cost != 0,
		Link:    "https://travel.qunar.com/youji/" + title,
		Text:    dataset.SynthesizeText(title, people, theme),
	}
}

func buildCorpus(t *testing.T, records ...dataset.Record) *recommend.FittedCorpus {
	t.Helper()
	c, err := recommend.Build(records, search.NewTokenizer(search.FieldsSegmenter{}), recommend.Options{Logger: testLogger()})
	require.NoError(t, err)
	return c
}

func sampleCorpus(t *testing.T) *recommend.FittedCorpus {
	return buildCorpus(t,
		record("厦门", "情侣", "沙滩", 1500),
		record("北京", "家庭", "故宫", 800),
		record("厦门", "独自一人", "美食", 600),
	)
}

func TestRecommend_WorkedExample(t *testing.T) {
	c := sampleCorpus(t)

	q := recommend.NewQuery("厦门 美食")
	q.TopK = 2
	recs := c.Recommend(q)

	require.Len(t, recs, 2)
	assert.Equal(t, "独自一人", recs[0].People)
	assert.Equal(t, "情侣", recs[1].People)
	assert.Equal(t, 1, recs[0].Rank)
	assert.Equal(t, 2, recs[1].Rank)
	assert.Greater(t, recs[0].Score, recs[1].Score)
	assert.Equal(t, "匹配兴趣词：厦门、美食", recs[0].Reason)
	assert.Equal(t, []string{"厦门", "美食"}, recs[0].MatchedTerms)
	assert.Equal(t, "匹配兴趣词：厦门", recs[1].Reason)
}

func TestRecommend_Deterministic(t *testing.T) {
	c := sampleCorpus(t)
	q := recommend.NewQuery("厦门 沙滩")

	first := c.Recommend(q)
	second := c.Recommend(q)
	assert.Equal(t, first, second)
}

func TestRecommend_ResultLength(t *testing.T) {
	c := sampleCorpus(t)

	for k := 0; k <= 5; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			q := recommend.NewQuery("故宫")
			q.TopK = k
			assert.Len(t, c.Recommend(q), min(k, 3))
		})
	}

	q := recommend.NewQuery("厦门")
	q.People = "家庭"
	q.TopK = 5
	recs := c.Recommend(q)
	require.Len(t, recs, 1, "zero-similarity survivors are still returned")
	assert.Equal(t, recommend.FallbackReason, recs[0].Reason)
	assert.Empty(t, recs[0].MatchedTerms)
}

func TestRecommend_EmptyInterest(t *testing.T) {
	c := sampleCorpus(t)

	for _, interest := range []string{"", "   ", "\t\n"} {
		q := recommend.NewQuery(interest)
		q.City = "厦门"
		q.Budget = 10000
		recs := c.Recommend(q)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	}
}

func TestRecommend_BudgetFilter(t *testing.T) {
	unknown := record("厦门", "家庭", "美食", 0)
	c := buildCorpus(t,
		record("厦门", "情侣", "美食", 1500),
		record("厦门", "学生", "美食", 900),
		unknown,
		record("厦门", "亲子", "美食", 1000),
	)

	q := recommend.NewQuery("美食")
	q.Budget = 1000
	q.TopK = 10
	recs := c.Recommend(q)

	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.True(t, r.HasCost)
		assert.LessOrEqual(t, r.Cost, 1000.0)
		assert.NotEqual(t, "家庭", r.People, "records without a cost are excluded")
	}

	q.Budget = 100
	assert.Empty(t, c.Recommend(q), "no survivors is an empty result, not an error")
}

func TestRecommend_RankOrderAndReflexivity(t *testing.T) {
	records := []dataset.Record{
		record("丽江古城", "三五好友", "古镇", 0),
		record("三亚", "情侣", "沙滩 海岛", 0),
		record("成都", "闺蜜", "美食 古镇", 0),
		record("三亚", "家庭", "沙滩", 0),
	}
	c := buildCorpus(t, records...)

	for i, rec := range records {
		q := recommend.NewQuery(rec.Text)
		q.TopK = len(records)
		recs := c.Recommend(q)
		require.Len(t, recs, len(records))

		for j := 1; j < len(recs); j++ {
			assert.GreaterOrEqual(t, recs[j-1].Score, recs[j].Score)
		}
		assert.Equal(t, rec.Title, recs[0].Title, "record %d should match itself best", i)
		assert.Equal(t, rec.People, recs[0].People)
		assert.InDelta(t, 1.0, recs[0].Score, 1e-9)
	}
}

func TestRecommend_TiesKeepCorpusOrder(t *testing.T) {
	c := buildCorpus(t,
		record("北京", "家庭", "故宫", 0),
		record("上海", "家庭", "外滩", 0),
		record("广州", "家庭", "早茶", 0),
	)

	q := recommend.NewQuery("完全无关")
	recs := c.Recommend(q)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"北京", "上海", "广州"}, []string{recs[0].Title, recs[1].Title, recs[2].Title})
}

func TestRecommend_CategoricalFilters(t *testing.T) {
	xiamen := record("鼓浪屿三日游", "情侣", "Beach 摄影", 0)
	xiamen.Destination = "Xiamen"
	c := buildCorpus(t,
		xiamen,
		record("厦门美食之旅", "独自一人", "美食", 0),
		record("北京故宫行", "家庭", "历史", 0),
	)

	tests := []struct {
		name   string
		mutate func(*recommend.Query)
		titles []string
	}{
		{"city matches destination case-insensitively", func(q *recommend.Query) { q.City = "xiamen" }, []string{"鼓浪屿三日游"}},
		{"city matches title substring", func(q *recommend.Query) { q.City = "厦门" }, []string{"厦门美食之旅"}},
		{"theme substring", func(q *recommend.Query) { q.Theme = "beach" }, []string{"鼓浪屿三日游"}},
		{"people substring", func(q *recommend.Query) { q.People = "独自" }, []string{"厦门美食之旅"}},
		{"filters are AND-combined", func(q *recommend.Query) { q.City = "厦门"; q.People = "家庭" }, nil},
		{"blank filters are ignored", func(q *recommend.Query) { q.City = "  " }, []string{"鼓浪屿三日游", "厦门美食之旅", "北京故宫行"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := recommend.NewQuery("旅行")
			tt.mutate(&q)
			var titles []string
			for _, r := range c.Recommend(q) {
				titles = append(titles, r.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

type flakySegmenter struct {
	fail string
}

func (f flakySegmenter) Segment(text string) ([]string, error) {
	if strings.Contains(text, f.fail) {
		panic("bad input")
	}
	return search.FieldsSegmenter{}.Segment(text)
}

func TestBuild_IsolatesSegmentationFailures(t *testing.T) {
	tok := search.NewTokenizer(flakySegmenter{fail: "坏"})
	c, err := recommend.Build([]dataset.Record{
		record("坏数据", "家庭", "美食", 0),
		record("成都", "家庭", "美食", 0),
	}, tok, recommend.Options{Logger: testLogger()})
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Stats().SegmentationFailures)
	assert.Empty(t, c.Tokens(0))
	assert.Equal(t, []string{"成都", "家庭", "美食"}, c.Tokens(1))

	recs := c.Recommend(recommend.NewQuery("成都"))
	require.Len(t, recs, 2)
	assert.Equal(t, "成都", recs[0].Title)
}

func TestBuild_VocabularyCap(t *testing.T) {
	c, err := recommend.Build([]dataset.Record{
		record("a b c", "", "", 0),
		record("a b d", "", "", 0),
	}, search.NewTokenizer(search.FieldsSegmenter{}), recommend.Options{MaxFeatures: 2, Logger: testLogger()})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, c.Vocabulary())
	assert.Equal(t, 2, c.Stats().VocabularySize)
	assert.Equal(t, 2, c.Stats().Records)
}

func TestBuild_Empty(t *testing.T) {
	_, err := recommend.Build(nil, search.NewTokenizer(search.FieldsSegmenter{}), recommend.Options{})
	assert.ErrorIs(t, err, recommend.ErrEmptyCorpus)
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"", 0, true},
		{" 2000 ", 2000, true},
		{"1500.5", 1500.5, true},
		{"-3", 0, true},
		{"abc", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := recommend.ParseBudget(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
