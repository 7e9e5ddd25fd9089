package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/travel-insight/backend/internal/config"
	"github.com/travel-insight/backend/internal/dataset"
	"github.com/travel-insight/backend/internal/engine"
	"github.com/travel-insight/backend/internal/recommend"
	"github.com/travel-insight/backend/internal/search"
	"github.com/travel-insight/backend/internal/storage"
)

// MockStorage delegates Save to a real CSV file so that Reload can read it back
type MockStorage struct {
	mock.Mock
	real *storage.CSVStorage
}

func (m *MockStorage) Save(records []dataset.Record) error {
	args := m.Called(records)
	if err := args.Error(0); err != nil {
		return err
	}
	return m.real.Save(records)
}

func (m *MockStorage) Path() string {
	return m.real.Path()
}

func (m *MockStorage) Close() error {
	return nil
}

type MockCrawler struct {
	mock.Mock
}

func (m *MockCrawler) Crawl(ctx context.Context, pages int) ([]dataset.Record, error) {
	args := m.Called(ctx, pages)
	records, _ := args.Get(0).([]dataset.Record)
	return records, args.Error(1)
}

func newTestEngine(t *testing.T, crawler engine.Crawler) (*engine.Engine, *MockStorage) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "featured_travel.csv")
	real, err := storage.NewCSVStorage(path)
	require.NoError(t, err)

	cfg := &config.Config{
		Corpus: config.CorpusConfig{DataPath: path, MaxFeatures: 500, DefaultTopK: 5, MaxTopK: 50},
	}
	store := &MockStorage{real: real}
	tok := search.NewTokenizer(search.FieldsSegmenter{})
	return engine.NewEngine(cfg, nil, tok, crawler, store), store
}

func seedRecords() []dataset.Record {
	return []dataset.Record{
		{Title: "厦门三日游", People: "情侣", Theme: "海滨", Cost: 1500, HasCost: true, Days: 3, DepartDate: "2024-05-01"},
		{Title: "成都美食", People: "家庭", Theme: "美食", Cost: 800, HasCost: true, Days: 4, DepartDate: "2023-10-02"},
	}
}

func TestRecommend_NotLoaded(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	_, err := e.Recommend(recommend.NewQuery("海滨"))
	assert.ErrorIs(t, err, engine.ErrCorpusNotLoaded)
	assert.Nil(t, e.Corpus())
	assert.False(t, e.Status().Loaded)
}

func TestReload(t *testing.T) {
	e, store := newTestEngine(t, nil)
	require.NoError(t, store.real.Save(seedRecords()))

	stats, err := e.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Records)
	assert.Positive(t, stats.VocabularySize)

	recs, err := e.Recommend(recommend.NewQuery("海滨"))
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, "厦门三日游", recs[0].Title)

	st := e.Status()
	assert.True(t, st.Loaded)
	require.NotNil(t, st.Corpus)
	assert.Equal(t, 2, st.Corpus.Records)
	assert.Equal(t, int64(1), st.Stats.Reloads)
}

func TestReload_FailureKeepsSnapshot(t *testing.T) {
	e, store := newTestEngine(t, nil)
	require.NoError(t, store.real.Save(seedRecords()))
	_, err := e.Reload()
	require.NoError(t, err)
	before := e.Corpus()

	require.NoError(t, os.WriteFile(store.Path(), []byte{0xff, 0xfe, 0x00}, 0644))
	_, err = e.Reload()

	var loadErr *dataset.DataLoadError
	assert.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, dataset.ErrInvalidEncoding)
	assert.Same(t, before, e.Corpus())
}

func TestReload_MissingFile(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	_, err := e.Reload()

	var loadErr *dataset.DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Nil(t, e.Corpus())
}

func TestStartCrawl_StoresAndReloads(t *testing.T) {
	crawler := new(MockCrawler)
	raw := append(seedRecords(),
		dataset.Record{Title: "厦门旅游攻略", Days: 2, DepartDate: "2024-01-01"},
		dataset.Record{Title: "环游世界", Days: 99, DepartDate: "2024-01-01"},
	)
	crawler.On("Crawl", mock.Anything, 3).Return(raw, nil)

	e, store := newTestEngine(t, crawler)
	store.On("Save", mock.Anything).Return(nil)

	require.NoError(t, e.StartCrawl(3))
	e.Wait()

	assert.False(t, e.IsRunning())
	crawler.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "Save", 1)

	saved := store.Calls[0].Arguments.Get(0).([]dataset.Record)
	require.Len(t, saved, 2)
	assert.Equal(t, 5, saved[0].Month)
	assert.Equal(t, "厦门三日游 情侣 海滨", saved[0].Text)

	st := e.Status()
	assert.True(t, st.Loaded)
	assert.Empty(t, st.Stats.LastError)
	assert.Equal(t, 4, st.Stats.LastCrawlReport.Input)
	assert.Equal(t, 1, st.Stats.LastCrawlReport.Guides)
	assert.Equal(t, 1, st.Stats.LastCrawlReport.BadDuration)
	assert.Equal(t, 2, st.Corpus.Records)
}

func TestStartCrawl_InProgressAndStop(t *testing.T) {
	crawler := new(MockCrawler)
	started := make(chan struct{})
	crawler.On("Crawl", mock.Anything, 5).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled)

	e, store := newTestEngine(t, crawler)

	require.NoError(t, e.StartCrawl(5))
	<-started
	assert.True(t, e.IsRunning())
	assert.ErrorIs(t, e.StartCrawl(5), engine.ErrCrawlInProgress)

	e.StopCrawl()
	e.Wait()

	assert.False(t, e.IsRunning())
	store.AssertNotCalled(t, "Save", mock.Anything)
	assert.Contains(t, e.Status().Stats.LastError, "crawl interrupted")
	assert.Equal(t, int64(1), e.Status().Stats.CrawlsStarted)
}

func TestStartCrawl_NoUsableRecords(t *testing.T) {
	crawler := new(MockCrawler)
	crawler.On("Crawl", mock.Anything, 1).Return([]dataset.Record{{Title: "攻略"}}, nil)

	e, store := newTestEngine(t, crawler)
	require.NoError(t, e.StartCrawl(1))
	e.Wait()

	store.AssertNotCalled(t, "Save", mock.Anything)
	assert.Equal(t, engine.ErrNoUsableRecords.Error(), e.Status().Stats.LastError)
}
