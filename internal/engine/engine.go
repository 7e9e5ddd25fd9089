package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/travel-insight/backend/internal/cleaning"
	"github.com/travel-insight/backend/internal/config"
	"github.com/travel-insight/backend/internal/dataset"
	"github.com/travel-insight/backend/internal/metrics"
	"github.com/travel-insight/backend/internal/recommend"
	"github.com/travel-insight/backend/internal/search"
	"github.com/travel-insight/backend/internal/storage"
)

var (
	ErrCorpusNotLoaded = errors.New("corpus not loaded")
	ErrCrawlInProgress = errors.New("crawl already in progress")
	ErrNoUsableRecords = errors.New("crawl produced no usable records")
)

// Crawler gathers raw travel records from the listing site
type Crawler interface {
	Crawl(ctx context.Context, pages int) ([]dataset.Record, error)
}

// Engine owns the current corpus snapshot and the crawl job
type Engine struct {
	Config    *config.Config
	Logger    *logrus.Entry
	Tokenizer *search.Tokenizer
	Crawler   Crawler
	Storage   storage.RecordStorage

	corpus atomic.Pointer[recommend.FittedCorpus]

	// State
	isRunning   bool
	mu          sync.RWMutex
	cancelCrawl context.CancelFunc
	done        chan struct{}

	// Stats
	stats EngineStats
}

type EngineStats struct {
	CrawlsStarted   int64           `json:"crawls_started"`
	LastCrawlStart  time.Time       `json:"last_crawl_start,omitempty"`
	LastCrawlEnd    time.Time       `json:"last_crawl_end,omitempty"`
	LastCrawlReport cleaning.Report `json:"last_crawl_report"`
	LastError       string          `json:"last_error,omitempty"`
	Reloads         int64           `json:"reloads"`
}

// Status is a point-in-time view of the engine
type Status struct {
	Loaded   bool                  `json:"loaded"`
	Running  bool                  `json:"crawl_running"`
	DataPath string                `json:"data_path"`
	Corpus   *recommend.BuildStats `json:"corpus,omitempty"`
	Stats    EngineStats           `json:"stats"`
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, tokenizer *search.Tokenizer, crawler Crawler, store storage.RecordStorage) *Engine {
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}
	return &Engine{
		Config:    cfg,
		Logger:    logger,
		Tokenizer: tokenizer,
		Crawler:   crawler,
		Storage:   store,
	}
}

func (e *Engine) dataPath() string {
	if e.Storage != nil {
		return e.Storage.Path()
	}
	return e.Config.Corpus.DataPath
}

// Reload reads the dataset and fits a fresh snapshot. On failure the
// previous snapshot stays in place.
func (e *Engine) Reload() (recommend.BuildStats, error) {
	start := time.Now()

	records, loadStats, err := dataset.Load(e.dataPath())
	if err != nil {
		metrics.RecordReload(0, 0, err)
		return recommend.BuildStats{}, err
	}

	corpus, err := recommend.Build(records, e.Tokenizer, recommend.Options{
		MaxFeatures: e.Config.Corpus.MaxFeatures,
		Logger:      e.Logger,
	})
	if err != nil {
		metrics.RecordReload(0, 0, err)
		return recommend.BuildStats{}, fmt.Errorf("failed to build corpus: %w", err)
	}

	e.corpus.Store(corpus)
	stats := corpus.Stats()
	metrics.RecordReload(stats.Records, stats.VocabularySize, nil)

	e.mu.Lock()
	e.stats.Reloads++
	e.mu.Unlock()

	e.Logger.WithFields(logrus.Fields{
		"records":    stats.Records,
		"dropped":    loadStats.Dropped,
		"vocabulary": stats.VocabularySize,
		"duration":   time.Since(start),
	}).Info("Corpus loaded")
	return stats, nil
}

// Corpus returns the current snapshot, or nil before the first load
func (e *Engine) Corpus() *recommend.FittedCorpus {
	return e.corpus.Load()
}

// Recommend ranks the current snapshot against q
func (e *Engine) Recommend(q recommend.Query) ([]recommend.Recommendation, error) {
	corpus := e.corpus.Load()
	if corpus == nil {
		metrics.RecordRecommend("not_loaded", 0)
		return nil, ErrCorpusNotLoaded
	}

	start := time.Now()
	recs := corpus.Recommend(q)
	outcome := "matched"
	if len(recs) == 0 {
		outcome = "empty"
	}
	metrics.RecordRecommend(outcome, time.Since(start))
	return recs, nil
}

// StartCrawl runs crawl, clean, save and reload in the background
func (e *Engine) StartCrawl(pages int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return ErrCrawlInProgress
	}
	if e.Crawler == nil || e.Storage == nil {
		return errors.New("crawling is not configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancelCrawl = cancel
	e.done = make(chan struct{})
	e.isRunning = true
	e.stats.CrawlsStarted++
	e.stats.LastCrawlStart = time.Now()

	go e.runCrawl(ctx, pages, e.done)
	return nil
}

func (e *Engine) StopCrawl() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning && e.cancelCrawl != nil {
		e.cancelCrawl()
	}
}

// Wait blocks until the current crawl, if any, has finished
func (e *Engine) Wait() {
	e.mu.RLock()
	done := e.done
	e.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) runCrawl(ctx context.Context, pages int, done chan struct{}) {
	logger := e.Logger.WithField("pages", pages)
	logger.Info("Crawl started")

	report, err := e.crawlAndStore(ctx, pages)

	e.mu.Lock()
	e.isRunning = false
	e.cancelCrawl = nil
	e.stats.LastCrawlEnd = time.Now()
	e.stats.LastCrawlReport = report
	e.stats.LastError = ""
	if err != nil {
		e.stats.LastError = err.Error()
	}
	e.mu.Unlock()
	close(done)

	if err != nil {
		logger.WithError(err).Error("Crawl failed")
		return
	}
	logger.WithFields(logrus.Fields{
		"kept":         report.Output,
		"guides":       report.Guides,
		"bad_duration": report.BadDuration,
		"missing_date": report.MissingDate,
	}).Info("Crawl stored")
}

// crawlAndStore replaces the dataset only when the crawl ran to completion
// and produced at least one usable record.
func (e *Engine) crawlAndStore(ctx context.Context, pages int) (cleaning.Report, error) {
	raw, err := e.Crawler.Crawl(ctx, pages)
	if err != nil {
		return cleaning.Report{Input: len(raw)}, fmt.Errorf("crawl interrupted: %w", err)
	}

	cleaned, report := cleaning.Clean(raw, cleaning.DefaultOptions())
	if len(cleaned) == 0 {
		return report, ErrNoUsableRecords
	}
	enriched := cleaning.Enrich(cleaned)

	if err := e.Storage.Save(enriched); err != nil {
		return report, fmt.Errorf("failed to save records: %w", err)
	}
	if _, err := e.Reload(); err != nil {
		return report, fmt.Errorf("failed to reload corpus: %w", err)
	}
	return report, nil
}

func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

// Status reports load and crawl state
func (e *Engine) Status() Status {
	e.mu.RLock()
	st := Status{
		Running:  e.isRunning,
		DataPath: e.dataPath(),
		Stats:    e.stats,
	}
	e.mu.RUnlock()

	if corpus := e.corpus.Load(); corpus != nil {
		stats := corpus.Stats()
		st.Loaded = true
		st.Corpus = &stats
	}
	return st
}
