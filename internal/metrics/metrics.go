package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travel_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Recommendation
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_recommend_requests_total",
			Help: "Total number of recommendation queries by outcome",
		},
		[]string{"outcome"}, // "matched", "empty", "not_loaded"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "travel_recommend_duration_seconds",
			Help:    "Time spent ranking one recommendation query",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	// Corpus
	CorpusRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "travel_corpus_records",
			Help: "Number of travel notes in the loaded corpus",
		},
	)

	CorpusVocabularySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "travel_corpus_vocabulary_size",
			Help: "Number of terms kept by the fitted vectorizer",
		},
	)

	CorpusReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_corpus_reloads_total",
			Help: "Total number of corpus reload attempts",
		},
		[]string{"result"},
	)

	// Crawler
	CrawlPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_crawl_pages_total",
			Help: "Total number of listing pages visited by result",
		},
		[]string{"result"}, // "ok", "error", "disallowed"
	)

	CrawlRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travel_crawl_records_total",
			Help: "Total number of travel notes extracted from listing pages",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRecommend records one ranking pass
func RecordRecommend(outcome string, duration time.Duration) {
	RecommendRequests.WithLabelValues(outcome).Inc()
	if outcome != "not_loaded" {
		RecommendDuration.Observe(duration.Seconds())
	}
}

// RecordReload records a corpus reload and, on success, the new corpus size
func RecordReload(records, vocabulary int, err error) {
	if err != nil {
		CorpusReloads.WithLabelValues("error").Inc()
		return
	}
	CorpusReloads.WithLabelValues("ok").Inc()
	CorpusRecords.Set(float64(records))
	CorpusVocabularySize.Set(float64(vocabulary))
}

// RecordCrawlPage records one visited listing page
func RecordCrawlPage(result string, records int) {
	CrawlPages.WithLabelValues(result).Inc()
	CrawlRecords.Add(float64(records))
}

// Middleware instruments chi routes. The route pattern rather than the raw
// path is used as the label so that query strings and ids stay out of it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordAPIRequest(r.Method, route, status, time.Since(start))
	})
}
