package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRecommend(t *testing.T) {
	before := testutil.ToFloat64(RecommendRequests.WithLabelValues("matched"))
	RecordRecommend("matched", 2*time.Millisecond)
	after := testutil.ToFloat64(RecommendRequests.WithLabelValues("matched"))
	assert.Equal(t, before+1, after)
}

func TestRecordReload(t *testing.T) {
	beforeErr := testutil.ToFloat64(CorpusReloads.WithLabelValues("error"))

	RecordReload(42, 17, nil)
	assert.Equal(t, 42.0, testutil.ToFloat64(CorpusRecords))
	assert.Equal(t, 17.0, testutil.ToFloat64(CorpusVocabularySize))

	RecordReload(0, 0, errors.New("boom"))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(CorpusReloads.WithLabelValues("error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(CorpusRecords), "failed reload keeps the previous size")
}

func TestRecordCrawlPage(t *testing.T) {
	beforePages := testutil.ToFloat64(CrawlPages.WithLabelValues("ok"))
	beforeRecords := testutil.ToFloat64(CrawlRecords)

	RecordCrawlPage("ok", 10)

	assert.Equal(t, beforePages+1, testutil.ToFloat64(CrawlPages.WithLabelValues("ok")))
	assert.Equal(t, beforeRecords+10, testutil.ToFloat64(CrawlRecords))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/v1/insights/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := APIRequestsTotal.WithLabelValues("GET", "/api/v1/insights/{kind}", "418")
	before := testutil.ToFloat64(counter)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights/themes?limit=3", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
