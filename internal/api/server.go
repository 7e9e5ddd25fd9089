package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/travel-insight/backend/internal/config"
	"github.com/travel-insight/backend/internal/engine"
	"github.com/travel-insight/backend/internal/insight"
	"github.com/travel-insight/backend/internal/metrics"
	"github.com/travel-insight/backend/internal/recommend"
)

const defaultInsightLimit = 10

// Service is the part of the engine the handlers depend on
type Service interface {
	Recommend(q recommend.Query) ([]recommend.Recommendation, error)
	Corpus() *recommend.FittedCorpus
	Reload() (recommend.BuildStats, error)
	StartCrawl(pages int) error
	Status() engine.Status
}

type Server struct {
	Engine  Service
	Config  *config.Config
	Logger  *logrus.Entry
	Router  chi.Router
	started time.Time

	validate *validator.Validate
	http     *http.Server
}

func NewServer(eng Service, cfg *config.Config, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.WithField("component", "api")
	}
	s := &Server{
		Engine:   eng,
		Config:   cfg,
		Logger:   logger,
		Router:   chi.NewRouter(),
		started:  time.Now(),
		validate: validator.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(metrics.Middleware)

	s.Router.Get("/healthz", s.handleHealth)
	s.Router.Handle("/metrics", promhttp.Handler())

	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/recommend", s.handleRecommend)
		r.Get("/insights/{kind}", s.handleInsight)
		r.Post("/crawl", s.handleCrawl)
		r.Post("/reload", s.handleReload)
		r.Get("/status", s.handleStatus)
	})
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	s.Logger.Infof("Starting API Server on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type RecommendResponse struct {
	Query    QueryView            `json:"query"`
	Results  []RecommendationView `json:"results"`
	Warnings []string             `json:"warnings,omitempty"`
}

type QueryView struct {
	Interests string  `json:"interests"`
	City      string  `json:"city,omitempty"`
	Theme     string  `json:"theme,omitempty"`
	People    string  `json:"people,omitempty"`
	Budget    float64 `json:"budget,omitempty"`
	TopN      int     `json:"top_n"`
}

type RecommendationView struct {
	Rank         int      `json:"rank"`
	Title        string   `json:"title"`
	People       string   `json:"people"`
	Theme        string   `json:"theme"`
	Destination  string   `json:"destination,omitempty"`
	Cost         *float64 `json:"cost"`
	Views        int64    `json:"views"`
	Likes        int64    `json:"likes"`
	Link         string   `json:"link,omitempty"`
	Score        float64  `json:"score"`
	Reason       string   `json:"reason"`
	MatchedTerms []string `json:"matched_terms"`
}

type CrawlRequest struct {
	Pages int `json:"pages"`
}

type StatusResponse struct {
	engine.Status
	Uptime string `json:"uptime"`
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	var warnings []string

	q := recommend.Query{
		Interest: params.Get("interests"),
		City:     params.Get("city"),
		Theme:    params.Get("theme"),
		People:   params.Get("people"),
		TopK:     s.Config.Corpus.DefaultTopK,
	}

	if raw := params.Get("budget"); raw != "" {
		budget, ok := recommend.ParseBudget(raw)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("budget %q is not a number and was ignored", raw))
		}
		q.Budget = budget
	}

	if raw := params.Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("top_n %q is not an integer, using %d", raw, q.TopK))
		case n > s.Config.Corpus.MaxTopK:
			q.TopK = s.Config.Corpus.MaxTopK
			warnings = append(warnings, fmt.Sprintf("top_n capped at %d", q.TopK))
		default:
			q.TopK = n
		}
	}

	recs, err := s.Engine.Recommend(q)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	resp := RecommendResponse{
		Query: QueryView{
			Interests: q.Interest,
			City:      q.City,
			Theme:     q.Theme,
			People:    q.People,
			Budget:    q.Budget,
			TopN:      q.TopK,
		},
		Results:  make([]RecommendationView, len(recs)),
		Warnings: warnings,
	}
	for i, rec := range recs {
		resp.Results[i] = toView(rec)
	}

	jsonResponse(w, http.StatusOK, resp)
}

func toView(rec recommend.Recommendation) RecommendationView {
	v := RecommendationView{
		Rank:         rec.Rank,
		Title:        rec.Title,
		People:       rec.People,
		Theme:        rec.Theme,
		Destination:  rec.Destination,
		Views:        rec.Views,
		Likes:        rec.Likes,
		Link:         rec.Link,
		Score:        rec.Score,
		Reason:       rec.Reason,
		MatchedTerms: rec.MatchedTerms,
	}
	if rec.HasCost {
		cost := rec.Cost
		v.Cost = &cost
	}
	if v.MatchedTerms == nil {
		v.MatchedTerms = []string{}
	}
	return v
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	limit := defaultInsightLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	corpus := s.Engine.Corpus()
	if corpus == nil {
		s.writeEngineError(w, engine.ErrCorpusNotLoaded)
		return
	}

	var payload interface{}
	switch kind := chi.URLParam(r, "kind"); kind {
	case "destinations":
		payload = insight.TopDestinations(corpus, limit)
	case "companions":
		payload = insight.Companions(corpus, limit)
	case "themes":
		payload = insight.Themes(corpus, limit)
	case "durations":
		payload = insight.Durations(corpus)
	case "years":
		payload = insight.Years(corpus)
	case "terms":
		payload = insight.TopTerms(corpus, limit)
	default:
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("unknown insight %q", kind)})
		return
	}

	jsonResponse(w, http.StatusOK, payload)
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	rule := fmt.Sprintf("min=1,max=%d", s.Config.Crawler.MaxPages)
	if err := s.validate.Var(req.Pages, rule); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("pages must be between 1 and %d", s.Config.Crawler.MaxPages),
		})
		return
	}

	if err := s.Engine.StartCrawl(req.Pages); err != nil {
		if errors.Is(err, engine.ErrCrawlInProgress) {
			jsonResponse(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	jsonResponse(w, http.StatusAccepted, map[string]interface{}{"status": "crawl_started", "pages": req.Pages})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Engine.Reload()
	if err != nil {
		s.Logger.WithError(err).Error("Reload failed")
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, StatusResponse{
		Status: s.Engine.Status(),
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrCorpusNotLoaded) {
		jsonResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
