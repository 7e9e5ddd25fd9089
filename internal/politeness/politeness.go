package politeness

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/travel-insight/backend/internal/config"
)

// Manager paces requests and honours robots.txt for the crawler
type Manager struct {
	config      config.CrawlerConfig
	logger      *logrus.Entry
	client      *http.Client
	limiter     *rate.Limiter
	robotsCache map[string]*RobotsEntry
	mu          sync.RWMutex
}

// RobotsEntry caches robots.txt data
type RobotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

const robotsCacheDuration = 24 * time.Hour

// NewManager creates a politeness manager allowing one request per
// cfg.MinDelay. A zero delay disables pacing.
func NewManager(cfg config.CrawlerConfig, logger *logrus.Entry) *Manager {
	if logger == nil {
		logger = logrus.WithField("component", "politeness")
	}

	limit := rate.Inf
	if cfg.MinDelay > 0 {
		limit = rate.Every(cfg.MinDelay)
	}

	return &Manager{
		config:      cfg,
		logger:      logger,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		limiter:     rate.NewLimiter(limit, 1),
		robotsCache: make(map[string]*RobotsEntry),
	}
}

// Wait blocks until the next request may be sent or ctx is done
func (m *Manager) Wait(ctx context.Context) error {
	return m.limiter.Wait(ctx)
}

// IsURLAllowed checks if URL is allowed according to robots.txt
func (m *Manager) IsURLAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Host == "" {
		return false, fmt.Errorf("invalid URL %q", rawURL)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false, nil
	}
	if !m.config.EnableRobotsCheck {
		return true, nil
	}

	robotsData, err := m.getRobotsData(ctx, parsedURL)
	if err != nil {
		m.logger.WithError(err).WithField("domain", parsedURL.Host).Warn("Failed to get robots.txt, allowing request")
		return true, nil
	}
	if robotsData == nil {
		return true, nil
	}

	path := parsedURL.EscapedPath()
	if parsedURL.RawQuery != "" {
		path += "?" + parsedURL.RawQuery
	}
	return robotsData.TestAgent(path, m.config.UserAgent), nil
}

// getRobotsData fetches and caches robots.txt data per host
func (m *Manager) getRobotsData(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	m.mu.RLock()
	entry, exists := m.robotsCache[target.Host]
	m.mu.RUnlock()

	if exists && time.Since(entry.fetchTime) < robotsCacheDuration {
		return entry.robots, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", m.config.UserAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	var robotsData *robotstxt.RobotsData
	if resp.StatusCode == http.StatusOK {
		robotsData, err = robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
		}
	}

	// Cache the result (even if nil for 404s)
	m.mu.Lock()
	m.robotsCache[target.Host] = &RobotsEntry{
		robots:    robotsData,
		fetchTime: time.Now(),
	}
	m.mu.Unlock()

	return robotsData, nil
}
