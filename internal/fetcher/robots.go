package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsAgent evaluates robots.txt rules, fetching each host's file once.
// Hosts whose robots.txt cannot be fetched or parsed allow everything.
type RobotsAgent struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsAgent creates a RobotsAgent that matches groups against userAgent.
func NewRobotsAgent(client *http.Client, userAgent string, logger *slog.Logger) *RobotsAgent {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsAgent{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether pageURL may be crawled.
func (a *RobotsAgent) Allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || !u.IsAbs() {
		return false
	}

	rules := a.rules(ctx, u)
	if rules == nil {
		return true
	}
	return rules.TestAgent(u.RequestURI(), a.userAgent)
}

// rules returns the cached rules for u's host, fetching them on first use.
// nil means "allow everything".
func (a *RobotsAgent) rules(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := strings.ToLower(u.Scheme + "://" + u.Host)

	a.mu.Lock()
	defer a.mu.Unlock()

	if data, ok := a.cache[key]; ok {
		return data
	}

	data, err := a.fetch(ctx, key+"/robots.txt")
	if err != nil {
		a.logger.Debug("robots.txt unavailable, allowing all", "url", key+"/robots.txt", "error", err)
		if ctx.Err() != nil {
			// Don't remember a failure caused by cancellation.
			return nil
		}
	}
	a.cache[key] = data
	return data
}

func (a *RobotsAgent) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
