// Package fetcher downloads venue pages with strict budgets: phase
// timeouts, a body size cap, robots.txt compliance, and a content quality
// gate. Failures are classified into stable reason codes rather than
// returned as errors.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	// defaultRobotsTTL is how long parsed robots.txt rules stay cached.
	defaultRobotsTTL = 24 * time.Hour

	// maxRobotsBytes limits the size of robots.txt responses we read.
	maxRobotsBytes = 512 * 1024
)

// RobotsChecker fetches, parses and caches robots.txt rules per host.
// Missing or errored robots.txt results in allow-all, the standard
// crawling practice.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool
}

// NewRobotsChecker creates a RobotsChecker with the given HTTP client and
// user agent. A zero ttl uses the 24h default.
func NewRobotsChecker(client *http.Client, userAgent string, ttl time.Duration) *RobotsChecker {
	if ttl == 0 {
		ttl = defaultRobotsTTL
	}

	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		cache:     make(map[string]robotsEntry),
	}
}

// Allowed reports whether the URL may be fetched under the host's
// robots.txt rules for our user agent.
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	entry, ok := r.cached(host)
	if !ok {
		entry = r.fetch(ctx, parsed.Scheme, host)
	}

	if entry.allowAll {
		return true, nil
	}

	return entry.data.TestAgent(parsed.Path, r.userAgent), nil
}

// cached returns the host's entry when present and fresh.
func (r *RobotsChecker) cached(host string) (robotsEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[host]
	if !ok || time.Since(entry.fetchedAt) > r.ttl {
		return robotsEntry{}, false
	}

	return entry, true
}

// fetch downloads and parses robots.txt for the host, caching the result.
// Any fetch or parse failure degrades to allow-all.
func (r *RobotsChecker) fetch(ctx context.Context, scheme, host string) robotsEntry {
	if scheme == "" {
		scheme = "https"
	}

	entry := robotsEntry{fetchedAt: time.Now(), allowAll: true}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+host+"/robots.txt", http.NoBody)
	if err == nil {
		req.Header.Set("User-Agent", r.userAgent)

		resp, doErr := r.client.Do(req)
		if doErr == nil {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
			resp.Body.Close()

			if readErr == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if data, parseErr := robotstxt.FromBytes(body); parseErr == nil {
					entry.data = data
					entry.allowAll = false
				}
			}
		}
	}

	r.mu.Lock()
	r.cache[host] = entry
	r.mu.Unlock()

	return entry
}
