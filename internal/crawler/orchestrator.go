package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/fetcher"
	"github.com/jonesrussell/venuescout/internal/links"
	"github.com/jonesrussell/venuescout/internal/logger"
	"github.com/jonesrussell/venuescout/internal/urlutil"
)

const (
	// defaultCrawlBudget is the wall-clock ceiling for one venue crawl,
	// measured on the monotonic clock from the moment the job starts.
	defaultCrawlBudget = 5000 * time.Millisecond

	// minFetchHeadroom is the least remaining budget worth starting a
	// target fetch with. Anything tighter is recorded as aborted.
	minFetchHeadroom = 250 * time.Millisecond
)

// Page TTLs by type. Hours change often; menus, contact pages and fee
// schedules less so; everything else is stable for a month.
const (
	ttlHours   = 3 * 24 * time.Hour
	ttlTargets = 14 * 24 * time.Hour
	ttlStable  = 30 * 24 * time.Hour
)

// TTLFor returns the freshness window for a page type.
func TTLFor(pageType string) time.Duration {
	switch pageType {
	case domain.PageTypeHours:
		return ttlHours
	case domain.PageTypeMenu, domain.PageTypeContact, domain.PageTypeFees:
		return ttlTargets
	default:
		return ttlStable
	}
}

// Fetcher downloads one URL through the rate gate.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, cond *fetcher.Conditional) (*fetcher.Result, error)
}

// PageStore persists fetch outcomes and serves stored pages.
type PageStore interface {
	Save(ctx context.Context, page *domain.ScrapedPage) (bool, error)
	GetLatestByURL(ctx context.Context, venueID, url string) (*domain.ScrapedPage, error)
	GetFreshByVenue(ctx context.Context, venueID string) ([]*domain.ScrapedPage, error)
}

// CrawlResult is the outcome of one venue crawl. Pages holds every page
// available for unification: this crawl's successes with raw markup in
// memory, plus stored pages still within TTL. FailReason is empty when
// the homepage was fetched and passed the quality gate.
type CrawlResult struct {
	Pages      []*domain.ScrapedPage
	Fetched    int
	Aborted    int
	FailReason string
}

// OK reports whether the crawl produced at least a usable homepage.
func (r *CrawlResult) OK() bool {
	return r.FailReason == ""
}

// Orchestrator runs the crawl sequence for one venue: recover the website
// if missing, fetch the homepage, select up to three same-domain target
// pages and fetch them in parallel, all inside the crawl budget.
type Orchestrator struct {
	fetcher  Fetcher
	pages    PageStore
	recovery *Recovery
	budget   time.Duration
	logger   logger.Interface
}

// NewOrchestrator creates an Orchestrator. A non-positive budget falls
// back to the default.
func NewOrchestrator(f Fetcher, pages PageStore, recovery *Recovery, budget time.Duration, log logger.Interface) *Orchestrator {
	if budget <= 0 {
		budget = defaultCrawlBudget
	}
	return &Orchestrator{
		fetcher:  f,
		pages:    pages,
		recovery: recovery,
		budget:   budget,
		logger:   log,
	}
}

// Crawl enriches one venue's page set. A venue with no website and no
// recoverable one fails with no_website. A homepage that fails the
// quality gate fails the crawl with that page's reason. Target page
// failures never fail the crawl.
func (o *Orchestrator) Crawl(ctx context.Context, venue *domain.Venue) (*CrawlResult, error) {
	start := time.Now()
	ctx, cancel := context.WithDeadline(ctx, start.Add(o.budget))
	defer cancel()

	result := &CrawlResult{}

	website := ""
	if venue.Website != nil {
		website = *venue.Website
	}
	if website == "" {
		recovered, err := o.recovery.Recover(ctx, venue)
		if err != nil {
			o.logger.Warn("website recovery failed",
				"venue_id", venue.VenueID,
				"error", err,
			)
		}
		website = recovered
	}
	if website == "" {
		result.FailReason = domain.ReasonNoWebsite
		return result, nil
	}

	homeURL, err := urlutil.Normalize(website)
	if err != nil {
		result.FailReason = domain.ReasonNoWebsite
		return result, nil
	}

	home, err := o.fetchAndStore(ctx, venue.VenueID, homeURL, domain.PageTypeHomepage, false)
	if err != nil {
		return nil, err
	}
	result.Fetched++
	if home.Reason != nil {
		result.FailReason = *home.Reason
		return result, nil
	}
	result.Pages = append(result.Pages, home)

	targets, findErr := links.Find(homeURL, home.RawHTML)
	if findErr != nil {
		o.logger.Warn("link discovery failed",
			"venue_id", venue.VenueID,
			"url", homeURL,
			"error", findErr,
		)
	}

	o.fetchTargets(ctx, venue.VenueID, start, targets, result)

	o.mergeStoredPages(ctx, venue.VenueID, result)

	o.logger.Info("crawl finished",
		"venue_id", venue.VenueID,
		"fetched", result.Fetched,
		"aborted", result.Aborted,
		"pages", len(result.Pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// fetchTargets fetches the selected target pages in parallel. Each fetch
// first checks the remaining budget; starting a fetch that cannot finish
// wastes gate slots on a response that will be thrown away.
func (o *Orchestrator) fetchTargets(ctx context.Context, venueID string, start time.Time, targets []links.Candidate, result *CrawlResult) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, target := range targets {
		remaining := o.budget - time.Since(start)
		if remaining < minFetchHeadroom {
			o.recordAborted(ctx, venueID, target)
			mu.Lock()
			result.Aborted++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(target links.Candidate) {
			defer wg.Done()

			page, err := o.fetchAndStore(ctx, venueID, target.URL, target.PageType, true)
			if err != nil {
				o.logger.Error("failed to store page",
					"venue_id", venueID,
					"url", target.URL,
					"error", err,
				)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			result.Fetched++
			if page.Reason == nil {
				result.Pages = append(result.Pages, page)
			}
		}(target)
	}

	wg.Wait()
}

// fetchAndStore downloads one URL and persists the outcome, success or
// failure. When conditional is set and a prior record exists, its
// validators are sent; a 304 refreshes the stored page and returns it.
func (o *Orchestrator) fetchAndStore(ctx context.Context, venueID, rawURL, pageType string, conditional bool) (*domain.ScrapedPage, error) {
	var cond *fetcher.Conditional
	var prior *domain.ScrapedPage

	if conditional {
		stored, err := o.pages.GetLatestByURL(ctx, venueID, rawURL)
		if err != nil {
			o.logger.Warn("failed to load prior page",
				"venue_id", venueID,
				"url", rawURL,
				"error", err,
			)
		} else if stored != nil && stored.Reason == nil {
			prior = stored
			c := fetcher.Conditional{}
			if stored.ETag != nil {
				c.ETag = *stored.ETag
			}
			if stored.LastModified != nil {
				c.LastModified = *stored.LastModified
			}
			if c.ETag != "" || c.LastModified != "" {
				cond = &c
			}
		}
	}

	res, err := o.fetcher.Fetch(ctx, rawURL, cond)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if res.NotModified && prior != nil {
		prior.FetchedAt = now
		validUntil := now.Add(TTLFor(pageType))
		prior.ValidUntil = &validUntil
		prior.TotalMS = res.TotalMS
		prior.FirstByteMS = res.FirstByteMS
		if _, saveErr := o.pages.Save(ctx, prior); saveErr != nil {
			return nil, saveErr
		}
		return prior, nil
	}

	page := &domain.ScrapedPage{
		VenueID:     venueID,
		URL:         res.URL,
		PageType:    pageType,
		FetchedAt:   now,
		HTTPStatus:  res.Status,
		ContentType: res.ContentType,
		ContentHash: res.ContentHash,
		CleanedText: res.CleanedText,
		Discovery:   discoveryFor(pageType),
		RedirectTo:  res.RedirectChain,
		SizeBytes:   res.SizeBytes,
		TotalMS:     res.TotalMS,
		FirstByteMS: res.FirstByteMS,
		RawHTML:     res.Body,
	}
	if res.ETag != "" {
		page.ETag = &res.ETag
	}
	if res.LastModified != "" {
		page.LastModified = &res.LastModified
	}

	if res.OK() {
		validUntil := now.Add(TTLFor(pageType))
		page.ValidUntil = &validUntil
	} else {
		reason := res.Reason
		page.Reason = &reason
		page.ContentHash = ""
		page.CleanedText = ""
		page.RawHTML = nil
	}

	duplicate, saveErr := o.pages.Save(ctx, page)
	if saveErr != nil {
		return nil, saveErr
	}
	if duplicate {
		// Identical content is already stored; the fetched copy still
		// feeds extraction for this venue.
		o.logger.Debug("reusing stored page",
			"venue_id", venueID,
			"url", rawURL,
			"page_id", page.PageID,
			"reason", domain.ReasonDuplicateContent,
		)
	}

	return page, nil
}

// recordAborted persists a budget-exceeded marker so the page row
// explains why the target was never fetched.
func (o *Orchestrator) recordAborted(ctx context.Context, venueID string, target links.Candidate) {
	reason := domain.ReasonTimeBudgetExceeded
	page := &domain.ScrapedPage{
		VenueID:   venueID,
		URL:       target.URL,
		PageType:  target.PageType,
		FetchedAt: time.Now(),
		Discovery: domain.DiscoveryHeuristic,
		Reason:    &reason,
	}
	if _, err := o.pages.Save(ctx, page); err != nil {
		o.logger.Error("failed to record aborted fetch",
			"venue_id", venueID,
			"url", target.URL,
			"error", err,
		)
	}
}

// mergeStoredPages adds stored pages still within TTL that this crawl did
// not touch, so unification sees the venue's full fresh page set.
func (o *Orchestrator) mergeStoredPages(ctx context.Context, venueID string, result *CrawlResult) {
	stored, err := o.pages.GetFreshByVenue(ctx, venueID)
	if err != nil {
		o.logger.Warn("failed to load stored pages",
			"venue_id", venueID,
			"error", err,
		)
		return
	}

	seen := make(map[string]struct{}, len(result.Pages))
	for _, p := range result.Pages {
		seen[p.URL] = struct{}{}
	}

	for _, p := range stored {
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}
		result.Pages = append(result.Pages, p)
	}
}

func discoveryFor(pageType string) string {
	if pageType == domain.PageTypeHomepage {
		return domain.DiscoveryDirectURL
	}
	return domain.DiscoveryHeuristic
}
