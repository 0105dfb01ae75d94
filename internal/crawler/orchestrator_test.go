package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/fetcher"
	"github.com/jonesrussell/venuescout/internal/logger"
)

const homeHTML = `<html><body>
<nav>
	<a href="/opening-times">Opening Times</a>
	<a href="/menu">Menu</a>
	<a href="/contact">Contact</a>
</nav>
<p>Welcome to the venue.</p>
</body></html>`

type fakeFetcher struct {
	results map[string]*fetcher.Result
	conds   map[string]*fetcher.Conditional
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, cond *fetcher.Conditional) (*fetcher.Result, error) {
	if f.conds == nil {
		f.conds = make(map[string]*fetcher.Conditional)
	}
	f.conds[rawURL] = cond

	if res, ok := f.results[rawURL]; ok {
		return res, nil
	}
	return &fetcher.Result{URL: rawURL, Reason: domain.ReasonNetworkError}, nil
}

type fakePageStore struct {
	saved  []*domain.ScrapedPage
	latest map[string]*domain.ScrapedPage
	fresh  []*domain.ScrapedPage

	// dupID simulates an identical body already stored under another
	// venue; Save reuses that row.
	dupID int64
}

func (s *fakePageStore) Save(_ context.Context, page *domain.ScrapedPage) (bool, error) {
	s.saved = append(s.saved, page)
	if s.dupID != 0 && page.ContentHash != "" {
		page.PageID = s.dupID
		return true, nil
	}
	return false, nil
}

func (s *fakePageStore) GetLatestByURL(_ context.Context, _, url string) (*domain.ScrapedPage, error) {
	return s.latest[url], nil
}

func (s *fakePageStore) GetFreshByVenue(_ context.Context, _ string) ([]*domain.ScrapedPage, error) {
	return s.fresh, nil
}

func okResult(url, html string) *fetcher.Result {
	return &fetcher.Result{
		URL:         url,
		Status:      200,
		ContentType: "text/html",
		Body:        []byte(html),
		CleanedText: "Welcome to the venue.",
		ContentHash: "hash-" + url,
		SizeBytes:   len(html),
	}
}

func newTestOrchestrator(f Fetcher, pages PageStore) *Orchestrator {
	return newTestOrchestratorBudget(f, pages, 0)
}

func newTestOrchestratorBudget(f Fetcher, pages PageStore, budget time.Duration) *Orchestrator {
	recovery := NewRecovery(&fakeRecoveryStore{}, &fakeVenueWriter{}, logger.NewNop())
	return NewOrchestrator(f, pages, recovery, budget, logger.NewNop())
}

func websiteVenue(url string) *domain.Venue {
	return &domain.Venue{VenueID: "v1", Name: "Venue", Website: &url}
}

func TestCrawlNoWebsite(t *testing.T) {
	f := &fakeFetcher{}
	store := &fakePageStore{}
	o := newTestOrchestrator(f, store)

	result, err := o.Crawl(context.Background(), &domain.Venue{VenueID: "v1"})
	require.NoError(t, err)

	assert.Equal(t, domain.ReasonNoWebsite, result.FailReason)
	assert.False(t, result.OK())
	assert.Empty(t, store.saved)
}

func TestCrawlHomepageFailureFailsCrawl(t *testing.T) {
	f := &fakeFetcher{results: map[string]*fetcher.Result{
		"https://venue.example/": {
			URL:    "https://venue.example/",
			Status: 503,
			Reason: domain.ReasonHTTP5xx,
		},
	}}
	store := &fakePageStore{}
	o := newTestOrchestrator(f, store)

	result, err := o.Crawl(context.Background(), websiteVenue("https://venue.example/"))
	require.NoError(t, err)

	assert.Equal(t, domain.ReasonHTTP5xx, result.FailReason)
	assert.Empty(t, result.Pages)

	// The failure row is still persisted for diagnosis.
	require.Len(t, store.saved, 1)
	require.NotNil(t, store.saved[0].Reason)
	assert.Equal(t, domain.ReasonHTTP5xx, *store.saved[0].Reason)
}

func TestCrawlFetchesTargets(t *testing.T) {
	f := &fakeFetcher{results: map[string]*fetcher.Result{
		"https://venue.example/":              okResult("https://venue.example/", homeHTML),
		"https://venue.example/opening-times": okResult("https://venue.example/opening-times", "<html><body>Monday 9:00 - 17:00</body></html>"),
		"https://venue.example/menu":          okResult("https://venue.example/menu", "<html><body>Margherita £9.50</body></html>"),
		"https://venue.example/contact":       okResult("https://venue.example/contact", "<html><body>Call us</body></html>"),
	}}
	store := &fakePageStore{}
	o := newTestOrchestrator(f, store)

	result, err := o.Crawl(context.Background(), websiteVenue("https://venue.example/"))
	require.NoError(t, err)

	assert.True(t, result.OK())
	assert.Equal(t, 4, result.Fetched)
	assert.Len(t, result.Pages, 4)
	assert.Zero(t, result.Aborted)

	types := make(map[string]bool)
	for _, p := range result.Pages {
		types[p.PageType] = true
	}
	assert.True(t, types[domain.PageTypeHomepage])
	assert.True(t, types[domain.PageTypeHours])
	assert.True(t, types[domain.PageTypeMenu])
	assert.True(t, types[domain.PageTypeContact])
}

func TestCrawlTargetFailureDoesNotFailCrawl(t *testing.T) {
	f := &fakeFetcher{results: map[string]*fetcher.Result{
		"https://venue.example/": okResult("https://venue.example/", homeHTML),
		"https://venue.example/opening-times": {
			URL:    "https://venue.example/opening-times",
			Status: 200,
			Reason: domain.ReasonThinContent,
		},
		"https://venue.example/menu":    okResult("https://venue.example/menu", "<html><body>Menu</body></html>"),
		"https://venue.example/contact": okResult("https://venue.example/contact", "<html><body>Call</body></html>"),
	}}
	store := &fakePageStore{}
	o := newTestOrchestrator(f, store)

	result, err := o.Crawl(context.Background(), websiteVenue("https://venue.example/"))
	require.NoError(t, err)

	assert.True(t, result.OK())
	assert.Equal(t, 4, result.Fetched)
	// The failed target is persisted but not offered for unification.
	assert.Len(t, result.Pages, 3)
	assert.Len(t, store.saved, 4)
}

func TestCrawlDuplicateContentReusesStoredPage(t *testing.T) {
	f := &fakeFetcher{results: map[string]*fetcher.Result{
		"https://venue.example/": okResult("https://venue.example/",
			"<html><body><p>Welcome to the venue.</p></body></html>"),
	}}
	store := &fakePageStore{dupID: 42}
	o := newTestOrchestrator(f, store)

	result, err := o.Crawl(context.Background(), websiteVenue("https://venue.example/"))
	require.NoError(t, err)

	// A body already stored for another venue is not a failure; the
	// existing row is cited and the fetched text still feeds extraction.
	assert.True(t, result.OK())
	require.Len(t, result.Pages, 1)
	assert.Equal(t, int64(42), result.Pages[0].PageID)
	assert.Nil(t, result.Pages[0].Reason)
	assert.Equal(t, "Welcome to the venue.", result.Pages[0].CleanedText)
}

func TestCrawlTinyBudgetAbortsTargets(t *testing.T) {
	f := &fakeFetcher{results: map[string]*fetcher.Result{
		"https://venue.example/":              okResult("https://venue.example/", homeHTML),
		"https://venue.example/opening-times": okResult("https://venue.example/opening-times", "<html><body>Hours</body></html>"),
	}}
	store := &fakePageStore{}
	o := newTestOrchestratorBudget(f, store, time.Millisecond)

	result, err := o.Crawl(context.Background(), websiteVenue("https://venue.example/"))
	require.NoError(t, err)

	// The homepage lands but no target has enough headroom left.
	assert.True(t, result.OK())
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 3, result.Aborted)

	aborted := 0
	for _, p := range store.saved {
		if p.Reason != nil && *p.Reason == domain.ReasonTimeBudgetExceeded {
			aborted++
		}
	}
	assert.Equal(t, 3, aborted)
}

func TestCrawlMergesStoredFreshPages(t *testing.T) {
	storedHours := &domain.ScrapedPage{
		VenueID:     "v1",
		URL:         "https://venue.example/hours-archive",
		PageType:    domain.PageTypeHours,
		CleanedText: "Monday 9:00 - 17:00",
	}

	f := &fakeFetcher{results: map[string]*fetcher.Result{
		"https://venue.example/": okResult("https://venue.example/", "<html><body><p>Welcome to the venue.</p></body></html>"),
	}}
	store := &fakePageStore{fresh: []*domain.ScrapedPage{storedHours}}
	o := newTestOrchestrator(f, store)

	result, err := o.Crawl(context.Background(), websiteVenue("https://venue.example/"))
	require.NoError(t, err)

	require.Len(t, result.Pages, 2)
	assert.Equal(t, "https://venue.example/hours-archive", result.Pages[1].URL)
}

func TestCrawlConditionalRevalidation(t *testing.T) {
	etag := `"v1"`
	validUntil := time.Now().Add(-time.Hour)
	prior := &domain.ScrapedPage{
		VenueID:     "v1",
		URL:         "https://venue.example/menu",
		PageType:    domain.PageTypeMenu,
		CleanedText: "Margherita £9.50",
		ETag:        &etag,
		ValidUntil:  &validUntil,
	}

	f := &fakeFetcher{results: map[string]*fetcher.Result{
		"https://venue.example/": okResult("https://venue.example/",
			`<html><body><a href="/menu">Menu</a></body></html>`),
		"https://venue.example/menu": {
			URL:         "https://venue.example/menu",
			Status:      304,
			NotModified: true,
		},
	}}
	store := &fakePageStore{latest: map[string]*domain.ScrapedPage{
		"https://venue.example/menu": prior,
	}}
	o := newTestOrchestrator(f, store)

	result, err := o.Crawl(context.Background(), websiteVenue("https://venue.example/"))
	require.NoError(t, err)

	// Validators from the stored page were sent.
	require.NotNil(t, f.conds["https://venue.example/menu"])
	assert.Equal(t, etag, f.conds["https://venue.example/menu"].ETag)

	// The 304 refreshed the stored page and kept its extracted text.
	require.Len(t, result.Pages, 2)
	var menu *domain.ScrapedPage
	for _, p := range result.Pages {
		if p.PageType == domain.PageTypeMenu {
			menu = p
		}
	}
	require.NotNil(t, menu)
	assert.Equal(t, "Margherita £9.50", menu.CleanedText)
	require.NotNil(t, menu.ValidUntil)
	assert.True(t, menu.ValidUntil.After(time.Now()))
}

func TestTTLFor(t *testing.T) {
	assert.Equal(t, 3*24*time.Hour, TTLFor(domain.PageTypeHours))
	assert.Equal(t, 14*24*time.Hour, TTLFor(domain.PageTypeMenu))
	assert.Equal(t, 14*24*time.Hour, TTLFor(domain.PageTypeContact))
	assert.Equal(t, 14*24*time.Hour, TTLFor(domain.PageTypeFees))
	assert.Equal(t, 30*24*time.Hour, TTLFor(domain.PageTypeHomepage))
	assert.Equal(t, 30*24*time.Hour, TTLFor(domain.PageTypeOther))
}
