package domain

import "time"

// Page types for scraped pages. The order of targetTypePriority is the
// crawl preference order used by the link finder.
const (
	PageTypeHomepage = "homepage"
	PageTypeHours    = "hours"
	PageTypeMenu     = "menu"
	PageTypeContact  = "contact"
	PageTypeAbout    = "about"
	PageTypeFees     = "fees"
	PageTypeOther    = "other"
)

// Discovery provenance for scraped pages.
const (
	DiscoveryDirectURL = "direct_url"
	DiscoverySearchAPI = "search_api"
	DiscoveryHeuristic = "heuristic"
)

// TargetPageTypes lists crawlable target types in preference order.
var TargetPageTypes = []string{
	PageTypeHours,
	PageTypeMenu,
	PageTypeContact,
	PageTypeAbout,
	PageTypeFees,
}

// ValidPageType reports whether t is a known page type.
func ValidPageType(t string) bool {
	switch t {
	case PageTypeHomepage, PageTypeHours, PageTypeMenu, PageTypeContact,
		PageTypeAbout, PageTypeFees, PageTypeOther:
		return true
	}
	return false
}

// ScrapedPage is one fetched URL. ContentHash is unique across the table
// so identical bodies across venues collapse to one row.
type ScrapedPage struct {
	PageID       int64       `db:"page_id"`
	VenueID      string      `db:"venue_id"`
	URL          string      `db:"url"`
	PageType     string      `db:"page_type"`
	FetchedAt    time.Time   `db:"fetched_at"`
	ValidUntil   *time.Time  `db:"valid_until"`
	HTTPStatus   int         `db:"http_status"`
	ContentType  string      `db:"content_type"`
	ContentHash  string      `db:"content_hash"`
	CleanedText  string      `db:"cleaned_text"`
	Discovery    string      `db:"discovery"`
	RedirectTo   StringSlice `db:"redirect_chain"`
	Reason       *string     `db:"reason"`
	SizeBytes    int         `db:"size_bytes"`
	TotalMS      int         `db:"total_ms"`
	FirstByteMS  int         `db:"first_byte_ms"`
	ETag         *string     `db:"etag"`
	LastModified *string     `db:"last_modified"`

	// RawHTML is the undecoded body held in memory for the duration of one
	// crawl. It is never persisted; extraction of structured data needs the
	// markup, while the store only keeps cleaned text.
	RawHTML []byte `db:"-" json:"-"`
}

// Fresh reports whether the page is still within its TTL at the given time.
func (p *ScrapedPage) Fresh(now time.Time) bool {
	return p.ValidUntil != nil && now.Before(*p.ValidUntil)
}
