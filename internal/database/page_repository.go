package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// PageRepository persists fetch outcomes, success and failure alike.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository creates a new PageRepository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

const pageColumns = `page_id, venue_id, url, page_type, fetched_at, valid_until,
	http_status, content_type, content_hash, cleaned_text, discovery,
	redirect_chain, reason, size_bytes, total_ms, first_byte_ms, etag, last_modified`

const insertPageSQL = `
	INSERT INTO scraped_pages (
		venue_id, url, page_type, fetched_at, valid_until, http_status,
		content_type, content_hash, cleaned_text, discovery, redirect_chain,
		reason, size_bytes, total_ms, first_byte_ms, etag, last_modified
	) VALUES (
		:venue_id, :url, :page_type, :fetched_at, :valid_until, :http_status,
		:content_type, :content_hash, :cleaned_text, :discovery, :redirect_chain,
		:reason, :size_bytes, :total_ms, :first_byte_ms, :etag, :last_modified
	) RETURNING page_id`

// Save persists a fetch record. Identical content already stored for the
// same venue and URL refreshes the existing row in place. Identical
// content stored under another venue or URL creates no second row: the
// existing page is reused and its id is set on the page. Returns true
// when the page was deduplicated against an existing row.
func (r *PageRepository) Save(ctx context.Context, page *domain.ScrapedPage) (bool, error) {
	if page.ContentHash != "" {
		var existing struct {
			PageID  int64  `db:"page_id"`
			VenueID string `db:"venue_id"`
			URL     string `db:"url"`
		}
		err := r.db.GetContext(ctx, &existing, `
			SELECT page_id, venue_id, url FROM scraped_pages
			WHERE content_hash = $1`, page.ContentHash)
		switch {
		case err == nil && existing.VenueID == page.VenueID && existing.URL == page.URL:
			return false, r.refresh(ctx, existing.PageID, page)
		case err == nil:
			page.PageID = existing.PageID
			return true, nil
		case !errors.Is(err, sql.ErrNoRows):
			return false, fmt.Errorf("failed to check content hash: %w", err)
		}
	}

	rows, err := r.db.NamedQueryContext(ctx, insertPageSQL, page)
	if err != nil {
		return false, fmt.Errorf("failed to insert page: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if scanErr := rows.Scan(&page.PageID); scanErr != nil {
			return false, fmt.Errorf("failed to scan page id: %w", scanErr)
		}
	}

	return false, nil
}

// refresh updates an unchanged page's freshness metadata without touching
// the stored body.
func (r *PageRepository) refresh(ctx context.Context, pageID int64, page *domain.ScrapedPage) error {
	page.PageID = pageID
	if _, err := r.db.ExecContext(ctx, `
		UPDATE scraped_pages
		SET fetched_at = $2, valid_until = $3, http_status = $4, total_ms = $5,
		    first_byte_ms = $6, etag = $7, last_modified = $8, reason = NULL
		WHERE page_id = $1`,
		pageID, page.FetchedAt, page.ValidUntil, page.HTTPStatus,
		page.TotalMS, page.FirstByteMS, page.ETag, page.LastModified); err != nil {
		return fmt.Errorf("failed to refresh page: %w", err)
	}
	return nil
}

// GetFreshByVenue returns the venue's successfully fetched pages that are
// still within their TTL, one row per page type and URL.
func (r *PageRepository) GetFreshByVenue(ctx context.Context, venueID string) ([]*domain.ScrapedPage, error) {
	var pages []*domain.ScrapedPage
	if err := r.db.SelectContext(ctx, &pages, `
		SELECT `+pageColumns+`
		FROM scraped_pages
		WHERE venue_id = $1
		  AND reason IS NULL
		  AND valid_until > NOW()
		ORDER BY page_type, fetched_at DESC`, venueID); err != nil {
		return nil, fmt.Errorf("failed to get fresh pages: %w", err)
	}
	return pages, nil
}

// GetLatestByURL returns the most recent record for a venue and URL, used
// for conditional refetches. Returns nil when never fetched.
func (r *PageRepository) GetLatestByURL(ctx context.Context, venueID, url string) (*domain.ScrapedPage, error) {
	var page domain.ScrapedPage
	err := r.db.GetContext(ctx, &page, `
		SELECT `+pageColumns+`
		FROM scraped_pages
		WHERE venue_id = $1 AND url = $2
		ORDER BY fetched_at DESC
		LIMIT 1`, venueID, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page by url: %w", err)
	}
	return &page, nil
}
