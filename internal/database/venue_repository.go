package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// VenueRepository reads the venue baseline and writes recovered websites.
type VenueRepository struct {
	db *sqlx.DB
}

// NewVenueRepository creates a new VenueRepository.
func NewVenueRepository(db *sqlx.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

const venueColumns = `venue_id, name, category_name, category_weight, lat, lon,
	website, email, popularity_confidence, last_enriched_at`

// GetByID returns one venue.
func (r *VenueRepository) GetByID(ctx context.Context, venueID string) (*domain.Venue, error) {
	var venue domain.Venue
	err := r.db.GetContext(ctx, &venue,
		`SELECT `+venueColumns+` FROM venues WHERE venue_id = $1`, venueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return &venue, nil
}

// UpdateWebsite sets a venue's website, normally from recovery.
func (r *VenueRepository) UpdateWebsite(ctx context.Context, venueID, website string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE venues SET website = $2 WHERE venue_id = $1`, venueID, website)
	return execRequireRows(result, err, ErrVenueNotFound)
}

// NearbyVenue is a venue plus its distance from the query point.
type NearbyVenue struct {
	domain.Venue
	DistanceM float64 `db:"distance_m"`
}

// SearchNearby returns venues within radiusM meters of the point, nearest
// first, optionally filtered by trigram name match or category.
func (r *VenueRepository) SearchNearby(ctx context.Context, lat, lon float64, radiusM, limit int, nameQuery, category string) ([]*NearbyVenue, error) {
	query := `
		SELECT ` + venueColumns + `,
		       ST_Distance(geog, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography) AS distance_m
		FROM venues
		WHERE ST_DWithin(geog, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography, $3)`
	args := []any{lat, lon, radiusM}

	if nameQuery != "" {
		args = append(args, nameQuery)
		query += fmt.Sprintf(" AND name %% $%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category_name = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY distance_m ASC LIMIT $%d", len(args))

	var venues []*NearbyVenue
	if err := r.db.SelectContext(ctx, &venues, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search venues: %w", err)
	}
	return venues, nil
}

// SearchNearbySemantic ranks venues within the radius by cosine distance
// between their stored embedding and the query vector. Venues without an
// embedding sort last, by geographic distance.
func (r *VenueRepository) SearchNearbySemantic(ctx context.Context, lat, lon float64, radiusM, limit int, queryVec pgvector.Vector) ([]*NearbyVenue, error) {
	var venues []*NearbyVenue
	if err := r.db.SelectContext(ctx, &venues, `
		SELECT v.venue_id, v.name, v.category_name, v.category_weight, v.lat, v.lon,
		       v.website, v.email, v.popularity_confidence, v.last_enriched_at,
		       ST_Distance(v.geog, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography) AS distance_m
		FROM venues v
		LEFT JOIN embeddings e USING (venue_id)
		WHERE ST_DWithin(v.geog, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography, $3)
		ORDER BY (e.embedding IS NULL) ASC,
		         e.embedding <=> $4 ASC,
		         distance_m ASC
		LIMIT $5`, lat, lon, radiusM, queryVec, limit); err != nil {
		return nil, fmt.Errorf("failed to search venues semantically: %w", err)
	}
	return venues, nil
}

// SelectStaleForBackground returns up to limit venues with a website and
// at least one enrichment field past its freshness window. Venues never
// enriched count as stale in every field. Venues above the popularity
// percentile cut sort first, but staleness alone qualifies a venue; the
// cut is a ranking boost, not a filter. Venues with a pending or running
// job are excluded.
func (r *VenueRepository) SelectStaleForBackground(ctx context.Context, percentile float64, hoursDays, targetDays, stableDays, limit int) ([]*domain.Venue, error) {
	var venues []*domain.Venue
	if err := r.db.SelectContext(ctx, &venues, `
		WITH cut AS (
		    SELECT percentile_disc($1) WITHIN GROUP (ORDER BY popularity_confidence) AS p
		    FROM venues
		    WHERE website IS NOT NULL AND popularity_confidence IS NOT NULL
		)
		SELECT v.venue_id, v.name, v.category_name, v.category_weight, v.lat, v.lon,
		       v.website, v.email, v.popularity_confidence, v.last_enriched_at
		FROM venues v
		LEFT JOIN enrichment en USING (venue_id)
		CROSS JOIN cut
		WHERE v.website IS NOT NULL
		  AND (en.venue_id IS NULL
		       OR v.last_enriched_at IS NULL
		       OR en.hours_last_updated < NOW() - ($2 * INTERVAL '1 day')
		       OR en.contact_last_updated < NOW() - ($3 * INTERVAL '1 day')
		       OR en.menu_last_updated < NOW() - ($3 * INTERVAL '1 day')
		       OR en.price_last_updated < NOW() - ($3 * INTERVAL '1 day')
		       OR en.fees_last_updated < NOW() - ($3 * INTERVAL '1 day')
		       OR en.description_last_updated < NOW() - ($4 * INTERVAL '1 day')
		       OR en.features_last_updated < NOW() - ($4 * INTERVAL '1 day'))
		  AND NOT EXISTS (
		      SELECT 1 FROM crawl_jobs cj
		      WHERE cj.venue_id = v.venue_id AND cj.state IN ('pending', 'running'))
		ORDER BY (COALESCE(v.popularity_confidence, 0) >= COALESCE(cut.p, 0)) DESC,
		         v.popularity_confidence DESC NULLS LAST,
		         v.last_enriched_at ASC NULLS FIRST
		LIMIT $5`, percentile, hoursDays, targetDays, stableDays, limit); err != nil {
		return nil, fmt.Errorf("failed to select stale venues: %w", err)
	}
	return venues, nil
}
