// Package domain defines the core data types shared across the service:
// venues, scraped pages, enrichment rows, crawl jobs and their JSONB
// column representations.
package domain

import "time"

// Venue is a physical place from the baseline POI import. Coordinates are
// WGS-84. Website and LastEnrichedAt are the only columns mutated by the
// enrichment pipeline.
type Venue struct {
	VenueID        string     `db:"venue_id" json:"venue_id"`
	Name           string     `db:"name" json:"name"`
	CategoryName   *string    `db:"category_name" json:"category_name,omitempty"`
	CategoryWeight *float64   `db:"category_weight" json:"category_weight,omitempty"`
	Lat            float64    `db:"lat" json:"lat"`
	Lon            float64    `db:"lon" json:"lon"`
	Website        *string    `db:"website" json:"website,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Popularity     *float64   `db:"popularity_confidence" json:"popularity,omitempty"`
	LastEnrichedAt *time.Time `db:"last_enriched_at" json:"last_enriched_at,omitempty"`
}

// PopularityOrZero returns the popularity confidence, treating null as
// lowest rather than middle.
func (v *Venue) PopularityOrZero() float64 {
	if v.Popularity == nil {
		return 0
	}
	return *v.Popularity
}

// RecoveryCandidate is the audit trail for inferred website URLs.
type RecoveryCandidate struct {
	VenueID    string  `db:"venue_id"`
	URL        string  `db:"url"`
	Confidence float64 `db:"confidence"`
	Method     string  `db:"method"`
	IsChosen   bool    `db:"is_chosen"`
}

// RecoveryMethodEmailDomain marks a candidate inferred from the venue's
// email domain.
const RecoveryMethodEmailDomain = "email_domain"
