package enrich

import (
	"strings"
	"time"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// Windows holds the per-field freshness windows.
type Windows struct {
	HoursDays            int
	MenuContactPriceDays int
	DescFeaturesDays     int
}

// WindowFor returns the freshness window for a field.
func (w Windows) WindowFor(field string) time.Duration {
	const day = 24 * time.Hour
	switch field {
	case domain.FieldHours:
		return time.Duration(w.HoursDays) * day
	case domain.FieldMenu, domain.FieldContact, domain.FieldPrice, domain.FieldFees:
		return time.Duration(w.MenuContactPriceDays) * day
	default:
		return time.Duration(w.DescFeaturesDays) * day
	}
}

// Category groups for the freshness report; each group names the fields a
// complete entry of that kind should carry.
var categoryRequiredFields = map[string][]string{
	"restaurant": {
		domain.FieldHours, domain.FieldMenu, domain.FieldContact, domain.FieldPrice,
	},
	"accommodation": {
		domain.FieldHours, domain.FieldContact, domain.FieldFeatures,
	},
	"attraction": {
		domain.FieldHours, domain.FieldFees, domain.FieldContact,
	},
	"general": {
		domain.FieldHours, domain.FieldContact, domain.FieldDescription,
	},
}

// restaurant-ish category name fragments
var restaurantHints = []string{
	"restaurant", "cafe", "café", "bar", "pub", "bistro", "pizzeria",
	"diner", "bakery", "coffee",
}

var accommodationHints = []string{
	"hotel", "hostel", "guesthouse", "b&b", "bed and breakfast", "lodge",
	"accommodation", "inn",
}

var attractionHints = []string{
	"museum", "gallery", "attraction", "park", "zoo", "aquarium",
	"monument", "landmark", "theatre", "theater", "castle",
}

// CategoryGroup maps a raw category name to a freshness group.
func CategoryGroup(categoryName string) string {
	lower := strings.ToLower(categoryName)
	for _, h := range restaurantHints {
		if strings.Contains(lower, h) {
			return "restaurant"
		}
	}
	for _, h := range accommodationHints {
		if strings.Contains(lower, h) {
			return "accommodation"
		}
	}
	for _, h := range attractionHints {
		if strings.Contains(lower, h) {
			return "attraction"
		}
	}
	return "general"
}

// Report is the per-venue freshness classification surfaced on result
// cards.
type Report struct {
	Missing        []string   `json:"missing"`
	Stale          []string   `json:"stale"`
	Fresh          []string   `json:"fresh"`
	LastEnrichedAt *time.Time `json:"last_enriched_at,omitempty"`
}

// NeedsCrawl reports whether any required field is missing or stale.
func (r *Report) NeedsCrawl() bool {
	return len(r.Missing) > 0 || len(r.Stale) > 0
}

// Freshness classifies each required field for the venue's category group
// as missing, stale or fresh at the given time.
func Freshness(venue *domain.Venue, e *domain.Enrichment, w Windows, now time.Time) *Report {
	group := "general"
	if venue.CategoryName != nil {
		group = CategoryGroup(*venue.CategoryName)
	}

	report := &Report{
		Missing: []string{},
		Stale:   []string{},
		Fresh:   []string{},
	}
	if venue.LastEnrichedAt != nil {
		report.LastEnrichedAt = venue.LastEnrichedAt
	}

	for _, field := range categoryRequiredFields[group] {
		if e == nil || !e.FieldPopulated(field) {
			report.Missing = append(report.Missing, field)
			continue
		}

		updatedAt := e.FieldUpdatedAt(field)
		if updatedAt == nil || now.Sub(*updatedAt) > w.WindowFor(field) {
			report.Stale = append(report.Stale, field)
			continue
		}

		report.Fresh = append(report.Fresh, field)
	}

	return report
}
