package enrich

import (
	"fmt"
	"strings"

	"github.com/jonesrussell/venuescout/internal/domain"
)

const summaryMaxWords = 140

// Summarize builds the result-card summary from known fields only. No
// generation: every fragment is a formatted rendering of stored data.
func Summarize(venue *domain.Venue, e *domain.Enrichment) string {
	var parts []string

	lead := venue.Name
	if venue.CategoryName != nil && *venue.CategoryName != "" {
		lead += " - " + *venue.CategoryName
	}
	parts = append(parts, lead+".")

	if e != nil {
		if e.Description != nil && *e.Description != "" {
			parts = append(parts, strings.TrimSpace(*e.Description))
		}

		var line []string
		if hours := summaryHours(e.Hours); hours != "" {
			line = append(line, "Hours: "+hours+".")
		}
		if phone, ok := e.ContactDetails["phone"].(string); ok && phone != "" {
			line = append(line, "Phone: "+phone+".")
		}
		if site, ok := e.ContactDetails["website"].(string); ok && site != "" {
			line = append(line, "Website: "+site+".")
		}
		if len(line) > 0 {
			parts = append(parts, strings.Join(line, " "))
		}

		if e.MenuURL != nil && *e.MenuURL != "" {
			menu := "Menu available: " + *e.MenuURL + "."
			if e.PriceRange != nil && *e.PriceRange != "" {
				menu += " Price range: " + *e.PriceRange + "."
			}
			parts = append(parts, menu)
		} else if e.PriceRange != nil && *e.PriceRange != "" {
			parts = append(parts, "Price range: "+*e.PriceRange+".")
		}

		if e.Fees != nil && *e.Fees != "" {
			parts = append(parts, "Tickets/fees: "+*e.Fees+".")
		}

		features := e.Features
		if len(features) == 0 {
			features = e.Amenities
		}
		if len(features) > 0 {
			capped := features
			if len(capped) > 5 {
				capped = capped[:5]
			}
			parts = append(parts, "Features: "+strings.Join(capped, ", ")+".")
		}

		if n := e.Sources.CountDistinct(); n > 0 {
			parts = append(parts, fmt.Sprintf("Sourced from %d page(s) on the venue site.", n))
		}
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	words := strings.Fields(text)
	if len(words) > summaryMaxWords {
		text = strings.Join(words[:summaryMaxWords], " ")
	}
	return text
}

// summaryHours renders up to four day spans for brevity.
func summaryHours(h domain.Hours) string {
	if h == nil {
		return ""
	}

	var spans []string
	for _, day := range domain.Weekdays {
		ranges, ok := h[day]
		if !ok || len(ranges) == 0 {
			continue
		}

		capped := ranges
		if len(capped) > 2 {
			capped = capped[:2]
		}
		var rendered []string
		for _, r := range capped {
			rendered = append(rendered, r[0]+"-"+r[1])
		}

		spans = append(spans, strings.ToUpper(day[:1])+day[1:]+" "+strings.Join(rendered, "/"))
		if len(spans) == 4 {
			break
		}
	}

	return strings.Join(spans, "; ")
}
