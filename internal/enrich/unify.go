package enrich

import (
	"sort"
	"strings"
	"time"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// Update is the set of enrichment writes produced by one job. Nil or
// empty fields are left untouched by the store; partial updates never
// clobber existing data.
type Update struct {
	VenueID string

	Hours       domain.Hours
	Contact     domain.JSONBMap
	Description *string
	Features    domain.StringSlice
	Amenities   domain.StringSlice
	MenuURL     *string
	MenuItems   domain.MenuItems
	PriceRange  *string
	Fees        *string

	// NotApplicable marks fields a source explicitly determined absent,
	// e.g. free entry means no fees.
	NotApplicable map[string]bool

	// Sources maps each updated field to its contributing page URLs.
	Sources domain.SourceMap

	// UpdatedFields lists field names written by this update, sorted.
	UpdatedFields []string

	Now time.Time
}

// Empty reports whether the update writes nothing.
func (u *Update) Empty() bool {
	return len(u.UpdatedFields) == 0
}

// pagePriority orders pages for precedence: dedicated target pages beat
// the homepage, and hours is the most trusted dedicated page.
var pagePriority = map[string]int{
	domain.PageTypeHours:    0,
	domain.PageTypeMenu:     1,
	domain.PageTypeContact:  2,
	domain.PageTypeFees:     3,
	domain.PageTypeAbout:    4,
	domain.PageTypeHomepage: 5,
	domain.PageTypeOther:    9,
}

// Unify merges extracted facts from the given pages into one update.
// Precedence per field: dedicated target page heuristics first, then
// structured data, then homepage free text; ties break by most recent
// fetch. Hours contradictions resolve to the more restrictive value.
func Unify(venueID string, pages []*domain.ScrapedPage, now time.Time) *Update {
	u := &Update{
		VenueID:       venueID,
		NotApplicable: map[string]bool{},
		Sources:       domain.SourceMap{},
		Now:           now,
	}

	sorted := make([]*domain.ScrapedPage, len(pages))
	copy(sorted, pages)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := pagePriority[sorted[i].PageType], pagePriority[sorted[j].PageType]
		if pi != pj {
			return pi < pj
		}
		return sorted[i].FetchedAt.After(sorted[j].FetchedAt)
	})

	var descCandidates []string
	hoursFromDedicated := false

	// Heuristic pass: dedicated pages have priority.
	for _, page := range sorted {
		facts := ExtractFacts(page)

		if facts.Hours != nil {
			if u.Hours == nil {
				u.Hours = facts.Hours
				hoursFromDedicated = page.PageType == domain.PageTypeHours
			} else {
				u.Hours = UnionHours(u.Hours, facts.Hours)
			}
			u.Sources.Append(domain.FieldHours, page.URL)
			u.markUpdated(domain.FieldHours)
		}

		if len(facts.Contact) > 0 {
			u.mergeContact(facts.Contact, page.URL)
		}

		if facts.MenuURL != "" && u.MenuURL == nil {
			u.MenuURL = ptr(facts.MenuURL)
			u.Sources.Append(domain.FieldMenu, page.URL)
			u.markUpdated(domain.FieldMenu)
		}
		if len(facts.MenuItems) > 0 && u.MenuItems == nil {
			u.MenuItems = facts.MenuItems
			u.Sources.Append(domain.FieldMenu, page.URL)
			u.markUpdated(domain.FieldMenu)
		}

		if facts.PriceRange != "" && u.PriceRange == nil {
			u.PriceRange = ptr(facts.PriceRange)
			u.Sources.Append(domain.FieldPrice, page.URL)
			u.markUpdated(domain.FieldPrice)
		}

		if len(facts.Features) > 0 {
			u.mergeFeatures(facts.Features, page.URL)
		}

		if facts.FreeEntry && u.Fees == nil {
			u.NotApplicable[domain.FieldFees] = true
			u.Sources.Append(domain.FieldFees, page.URL)
			u.markUpdated(domain.FieldFees)
		} else if facts.Fees != "" && u.Fees == nil && !u.NotApplicable[domain.FieldFees] {
			u.Fees = ptr(facts.Fees)
			u.Sources.Append(domain.FieldFees, page.URL)
			u.markUpdated(domain.FieldFees)
		}

		if facts.Description != "" {
			descCandidates = append(descCandidates, facts.Description)
			u.Sources.Append(domain.FieldDescription, page.URL)
		}
	}

	// Structured-data pass: schema.org complements the holes.
	for _, page := range sorted {
		if len(page.RawHTML) == 0 {
			continue
		}
		schema, err := ParseSchemaOrg(page.RawHTML)
		if err != nil || schema.Empty() {
			continue
		}

		if schema.Hours != nil {
			if u.Hours == nil {
				u.Hours = schema.Hours
			} else if hoursFromDedicated {
				// A dedicated hours page outranks markup; contradictions
				// narrow to the intersection.
				u.Hours = IntersectHours(u.Hours, schema.Hours)
			} else {
				u.Hours = UnionHours(u.Hours, schema.Hours)
			}
			u.Sources.Append(domain.FieldHours, page.URL)
			u.markUpdated(domain.FieldHours)
		}

		if len(schema.Contact) > 0 {
			u.mergeContactComplement(schema.Contact, page.URL)
		}

		if schema.MenuURL != "" && u.MenuURL == nil {
			u.MenuURL = ptr(schema.MenuURL)
			u.Sources.Append(domain.FieldMenu, page.URL)
			u.markUpdated(domain.FieldMenu)
		}

		if schema.PriceRange != "" && u.PriceRange == nil {
			u.PriceRange = ptr(schema.PriceRange)
			u.Sources.Append(domain.FieldPrice, page.URL)
			u.markUpdated(domain.FieldPrice)
		}

		if len(schema.Amenities) > 0 {
			u.Amenities = domain.StringSlice(sortedUnion(u.Amenities, schema.Amenities))
			u.Sources.Append(domain.FieldFeatures, page.URL)
			u.markUpdated(domain.FieldFeatures)
		}

		if schema.FreeEntry && u.Fees == nil {
			u.NotApplicable[domain.FieldFees] = true
			u.Sources.Append(domain.FieldFees, page.URL)
			u.markUpdated(domain.FieldFees)
		} else if schema.Fees != "" && u.Fees == nil && !u.NotApplicable[domain.FieldFees] {
			u.Fees = ptr(schema.Fees)
			u.Sources.Append(domain.FieldFees, page.URL)
			u.markUpdated(domain.FieldFees)
		}

		if schema.Description != "" {
			// schema descriptions lead the assembly order
			descCandidates = append([]string{schema.Description}, descCandidates...)
			u.Sources.Append(domain.FieldDescription, page.URL)
		}
	}

	if desc := BuildDescription(descCandidates); desc != "" {
		u.Description = ptr(desc)
		u.markUpdated(domain.FieldDescription)
	} else {
		delete(u.Sources, domain.FieldDescription)
	}

	sort.Strings(u.UpdatedFields)
	return u
}

// mergeContact dict-merges heuristic contact keys, later pages never
// overwriting earlier higher-precedence ones.
func (u *Update) mergeContact(contact map[string]any, url string) {
	if u.Contact == nil {
		u.Contact = domain.JSONBMap{}
	}
	changed := false
	for key, value := range contact {
		if _, exists := u.Contact[key]; !exists {
			u.Contact[key] = value
			changed = true
		}
	}
	if changed {
		u.Sources.Append(domain.FieldContact, url)
		u.markUpdated(domain.FieldContact)
	}
}

// mergeContactComplement fills contact keys still missing after the
// heuristic pass.
func (u *Update) mergeContactComplement(contact map[string]any, url string) {
	u.mergeContact(contact, url)
}

func (u *Update) mergeFeatures(features []string, url string) {
	u.Features = domain.StringSlice(sortedUnion(u.Features, features))
	u.Sources.Append(domain.FieldFeatures, url)
	u.markUpdated(domain.FieldFeatures)
}

func (u *Update) markUpdated(field string) {
	for _, f := range u.UpdatedFields {
		if f == field {
			return
		}
	}
	u.UpdatedFields = append(u.UpdatedFields, field)
}

// Description bounds. The field is assembled from verbatim sentences
// only, truncated at a sentence boundary past the upper bound.
const (
	descMinWords = 100
	descMaxWords = 140
)

var sentenceEndRe = "!?."

// BuildDescription concatenates candidate sentences verbatim until the
// word budget is met. Material past the bound is dropped at the nearest
// sentence boundary. Sources too thin to reach the minimum yield an
// empty string; the field stays unset rather than carrying a fragment.
func BuildDescription(candidates []string) string {
	var sentences []string
	seen := map[string]struct{}{}

	for _, cand := range candidates {
		for _, s := range splitSentences(cand) {
			key := strings.ToLower(s)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			sentences = append(sentences, s)
		}
	}

	var out []string
	words := 0
	for _, s := range sentences {
		n := len(strings.Fields(s))
		if words > 0 && words+n > descMaxWords {
			break
		}
		out = append(out, s)
		words += n
		if words >= descMinWords {
			break
		}
	}

	if words < descMinWords {
		return ""
	}
	return strings.Join(out, " ")
}

// splitSentences breaks text on sentence-ending punctuation, keeping the
// terminator with the sentence.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder

	for _, r := range text {
		b.WriteRune(r)
		if strings.ContainsRune(sentenceEndRe, r) {
			s := strings.TrimSpace(b.String())
			if len(s) >= 20 {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); len(s) >= 20 {
		out = append(out, s+".")
	}

	return out
}

func sortedUnion(a []string, b []string) []string {
	merged := dedupeStrings(append(append([]string{}, a...), b...))
	sort.Strings(merged)
	return merged
}

func ptr[T any](v T) *T {
	return &v
}
