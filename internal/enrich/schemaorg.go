package enrich

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// SchemaFacts is the normalized output of the structured-data path for
// one page. All fields are optional.
type SchemaFacts struct {
	Hours       domain.Hours
	Contact     map[string]any
	Description string
	PriceRange  string
	Amenities   []string
	Fees        string
	MenuURL     string
	FreeEntry   bool
}

// Empty reports whether no fact was found.
func (s *SchemaFacts) Empty() bool {
	return s.Hours == nil && len(s.Contact) == 0 && s.Description == "" &&
		s.PriceRange == "" && len(s.Amenities) == 0 && s.Fees == "" &&
		s.MenuURL == "" && !s.FreeEntry
}

// ParseSchemaOrg extracts and normalizes JSON-LD blocks from raw HTML.
func ParseSchemaOrg(html []byte) (*SchemaFacts, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html for json-ld: %w", err)
	}

	res := &SchemaFacts{}
	var social []string

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var raw any
		if unmarshalErr := json.Unmarshal([]byte(sel.Text()), &raw); unmarshalErr != nil {
			return
		}

		for _, block := range flattenBlocks(raw) {
			mergeBlock(res, &social, block)
		}
	})

	if len(social) > 0 {
		if res.Contact == nil {
			res.Contact = map[string]any{}
		}
		res.Contact["social"] = dedupeStrings(social)
	}

	return res, nil
}

// flattenBlocks unwraps top-level arrays and @graph containers into a
// flat list of JSON-LD objects.
func flattenBlocks(raw any) []map[string]any {
	var out []map[string]any

	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			out = append(out, flattenBlocks(item)...)
		}
	case map[string]any:
		out = append(out, v)
		if graph, ok := v["@graph"]; ok {
			out = append(out, flattenBlocks(graph)...)
		}
	}

	return out
}

// mergeBlock folds one JSON-LD object into the accumulated facts.
func mergeBlock(res *SchemaFacts, social *[]string, block map[string]any) {
	if tel := stringField(block, "telephone", "tel"); tel != "" {
		setContact(res, "phone", tel)
	}
	if email := stringField(block, "email"); email != "" {
		setContact(res, "email", email)
	}
	if site := stringField(block, "url"); site != "" {
		setContact(res, "website", site)
	}
	for _, s := range coerceList(block["sameAs"]) {
		if str, ok := s.(string); ok && strings.TrimSpace(str) != "" {
			*social = append(*social, strings.TrimSpace(str))
		}
	}

	if desc := stringField(block, "description"); len(desc) >= 30 {
		res.Description = desc
	}

	if pr := stringField(block, "priceRange"); pr != "" {
		res.PriceRange = pr
	}

	if menuURL := menuField(block); menuURL != "" {
		res.MenuURL = menuURL
	}

	if hours := parseOpeningHours(coerceList(block["openingHoursSpecification"])); hours != nil {
		res.Hours = UnionHours(res.Hours, hours)
	}

	if amenities := parseAmenities(coerceList(block["amenityFeature"])); len(amenities) > 0 {
		res.Amenities = dedupeStrings(append(res.Amenities, amenities...))
	}

	offers := block["offers"]
	if offers == nil {
		offers = block["aggregateOffer"]
	}
	if fees, free := parseOffers(coerceList(offers)); fees != "" || free {
		res.Fees = fees
		res.FreeEntry = free
	}
}

// parseOpeningHours normalizes openingHoursSpecification entries.
func parseOpeningHours(specs []any) domain.Hours {
	out := domain.Hours{}

	for _, s := range specs {
		spec, ok := s.(map[string]any)
		if !ok {
			continue
		}

		opens := NormalizeHHMM(stringField(spec, "opens"))
		closes := NormalizeHHMM(stringField(spec, "closes"))
		if opens == "" || closes == "" {
			continue
		}

		for _, d := range coerceList(spec["dayOfWeek"]) {
			day := normalizeDayValue(d)
			if day == "" {
				continue
			}
			out[day] = appendRange(out[day], [2]string{opens, closes})
		}
	}

	if out.IsZero() {
		return nil
	}
	return out
}

// normalizeDayValue accepts both string day names and DayOfWeek objects.
func normalizeDayValue(d any) string {
	switch v := d.(type) {
	case string:
		return NormalizeDay(v)
	case map[string]any:
		if name := stringField(v, "name"); name != "" {
			return NormalizeDay(name)
		}
	}
	return ""
}

// parseAmenities pulls amenity names from amenityFeature entries.
func parseAmenities(feats []any) []string {
	var names []string
	for _, f := range feats {
		feat, ok := f.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(feat, "name", "propertyID", "description")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseOffers joins offer prices into a fee line. A zero price marks free
// entry, which the unifier stores as fees not-applicable.
func parseOffers(offers []any) (string, bool) {
	var parts []string
	free := false

	for _, o := range offers {
		offer, ok := o.(map[string]any)
		if !ok {
			continue
		}

		price := stringOrNumber(offer["price"])
		if price == "" {
			price = stringOrNumber(offer["lowPrice"])
		}
		currency := stringField(offer, "priceCurrency")
		category := stringField(offer, "category", "name")

		if price == "0" || price == "0.00" || strings.EqualFold(price, "free") {
			free = true
			continue
		}
		if price == "" || currency == "" {
			continue
		}

		frag := currency + " " + price
		if category != "" {
			frag = category + ": " + frag
		}
		parts = append(parts, frag)
	}

	return strings.Join(parts, "; "), free
}

// menuField resolves menu / hasMenu as either a URL string or an object
// with a url property.
func menuField(block map[string]any) string {
	for _, key := range []string{"menu", "hasMenu"} {
		switch v := block[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case map[string]any:
			if u := stringField(v, "url"); u != "" {
				return u
			}
		}
	}
	return ""
}

func setContact(res *SchemaFacts, key, value string) {
	if res.Contact == nil {
		res.Contact = map[string]any{}
	}
	res.Contact[key] = value
}

// stringField returns the first non-empty string among the keys.
func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// stringOrNumber renders a JSON string or number value as a string.
func stringOrNumber(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	}
	return ""
}

func coerceList(v any) []any {
	if v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
