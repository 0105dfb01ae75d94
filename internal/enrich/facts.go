package enrich

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonesrussell/venuescout/internal/domain"
)

var (
	phoneRe    = regexp.MustCompile(`(\+?\d[\d\-\s()]{6,}\d)`)
	emailRe    = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	currencyRe = regexp.MustCompile(`([€£$])\s?(\d+(?:[.,]\d{1,2})?)`)
	priceTagRe = regexp.MustCompile(`(?i)price\s*range\s*[:\-]\s*([€£$]{1,4})`)
	nonPhoneRe = regexp.MustCompile(`[^\d+]`)

	// admission phrases that make a line a fee candidate
	feeKeywordRe = regexp.MustCompile(`(?i)\b(admission|ticket|tickets|entry|entrance|adults?|child(?:ren)?|concession)\b`)
	freeEntryRe  = regexp.MustCompile(`(?i)\bfree\s+(entry|admission|entrance)\b`)

	// menu item lines: "Name ..... £9.50" or "Name - 12€"
	menuItemRe = regexp.MustCompile(`^(.{3,60}?)[\s.\-–]{2,}([€£$]\s?\d+(?:[.,]\d{1,2})?)$`)
)

// featureHeadings mark list sections whose short bullets become features.
var featureHeadings = []string{
	"facilities", "amenities", "features", "services", "what we offer",
	"highlights",
}

// maxMenuItems caps how many menu lines one page may contribute.
const maxMenuItems = 50

// PageFacts is the heuristic extraction output for one page.
type PageFacts struct {
	Hours       domain.Hours
	Contact     map[string]any
	MenuURL     string
	MenuItems   []domain.MenuItem
	PriceRange  string
	Features    []string
	Fees        string
	FreeEntry   bool
	Description string
}

// ExtractFacts applies targeted regex and phrase matching to a page's
// cleaned text, keyed by page type.
func ExtractFacts(page *domain.ScrapedPage) *PageFacts {
	out := &PageFacts{}
	text := strings.TrimSpace(page.CleanedText)
	pageType := strings.ToLower(page.PageType)

	if text == "" {
		if pageType == domain.PageTypeMenu && page.URL != "" {
			out.MenuURL = page.URL
		}
		return out
	}

	lines := strings.Split(text, "\n")

	if email := emailRe.FindString(text); email != "" {
		setFact(&out.Contact, "email", email)
	}
	if m := phoneRe.FindStringSubmatch(text); m != nil {
		phone := nonPhoneRe.ReplaceAllString(m[1], "")
		if len(phone) >= 7 {
			setFact(&out.Contact, "phone", phone)
		}
	}

	switch pageType {
	case domain.PageTypeHours, domain.PageTypeContact, domain.PageTypeAbout, domain.PageTypeHomepage:
		out.Hours = ParseHoursText(text)
	}

	switch pageType {
	case domain.PageTypeFees, domain.PageTypeAbout, domain.PageTypeHomepage:
		out.Fees, out.FreeEntry = extractFees(lines)
	}

	if pageType == domain.PageTypeMenu {
		out.MenuURL = page.URL
		out.PriceRange = extractPriceRange(text)
		out.MenuItems = extractMenuItems(lines)
	}

	out.Features = extractFeatures(lines)
	out.Description = firstProseLine(lines)

	return out
}

// extractFees returns the shortest admission line carrying a currency
// amount, or the free-entry flag when the page states entry is free.
func extractFees(lines []string) (string, bool) {
	for _, line := range lines {
		if freeEntryRe.MatchString(line) {
			return "", true
		}
	}

	best := ""
	for _, line := range lines {
		if !currencyRe.MatchString(line) || !feeKeywordRe.MatchString(line) {
			continue
		}
		if best == "" || len(line) < len(best) {
			best = line
		}
	}

	if len(best) > 200 {
		best = best[:200]
	}
	return strings.TrimSpace(best), false
}

// extractPriceRange reads an explicit "price range: $$" tag, or infers a
// symbol band from the prices found on a menu page.
func extractPriceRange(text string) string {
	if m := priceTagRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	matches := currencyRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}

	symbol := matches[0][1]
	seen := make(map[float64]struct{})
	var sum float64
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
		if err != nil {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		sum += v
	}
	if len(seen) == 0 {
		return ""
	}

	avg := sum / float64(len(seen))
	switch {
	case avg < 10:
		return symbol
	case avg < 25:
		return strings.Repeat(symbol, 2)
	case avg < 45:
		return strings.Repeat(symbol, 3)
	default:
		return strings.Repeat(symbol, 4)
	}
}

// extractMenuItems matches name-price lines, capped at maxMenuItems.
func extractMenuItems(lines []string) []domain.MenuItem {
	var items []domain.MenuItem
	for _, line := range lines {
		m := menuItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		items = append(items, domain.MenuItem{
			Name:  strings.TrimSpace(m[1]),
			Price: strings.TrimSpace(m[2]),
		})
		if len(items) == maxMenuItems {
			break
		}
	}
	return items
}

// extractFeatures collects short bullet lines under feature headings.
func extractFeatures(lines []string) []string {
	var features []string
	inSection := false
	budget := 0

	for _, line := range lines {
		lower := strings.ToLower(line)

		heading := false
		for _, h := range featureHeadings {
			if len(line) < 40 && strings.Contains(lower, h) {
				heading = true
				break
			}
		}
		if heading {
			inSection = true
			budget = 12
			continue
		}

		if !inSection {
			continue
		}
		budget--
		if budget <= 0 {
			inSection = false
			continue
		}

		trimmed := strings.TrimLeft(line, "•*-– ")
		if len(trimmed) >= 3 && len(trimmed) <= 40 && !currencyRe.MatchString(trimmed) {
			features = append(features, trimmed)
		}
	}

	return dedupeStrings(features)
}

// firstProseLine returns the first line long enough to read as prose.
func firstProseLine(lines []string) string {
	for _, line := range lines {
		if len(line) >= 60 && len(line) <= 300 {
			return line
		}
	}
	return ""
}

func setFact(m *map[string]any, key, value string) {
	if *m == nil {
		*m = map[string]any{}
	}
	(*m)[key] = value
}
