// Package links discovers target pages on a venue's website: given the
// homepage HTML it classifies same-domain links into the target page types
// and returns at most one candidate per type, capped at three overall.
package links

import (
	"bytes"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/urlutil"
)

// MaxTargets caps how many target pages one crawl may fetch.
const MaxTargets = 3

// Candidate is a classified target link.
type Candidate struct {
	URL      string
	PageType string
	Score    float64
}

// typeKeywords maps page types to the tokens matched against URL paths
// and anchor text. Multilingual, since venue sites are frequently not in
// English.
var typeKeywords = map[string][]string{
	domain.PageTypeHours: {
		"hours", "opening", "open", "orari", "horaires", "offnungszeiten",
		"horario", "opening-times", "openingstijden",
	},
	domain.PageTypeMenu: {
		"menu", "food", "drinks", "carte", "speisekarte", "carta",
		"la-carte", "dinner", "lunch",
	},
	domain.PageTypeContact: {
		"contact", "contacts", "kontakt", "contatti", "contacto",
		"find-us", "visit", "location",
	},
	domain.PageTypeAbout: {
		"about", "about-us", "story", "chi-siamo", "uber-uns", "sobre",
		"qui-sommes",
	},
	domain.PageTypeFees: {
		"tickets", "admission", "prices", "pricing", "fees", "tarifs",
		"preise", "entradas", "biglietti",
	},
}

// negativeKeywords disqualify links regardless of other matches.
var negativeKeywords = []string{
	"login", "signin", "sign-in", "register", "cart", "checkout",
	"privacy", "terms", "cookie", "careers", "jobs", "blog", "news",
	"press", "sitemap", "account", "newsletter", "gift",
}

// Scoring weights. A candidate needs a URL or anchor match to qualify;
// section placement only boosts.
const (
	urlWeight     = 0.6
	anchorWeight  = 0.4
	navBoost      = 0.3
	headerBoost   = 0.2
	footerBoost   = 0.1
	minScore      = 0.3
	pathLenFactor = 0.001
)

// scored carries a candidate with its tie-break keys.
type scored struct {
	Candidate
	docOrder int
	pathLen  int
}

// better prefers higher score, then shorter paths, then earlier document
// order.
func better(a, b scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.pathLen != b.pathLen {
		return a.pathLen < b.pathLen
	}
	return a.docOrder < b.docOrder
}

// Find returns up to MaxTargets candidate URLs for the homepage, one per
// type, ordered hours > menu > contact > about > fees.
func Find(homepageURL string, html []byte) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	best := make(map[string]scored)

	order := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		order++

		href, _ := sel.Attr("href")
		resolved, resolveErr := urlutil.Resolve(homepageURL, href)
		if resolveErr != nil {
			return
		}

		parsed, parseErr := url.Parse(resolved)
		if parseErr != nil || parsed.Path == "/" && parsed.RawQuery == "" {
			return
		}

		// Same-host rule: cross-domain links are never candidates.
		if !urlutil.SameRegisteredDomain(homepageURL, resolved) {
			return
		}

		pathTokens := strings.ToLower(parsed.Path + " " + parsed.RawQuery)
		anchorText := strings.ToLower(strings.TrimSpace(sel.Text()))

		for _, neg := range negativeKeywords {
			if strings.Contains(pathTokens, neg) || strings.Contains(anchorText, neg) {
				return
			}
		}

		pageType, score := classify(pathTokens, anchorText)
		if pageType == "" {
			return
		}

		score += sectionBoost(sel)
		if score < minScore {
			return
		}

		cand := scored{
			Candidate: Candidate{URL: resolved, PageType: pageType, Score: score},
			docOrder:  order,
			pathLen:   len(parsed.Path),
		}

		current, exists := best[pageType]
		if !exists || better(cand, current) {
			best[pageType] = cand
		}
	})

	out := make([]Candidate, 0, MaxTargets)
	for _, pageType := range domain.TargetPageTypes {
		if cand, ok := best[pageType]; ok {
			out = append(out, cand.Candidate)
			if len(out) == MaxTargets {
				break
			}
		}
	}

	return out, nil
}

// classify assigns at most one type to a link, first match winning in the
// target priority order.
func classify(pathTokens, anchorText string) (string, float64) {
	for _, pageType := range domain.TargetPageTypes {
		var score float64
		for _, kw := range typeKeywords[pageType] {
			if containsToken(pathTokens, kw) {
				score += urlWeight
				break
			}
		}
		for _, kw := range typeKeywords[pageType] {
			if strings.Contains(anchorText, strings.ReplaceAll(kw, "-", " ")) {
				score += anchorWeight
				break
			}
		}
		if score > 0 {
			return pageType, score
		}
	}
	return "", 0
}

// sectionBoost weights links by their structural placement.
func sectionBoost(sel *goquery.Selection) float64 {
	if sel.ParentsFiltered("nav").Length() > 0 {
		return navBoost
	}
	if sel.ParentsFiltered("header").Length() > 0 {
		return headerBoost
	}
	if sel.ParentsFiltered("footer").Length() > 0 {
		return footerBoost
	}
	return 0
}

// containsToken matches kw as a path segment or token rather than a bare
// substring, so "open" does not match "reopening".
func containsToken(haystack, kw string) bool {
	idx := strings.Index(haystack, kw)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(haystack[idx-1])
		afterIdx := idx + len(kw)
		after := afterIdx >= len(haystack) || !isWordChar(haystack[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(haystack[idx+1:], kw)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// SortByPriority orders candidates by the fixed target type order.
func SortByPriority(cands []Candidate) {
	priority := make(map[string]int, len(domain.TargetPageTypes))
	for i, t := range domain.TargetPageTypes {
		priority[t] = i
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return priority[cands[i].PageType] < priority[cands[j].PageType]
	})
}
