// Package crawler orchestrates one enrichment crawl per venue: website
// recovery, the homepage fetch, link selection and the bounded target
// fetches, all within a fixed wall-clock budget.
package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/logger"
	"github.com/jonesrussell/venuescout/internal/urlutil"
)

// recoveryBudget bounds the total time spent inferring a website for a
// venue that has none.
const recoveryBudget = 500 * time.Millisecond

// chooseThreshold is the minimum confidence for a candidate to be written
// back as the venue's website.
const chooseThreshold = 0.8

// freeMailDomains are personal mail providers. An email on one of these
// says nothing about the venue's website.
var freeMailDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"yahoo.co.uk":    {},
	"hotmail.com":    {},
	"hotmail.co.uk":  {},
	"outlook.com":    {},
	"live.com":       {},
	"aol.com":        {},
	"icloud.com":     {},
	"me.com":         {},
	"protonmail.com": {},
	"proton.me":      {},
	"mail.com":       {},
	"gmx.com":        {},
	"gmx.net":        {},
	"yandex.com":     {},
	"zoho.com":       {},
}

// socialDomains are platforms and link hubs that host venue profiles but
// are not venue websites. Candidates resolving here are rejected.
var socialDomains = map[string]struct{}{
	"facebook.com":    {},
	"instagram.com":   {},
	"twitter.com":     {},
	"x.com":           {},
	"tiktok.com":      {},
	"youtube.com":     {},
	"linkedin.com":    {},
	"pinterest.com":   {},
	"linktr.ee":       {},
	"tripadvisor.com": {},
	"yelp.com":        {},
}

// RecoveryStore persists recovery candidates and the chosen website.
type RecoveryStore interface {
	SaveCandidates(ctx context.Context, candidates []*domain.RecoveryCandidate) error
}

// VenueWriter writes a recovered website back to the venue row.
type VenueWriter interface {
	UpdateWebsite(ctx context.Context, venueID, website string) error
}

// Recovery infers a website for venues that have none, keeping an audit
// trail of every candidate considered.
type Recovery struct {
	store  RecoveryStore
	venues VenueWriter
	logger logger.Interface
}

// NewRecovery creates a Recovery.
func NewRecovery(store RecoveryStore, venues VenueWriter, log logger.Interface) *Recovery {
	return &Recovery{store: store, venues: venues, logger: log}
}

// Recover attempts to infer a website for the venue. On success the
// chosen URL is written to the venue row and returned. Returns empty when
// nothing credible was found.
func (r *Recovery) Recover(ctx context.Context, venue *domain.Venue) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, recoveryBudget)
	defer cancel()

	candidates := r.candidates(venue)
	if len(candidates) == 0 {
		return "", nil
	}

	chosen := ""
	for _, c := range candidates {
		if c.Confidence >= chooseThreshold {
			c.IsChosen = true
			chosen = c.URL
			break
		}
	}

	if err := r.store.SaveCandidates(ctx, candidates); err != nil {
		return "", err
	}

	if chosen == "" {
		return "", nil
	}

	if err := r.venues.UpdateWebsite(ctx, venue.VenueID, chosen); err != nil {
		return "", err
	}

	r.logger.Info("recovered website",
		"venue_id", venue.VenueID,
		"url", chosen,
	)

	return chosen, nil
}

// candidates derives website candidates from the venue's own fields. The
// email domain is the strongest signal: mail at the venue's own domain
// almost always means the domain hosts the site.
func (r *Recovery) candidates(venue *domain.Venue) []*domain.RecoveryCandidate {
	var out []*domain.RecoveryCandidate

	if venue.Email != nil {
		if domainPart, ok := emailDomain(*venue.Email); ok {
			out = append(out, &domain.RecoveryCandidate{
				VenueID:    venue.VenueID,
				URL:        urlutil.CanonicalHomepage(domainPart),
				Confidence: 0.9,
				Method:     domain.RecoveryMethodEmailDomain,
			})
		}
	}

	return out
}

// emailDomain extracts a usable website domain from an email address,
// rejecting personal mail providers and social platforms.
func emailDomain(email string) (string, bool) {
	at := strings.LastIndexByte(email, '@')
	if at < 1 || at == len(email)-1 {
		return "", false
	}

	host := strings.ToLower(strings.TrimSpace(email[at+1:]))
	if host == "" || !strings.Contains(host, ".") {
		return "", false
	}

	registered, err := urlutil.RegisteredDomain("https://" + host)
	if err != nil {
		return "", false
	}
	if _, free := freeMailDomains[registered]; free {
		return "", false
	}
	if _, social := socialDomains[registered]; social {
		return "", false
	}

	return host, true
}
