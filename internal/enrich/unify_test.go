package enrich

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/venuescout/internal/domain"
)

func crawledPage(pageType, url, text string, html string) *domain.ScrapedPage {
	return &domain.ScrapedPage{
		VenueID:     "v1",
		URL:         url,
		PageType:    pageType,
		FetchedAt:   time.Now(),
		CleanedText: text,
		RawHTML:     []byte(html),
	}
}

func TestUnifyDedicatedPageBeatsHomepage(t *testing.T) {
	hoursPage := crawledPage(domain.PageTypeHours, "https://v.example/hours",
		"Monday 10:00 - 18:00", "")
	homepage := crawledPage(domain.PageTypeHomepage, "https://v.example",
		"Monday 9:00 - 17:00", "")

	u := Unify("v1", []*domain.ScrapedPage{homepage, hoursPage}, time.Now())

	require.NotNil(t, u.Hours)
	// The dedicated page wins the first write; the homepage unions in.
	assert.Equal(t, [][2]string{{"09:00", "17:00"}, {"10:00", "18:00"}}, u.Hours["mon"])
	assert.Equal(t, []string{"https://v.example/hours", "https://v.example"},
		u.Sources[domain.FieldHours])
	assert.Contains(t, u.UpdatedFields, domain.FieldHours)
}

func TestUnifyHoursContradictionNarrows(t *testing.T) {
	schemaHTML := `<html><head><script type="application/ld+json">
	{"@type": "Restaurant", "openingHoursSpecification":
	  [{"dayOfWeek": "Monday", "opens": "11:00", "closes": "16:00"}]}
	</script></head><body></body></html>`

	hoursPage := crawledPage(domain.PageTypeHours, "https://v.example/hours",
		"Monday 10:00 - 18:00", "")
	homepage := crawledPage(domain.PageTypeHomepage, "https://v.example",
		"Welcome", schemaHTML)

	u := Unify("v1", []*domain.ScrapedPage{homepage, hoursPage}, time.Now())

	require.NotNil(t, u.Hours)
	assert.Equal(t, [][2]string{{"11:00", "16:00"}}, u.Hours["mon"])
}

func TestUnifyContactNoOverwrite(t *testing.T) {
	contactPage := crawledPage(domain.PageTypeContact, "https://v.example/contact",
		"Phone: +44 20 7946 0958", "")
	homepage := crawledPage(domain.PageTypeHomepage, "https://v.example",
		"Call +44 20 0000 0000 or email hello@v.example", "")

	u := Unify("v1", []*domain.ScrapedPage{homepage, contactPage}, time.Now())

	require.NotNil(t, u.Contact)
	// The dedicated contact page holds the phone; the homepage only fills
	// the missing email.
	assert.Equal(t, "+442079460958", u.Contact["phone"])
	assert.Equal(t, "hello@v.example", u.Contact["email"])
}

func TestUnifyFreeEntryMarksFeesNotApplicable(t *testing.T) {
	feesPage := crawledPage(domain.PageTypeFees, "https://v.example/tickets",
		"Free entry all year round", "")

	u := Unify("v1", []*domain.ScrapedPage{feesPage}, time.Now())

	assert.True(t, u.NotApplicable[domain.FieldFees])
	assert.Nil(t, u.Fees)
	assert.Contains(t, u.UpdatedFields, domain.FieldFees)
}

func TestUnifyEmptyPages(t *testing.T) {
	u := Unify("v1", nil, time.Now())
	assert.True(t, u.Empty())
}

func TestUnifyUpdatedFieldsSorted(t *testing.T) {
	p := crawledPage(domain.PageTypeContact, "https://v.example/contact",
		"Phone: +44 20 7946 0958\nMonday 9:00 - 17:00", "")

	u := Unify("v1", []*domain.ScrapedPage{p}, time.Now())

	sorted := append([]string(nil), u.UpdatedFields...)
	assert.IsIncreasing(t, sorted)
}

func TestBuildDescription(t *testing.T) {
	t.Run("thin sources stay empty", func(t *testing.T) {
		sentence := "The gallery hosts a rotating collection of contemporary sculpture and painting from regional artists."
		candidates := []string{strings.Repeat(sentence+" ", 20)}

		// duplicate sentences collapse to one copy, well under the
		// 100-word floor, so no fragment is emitted
		assert.Empty(t, BuildDescription(candidates))
	})

	t.Run("distinct sentences accumulate", func(t *testing.T) {
		var candidates []string
		for _, topic := range []string{"history", "garden", "cafe", "tours", "workshops", "exhibits", "library", "terrace", "cellar", "courtyard"} {
			candidates = append(candidates,
				"The "+topic+" area of the venue offers visitors a memorable and distinctive experience every single season of the year.")
		}

		out := BuildDescription(candidates)
		words := len(strings.Fields(out))
		assert.GreaterOrEqual(t, words, 100)
		assert.LessOrEqual(t, words, 140)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, BuildDescription(nil))
	})
}
