package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/venuescout/internal/domain"
)

func page(pageType, text string) *domain.ScrapedPage {
	return &domain.ScrapedPage{
		URL:         "https://venue.example/" + pageType,
		PageType:    pageType,
		CleanedText: text,
	}
}

func TestExtractFactsContact(t *testing.T) {
	text := "Get in touch\nCall us on +44 20 7946 0958\nEmail: bookings@venue.example\nMonday 9:00 - 17:00"

	facts := ExtractFacts(page(domain.PageTypeContact, text))

	require.NotNil(t, facts.Contact)
	assert.Equal(t, "bookings@venue.example", facts.Contact["email"])
	assert.Equal(t, "+442079460958", facts.Contact["phone"])

	require.NotNil(t, facts.Hours)
	assert.Equal(t, [][2]string{{"09:00", "17:00"}}, facts.Hours["mon"])
}

func TestExtractFactsHoursOnlyOnRelevantPages(t *testing.T) {
	text := "Monday 9:00 - 17:00"

	assert.NotNil(t, ExtractFacts(page(domain.PageTypeHours, text)).Hours)
	assert.Nil(t, ExtractFacts(page(domain.PageTypeMenu, text)).Hours)
	assert.Nil(t, ExtractFacts(page(domain.PageTypeFees, text)).Hours)
}

func TestExtractFactsFees(t *testing.T) {
	t.Run("shortest admission line wins", func(t *testing.T) {
		text := strings.Join([]string{
			"Visit us",
			"Adults £12.50, children £6.00, concessions £9.00 when booked in advance online",
			"Adults £12.50",
		}, "\n")

		facts := ExtractFacts(page(domain.PageTypeFees, text))
		assert.Equal(t, "Adults £12.50", facts.Fees)
		assert.False(t, facts.FreeEntry)
	})

	t.Run("free entry", func(t *testing.T) {
		facts := ExtractFacts(page(domain.PageTypeFees, "Free entry for all visitors"))
		assert.Empty(t, facts.Fees)
		assert.True(t, facts.FreeEntry)
	})

	t.Run("ignored on menu pages", func(t *testing.T) {
		facts := ExtractFacts(page(domain.PageTypeMenu, "Adult ticket £10"))
		assert.Empty(t, facts.Fees)
	})
}

func TestExtractFactsMenu(t *testing.T) {
	text := strings.Join([]string{
		"Our Menu",
		"Margherita ........ £9.50",
		"Diavola ........... £11.00",
		"Tiramisu -- £6.50",
		"Just a description line without any price on it",
	}, "\n")

	facts := ExtractFacts(page(domain.PageTypeMenu, text))

	assert.Equal(t, "https://venue.example/menu", facts.MenuURL)
	require.Len(t, facts.MenuItems, 3)
	assert.Equal(t, domain.MenuItem{Name: "Margherita", Price: "£9.50"}, facts.MenuItems[0])
	assert.Equal(t, domain.MenuItem{Name: "Tiramisu", Price: "£6.50"}, facts.MenuItems[2])

	// avg of 9.50, 11.00, 6.50 is about 9, one symbol
	assert.Equal(t, "£", facts.PriceRange)
}

func TestExtractFactsMenuEmptyText(t *testing.T) {
	facts := ExtractFacts(page(domain.PageTypeMenu, ""))
	assert.Equal(t, "https://venue.example/menu", facts.MenuURL)
	assert.Empty(t, facts.MenuItems)
}

func TestExtractPriceRangeExplicitTag(t *testing.T) {
	facts := ExtractFacts(page(domain.PageTypeMenu, "Price range: $$"))
	assert.Equal(t, "$$", facts.PriceRange)
}

func TestExtractFactsFeatures(t *testing.T) {
	text := strings.Join([]string{
		"Facilities",
		"• Free parking",
		"• Dog friendly",
		"• Wheelchair access",
		"Some much longer paragraph about the history of the building that is clearly not a bullet item",
	}, "\n")

	facts := ExtractFacts(page(domain.PageTypeAbout, text))

	assert.Equal(t, []string{"Free parking", "Dog friendly", "Wheelchair access"}, facts.Features)
}

func TestFirstProseLine(t *testing.T) {
	text := strings.Join([]string{
		"Welcome",
		"A family-run vineyard on the southern slopes, producing small-batch wines since 1987.",
	}, "\n")

	facts := ExtractFacts(page(domain.PageTypeAbout, text))
	assert.Contains(t, facts.Description, "family-run vineyard")
}
