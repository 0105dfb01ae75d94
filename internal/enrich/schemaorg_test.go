package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const restaurantJSONLD = `<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Restaurant",
  "name": "Trattoria Roma",
  "telephone": "+39 06 1234567",
  "email": "info@trattoriaroma.it",
  "url": "https://trattoriaroma.it",
  "description": "Family-run trattoria serving Roman classics since 1962, with homemade pasta.",
  "priceRange": "$$",
  "menu": "https://trattoriaroma.it/menu",
  "sameAs": ["https://facebook.com/trattoriaroma", "https://instagram.com/trattoriaroma"],
  "openingHoursSpecification": [
    {"@type": "OpeningHoursSpecification", "dayOfWeek": ["Monday", "Tuesday"], "opens": "12:00", "closes": "23:00"},
    {"@type": "OpeningHoursSpecification", "dayOfWeek": "https://schema.org/Sunday", "opens": "12:00", "closes": "15:00"}
  ],
  "amenityFeature": [
    {"@type": "LocationFeatureSpecification", "name": "Outdoor seating"},
    {"@type": "LocationFeatureSpecification", "name": "Wheelchair accessible"}
  ]
}
</script>
</head><body></body></html>`

func TestParseSchemaOrgRestaurant(t *testing.T) {
	facts, err := ParseSchemaOrg([]byte(restaurantJSONLD))
	require.NoError(t, err)
	require.False(t, facts.Empty())

	assert.Equal(t, "+39 06 1234567", facts.Contact["phone"])
	assert.Equal(t, "info@trattoriaroma.it", facts.Contact["email"])
	assert.Equal(t, "https://trattoriaroma.it", facts.Contact["website"])
	assert.Equal(t, []string{
		"https://facebook.com/trattoriaroma",
		"https://instagram.com/trattoriaroma",
	}, facts.Contact["social"])

	assert.Contains(t, facts.Description, "Family-run trattoria")
	assert.Equal(t, "$$", facts.PriceRange)
	assert.Equal(t, "https://trattoriaroma.it/menu", facts.MenuURL)

	require.NotNil(t, facts.Hours)
	assert.Equal(t, [][2]string{{"12:00", "23:00"}}, facts.Hours["mon"])
	assert.Equal(t, [][2]string{{"12:00", "23:00"}}, facts.Hours["tue"])
	assert.Equal(t, [][2]string{{"12:00", "15:00"}}, facts.Hours["sun"])

	assert.Equal(t, []string{"Outdoor seating", "Wheelchair accessible"}, facts.Amenities)
}

func TestParseSchemaOrgGraph(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
	{"@graph": [
		{"@type": "WebSite", "url": "https://museum.example"},
		{"@type": "Museum", "telephone": "020 7946 0000",
		 "offers": [{"price": "12.50", "priceCurrency": "GBP", "category": "Adult"},
		            {"price": "0", "priceCurrency": "GBP", "category": "Child"}]}
	]}
	</script></head><body></body></html>`

	facts, err := ParseSchemaOrg([]byte(html))
	require.NoError(t, err)

	assert.Equal(t, "020 7946 0000", facts.Contact["phone"])
	assert.Equal(t, "Adult: GBP 12.50", facts.Fees)
	assert.True(t, facts.FreeEntry)
}

func TestParseSchemaOrgFreeEntryOnly(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
	{"@type": "Museum", "offers": {"price": 0, "priceCurrency": "EUR"}}
	</script></head><body></body></html>`

	facts, err := ParseSchemaOrg([]byte(html))
	require.NoError(t, err)

	assert.Empty(t, facts.Fees)
	assert.True(t, facts.FreeEntry)
}

func TestParseSchemaOrgMalformed(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{not json at all</script>
	<script type="application/ld+json">{"@type": "Cafe", "telephone": "555-0100"}</script>
	</head><body></body></html>`

	facts, err := ParseSchemaOrg([]byte(html))
	require.NoError(t, err)

	assert.Equal(t, "555-0100", facts.Contact["phone"])
}

func TestParseSchemaOrgShortDescriptionIgnored(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
	{"@type": "Cafe", "description": "Nice cafe"}
	</script></head><body></body></html>`

	facts, err := ParseSchemaOrg([]byte(html))
	require.NoError(t, err)

	assert.Empty(t, facts.Description)
	assert.True(t, facts.Empty())
}
