package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/venuescout/internal/domain"
)

func TestNormalizeDay(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"full name", "Monday", "mon"},
		{"short name", "tue", "tue"},
		{"two letter", "We", "wed"},
		{"schema url", "https://schema.org/Saturday", "sat"},
		{"schema url http", "http://schema.org/Sunday", "sun"},
		{"whitespace", "  Friday  ", "fri"},
		{"unknown", "someday", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDay(tt.input))
		})
	}
}

func TestNormalizeHHMM(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"colon", "9:00", "09:00"},
		{"dot", "9.30", "09:30"},
		{"h separator", "9h00", "09:00"},
		{"compact four digits", "0900", "09:00"},
		{"compact three digits", "930", "09:30"},
		{"already padded", "17:45", "17:45"},
		{"hour out of range", "25:00", ""},
		{"minute out of range", "10:75", ""},
		{"garbage", "noon", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHHMM(tt.input))
		})
	}
}

func TestParseHoursText(t *testing.T) {
	text := "Opening Hours\nMonday 9:00 - 17:00\nTue 09:00-12:00 and 13:00 to 17:00\nClosed Sunday\nCall us anytime"

	h := ParseHoursText(text)
	require.NotNil(t, h)

	assert.Equal(t, [][2]string{{"09:00", "17:00"}}, h["mon"])
	assert.Equal(t, [][2]string{{"09:00", "12:00"}, {"13:00", "17:00"}}, h["tue"])
	_, hasSun := h["sun"]
	assert.False(t, hasSun, "a day with no time range should not appear")
}

func TestParseHoursTextNoHours(t *testing.T) {
	assert.Nil(t, ParseHoursText("Welcome to our restaurant. Best pasta in town."))
	assert.Nil(t, ParseHoursText(""))
}

func TestUnionHours(t *testing.T) {
	a := domain.Hours{"mon": {{"09:00", "17:00"}}}
	b := domain.Hours{
		"mon": {{"18:00", "22:00"}},
		"tue": {{"09:00", "17:00"}},
	}

	out := UnionHours(a, b)
	require.NotNil(t, out)

	assert.Equal(t, [][2]string{{"09:00", "17:00"}, {"18:00", "22:00"}}, out["mon"])
	assert.Equal(t, [][2]string{{"09:00", "17:00"}}, out["tue"])

	assert.Nil(t, UnionHours(nil, nil))
}

func TestIntersectHours(t *testing.T) {
	t.Run("overlap narrows", func(t *testing.T) {
		a := domain.Hours{"mon": {{"09:00", "17:00"}}}
		b := domain.Hours{"mon": {{"10:00", "18:00"}}}

		out := IntersectHours(a, b)
		assert.Equal(t, [][2]string{{"10:00", "17:00"}}, out["mon"])
	})

	t.Run("no overlap keeps higher precedence source", func(t *testing.T) {
		a := domain.Hours{"mon": {{"09:00", "12:00"}}}
		b := domain.Hours{"mon": {{"14:00", "18:00"}}}

		out := IntersectHours(a, b)
		assert.Equal(t, [][2]string{{"09:00", "12:00"}}, out["mon"])
	})

	t.Run("days only one side knows pass through", func(t *testing.T) {
		a := domain.Hours{"mon": {{"09:00", "17:00"}}}
		b := domain.Hours{"sat": {{"10:00", "14:00"}}}

		out := IntersectHours(a, b)
		assert.Equal(t, [][2]string{{"09:00", "17:00"}}, out["mon"])
		assert.Equal(t, [][2]string{{"10:00", "14:00"}}, out["sat"])
	})
}

func TestRenderHoursRoundTrip(t *testing.T) {
	h := domain.Hours{
		"mon": {{"09:00", "17:00"}, {"18:00", "22:00"}},
		"wed": {{"10:00", "16:00"}},
		"sun": {{"11:00", "15:00"}},
	}

	rendered := RenderHours(h)
	parsed := ParseRenderedHours(rendered)

	assert.Equal(t, h, parsed)
}

func TestRenderHoursWeekdayOrder(t *testing.T) {
	h := domain.Hours{
		"sun": {{"11:00", "15:00"}},
		"mon": {{"09:00", "17:00"}},
	}

	rendered := RenderHours(h)
	assert.Equal(t, "mon 09:00-17:00\nsun 11:00-15:00", rendered)
}
