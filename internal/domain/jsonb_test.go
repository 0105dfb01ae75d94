package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceMapAppendDeduplicates(t *testing.T) {
	m := SourceMap{}
	m.Append(FieldHours, "https://venue.example/hours")
	m.Append(FieldHours, "https://venue.example/hours", "https://venue.example/")

	assert.Equal(t, []string{
		"https://venue.example/hours",
		"https://venue.example/",
	}, m[FieldHours])
}

func TestSourceMapCountDistinct(t *testing.T) {
	m := SourceMap{
		FieldHours:   {"https://venue.example/hours", "https://venue.example/"},
		FieldContact: {"https://venue.example/", "https://venue.example/contact"},
	}

	// The homepage backs two fields but counts once.
	assert.Equal(t, 3, m.CountDistinct())
	assert.Zero(t, SourceMap(nil).CountDistinct())
}
