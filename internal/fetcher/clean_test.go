package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanTextStripsScriptAndStyle(t *testing.T) {
	html := `<html><head><style>body{color:red}</style></head><body>
	<script>var x = 1;</script>
	<p>Welcome to the venue</p>
	<noscript>Enable JS</noscript>
	</body></html>`

	text, err := CleanText([]byte(html))
	require.NoError(t, err)

	assert.Equal(t, "Welcome to the venue", text)
}

func TestCleanTextPreservesLineStructure(t *testing.T) {
	html := `<html><body>
	<h1>Opening Hours</h1>
	<ul>
		<li>Monday <b>9:00</b> - 17:00</li>
		<li>Tuesday 9:00 - 17:00</li>
	</ul>
	</body></html>`

	text, err := CleanText([]byte(html))
	require.NoError(t, err)

	assert.Equal(t, "Opening Hours\nMonday 9:00 - 17:00\nTuesday 9:00 - 17:00", text)
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	html := "<html><body><p>Lots   of \t spaces\there</p></body></html>"

	text, err := CleanText([]byte(html))
	require.NoError(t, err)

	assert.Equal(t, "Lots of spaces here", text)
}

func TestCleanTextTableRows(t *testing.T) {
	html := `<html><body><table>
	<tr><td>Adults</td><td>£12.50</td></tr>
	<tr><td>Children</td><td>£6.00</td></tr>
	</table></body></html>`

	text, err := CleanText([]byte(html))
	require.NoError(t, err)

	assert.Contains(t, text, "Adults")
	assert.Contains(t, text, "£12.50")
	// Rows stay on separate lines.
	assert.NotContains(t, text, "£12.50 Children")
}

func TestCleanTextEmptyDocument(t *testing.T) {
	text, err := CleanText([]byte("<html><body></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, text)
}
