package fetcher

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var spaceRe = regexp.MustCompile(`[ \t\r\f]+`)

// skipTags are elements whose content is never visible prose.
var skipTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {},
	"iframe": {}, "svg": {}, "head": {},
}

// blockTags end a line of visible text. Keeping block boundaries as
// newlines matters downstream: the heuristic extractors work line by line.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "ul": {}, "ol": {}, "br": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"tr": {}, "td": {}, "th": {}, "table": {}, "section": {},
	"article": {}, "header": {}, "footer": {}, "nav": {}, "aside": {},
	"blockquote": {}, "figcaption": {}, "dt": {}, "dd": {},
}

// CleanText reduces an HTML document to visible prose. Script, style and
// similar elements are removed; block elements become line breaks; spaces
// collapse within lines.
func CleanText(rawHTML []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var b strings.Builder

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	for _, node := range root.Nodes {
		writeVisibleText(&b, node)
	}

	return normalizeLines(b.String()), nil
}

// writeVisibleText walks the node tree appending text content, inserting
// newlines at block element boundaries.
func writeVisibleText(b *strings.Builder, node *html.Node) {
	if node.Type == html.TextNode {
		b.WriteString(node.Data)
		return
	}

	if node.Type != html.ElementNode && node.Type != html.DocumentNode {
		return
	}

	if node.Type == html.ElementNode {
		if _, skip := skipTags[node.Data]; skip {
			return
		}
	}

	isBlock := false
	if node.Type == html.ElementNode {
		_, isBlock = blockTags[node.Data]
	}

	if isBlock {
		b.WriteByte('\n')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeVisibleText(b, child)
	}
	if isBlock {
		b.WriteByte('\n')
	}
}

// normalizeLines collapses intra-line whitespace and drops empty lines.
func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
