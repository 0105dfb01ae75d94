// Package urlutil provides URL normalization, hashing, and registered
// domain extraction. URLs are normalized before persistence so the same
// URL expressed differently produces the same hash for deduplication.
package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// trackingParams lists query parameters that are stripped during
// normalization. These are advertising and analytics trackers that do not
// affect page content.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"gclsrc":       {},
	"dclid":        {},
	"msclkid":      {},
}

// defaultPorts maps schemes to their default port strings.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

var (
	errEmptyInput          = errors.New("normalize url: empty input")
	errMissingSchemeOrHost = errors.New("normalize url: missing scheme or host")
	errEmptyHostInput      = errors.New("extract host: empty input")
)

// Normalize applies deterministic transformations to a raw URL so that
// equivalent URLs produce identical strings: lowercased scheme and host,
// http upgraded to https, default ports removed, dot-segments resolved,
// trailing slashes removed, fragments dropped, query parameters sorted and
// tracking parameters stripped.
func Normalize(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errEmptyInput
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("normalize url: %w", err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errMissingSchemeOrHost
	}

	originalScheme := strings.ToLower(parsed.Scheme)
	parsed.Scheme = "https"
	parsed.Host = normalizeHost(parsed, originalScheme)
	parsed.Fragment = ""
	parsed.RawQuery = buildCleanQuery(parsed.Query())
	parsed.Path = normalizePath(parsed.Path)

	return parsed.String(), nil
}

// Hash normalizes the given URL and returns its SHA-256 hex digest.
func Hash(rawURL string) (string, error) {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return "", fmt.Errorf("url hash: %w", err)
	}

	sum := sha256.Sum256([]byte(normalized))

	return hex.EncodeToString(sum[:]), nil
}

// TextHash returns the SHA-256 hex digest of arbitrary content bytes.
func TextHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Host returns the hostname (without port) from a URL, lowercased.
func Host(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errEmptyHostInput
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("extract host: %w", err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errMissingSchemeOrHost
	}

	return strings.ToLower(parsed.Hostname()), nil
}

// RegisteredDomain returns the eTLD+1 for the URL's host. An IP literal
// maps to itself. Rate gate buckets and the same-host rule key on this.
func RegisteredDomain(rawURL string) (string, error) {
	host, err := Host(rawURL)
	if err != nil {
		return "", err
	}

	if net.ParseIP(host) != nil {
		return host, nil
	}

	domain, psErr := publicsuffix.EffectiveTLDPlusOne(host)
	if psErr != nil {
		// Hosts the public suffix list cannot split (localhost, bare
		// intranet names) bucket by the raw host.
		return host, nil
	}

	return domain, nil
}

// SameRegisteredDomain reports whether two URLs share an eTLD+1.
func SameRegisteredDomain(a, b string) bool {
	da, errA := RegisteredDomain(a)
	db, errB := RegisteredDomain(b)
	if errA != nil || errB != nil {
		return false
	}
	return da == db
}

// CanonicalHomepage builds the canonical homepage URL for a bare host:
// https scheme, no www prefix, no path, query, fragment or trailing slash.
func CanonicalHomepage(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	return "https://" + host
}

// Resolve resolves a possibly relative href against a base URL and
// normalizes the result.
func Resolve(baseURL, href string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("resolve: parse base: %w", err)
	}

	ref, refErr := url.Parse(strings.TrimSpace(href))
	if refErr != nil {
		return "", fmt.Errorf("resolve: parse href: %w", refErr)
	}

	return Normalize(base.ResolveReference(ref).String())
}

// normalizeHost lowercases the hostname and removes default ports.
func normalizeHost(u *url.URL, originalScheme string) string {
	hostname := strings.ToLower(u.Hostname())
	port := u.Port()

	if port == "" {
		return hostname
	}

	for _, scheme := range []string{originalScheme, u.Scheme} {
		if defaultPort, ok := defaultPorts[scheme]; ok && port == defaultPort {
			return hostname
		}
	}

	return hostname + ":" + port
}

// buildCleanQuery strips tracking parameters, sorts the remaining keys
// alphabetically, and returns the encoded query string.
func buildCleanQuery(values url.Values) string {
	keys := make([]string, 0, len(values))

	for key := range values {
		if _, isTracking := trackingParams[key]; !isTracking {
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 {
		return ""
	}

	sort.Strings(keys)

	var b strings.Builder

	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}

		vals := values[key]
		for j, val := range vals {
			if j > 0 {
				b.WriteByte('&')
			}

			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}

	return b.String()
}

// normalizePath resolves dot-segments and removes trailing slashes while
// preserving the root "/".
func normalizePath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}

	cleaned := path.Clean(p)

	return strings.TrimRight(cleaned, "/")
}
