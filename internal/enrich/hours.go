// Package enrich turns scraped pages into dated, source-cited venue
// facts. It combines a structured-data path (JSON-LD) with heuristic text
// extraction, merges the two by precedence, and produces the enrichment
// update the store applies in one transaction.
package enrich

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// dayAliases maps schema.org and natural-language day names to the
// canonical three-letter keys.
var dayAliases = map[string]string{
	"monday": "mon", "mon": "mon", "mo": "mon",
	"tuesday": "tue", "tue": "tue", "tu": "tue",
	"wednesday": "wed", "wed": "wed", "we": "wed",
	"thursday": "thu", "thu": "thu", "th": "thu",
	"friday": "fri", "fri": "fri", "fr": "fri",
	"saturday": "sat", "sat": "sat", "sa": "sat",
	"sunday": "sun", "sun": "sun", "su": "sun",
}

var (
	dayRe   = regexp.MustCompile(`(?i)\b(mon|tue|wed|thu|fri|sat|sun)(?:day)?\b`)
	rangeRe = regexp.MustCompile(`(?i)(\d{1,2}[:.h]?\d{2})\s*(?:–|—|-|to|till|until)\s*(\d{1,2}[:.h]?\d{2})`)
)

// NormalizeDay canonicalizes a day name ("Monday", "schema.org/Monday",
// "mo") to its three-letter key, or "" when unrecognized.
func NormalizeDay(day string) string {
	key := strings.ToLower(strings.TrimSpace(day))
	key = strings.TrimPrefix(key, "http://schema.org/")
	key = strings.TrimPrefix(key, "https://schema.org/")
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		key = key[idx+1:]
	}
	return dayAliases[key]
}

// NormalizeHHMM coerces time notations (9:00, 9.00, 9h00, 0900) into
// zero-padded 24h "HH:MM", or "" when unparseable.
func NormalizeHHMM(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, ".", ":")
	s = strings.ReplaceAll(s, "h", ":")
	if !strings.Contains(s, ":") && (len(s) == 3 || len(s) == 4) {
		s = s[:len(s)-2] + ":" + s[len(s)-2:]
	}

	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	h, hErr := strconv.Atoi(parts[0])
	m, mErr := strconv.Atoi(parts[1])
	if hErr != nil || mErr != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return ""
	}

	return fmt.Sprintf("%02d:%02d", h, m)
}

// ParseHoursText extracts opening hours from cleaned prose: lines that
// carry a day name and one or more time ranges.
func ParseHoursText(text string) domain.Hours {
	out := domain.Hours{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		dayMatch := dayRe.FindStringSubmatch(line)
		if dayMatch == nil {
			continue
		}
		day := strings.ToLower(dayMatch[1])

		for _, m := range rangeRe.FindAllStringSubmatch(line, -1) {
			open := NormalizeHHMM(m[1])
			close := NormalizeHHMM(m[2])
			if open == "" || close == "" {
				continue
			}
			out[day] = appendRange(out[day], [2]string{open, close})
		}
	}

	if out.IsZero() {
		return nil
	}
	return out
}

// UnionHours merges two hours maps as a union of ranges per day.
func UnionHours(a, b domain.Hours) domain.Hours {
	if a == nil && b == nil {
		return nil
	}

	out := domain.Hours{}
	for _, src := range []domain.Hours{a, b} {
		for day, ranges := range src {
			for _, r := range ranges {
				out[day] = appendRange(out[day], r)
			}
		}
	}
	return out
}

// IntersectHours resolves contradicting sources by the more restrictive
// reading: per day, overlapping ranges narrow to their intersection. Days
// with no overlap at all keep a's ranges, since a is the higher-precedence
// source.
func IntersectHours(a, b domain.Hours) domain.Hours {
	out := domain.Hours{}

	for day, aRanges := range a {
		bRanges, ok := b[day]
		if !ok {
			out[day] = append([][2]string(nil), aRanges...)
			continue
		}

		var narrowed [][2]string
		for _, ar := range aRanges {
			for _, br := range bRanges {
				open := maxClock(ar[0], br[0])
				close := minClock(ar[1], br[1])
				if open < close {
					narrowed = appendRange(narrowed, [2]string{open, close})
				}
			}
		}

		if len(narrowed) == 0 {
			narrowed = append([][2]string(nil), aRanges...)
		}
		out[day] = narrowed
	}

	// Days only b knows about pass through.
	for day, bRanges := range b {
		if _, ok := a[day]; !ok {
			out[day] = append([][2]string(nil), bRanges...)
		}
	}

	if out.IsZero() {
		return nil
	}
	return out
}

// RenderHours formats an hours map as one line per day in weekday order,
// e.g. "mon 09:00-17:00,18:00-22:00". The output round-trips through
// ParseRenderedHours.
func RenderHours(h domain.Hours) string {
	var b strings.Builder
	for _, day := range domain.Weekdays {
		ranges, ok := h[day]
		if !ok || len(ranges) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(day)
		b.WriteByte(' ')
		for i, r := range ranges {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(r[0])
			b.WriteByte('-')
			b.WriteString(r[1])
		}
	}
	return b.String()
}

// ParseRenderedHours is the inverse of RenderHours.
func ParseRenderedHours(s string) domain.Hours {
	out := domain.Hours{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		day := NormalizeDay(parts[0])
		if day == "" {
			continue
		}
		for _, span := range strings.Split(parts[1], ",") {
			times := strings.SplitN(span, "-", 2)
			if len(times) != 2 {
				continue
			}
			open := NormalizeHHMM(times[0])
			close := NormalizeHHMM(times[1])
			if open == "" || close == "" {
				continue
			}
			out[day] = appendRange(out[day], [2]string{open, close})
		}
	}
	if out.IsZero() {
		return nil
	}
	return out
}

// appendRange adds a range if not already present, keeping ranges sorted
// by opening time.
func appendRange(ranges [][2]string, r [2]string) [][2]string {
	for _, existing := range ranges {
		if existing == r {
			return ranges
		}
	}
	ranges = append(ranges, r)
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i][0] != ranges[j][0] {
			return ranges[i][0] < ranges[j][0]
		}
		return ranges[i][1] < ranges[j][1]
	})
	return ranges
}

// HH:MM strings compare correctly as strings.
func maxClock(a, b string) string {
	if a > b {
		return a
	}
	return b
}

func minClock(a, b string) string {
	if a < b {
		return a
	}
	return b
}
