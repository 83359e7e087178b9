// Package identifier derives normalized lookup keys from an item's fields.
//
// ISBN extraction prefers an explicit ISBN field; otherwise it scans the
// free-text note, URL and DOI fields for something that looks like an ISBN.
// The scan is best effort with a deterministic first-match-wins tie break.
package identifier

import (
	"regexp"
	"strings"

	"github.com/bzuer/zoteroEhancer/record"
)

var (
	// labelPattern matches an optional "ISBN", "ISBN-10" or "ISBN-13"
	// prefix with an optional colon.
	labelPattern = regexp.MustCompile(`(?i)ISBN(?:-1[03])?:?\s*`)

	// candidatePattern finds runs of digits, X and separators that may be
	// an ISBN. Separators are allowed from the second character on, so
	// hyphenated forms like 0-13-468599-X match. RE2 has no lookahead, so
	// candidates are validated after separator stripping instead of inside
	// the pattern.
	candidatePattern = regexp.MustCompile(`(?i)\b(?:ISBN(?:-1[03])?:?\s*)?([0-9][0-9Xx \-]{7,19}[0-9Xx])\b`)

	doiResolverPrefix = regexp.MustCompile(`^https?://doi\.org/`)

	separators = strings.NewReplacer("-", "", " ", "")
)

// NormalizeISBN strips an optional ISBN label, removes hyphens and spaces
// and uppercases the check digit: "ISBN-13: 978-0-13-468599-1" becomes
// "9780134685991".
func NormalizeISBN(s string) string {
	s = labelPattern.ReplaceAllString(s, "")
	s = separators.Replace(s)
	return strings.ToUpper(strings.TrimSpace(s))
}

// validISBN reports whether a normalized string is a plausible ISBN: ten
// characters of digits with an optional X check digit, or thirteen digits
// starting with 978 or 979.
func validISBN(s string) bool {
	switch len(s) {
	case 10:
		for i, r := range s {
			if r >= '0' && r <= '9' {
				continue
			}
			if r == 'X' && i == 9 {
				continue
			}
			return false
		}
		return true
	case 13:
		if !strings.HasPrefix(s, "978") && !strings.HasPrefix(s, "979") {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	return false
}

// ISBN returns the item's lookup ISBN. An explicit ISBN field wins and is
// normalized without further checks; otherwise the note, URL and DOI fields
// are scanned and the first valid candidate is used. The second return
// value is false when no key could be derived.
func ISBN(it record.Item) (string, bool) {
	if v := strings.TrimSpace(it.GetField(record.FieldISBN)); v != "" {
		n := NormalizeISBN(v)
		return n, n != ""
	}
	text := strings.Join([]string{
		it.GetField(record.FieldExtra),
		it.GetField(record.FieldURL),
		it.GetField(record.FieldDOI),
	}, " ")
	for _, m := range candidatePattern.FindAllString(text, -1) {
		if n := NormalizeISBN(m); validISBN(n) {
			return n, true
		}
	}
	return "", false
}

// DOI returns the item's DOI with a leading resolver URL removed. There is
// no free-text fallback; an empty DOI field means no key.
func DOI(it record.Item) (string, bool) {
	v := strings.TrimSpace(it.GetField(record.FieldDOI))
	if v == "" {
		return "", false
	}
	return CleanDOI(v), true
}

// CleanDOI strips a leading http(s)://doi.org/ prefix.
func CleanDOI(s string) string {
	return doiResolverPrefix.ReplaceAllString(strings.TrimSpace(s), "")
}
