package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	trailingColon = regexp.MustCompile(`\s*:\s*$`)
	slugSeparator = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanText collapses whitespace runs to single spaces and trims the ends.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// NormalizeKey prepares a table header cell for use as a record key by
// cleaning whitespace and dropping a trailing colon.
func NormalizeKey(k string) string {
	return trailingColon.ReplaceAllString(CleanText(k), "")
}

// Slugify transliterates a display name to a lowercase ASCII slug.
// Diacritics are stripped, đ maps to d, and every run of characters
// outside [a-z0-9] collapses to a single hyphen with none left at
// either end. Empty or symbol-only input yields the empty string.
func Slugify(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = removeDiacritics(s)
	s = strings.ReplaceAll(s, "đ", "d")
	s = slugSeparator.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func removeDiacritics(s string) string {
	// The chain keeps per-call state, so build it fresh instead of
	// sharing one across goroutines.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
