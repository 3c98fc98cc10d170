package taxid

import "strings"

// Normalize canonicalizes a raw tax identifier: whitespace and every
// character outside [0-9-] are dropped, and a 13-digit all-numeric
// value gains a dash after the tenth digit (base plus branch suffix).
// Normalization never fails and is idempotent; unusable input yields
// the empty string, which downstream stages treat as "no identifier".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	id := b.String()
	if isThirteenDigits(id) {
		return id[:10] + "-" + id[10:]
	}
	return id
}

// Digits strips an identifier down to its numeric characters. Search
// result matching compares identifiers in this form so that dash
// placement never defeats an exact match.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isThirteenDigits(s string) bool {
	if len(s) != 13 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
