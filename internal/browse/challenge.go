package browse

import "strings"

// Markers that identify an interactive bot-mitigation screen. The
// paired check guards against false positives on pages that merely
// mention the vendor.
var challengeMarkers = []string{
	"checking your browser",
	"cf-chl",
	"challenge-platform",
	"turnstile",
}

// IsChallenge reports whether page content looks like a bot-mitigation
// interstitial rather than real registry content.
func IsChallenge(html string) bool {
	t := strings.ToLower(html)
	if strings.Contains(t, "just a moment") && strings.Contains(t, "cloudflare") {
		return true
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}
