package resolve

import (
	"strings"

	"tracuu/internal/taxid"
	"tracuu/internal/textutil"
)

// Linker synthesizes candidate detail URLs on the primary registry.
type Linker struct {
	baseURL string
	expand  bool
	extra   map[string]string
}

// NewLinker builds a linker rooted at baseURL. With expandNames set,
// DisplayName rewrites known abbreviations before slugging;
// extraAbbreviations extends and overrides the builtin table.
func NewLinker(baseURL string, expandNames bool, extraAbbreviations map[string]string) *Linker {
	return &Linker{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		expand:  expandNames,
		extra:   extraAbbreviations,
	}
}

// DisplayName returns the name used for link synthesis: abbreviation
// expansion when enabled, whitespace cleanup otherwise.
func (l *Linker) DisplayName(raw string) string {
	if l.expand {
		return textutil.ExpandAbbreviations(raw, l.extra)
	}
	return textutil.CleanText(raw)
}

// Synthesize builds the candidate URL {base}/{identifier}-{slug}. When
// either the canonical identifier or the slug comes up empty it
// returns "", which callers treat as "skip the direct-link tier".
func (l *Linker) Synthesize(identifier, name string) string {
	id := taxid.Normalize(identifier)
	slug := textutil.Slugify(name)
	if id == "" || slug == "" {
		return ""
	}
	return l.baseURL + "/" + id + "-" + slug
}
