package textutil

import (
	"math"
	"strings"
)

// NameTokens splits a company name into folded lowercase tokens, so
// "CÔNG TY TNHH ALPHA" and "Cong ty TNHH Alpha" tokenize identically.
func NameTokens(name string) []string {
	slug := Slugify(name)
	if slug == "" {
		return nil
	}
	return strings.Split(slug, "-")
}

// NameSimilarity scores how alike two company names are, as the cosine
// of their token-frequency vectors in [0, 1]. Either side folding to no
// tokens scores 0. Word order does not matter, so a registry's
// "CÔNG TY TNHH ALPHA" still matches an input's "Alpha, Cty TNHH" after
// abbreviation expansion.
func NameSimilarity(a, b string) float64 {
	va, na := nameVector(a)
	vb, nb := nameVector(b)
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for token, count := range va {
		if other, ok := vb[token]; ok {
			dot += count * other
		}
	}
	return dot / (na * nb)
}

func nameVector(name string) (map[string]float64, float64) {
	tokens := NameTokens(name)
	if len(tokens) == 0 {
		return nil, 0
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return counts, math.Sqrt(norm)
}
