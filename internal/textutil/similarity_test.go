package textutil

import (
	"math"
	"testing"
)

func TestNameTokensFoldDiacriticsAndCase(t *testing.T) {
	got := NameTokens("CÔNG TY TNHH Đầu Tư ALPHA")
	want := []string{"cong", "ty", "tnhh", "dau", "tu", "alpha"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i, token := range want {
		if got[i] != token {
			t.Fatalf("tokens[%d] = %q, want %q", i, got[i], token)
		}
	}
	if tokens := NameTokens(" ... "); tokens != nil {
		t.Fatalf("symbol-only name tokenized to %v", tokens)
	}
}

func TestNameSimilarity(t *testing.T) {
	if got := NameSimilarity("CÔNG TY TNHH ALPHA", "Cong ty TNHH Alpha"); math.Abs(got-1) > 1e-9 {
		t.Fatalf("folded identical names = %v, want 1", got)
	}
	if got := NameSimilarity("CÔNG TY TNHH ALPHA", "ALPHA CÔNG TY TNHH"); math.Abs(got-1) > 1e-9 {
		t.Fatalf("reordered name = %v, want 1", got)
	}
	same := NameSimilarity("CÔNG TY TNHH ALPHA", "CÔNG TY TNHH ALPHA")
	other := NameSimilarity("CÔNG TY TNHH ALPHA", "CÔNG TY CỔ PHẦN BETA OMEGA")
	if other >= same {
		t.Fatalf("unrelated name scored %v, same name %v", other, same)
	}
	if got := NameSimilarity("", "CÔNG TY TNHH ALPHA"); got != 0 {
		t.Fatalf("empty name = %v, want 0", got)
	}
}
