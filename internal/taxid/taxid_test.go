package taxid

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"ten digits unchanged", "0102234896", "0102234896"},
		{"thirteen digits gain dash", "0102234896123", "0102234896-123"},
		{"existing dash preserved", "0102234896-123", "0102234896-123"},
		{"whitespace stripped", " 0102 234 896 ", "0102234896"},
		{"letters and punctuation dropped", "MST: 0102.234.896", "0102234896"},
		{"excel artifact digits kept", "0102234896 ", "0102234896"},
		{"empty input", "", ""},
		{"no digits at all", "n/a", ""},
		{"bare dash survives", "-", "-"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"0102234896123",
		"0102234896-123",
		"0102234896",
		" 01-02-234 ",
		"",
		"abc123def456",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("0102234896-123"); got != "0102234896123" {
		t.Fatalf("Digits = %q, want bare digits", got)
	}
	if got := Digits("no numbers"); got != "" {
		t.Fatalf("Digits = %q, want empty", got)
	}
}
