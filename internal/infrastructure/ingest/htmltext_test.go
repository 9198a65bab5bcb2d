package ingest

import "testing"

func TestStripHTML(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text", "no markup here", "no markup here"},
		{"tags removed", `<a href="#">link</a> and <b>bold</b>`, "link and bold"},
		{"br becomes newline", "first<br>second", "first\nsecond"},
		{"self closing br", "first<br/>second", "first\nsecond"},
		{"entities decoded", "a &gt; b", "a > b"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := stripHTML(tc.in); got != tc.want {
				t.Fatalf("stripHTML(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMatchesAny(t *testing.T) {
	t.Parallel()

	keywords := lowerAll([]string{" GPU ", "open source", ""})

	if !matchesAny("New GPU benchmarks are out", keywords) {
		t.Fatal("expected case-insensitive keyword match")
	}
	if !matchesAny("an OPEN SOURCE release", keywords) {
		t.Fatal("expected multi-word keyword match")
	}
	if matchesAny("nothing relevant", keywords) {
		t.Fatal("unexpected match")
	}
	if matchesAny("anything", nil) {
		t.Fatal("empty keyword list must never match")
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	if got := truncateRunes("hello", 10); got != "hello" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := truncateRunes("hello", 2); got != "he" {
		t.Fatalf("truncation wrong: %q", got)
	}
	if got := truncateRunes("héllo", 2); got != "hé" {
		t.Fatalf("rune-safe truncation wrong: %q", got)
	}
}
