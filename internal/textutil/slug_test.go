package textutil

import (
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain words", "Breaking News", "Breaking_News"},
		{"punctuation removed", "Breaking News!!", "Breaking_News"},
		{"accents folded", "Café Résumé", "Cafe_Resume"},
		{"hyphen runs collapse", "a - b -- c", "a_b_c"},
		{"keeps underscores", "fact_check 2", "fact_check_2"},
		{"non latin drops", "новости", FallbackSlug},
		{"empty", "   ", FallbackSlug},
		{"only punctuation", "?!?", FallbackSlug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.in); got != tt.want {
				t.Fatalf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugTruncates(t *testing.T) {
	got := Slug(strings.Repeat("word ", 60))
	if len(got) != MaxSlugLength {
		t.Fatalf("expected length %d, got %d", MaxSlugLength, len(got))
	}
	for _, r := range got {
		if r > 127 {
			t.Fatalf("non-ascii rune in slug %q", got)
		}
	}
}

func TestSlugCollisionNeedsHash(t *testing.T) {
	a, b := Slug("Breaking News!!"), Slug("Breaking News??")
	if a != b {
		t.Fatalf("expected identical slugs, got %q and %q", a, b)
	}
	if ShortHash("https://youtu.be/one") == ShortHash("https://youtu.be/two") {
		t.Fatal("expected distinct hashes for distinct urls")
	}
}

func TestShortHash(t *testing.T) {
	// sha256("abc") = ba7816bf...
	if got := ShortHash("abc"); got != "ba7816bf" {
		t.Fatalf("ShortHash(abc) = %q", got)
	}
}
