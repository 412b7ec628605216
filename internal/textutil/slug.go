package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength caps the slug portion of generated filenames.
const MaxSlugLength = 100

// FallbackSlug is returned when a subject folds to nothing.
const FallbackSlug = "untitled"

var (
	slugDisallowed = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators = regexp.MustCompile(`[-\s]+`)
)

// Slug folds text to ASCII, drops punctuation, and joins words with underscores.
// "Café News: Today!" becomes "Cafe_News_Today".
func Slug(text string) string {
	folded := foldASCII(text)
	folded = slugDisallowed.ReplaceAllString(folded, "")
	folded = strings.TrimSpace(folded)
	folded = slugSeparators.ReplaceAllString(folded, "_")
	if len(folded) > MaxSlugLength {
		folded = folded[:MaxSlugLength]
	}
	if strings.Trim(folded, "_") == "" {
		return FallbackSlug
	}
	return folded
}

// ShortHash returns the first eight hex characters of the SHA-256 of value.
func ShortHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:8]
}

func foldASCII(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, text)
	if err != nil {
		return ""
	}
	return out
}
