// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// apostrophes are dropped so "Men's" reads "mens", not "men-s".
	apostrophes = strings.NewReplacer("'", "", "’", "", "`", "")
	// nonAlphanumeric matches every run the slug turns into one hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Normalize lowercases s, strips diacritics and joins the remaining ASCII
// words with single hyphens.
// Example: "Café & Résumé 2026" → "cafe-resume-2026"
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	result = strings.ToLower(apostrophes.Replace(result))
	result = nonAlphanumeric.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Lister returns the stored slugs that are base itself or base followed
// by a "-" suffix.
type Lister interface {
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
}

type Generator struct {
	lister   Lister
	fallback string
}

// NewGenerator returns a Generator that uses fallback as the base when a
// name normalizes to nothing (e.g. it is written entirely in CJK).
func NewGenerator(lister Lister, fallback string) *Generator {
	return &Generator{lister: lister, fallback: fallback}
}

// Generate returns a slug candidate for name: the base when no stored slug
// equals it, else base-n where n starts at the number of slugs sharing the
// base and moves past any suffix already taken. The candidate can still
// collide under concurrent writes; the store's unique constraint decides.
func (g *Generator) Generate(ctx context.Context, name string) (string, error) {
	base := Normalize(name)
	if base == "" {
		base = g.fallback
	}

	existing, err := g.lister.SlugsWithPrefix(ctx, base)
	if err != nil {
		return "", fmt.Errorf("list slugs %q: %w", base, err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base, nil
	}

	for n := len(existing); ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
}
