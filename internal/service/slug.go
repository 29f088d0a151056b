package service

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify normalizes a tag name into its slug: accents folded, lowercase,
// runs of anything that is not a letter or digit collapsed into one hyphen.
//
//	"Serra Gaúcha"      → "serra-gaucha"
//	"Rocky  Mountains!" → "rocky-mountains"
func Slugify(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NormalizeTags slugifies names, drops empty and duplicate slugs, and sorts
// the result. It never returns nil.
func NormalizeTags(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s := Slugify(n); s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}
