package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var umlauts = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// NormalizeSlug is the lenient form used for lookups: trimmed and lowercased.
func NormalizeSlug(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// SanitizeSlug turns raw into a URL-safe slug made of [a-z0-9] runs joined by
// single hyphens. Whitespace, underscores, dots and slashes act as separators,
// everything else outside the allowed set is dropped. The result is empty if
// nothing valid remains.
func SanitizeSlug(raw string) string {
	s := umlauts.Replace(NormalizeSlug(raw))
	s = stripMarks(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '-', r == '_', r == '.', r == '/', unicode.IsSpace(r):
			pendingSep = true
		}
	}
	return b.String()
}

// IsValidSlug reports whether slug is already in sanitized form.
func IsValidSlug(slug string) bool {
	return slug != "" && slugPattern.MatchString(slug) && SanitizeSlug(slug) == slug
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
