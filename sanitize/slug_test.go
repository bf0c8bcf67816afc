package sanitize

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Grundlagen  ", "grundlagen"},
		{"snake_case_title", "snake-case-title"},
		{"--leading and trailing--", "leading-and-trailing"},
		{"many   spaces\tand\ttabs", "many-spaces-and-tabs"},
		{"a--b__c", "a-b-c"},
		{"Übung für Anfänger", "uebung-fuer-anfaenger"},
		{"Straße", "strasse"},
		{"Café Crème", "cafe-creme"},
		{"C++ & Go!", "c-go"},
		{"v1.2/intro", "v1-2-intro"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeSlug(tt.in), "input %q", tt.in)
	}
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, IsValidSlug("hello-world"))
	assert.True(t, IsValidSlug("a1"))
	assert.False(t, IsValidSlug(""))
	assert.False(t, IsValidSlug("Hello"))
	assert.False(t, IsValidSlug("-lead"))
	assert.False(t, IsValidSlug("double--dash"))
	assert.False(t, IsValidSlug("under_score"))
}

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "grundlagen", NormalizeSlug("  Grundlagen \n"))
	assert.Equal(t, "", NormalizeSlug("   "))
}

func TestSanitizeSlugProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("sanitizing is idempotent", prop.ForAll(
		func(s string) bool {
			once := SanitizeSlug(s)
			return SanitizeSlug(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("non-empty output is a valid slug", prop.ForAll(
		func(s string) bool {
			out := SanitizeSlug(s)
			return out == "" || IsValidSlug(out)
		},
		gen.AnyString(),
	))

	properties.Property("alphanumeric words survive joined by hyphens", prop.ForAll(
		func(a, b string) bool {
			if a == "" || b == "" {
				return true
			}
			return SanitizeSlug(a+" "+b) == a+"-"+b
		},
		gen.AlphaString().Map(strings.ToLower),
		gen.AlphaString().Map(strings.ToLower),
	))

	properties.TestingRun(t)
}
