package sanitize

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeExternalURLAllowed(t *testing.T) {
	for _, in := range []string{
		"https://example.com",
		"http://example.com/path?q=1#frag",
		"HTTPS://Example.com/x",
		"mailto:team@example.com",
		"tel:+491701234567",
	} {
		out, ok := SanitizeExternalURL(in)
		require.True(t, ok, "expected %q to be allowed", in)

		want, err := url.Parse(in)
		require.NoError(t, err)
		got, err := url.Parse(out)
		require.NoError(t, err)
		assert.Equal(t, want.Host, got.Host)
		assert.Equal(t, want.Path, got.Path)
		assert.Equal(t, want.Opaque, got.Opaque)
		assert.Equal(t, want.RawQuery, got.RawQuery)
	}
}

func TestSanitizeExternalURLRejected(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"javascript:alert(1)",
		"JavaScript:alert(1)",
		"data:text/html;base64,PHNjcmlwdD4=",
		"vbscript:msgbox",
		"//evil.com",
		"ftp://files.example.com",
		"https://",
		"http://[::1",
		"java\tscript:alert(1)",
		"java\nscript:alert(1)",
		"java\rscript:alert(1)",
		"\x01javascript:alert(1)",
		"javascript\x00:alert(1)",
		"\x7fjavascript:alert(1)",
		"/pages/\x1bintro",
		"https://example.com/a\tb",
		"/\\evil.com",
		"\\\\evil.com",
	} {
		out, ok := SanitizeExternalURL(in)
		assert.False(t, ok, "expected %q to be rejected", in)
		assert.Empty(t, out)
	}
}

func TestSanitizeExternalURLRelativePassThrough(t *testing.T) {
	for _, in := range []string{"/pages/grundlagen", "#tutorials", "?topic=go", "docs/intro"} {
		out, ok := SanitizeExternalURL(in)
		require.True(t, ok)
		assert.Equal(t, in, out)
	}
}

func TestValidateJSON(t *testing.T) {
	assert.NoError(t, ValidateJSON(`{"title":"x","items":[1,2]}`))
	assert.NoError(t, ValidateJSON(`"plain"`))
	assert.ErrorIs(t, ValidateJSON(`{"title":`), ErrInvalidJSON)
	assert.ErrorIs(t, ValidateJSON(`  `), ErrInvalidJSON)
	assert.ErrorIs(t, ValidateJSON(`{} {}`), ErrInvalidJSON)
}
