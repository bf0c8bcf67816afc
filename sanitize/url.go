package sanitize

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var ErrInvalidJSON = errors.New("invalid json")

// schemePattern matches a leading RFC 3986 scheme followed by a colon.
var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// SanitizeExternalURL returns a link target that is safe to persist and
// render. Strings without a scheme are relative targets and pass through
// unchanged. Strings with a scheme must parse and use one of http, https,
// mailto or tel. Protocol-relative URLs and strings containing ASCII
// control characters are rejected; browsers drop those characters before
// reading the scheme.
func SanitizeExternalURL(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || protocolRelative(s) || strings.IndexFunc(s, isControl) >= 0 {
		return "", false
	}
	if !schemePattern.MatchString(s) {
		return s, true
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if !allowedSchemes[scheme] {
		return "", false
	}
	if (scheme == "http" || scheme == "https") && u.Host == "" {
		return "", false
	}
	u.Scheme = scheme
	return u.String(), true
}

// protocolRelative reports a leading "//"; browsers read a backslash there
// as a slash.
func protocolRelative(s string) bool {
	return len(s) >= 2 && (s[0] == '/' || s[0] == '\\') && (s[1] == '/' || s[1] == '\\')
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// ValidateJSON checks that raw is a single well-formed JSON value.
func ValidateJSON(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty document", ErrInvalidJSON)
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}
