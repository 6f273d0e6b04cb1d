// internal/security/allowlist.go
package security

import (
	"fmt"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer modes accepted in configuration.
const (
	ModeDenylist  = "denylist"
	ModeAllowlist = "allowlist"
)

// Sanitizer cleans the replacement panel before it is rendered.
type Sanitizer interface {
	Sanitize(fragment string) string
}

// DenylistSanitizer applies SanitizeHTML.
type DenylistSanitizer struct{}

func (DenylistSanitizer) Sanitize(fragment string) string {
	return SanitizeHTML(fragment)
}

// AllowlistSanitizer keeps only the constructs of a bluemonday UGC policy
// extended with class and a small set of inline styles. It is strictly
// tighter than the denylist and meant for untrusted input.
type AllowlistSanitizer struct {
	policy *bluemonday.Policy
}

// NewAllowlistSanitizer builds the allowlist policy.
func NewAllowlistSanitizer() *AllowlistSanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowStyling()
	p.AllowAttrs("style").Globally()
	p.AllowStyles(
		"color", "background-color", "font-weight", "font-style",
		"font-size", "text-decoration", "border", "border-top",
		"margin", "padding",
	).Globally()
	p.AllowElements("hr", "span", "mark")
	return &AllowlistSanitizer{policy: p}
}

func (s *AllowlistSanitizer) Sanitize(fragment string) string {
	out := s.policy.Sanitize(fragment)
	// Event handlers never survive the UGC policy; the denylist pass is a
	// floor so allowlist mode is never looser than the default.
	return SanitizeHTML(out)
}

// NewSanitizer returns the sanitizer for a configured mode.
func NewSanitizer(mode string) (Sanitizer, error) {
	switch mode {
	case "", ModeDenylist:
		return DenylistSanitizer{}, nil
	case ModeAllowlist:
		return NewAllowlistSanitizer(), nil
	default:
		return nil, fmt.Errorf("unknown sanitizer mode: %s", mode)
	}
}
