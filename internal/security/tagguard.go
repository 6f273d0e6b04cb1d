// internal/security/tagguard.go
package security

import (
	"regexp"
	"strings"
)

// forbiddenTagPattern matches opening or closing forms of structural tags
// that a host page fragment cannot carry.
var forbiddenTagPattern = regexp.MustCompile(`(?i)</?(html|body|head|script)\b`)

// FindForbiddenTags scans a raw replacement template and returns the
// distinct forbidden tag names it mentions, lower-cased, in first-seen order.
func FindForbiddenTags(tmpl string) []string {
	var found []string
	seen := make(map[string]bool)
	for _, m := range forbiddenTagPattern.FindAllStringSubmatch(tmpl, -1) {
		name := strings.ToLower(m[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		found = append(found, name)
	}
	return found
}

// TagWarning formats the advisory shown next to the template, or "" when
// no forbidden tags were found.
func TagWarning(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	formatted := make([]string, len(tags))
	for i, t := range tags {
		formatted[i] = "<" + t + ">"
	}
	return "host page may not support: " + strings.Join(formatted, ", ")
}
