// internal/template/template.go
package template

import (
	"regexp"
	"strings"
)

// WholeMatch is the engine's back-reference to the entire match.
const WholeMatch = "$&"

var placeholder = regexp.MustCompile(`(?i)\{\{match\}\}`)

// ResolvePlaceholders rewrites every {{match}} placeholder (any letter case)
// into the whole-match back-reference so it always inserts what matched.
func ResolvePlaceholders(tmpl string) string {
	return placeholder.ReplaceAllLiteralString(tmpl, WholeMatch)
}

// Placeholders returns how many {{match}} placeholders tmpl contains.
func Placeholders(tmpl string) int {
	return len(placeholder.FindAllStringIndex(tmpl, -1))
}

// Expand replaces {{name}} placeholders with values from data, leaving
// unknown names untouched. Used for the host-side status lines.
func Expand(tmpl string, data map[string]string) string {
	var b strings.Builder
	last := 0
	for _, loc := range namedVar.FindAllStringSubmatchIndex(tmpl, -1) {
		name := tmpl[loc[2]:loc[3]]
		val, ok := data[name]
		if !ok {
			continue
		}
		b.WriteString(tmpl[last:loc[0]])
		b.WriteString(val)
		last = loc[1]
	}
	b.WriteString(tmpl[last:])
	return b.String()
}

var namedVar = regexp.MustCompile(`\{\{(\w+)\}\}`)
