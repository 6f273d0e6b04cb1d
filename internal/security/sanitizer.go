// internal/security/sanitizer.go
package security

import (
	"strings"

	"golang.org/x/net/html"
)

// deniedElements are removed together with everything they contain.
var deniedElements = map[string]bool{
	"script": true,
	"iframe": true,
	"object": true,
	"embed":  true,
	"form":   true,
}

// embed is void: it never has content to skip.
var voidDenied = map[string]bool{
	"embed": true,
}

// EventHandlerPrefix marks attributes that are stripped from every element.
const EventHandlerPrefix = "on"

// SanitizeHTML removes denylisted elements (with their content) and strips
// event-handler attributes from every remaining element. Tokens that need
// no change are copied through byte for byte.
func SanitizeHTML(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	b.Grow(len(fragment))

	skipping := ""
	depth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}
		raw := string(z.Raw())
		tok := z.Token()

		if skipping != "" {
			switch {
			case tt == html.StartTagToken && tok.Data == skipping:
				depth++
			case tt == html.EndTagToken && tok.Data == skipping:
				depth--
				if depth == 0 {
					skipping = ""
				}
			}
			continue
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if deniedElements[tok.Data] {
				if !voidDenied[tok.Data] {
					skipping = tok.Data
					depth = 1
				}
				continue
			}
			if hasEventHandler(tok.Attr) {
				tok.Attr = stripEventHandlers(tok.Attr)
				b.WriteString(tok.String())
				continue
			}
		case html.EndTagToken:
			if deniedElements[tok.Data] {
				continue
			}
		}
		b.WriteString(raw)
	}
}

func hasEventHandler(attrs []html.Attribute) bool {
	for _, a := range attrs {
		if isEventHandler(a.Key) {
			return true
		}
	}
	return false
}

func stripEventHandlers(attrs []html.Attribute) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		if !isEventHandler(a.Key) {
			out = append(out, a)
		}
	}
	return out
}

func isEventHandler(key string) bool {
	return strings.HasPrefix(strings.ToLower(key), EventHandlerPrefix)
}
