// Package pattern compiles a pattern string and a browser-style flags
// string into a matcher backed by regexp2 in ECMAScript mode.
package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single match or replace pass.
var DefaultMatchTimeout = 2 * time.Second

// knownFlags lists every flag the browser engine accepts, in canonical order.
const knownFlags = "dgimsuvy"

// CompileError is returned when a pattern/flags pair is not a valid matcher.
type CompileError struct {
	Pattern string
	Flags   string
	Reason  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid regular expression /%s/%s: %s", e.Pattern, e.Flags, e.Reason)
}

// Span is a single match located by rune offsets into the searched text.
type Span struct {
	Start int
	End   int
	Text  string
}

// Empty reports whether the span is a zero-width match.
func (s Span) Empty() bool {
	return s.Start == s.End
}

// Pattern is a compiled pattern/flags pair.
type Pattern struct {
	source string
	flags  string
	global bool
	sticky bool
	re     *regexp2.Regexp
}

// Compile builds a Pattern. Unknown, duplicate, or unsupported flags and
// invalid syntax are all reported as *CompileError.
func Compile(source, flags string) (*Pattern, error) {
	p := &Pattern{source: source, flags: flags}
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	dotAll := false

	seen := make(map[rune]bool)
	for _, f := range flags {
		if !strings.ContainsRune(knownFlags, f) {
			return nil, &CompileError{Pattern: source, Flags: flags, Reason: fmt.Sprintf("invalid flag %q", f)}
		}
		if seen[f] {
			return nil, &CompileError{Pattern: source, Flags: flags, Reason: fmt.Sprintf("duplicate flag %q", f)}
		}
		seen[f] = true

		switch f {
		case 'g':
			p.global = true
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			dotAll = true
		case 'u':
			opts |= regexp2.Unicode
		case 'y':
			p.sticky = true
		case 'v':
			return nil, &CompileError{Pattern: source, Flags: flags, Reason: "flag 'v' (unicode sets) is not supported"}
		}
		// 'd' only changes the shape of match results.
	}

	expr := source
	if dotAll {
		// ECMAScript mode ignores Singleline, so dot is widened by hand.
		expr = expandDots(expr)
	}
	if p.sticky {
		expr = `\G(?:` + expr + `)`
	}

	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		return nil, &CompileError{Pattern: source, Flags: flags, Reason: err.Error()}
	}
	re.MatchTimeout = DefaultMatchTimeout
	p.re = re
	return p, nil
}

// Source returns the pattern text as written by the author.
func (p *Pattern) Source() string { return p.source }

// Flags returns the flags string as written by the author.
func (p *Pattern) Flags() string { return p.flags }

// Global reports whether every match is used rather than only the first.
func (p *Pattern) Global() bool { return p.global }

func (p *Pattern) String() string {
	return "/" + p.source + "/" + p.flags
}

// FindAll returns the non-overlapping matches in text: all of them for a
// global pattern, at most one otherwise.
func (p *Pattern) FindAll(text string) ([]Span, error) {
	runes := []rune(text)
	m, err := p.re.FindRunesMatch(runes)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", p, err)
	}

	var spans []Span
	for m != nil {
		spans = append(spans, Span{Start: m.Index, End: m.Index + m.Length, Text: m.String()})
		if !p.global {
			break
		}
		m, err = p.re.FindNextMatch(m)
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", p, err)
		}
	}
	return spans, nil
}

// Replace substitutes matches in text with replacement, which uses the
// engine's substitution syntax ($&, $1, $$ ...).
func (p *Pattern) Replace(text, replacement string) (string, error) {
	count := 1
	if p.global {
		count = -1
	}
	out, err := p.re.Replace(text, replacement, -1, count)
	if err != nil {
		return "", fmt.Errorf("replacing with %s: %w", p, err)
	}
	return out, nil
}

// MatchesEmptyEverywhere reports whether, at every position of text, the
// leftmost match starting there is zero-width. Such a pattern carries no
// information worth highlighting.
func (p *Pattern) MatchesEmptyEverywhere(text string) bool {
	runes := []rune(text)
	for pos := 0; pos <= len(runes); pos++ {
		m, err := p.re.FindRunesMatchStartingAt(runes, pos)
		if err != nil || m == nil {
			return false
		}
		if m.Index != pos || m.Length != 0 {
			return false
		}
	}
	return true
}

// expandDots rewrites every unescaped '.' outside a character class to
// [\s\S] so it also matches line terminators.
func expandDots(expr string) string {
	var b strings.Builder
	b.Grow(len(expr))
	inClass, escaped := false, false
	for _, r := range expr {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case inClass:
			if r == ']' {
				inClass = false
			}
		case r == '[':
			inClass = true
		case r == '.':
			b.WriteString(`[\s\S]`)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
