// Package preview applies a compiled pattern to an ordered list of source
// texts and produces the match-highlight and substitution views.
package preview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/colebrumley/regexlab/internal/pattern"
	"github.com/colebrumley/regexlab/internal/template"
)

// ErrNegativeDepth is returned when a negative protected depth reaches Compute.
var ErrNegativeDepth = errors.New("protected depth must not be negative")

// DefaultHighlightClass is the CSS class of the highlight marker.
const DefaultHighlightClass = "highlight"

// Views holds one rendered entry per source text.
type Views struct {
	MatchView   []string
	ReplaceView []string
	MatchCounts []int
	Processed   int
}

// Options tunes rendering. The zero value uses the defaults.
type Options struct {
	HighlightClass string
}

// Compute renders both views. Entries at index len(sources)-depth and above
// are protected: both views hold the escaped original.
func Compute(sources []string, p *pattern.Pattern, tmpl string, depth int) (*Views, error) {
	return ComputeWithOptions(sources, p, tmpl, depth, Options{})
}

// ComputeWithOptions is Compute with explicit rendering options.
func ComputeWithOptions(sources []string, p *pattern.Pattern, tmpl string, depth int, opts Options) (*Views, error) {
	if depth < 0 {
		return nil, ErrNegativeDepth
	}
	class := opts.HighlightClass
	if class == "" {
		class = DefaultHighlightClass
	}

	replacement := template.ResolvePlaceholders(tmpl)
	end := len(sources) - depth

	v := &Views{
		MatchView:   make([]string, len(sources)),
		ReplaceView: make([]string, len(sources)),
		MatchCounts: make([]int, len(sources)),
	}
	for i, src := range sources {
		if i >= end {
			escaped := EscapeHTML(src)
			v.MatchView[i] = escaped
			v.ReplaceView[i] = escaped
			continue
		}

		highlighted, n, err := Highlight(src, p, class)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		replaced, err := p.Replace(src, replacement)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		v.MatchView[i] = highlighted
		v.ReplaceView[i] = replaced
		v.MatchCounts[i] = n
		v.Processed++
	}
	return v, nil
}

// Highlight escapes text and wraps each non-empty match in a span with the
// given class. It returns the number of wrapped matches. A pattern that only
// ever matches the empty string leaves the escaped text unchanged.
func Highlight(text string, p *pattern.Pattern, class string) (string, int, error) {
	if p.MatchesEmptyEverywhere(text) {
		return EscapeHTML(text), 0, nil
	}
	spans, err := p.FindAll(text)
	if err != nil {
		return "", 0, err
	}

	runes := []rune(text)
	open := `<span class="` + EscapeHTML(class) + `">`
	var b strings.Builder
	last, n := 0, 0
	for _, s := range spans {
		if s.Empty() {
			continue
		}
		b.WriteString(EscapeHTML(string(runes[last:s.Start])))
		b.WriteString(open)
		b.WriteString(EscapeHTML(string(runes[s.Start:s.End])))
		b.WriteString("</span>")
		last = s.End
		n++
	}
	b.WriteString(EscapeHTML(string(runes[last:])))
	return b.String(), n, nil
}

// Separators used when joining a view into a panel fragment.
const (
	MatchSeparator   = `<hr style="border:0; border-top: 1px dashed #ccc; margin: 5px 0;">`
	ReplaceSeparator = `<hr style="border:0; border-top: 1px solid #eee; margin: 5px 0;">`
)

// Join assembles a view into a single panel fragment.
func Join(view []string, sep string) string {
	return strings.Join(view, sep)
}
