// Package session is the preview orchestrator: it owns the editable record,
// recomputes both panels after every change, and remembers the last good
// render while the pattern does not compile.
package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/colebrumley/regexlab/internal/pattern"
	"github.com/colebrumley/regexlab/internal/preview"
	"github.com/colebrumley/regexlab/internal/security"
	"github.com/colebrumley/regexlab/internal/template"
)

// ErrIndexOutOfRange is returned by source edits that name a missing entry.
var ErrIndexOutOfRange = errors.New("source index out of range")

// Status is the orchestrator state.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
)

// Panels are the two rendered fragments.
type Panels struct {
	Match   string `json:"match"`
	Replace string `json:"replace"`
}

// Result describes the outcome of one recompute.
type Result struct {
	State   State          `json:"state"`
	Status  Status         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Panels  Panels         `json:"panels"`
	Tags    []string       `json:"tags"`
	Warning string         `json:"warning,omitempty"`
	Views   *preview.Views `json:"-"`
}

// Options configures rendering. Zero values fall back to the defaults.
type Options struct {
	HighlightClass    string
	MatchSeparator    string
	ReplaceSeparator  string
	DefaultSourceText string
	Sanitizer         security.Sanitizer
}

// WithDefaults fills every unset field with its package default.
func (o Options) WithDefaults() Options {
	if o.HighlightClass == "" {
		o.HighlightClass = preview.DefaultHighlightClass
	}
	if o.MatchSeparator == "" {
		o.MatchSeparator = preview.MatchSeparator
	}
	if o.ReplaceSeparator == "" {
		o.ReplaceSeparator = preview.ReplaceSeparator
	}
	if o.DefaultSourceText == "" {
		o.DefaultSourceText = DefaultSourceText
	}
	if o.Sanitizer == nil {
		o.Sanitizer = security.DenylistSanitizer{}
	}
	return o
}

// Session holds the current record and the last rendered panels.
// It is not safe for concurrent use; hosts serialize access.
type Session struct {
	opts   Options
	state  State
	status Status
	err    string
	panels Panels
	tags   []string
	views  *preview.Views
}

// New creates a session and renders st once.
func New(st State, opts Options) *Session {
	s := &Session{opts: opts.WithDefaults()}
	s.Update(st)
	return s
}

// State returns a copy of the current record.
func (s *Session) State() State {
	return s.state.Clone()
}

// Status returns whether the last compile succeeded.
func (s *Session) Status() Status {
	return s.status
}

// Result returns the current outcome without recomputing.
func (s *Session) Result() Result {
	return Result{
		State:   s.state.Clone(),
		Status:  s.status,
		Error:   s.err,
		Panels:  s.panels,
		Tags:    append([]string(nil), s.tags...),
		Warning: security.TagWarning(s.tags),
		Views:   s.views,
	}
}

// Update replaces the record and recomputes. The tag scan always runs; the
// panels change only when the pattern compiles, otherwise they keep their
// last good content and the compile error is reported.
func (s *Session) Update(st State) Result {
	st = st.Clone()
	st.Depth = ClampDepth(st.Depth)
	s.state = st
	s.tags = security.FindForbiddenTags(st.Replacement)

	views, panels, err := Render(st, s.opts)
	if err != nil {
		s.status = StatusInvalid
		s.err = err.Error()
		s.views = nil
		return s.Result()
	}

	s.status = StatusValid
	s.err = ""
	s.panels = panels
	s.views = views
	return s.Result()
}

// Render computes the panels for st without touching any session. It is
// the stateless path used by the API preview endpoint and the MCP tool.
func Render(st State, opts Options) (*preview.Views, Panels, error) {
	opts = opts.WithDefaults()
	p, err := pattern.Compile(st.Regex, st.Flags)
	if err != nil {
		return nil, Panels{}, err
	}
	views, err := preview.ComputeWithOptions(st.Sources, p, st.Replacement, ClampDepth(st.Depth), preview.Options{
		HighlightClass: opts.HighlightClass,
	})
	if err != nil {
		return nil, Panels{}, fmt.Errorf("preview failed: %w", err)
	}
	return views, Panels{
		Match:   preview.Join(views.MatchView, opts.MatchSeparator),
		Replace: opts.Sanitizer.Sanitize(preview.Join(views.ReplaceView, opts.ReplaceSeparator)),
	}, nil
}

// SetRegex changes the pattern.
func (s *Session) SetRegex(v string) Result {
	st := s.State()
	st.Regex = v
	return s.Update(st)
}

// SetFlags changes the flags.
func (s *Session) SetFlags(v string) Result {
	st := s.State()
	st.Flags = v
	return s.Update(st)
}

// SetReplacement changes the replacement template.
func (s *Session) SetReplacement(v string) Result {
	st := s.State()
	st.Replacement = v
	return s.Update(st)
}

// SetDepth changes the protected depth; negative values become 0.
func (s *Session) SetDepth(d int) Result {
	st := s.State()
	st.Depth = ClampDepth(d)
	return s.Update(st)
}

// SetDepthString changes the depth from raw form input.
func (s *Session) SetDepthString(v string) Result {
	return s.SetDepth(ParseDepth(v))
}

// AddSource appends a source entry; empty text uses the default sample text.
func (s *Session) AddSource(text string) Result {
	if text == "" {
		text = s.opts.DefaultSourceText
	}
	st := s.State()
	st.Sources = append(st.Sources, text)
	return s.Update(st)
}

// EditSource replaces the entry at index i.
func (s *Session) EditSource(i int, text string) (Result, error) {
	if i < 0 || i >= len(s.state.Sources) {
		return s.Result(), fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(s.state.Sources))
	}
	st := s.State()
	st.Sources[i] = text
	return s.Update(st), nil
}

// DeleteSource removes the entry at index i.
func (s *Session) DeleteSource(i int) (Result, error) {
	if i < 0 || i >= len(s.state.Sources) {
		return s.Result(), fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(s.state.Sources))
	}
	st := s.State()
	st.Sources = append(st.Sources[:i], st.Sources[i+1:]...)
	return s.Update(st), nil
}

const summaryLine = "{{status}}: {{processed}}/{{total}} sources processed, {{matches}} matches, depth {{depth}}"

// Summary renders a one-line status for hosts.
func (s *Session) Summary() string {
	processed, matches := 0, 0
	if s.views != nil {
		processed = s.views.Processed
		for _, n := range s.views.MatchCounts {
			matches += n
		}
	}
	line := template.Expand(summaryLine, map[string]string{
		"status":    string(s.status),
		"processed": strconv.Itoa(processed),
		"total":     strconv.Itoa(len(s.state.Sources)),
		"matches":   strconv.Itoa(matches),
		"depth":     strconv.Itoa(s.state.Depth),
	})
	if s.err != "" {
		line += " (" + s.err + ")"
	}
	return line
}
