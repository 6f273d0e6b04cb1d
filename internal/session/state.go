package session

import (
	"encoding/json"
	"strings"
)

// State is the editable record: everything the user authors.
type State struct {
	Regex       string   `json:"regex" yaml:"regex"`
	Flags       string   `json:"flags" yaml:"flags"`
	Replacement string   `json:"replacement" yaml:"replacement"`
	Depth       int      `json:"depth" yaml:"depth"`
	Sources     []string `json:"sources" yaml:"sources"`
}

// DefaultSourceText is the text of a newly added source entry.
const DefaultSourceText = "Click to edit this new sample..."

// DefaultState returns the record used when nothing is persisted.
func DefaultState() State {
	return State{
		Regex:       `\bworld\b`,
		Flags:       "gi",
		Replacement: `<span style="color: blue; font-weight: bold;">PLANET</span>`,
		Depth:       2,
		Sources: []string{
			"This is the 1st reply about the world.",
			"This is the 2nd reply about the world.",
			"This is the 3rd reply about the world.",
			"4th reply: Let's not touch this one.",
			"5th reply: Or this one.",
		},
	}
}

// Clone returns a copy that shares no slice memory with s.
func (s State) Clone() State {
	c := s
	c.Sources = append([]string(nil), s.Sources...)
	return c
}

// stateFields mirrors State with optional fields so a partial or older
// record fills the gaps from defaults instead of being rejected.
type stateFields struct {
	Regex       *string          `json:"regex"`
	Flags       *string          `json:"flags"`
	Replacement *string          `json:"replacement"`
	Depth       *json.RawMessage `json:"depth"`
	Sources     *[]string        `json:"sources"`
}

// DecodeState parses a persisted record. Malformed JSON yields the default
// record and the parse error; missing or unusable fields default one by one.
func DecodeState(data []byte) (State, error) {
	st := DefaultState()
	var f stateFields
	if err := json.Unmarshal(data, &f); err != nil {
		return st, err
	}
	if f.Regex != nil {
		st.Regex = *f.Regex
	}
	if f.Flags != nil {
		st.Flags = *f.Flags
	}
	if f.Replacement != nil {
		st.Replacement = *f.Replacement
	}
	if f.Depth != nil {
		var n float64
		if err := json.Unmarshal(*f.Depth, &n); err == nil {
			st.Depth = ClampDepth(int(n))
		} else {
			var s string
			if err := json.Unmarshal(*f.Depth, &s); err == nil {
				st.Depth = ParseDepth(s)
			}
		}
	}
	if f.Sources != nil && *f.Sources != nil {
		st.Sources = append([]string(nil), (*f.Sources)...)
	}
	return st, nil
}

// EncodeState serializes the record for the persistence slot.
func EncodeState(st State) ([]byte, error) {
	if st.Sources == nil {
		st.Sources = []string{}
	}
	return json.Marshal(st)
}

// ParseDepth reads a depth the way a numeric form field does: leading
// whitespace and an optional sign, then as many digits as present. Anything
// non-numeric or negative becomes 0.
func ParseDepth(s string) int {
	s = strings.TrimLeft(s, " \t\r\n")
	neg := false
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n < 1<<30 {
			n = n*10 + int(r-'0')
		}
		digits++
	}
	if digits == 0 || neg {
		return 0
	}
	return n
}

// ClampDepth maps negative depths to 0.
func ClampDepth(d int) int {
	if d < 0 {
		return 0
	}
	return d
}
