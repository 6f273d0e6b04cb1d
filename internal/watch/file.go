// internal/watch/file.go
package watch

import (
	"fmt"
	"os"

	"github.com/colebrumley/regexlab/internal/session"
	"gopkg.in/yaml.v3"
)

type fileFields struct {
	Regex       *string    `yaml:"regex"`
	Flags       *string    `yaml:"flags"`
	Replacement *string    `yaml:"replacement"`
	Depth       *yaml.Node `yaml:"depth"`
	Sources     *[]string  `yaml:"sources"`
}

// LoadFile reads a YAML session file. Missing fields take their default.
func LoadFile(path string) (session.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return session.State{}, fmt.Errorf("reading session file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes YAML session file content.
func ParseFile(data []byte) (session.State, error) {
	st := session.DefaultState()
	var f fileFields
	if err := yaml.Unmarshal(data, &f); err != nil {
		return st, fmt.Errorf("parsing session file: %w", err)
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
		st.Depth = session.ParseDepth(f.Depth.Value)
	}
	if f.Sources != nil {
		st.Sources = append([]string{}, (*f.Sources)...)
	}
	return st, nil
}

// WriteFile stores st as a YAML session file.
func WriteFile(path string, st session.State) error {
	if st.Sources == nil {
		st.Sources = []string{}
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}
