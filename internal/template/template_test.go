// internal/template/template_test.go
package template

import (
	"testing"
)

func TestResolvePlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "single placeholder",
			template: "[[{{match}}]]",
			want:     "[[$&]]",
		},
		{
			name:     "mixed case",
			template: "{{MATCH}} and {{Match}}",
			want:     "$& and $&",
		},
		{
			name:     "no placeholder",
			template: "<b>PLANET</b>",
			want:     "<b>PLANET</b>",
		},
		{
			name:     "empty",
			template: "",
			want:     "",
		},
		{
			name:     "near miss stays literal",
			template: "{{ match }} {match}",
			want:     "{{ match }} {match}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePlaceholders(tt.template)
			if got != tt.want {
				t.Errorf("ResolvePlaceholders() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	if n := Placeholders("{{match}}-{{MATCH}}"); n != 2 {
		t.Errorf("Placeholders() = %d, want 2", n)
	}
	if n := Placeholders("plain"); n != 0 {
		t.Errorf("Placeholders() = %d, want 0", n)
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{
			name:     "simple replacement",
			template: "slot: {{slot}}",
			data:     map[string]string{"slot": "regexToolState"},
			want:     "slot: regexToolState",
		},
		{
			name:     "multiple replacements",
			template: "{{processed}} of {{total}}",
			data:     map[string]string{"processed": "3", "total": "5"},
			want:     "3 of 5",
		},
		{
			name:     "missing variable",
			template: "status: {{status}}",
			data:     map[string]string{},
			want:     "status: {{status}}",
		},
		{
			name:     "value containing dollar",
			template: "{{a}}",
			data:     map[string]string{"a": "$1"},
			want:     "$1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.template, tt.data)
			if got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}
