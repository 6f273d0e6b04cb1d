// internal/security/tagguard_test.go
package security

import (
	"reflect"
	"testing"
)

func TestFindForbiddenTags(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{name: "none", template: `<span style="color: blue;">PLANET</span>`, want: nil},
		{name: "empty", template: "", want: nil},
		{name: "script open and close", template: `<script>x</script>`, want: []string{"script"}},
		{name: "case insensitive", template: `<HTML><Body>`, want: []string{"html", "body"}},
		{name: "close only", template: `</head>`, want: []string{"head"}},
		{name: "repeats deduplicated", template: `<body></body><body>`, want: []string{"body"}},
		{name: "word boundary", template: `<bodyguard><header><scripts>`, want: nil},
		{name: "attributes after name", template: `<script src="x.js">`, want: []string{"script"}},
		{name: "escaped text is not a tag", template: `&lt;script&gt;`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindForbiddenTags(tt.template)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindForbiddenTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTagWarning(t *testing.T) {
	if got := TagWarning(nil); got != "" {
		t.Errorf("TagWarning(nil) = %q, want empty", got)
	}
	got := TagWarning([]string{"script", "html"})
	want := "host page may not support: <script>, <html>"
	if got != want {
		t.Errorf("TagWarning() = %q, want %q", got, want)
	}
}
