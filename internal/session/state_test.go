package session

import (
	"reflect"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	st := State{
		Regex:       `(\d+)-"x"`,
		Flags:       "gim",
		Replacement: "<i>{{match}}</i> & $1",
		Depth:       3,
		Sources:     []string{"1-\"x\"", "", "unicode 世界  "},
	}
	data, err := EncodeState(st)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeState(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, st) {
		t.Errorf("round trip = %+v, want %+v", got, st)
	}
}

func TestEncodeState_NilSourcesAsArray(t *testing.T) {
	data, err := EncodeState(State{})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"regex":"","flags":"","replacement":"","depth":0,"sources":[]}`
	if string(data) != want {
		t.Errorf("EncodeState() = %s, want %s", data, want)
	}
}

func TestDecodeState_Malformed(t *testing.T) {
	got, err := DecodeState([]byte(`{not json`))
	if err == nil {
		t.Error("expected parse error")
	}
	if !reflect.DeepEqual(got, DefaultState()) {
		t.Error("malformed record should fall back to defaults")
	}
}

func TestDecodeState_PerFieldDefaults(t *testing.T) {
	got, err := DecodeState([]byte(`{"regex":"abc","depth":"7"}`))
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultState()
	if got.Regex != "abc" {
		t.Errorf("Regex = %q", got.Regex)
	}
	if got.Depth != 7 {
		t.Errorf("Depth = %d, want 7", got.Depth)
	}
	if got.Flags != def.Flags || got.Replacement != def.Replacement {
		t.Error("missing fields should take defaults")
	}
	if !reflect.DeepEqual(got.Sources, def.Sources) {
		t.Error("missing sources should take defaults")
	}
}

func TestDecodeState_NullDepthAndNegative(t *testing.T) {
	got, err := DecodeState([]byte(`{"depth":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Depth != DefaultState().Depth {
		t.Errorf("null depth = %d, want default", got.Depth)
	}

	got, err = DecodeState([]byte(`{"depth":-4}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Depth != 0 {
		t.Errorf("negative depth = %d, want 0", got.Depth)
	}
}

func TestParseDepth(t *testing.T) {
	tests := map[string]int{
		"0":    0,
		"12":   12,
		"5px":  5,
		"+2":   2,
		"-2":   0,
		"x1":   0,
		"":     0,
		"\t3 ": 3,
	}
	for in, want := range tests {
		if got := ParseDepth(in); got != want {
			t.Errorf("ParseDepth(%q) = %d, want %d", in, got, want)
		}
	}
}
