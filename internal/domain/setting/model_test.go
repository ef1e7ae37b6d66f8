package setting

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		raw  string
		typ  Type
		want any
	}{
		{"true", TypeBoolean, true},
		{"false", TypeBoolean, false},
		{"TRUE", TypeBoolean, false},
		{"1", TypeBoolean, false},
		{"", TypeBoolean, false},
		{"42", TypeNumber, float64(42)},
		{" 2.5 ", TypeNumber, 2.5},
		{"abc", TypeNumber, "abc"},
		{`{"a":1}`, TypeJSON, map[string]any{"a": float64(1)}},
		{`[1,"x"]`, TypeJSON, []any{float64(1), "x"}},
		{`{bad`, TypeJSON, `{bad`},
		{"hello", TypeString, "hello"},
		{"true", Type("COLOR"), "true"},
	}
	for _, tt := range tests {
		got := Coerce(tt.raw, tt.typ)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Coerce(%q, %s) = %#v, want %#v", tt.raw, tt.typ, got, tt.want)
		}
	}
}

func TestValidateValue(t *testing.T) {
	tests := []struct {
		raw   string
		typ   Type
		valid bool
	}{
		{"true", TypeBoolean, true},
		{"false", TypeBoolean, true},
		{"yes", TypeBoolean, false},
		{"3.14", TypeNumber, true},
		{"-7", TypeNumber, true},
		{"NaN", TypeNumber, false},
		{"Inf", TypeNumber, false},
		{"ten", TypeNumber, false},
		{`{"k":[1,2]}`, TypeJSON, true},
		{`"quoted"`, TypeJSON, true},
		{`{k:1}`, TypeJSON, false},
		{"anything", TypeString, true},
		{"x", Type("COLOR"), false},
	}
	for _, tt := range tests {
		err := ValidateValue(tt.raw, tt.typ)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateValue(%q, %s) error = %v, want valid=%v", tt.raw, tt.typ, err, tt.valid)
		}
	}
}

func TestRawValue(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`"true"`, "true", false},
		{`true`, "true", false},
		{`12.5`, "12.5", false},
		{`{ "a" : [1, 2] }`, `{"a":[1,2]}`, false},
		{`""`, "", false},
		{`null`, "", true},
		{``, "", true},
	}
	for _, tt := range tests {
		got, err := RawValue(json.RawMessage(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("RawValue(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("RawValue(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidKey(t *testing.T) {
	for _, k := range []string{"ENABLE_PATIENT_SIGNUP", "ui.theme", "max-upload"} {
		if !validKey(k) {
			t.Errorf("expected %q to be valid", k)
		}
	}
	for _, k := range []string{"", "has space", "semi;colon"} {
		if validKey(k) {
			t.Errorf("expected %q to be invalid", k)
		}
	}
}
