package setting

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is the declared type tag of a setting value.
type Type string

const (
	TypeString  Type = "STRING"
	TypeBoolean Type = "BOOLEAN"
	TypeNumber  Type = "NUMBER"
	TypeJSON    Type = "JSON"
)

// Known reports whether t is one of the supported type tags.
func (t Type) Known() bool {
	switch t {
	case TypeString, TypeBoolean, TypeNumber, TypeJSON:
		return true
	}
	return false
}

// Setting is a persisted system setting. Value is always stored as text.
type Setting struct {
	Key         string     `json:"key"`
	Value       string     `json:"-"`
	Type        Type       `json:"type"`
	Category    string     `json:"category"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	IsPublic    bool       `json:"isPublic"`
	UpdatedBy   *uuid.UUID `json:"updatedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// View is the API representation of a setting with its value coerced.
type View struct {
	Setting
	Value    any    `json:"value"`
	RawValue string `json:"rawValue"`
}

func (s *Setting) View() View {
	return View{Setting: *s, Value: Coerce(s.Value, s.Type), RawValue: s.Value}
}

// Coerce converts a stored raw value according to its type tag. Values that
// do not parse, and unknown tags, come back as the raw string.
func Coerce(raw string, t Type) any {
	switch t {
	case TypeBoolean:
		return raw == "true"
	case TypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return raw
		}
		return f
	case TypeJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return raw
		}
		return v
	default:
		return raw
	}
}

// ValidateValue checks that raw parses as t before it is written.
func ValidateValue(raw string, t Type) error {
	switch t {
	case TypeString:
		return nil
	case TypeBoolean:
		if raw != "true" && raw != "false" {
			return fmt.Errorf("value must be \"true\" or \"false\" for BOOLEAN settings")
		}
	case TypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("value must be a finite number for NUMBER settings")
		}
	case TypeJSON:
		if !json.Valid([]byte(raw)) {
			return fmt.Errorf("value must be valid JSON for JSON settings")
		}
	default:
		return fmt.Errorf("unsupported setting type %q", t)
	}
	return nil
}

// RawValue decodes a request "value" field. Strings are taken verbatim; any
// other JSON literal is kept as its compact JSON text.
func RawValue(msg json.RawMessage) (string, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return "", fmt.Errorf("value is required")
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s, nil
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return "", fmt.Errorf("value is not valid JSON: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// CreateRequest is the body of POST /settings.
type CreateRequest struct {
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Type        Type            `json:"type"`
	Category    string          `json:"category"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	IsPublic    *bool           `json:"isPublic"`
}

// UpdateRequest is the body of PUT /settings/:key. Nil fields keep their
// current value.
type UpdateRequest struct {
	Value       json.RawMessage `json:"value"`
	Type        *Type           `json:"type"`
	Category    *string         `json:"category"`
	Label       *string         `json:"label"`
	Description *string         `json:"description"`
	IsPublic    *bool           `json:"isPublic"`
}

// PublicValue is returned by the unauthenticated settings endpoint.
type PublicValue struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source"`
}

func validKey(key string) bool {
	if key == "" || len(key) > 100 {
		return false
	}
	for _, r := range key {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '.' || r == '-') {
			return false
		}
	}
	return true
}
