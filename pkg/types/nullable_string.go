package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NullableString tracks whether a string field was present in JSON at all.
// Valid is true for any present key, including an explicit null.
type NullableString struct {
	Valid bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if bytes.Equal(trimmed, []byte("null")) {
		n.Valid = true
		n.Value = nil
		return nil
	}

	var parsed string
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Valid = true
	n.Value = &parsed
	return nil
}

// Present builds a NullableString that was supplied with value.
func Present(value string) NullableString {
	return NullableString{Valid: true, Value: &value}
}

// Blank reports whether the field is absent, null, or whitespace only.
func (n NullableString) Blank() bool {
	return n.Value == nil || strings.TrimSpace(*n.Value) == ""
}

// Trimmed returns the trimmed value, or "" when null or absent.
func (n NullableString) Trimmed() string {
	if n.Value == nil {
		return ""
	}
	return strings.TrimSpace(*n.Value)
}

// Raw returns the value exactly as sent, or "" when null or absent.
func (n NullableString) Raw() string {
	if n.Value == nil {
		return ""
	}
	return *n.Value
}
