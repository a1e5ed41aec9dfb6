// Package jsonutil decodes individual raw JSON values with strict kind checks.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrWrongKind is returned when a raw value is not of the requested JSON kind.
var ErrWrongKind = errors.New("wrong JSON kind")

var null = []byte("null")

// IsNull reports whether raw is missing or the literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, null)
}

// Float returns the number held by raw, or nil for null/empty.
// Quoted numbers, booleans and other kinds return ErrWrongKind.
func Float(raw json.RawMessage) (*float64, error) {
	if IsNull(raw) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, ErrWrongKind
	}
	return &v, nil
}

// Int returns the integer held by raw, or nil for null/empty.
// Fractions, quoted numbers and other kinds return ErrWrongKind.
func Int(raw json.RawMessage) (*int64, error) {
	if IsNull(raw) {
		return nil, nil
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, ErrWrongKind
	}
	return &v, nil
}
