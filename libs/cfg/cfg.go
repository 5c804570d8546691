// Package cfg provides typed, runtime-changeable configuration values. Values
// are registered with a definition carrying a type and default, and read
// through immutable snapshots so a unit of work sees a consistent view.
package cfg

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

// ValueType defines the type of a stored config value.
type ValueType string

// The following constants are the only allowed value types.
const (
	ValueTypeBool     ValueType = "bool"
	ValueTypeInt      ValueType = "int"   // 64-bit
	ValueTypeFloat    ValueType = "float" // 64-bit
	ValueTypeString   ValueType = "string"
	ValueTypeDuration ValueType = "duration"
)

// ValueDef is the definition for a value to store.
type ValueDef struct {
	Name        string      `json:"name"`
	Type        ValueType   `json:"type"`
	Description string      `json:"description"`
	Default     interface{} `json:"default"`
	// mu used in Validate as it rewrites Default to a normalized type
	mu sync.Mutex
}

// Store is the interface implemented by configuration storage backends.
type Store interface {
	Register(def *ValueDef) error
	Defs() map[string]*ValueDef
	Snapshot() Snapshot
	Update(map[string]interface{}) error
	Close() error
}

// String implements fmt.Stringer.
func (vt ValueType) String() string {
	return string(vt)
}

// Valid returns true if the type is one of the defined constants.
func (vt ValueType) Valid() bool {
	switch vt {
	case ValueTypeBool, ValueTypeFloat, ValueTypeInt, ValueTypeString, ValueTypeDuration:
		return true
	}
	return false
}

// Validate makes sure all fields of the definition are valid.
func (d *ValueDef) Validate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Name == "" {
		return errors.New("cfg: missing name")
	}
	if !d.Type.Valid() {
		return errors.New("cfg: invalid type")
	}
	if d.Default == nil {
		return errors.New("cfg: missing default")
	}
	var ok bool
	d.Default, ok = normalizeType(d.Default, d.Type, false)
	if !ok {
		return errors.New("cfg: invalid type for default")
	}
	return nil
}

// normalizeType makes sure the value matches the expected type and returns a
// normalized version (e.g. int64 for int). If coerce is true it additionally
// tries safe conversions (those without loss of precision).
func normalizeType(v interface{}, t ValueType, coerce bool) (interface{}, bool) {
	switch v := v.(type) {
	case bool:
		return v, t == ValueTypeBool
	case int:
		if t != ValueTypeInt {
			return v, false
		}
		return int64(v), true
	case int64:
		if t == ValueTypeDuration {
			return time.Duration(v), true
		}
		return v, t == ValueTypeInt
	case float64:
		return v, t == ValueTypeFloat
	case time.Duration:
		return v, t == ValueTypeDuration
	case string:
		if t == ValueTypeString {
			return v, true
		}
		if !coerce {
			return v, false
		}
		switch t {
		case ValueTypeDuration:
			if ns, err := strconv.ParseInt(v, 10, 64); err == nil {
				return time.Duration(ns), true
			}
			d, err := time.ParseDuration(v)
			return d, err == nil
		case ValueTypeInt:
			i, err := strconv.ParseInt(v, 10, 64)
			return i, err == nil
		case ValueTypeFloat:
			f, err := strconv.ParseFloat(v, 64)
			return f, err == nil
		case ValueTypeBool:
			b, err := strconv.ParseBool(v)
			return b, err == nil
		}
		return v, false
	}
	return v, false
}
