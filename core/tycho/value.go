package tycho

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueType identifies which member of a Value is set.
type ValueType int

const (
	// TypeInt is an integer value.
	TypeInt ValueType = iota
	// TypeFloat is a floating point value.
	TypeFloat
	// TypeString is a free text value.
	TypeString
)

func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a scalar header value: an int, a float or a string.
type Value struct {
	Type  ValueType
	Int   int64
	Float float64
	Str   string
}

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{Type: TypeInt, Int: i} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{Type: TypeFloat, Float: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Type: TypeString, Str: s} }

// Convert turns a token into an int if possible, else a float (with
// exponent-marker recovery), else leaves it as a string.
func Convert(token string) Value {
	token = strings.TrimSpace(token)
	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := RecoverFloat(token); err == nil {
		return FloatValue(f)
	}
	return StringValue(token)
}

// Number returns the value as a float64 for int and float values.
func (v Value) Number() (float64, bool) {
	switch v.Type {
	case TypeInt:
		return float64(v.Int), true
	case TypeFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// IsNumeric reports whether the value is an int or a float.
func (v Value) IsNumeric() bool {
	return v.Type == TypeInt || v.Type == TypeFloat
}

// Interface returns the underlying int64, float64 or string.
func (v Value) Interface() any {
	switch v.Type {
	case TypeInt:
		return v.Int
	case TypeFloat:
		return v.Float
	default:
		return v.Str
	}
}

func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Str
	}
}

// MarshalJSON encodes the value as a bare JSON number or string.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
