package schema

import (
	"fmt"
	"strconv"
)

// Type is the declared type of a setting.
type Type uint8

const (
	// TypeString is a string value, optionally restricted to an enum.
	TypeString Type = iota
	// TypeBool is a boolean value.
	TypeBool
	// TypeInt is a 64-bit signed integer.
	TypeInt
	// TypeFloat is a 64-bit float.
	TypeFloat
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Value is a typed setting value. The zero Value is an empty string.
type Value struct {
	typ Type
	s   string
	b   bool
	i   int64
	f   float64
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{typ: TypeString, s: s} }

// BoolValue returns a bool Value.
func BoolValue(b bool) Value { return Value{typ: TypeBool, b: b} }

// IntValue returns an integer Value.
func IntValue(i int64) Value { return Value{typ: TypeInt, i: i} }

// FloatValue returns a float Value.
func FloatValue(f float64) Value { return Value{typ: TypeFloat, f: f} }

// Zero returns the zero Value of t.
func Zero(t Type) Value { return Value{typ: t} }

// ValueOf converts a Go value (string, bool, any integer, float) to a Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint8:
		return IntValue(int64(x)), nil
	case uint16:
		return IntValue(int64(x)), nil
	case uint32:
		return IntValue(int64(x)), nil
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		return FloatValue(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// Type returns the value's type.
func (v Value) Type() Type { return v.typ }

// Str returns the string payload; empty for non-string values.
func (v Value) Str() string { return v.s }

// Bool returns the bool payload; false for non-bool values.
func (v Value) Bool() bool { return v.b }

// Int returns the integer payload; 0 for non-integer values.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload; 0 for non-float values.
func (v Value) Float() float64 { return v.f }

// Any returns the payload as a plain Go value.
func (v Value) Any() any {
	switch v.typ {
	case TypeBool:
		return v.b
	case TypeInt:
		return v.i
	case TypeFloat:
		return v.f
	default:
		return v.s
	}
}

// String returns the canonical text of the value. Coercing the result back
// with the same type yields an equal Value.
func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		if v.b {
			return "yes"
		}
		return "no"
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// Equal reports whether two values have the same type and payload.
func (v Value) Equal(o Value) bool {
	return v == o
}
