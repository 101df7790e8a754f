package schema

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dshills/dtshconf/internal/config/diag"
)

// Coerce converts a resolved string to a Value of type t.
func Coerce(key, s string, t Type) (Value, error) {
	switch t {
	case TypeString:
		return StringValue(s), nil
	case TypeBool:
		b, ok := ParseBool(s)
		if !ok {
			return Value{}, &diag.TypeError{Key: key, Expected: t.String(), Value: s,
				Reason: "want one of 1, yes, true, on, 0, no, false, off"}
		}
		return BoolValue(b), nil
	case TypeInt:
		i, err := ParseInt(s)
		if err != nil {
			return Value{}, &diag.TypeError{Key: key, Expected: t.String(), Value: s, Reason: err.Error()}
		}
		return IntValue(i), nil
	case TypeFloat:
		f, err := ParseFloat(s)
		if err != nil {
			return Value{}, &diag.TypeError{Key: key, Expected: t.String(), Value: s, Reason: err.Error()}
		}
		return FloatValue(f), nil
	default:
		return Value{}, &diag.TypeError{Key: key, Expected: t.String(), Value: s}
	}
}

// ParseBool accepts 1/yes/true/on and 0/no/false/off, case-insensitively.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "true", "on":
		return true, true
	case "0", "no", "false", "off":
		return false, true
	default:
		return false, false
	}
}

// ParseInt parses an optionally signed integer whose base is selected by a
// 0b, 0o or 0x prefix (either case), base 10 otherwise.
func ParseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty integer")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'b', 'B':
			base = 2
		case 'o', 'O':
			base = 8
		case 'x', 'X':
			base = 16
		}
		if base != 10 {
			s = s[2:]
		}
	}

	// ParseUint rejects signs, so "--1" and "0x-1" fail here.
	u, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, numErr.Err
		}
		return 0, err
	}

	if neg {
		if u > 1<<63 {
			return 0, strconv.ErrRange
		}
		return -int64(u), nil
	}
	if u > math.MaxInt64 {
		return 0, strconv.ErrRange
	}
	return int64(u), nil
}

// ParseFloat parses decimal or scientific notation. Infinities, NaN, hex
// floats and digit separators are rejected.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty float")
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == 'e', r == 'E', r == '+', r == '-':
		default:
			return 0, strconv.ErrSyntax
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, numErr.Err
		}
		return 0, err
	}
	return f, nil
}
