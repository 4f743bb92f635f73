package value

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	// KindNone marks the absence of a value: a missing field, an extraction
	// without match, or an empty combination.
	KindNone Kind = iota
	KindNumber
	KindString
)

// Value is a raw record cell or a resolved rule input.
// The zero Value is None.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// None returns the "no value" marker.
func None() Value {
	return Value{}
}

// Number wraps a numeric value. NaN is allowed and propagates.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// String wraps a text value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Parse converts raw cell text into a Value: text that parses as a number
// becomes a Number, anything else (including empty text) stays a String.
func Parse(raw string) Value {
	if f, ok := parseNumber(raw); ok {
		return Number(f)
	}
	return String(raw)
}

// FromAny converts decoded cell data (JSON, YAML, SQL) into a Value.
// nil becomes an empty String, since a blank cell is present but empty.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return String("")
	case Value:
		return t
	case string:
		return Parse(t)
	case []byte:
		return Parse(string(t))
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case bool:
		return String(strconv.FormatBool(t))
	case interface{ String() string }:
		return Parse(t.String())
	default:
		return String("")
	}
}

// Kind reports what the value holds.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNone reports whether v is the "no value" marker.
func (v Value) IsNone() bool {
	return v.kind == KindNone
}

// IsEmpty reports whether v is None or an empty string.
func (v Value) IsEmpty() bool {
	return v.kind == KindNone || (v.kind == KindString && v.str == "")
}

// String is the string coercion used by equality and list operators.
// None coerces to the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindString:
		return v.str
	default:
		return ""
	}
}

// Float is the numeric coercion used by arithmetic operators and combiners.
// Anything that is not a number, including empty text, yields NaN.
func (v Value) Float() float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		if f, ok := parseNumber(v.str); ok {
			return f
		}
	}
	return math.NaN()
}

// Coerces reports whether the numeric coercion of v is not NaN.
func (v Value) Coerces() bool {
	return !math.IsNaN(v.Float())
}

// Any returns the natural Go representation: nil, float64 or string.
func (v Value) Any() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	default:
		return nil
	}
}

// MarshalJSON writes None and non-finite numbers as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// FormatNumber renders f in its shortest decimal form.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	switch lower := strings.ToLower(s); {
	case s == "":
		return 0, false
	case s == "Infinity" || s == "+Infinity":
		return math.Inf(1), true
	case s == "-Infinity":
		return math.Inf(-1), true
	case strings.Contains(lower, "inf") || strings.Contains(lower, "nan"):
		return 0, false
	case len(s) > 2 && s[0] == '0' && strings.ContainsRune("xob", rune(lower[1])):
		return parseInteger(s[2:], lower[1])
	case strings.ContainsAny(lower, "xp_"):
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseInteger reads an unsigned 0x, 0o or 0b literal without its prefix.
func parseInteger(digits string, prefix byte) (float64, bool) {
	base := map[byte]int{'x': 16, 'o': 8, 'b': 2}[prefix]
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}
