package rule

import (
	"propscore/internal/score/value"
	"strings"
)

// Operator is the comparison a rule applies between the resolved value and
// its threshold.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	// OpBetween expects a "min-max" threshold, bounds inclusive.
	OpBetween Operator = "><"
	// OpIn expects a comma-delimited list; a member matches by equality or
	// as a substring of the actual value.
	OpIn       Operator = "in"
	OpNotIn    Operator = "notin"
	OpExist    Operator = "exist"
	OpNotExist Operator = "notexist"
)

// ParseOperator strips the single leading quote spreadsheets use to force a
// cell such as "'=" to be read as text.
func ParseOperator(raw string) Operator {
	return Operator(strings.TrimPrefix(raw, "'"))
}

// Known reports whether the operator is supported. Unknown operators never
// match.
func (o Operator) Known() bool {
	switch o {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual,
		OpBetween, OpIn, OpNotIn, OpExist, OpNotExist:
		return true
	}
	return false
}

// Match evaluates op with threshold against the actual value. op must already
// be parsed; raw cell text goes through ParseOperator first.
// A None actual value is compared as the empty string. Numeric operators
// coerce both sides and never match when either side is NaN.
func Match(op Operator, threshold string, actual value.Value) bool {
	if actual.IsNone() {
		actual = value.String("")
	}

	switch op {
	case OpEqual:
		return actual.String() == threshold
	case OpNotEqual:
		return actual.String() != threshold
	case OpGreater:
		return actual.Float() > value.String(threshold).Float()
	case OpGreaterEqual:
		return actual.Float() >= value.String(threshold).Float()
	case OpLess:
		return actual.Float() < value.String(threshold).Float()
	case OpLessEqual:
		return actual.Float() <= value.String(threshold).Float()
	case OpBetween:
		lo, hi := bounds(threshold)
		v := actual.Float()
		return v >= lo && v <= hi
	case OpIn:
		return contains(threshold, actual)
	case OpNotIn:
		return !contains(threshold, actual)
	case OpExist:
		return !actual.IsEmpty()
	case OpNotExist:
		return actual.IsEmpty()
	default:
		return false
	}
}

// bounds splits a "min-max" threshold. Missing parts are NaN.
func bounds(threshold string) (lo, hi float64) {
	parts := strings.Split(threshold, "-")
	lo = value.String(parts[0]).Float()
	hi = value.String("").Float()
	if len(parts) > 1 {
		hi = value.String(parts[1]).Float()
	}
	return lo, hi
}

func contains(threshold string, actual value.Value) bool {
	s := strings.TrimSpace(actual.String())
	for _, member := range strings.Split(threshold, ",") {
		member = strings.TrimSpace(member)
		if s == member || strings.Contains(s, member) {
			return true
		}
	}
	return false
}
