package value

import (
	"math"
	"strings"
)

// Method names the function merging several resolved field values.
type Method string

const (
	// MethodUnset means no method was authored; multi-field inputs are added.
	MethodUnset Method = ""
	// MethodNone is the explicit "-" marker: the first value passes through
	// without combination.
	MethodNone     Method = "-"
	MethodAdd      Method = "add"
	MethodMultiply Method = "multiply"
	MethodAverage  Method = "average"
	MethodMax      Method = "max"
	MethodMin      Method = "min"
	MethodConcat   Method = "concat"
)

// ParseMethod trims the authored cell. Unknown names are kept as is and
// behave like add when combining.
func ParseMethod(raw string) Method {
	return Method(strings.TrimSpace(raw))
}

// Known reports whether m is one of the predefined methods.
func (m Method) Known() bool {
	switch m {
	case MethodUnset, MethodNone, MethodAdd, MethodMultiply, MethodAverage,
		MethodMax, MethodMin, MethodConcat:
		return true
	}
	return false
}

// Combine merges values with the given method.
// An empty slice yields None and a single value is returned unchanged
// whatever the method is.
func Combine(values []Value, method Method) Value {
	switch len(values) {
	case 0:
		return None()
	case 1:
		return values[0]
	}

	switch method {
	case MethodMultiply:
		product := 1.0
		for _, v := range values {
			if f := v.Float(); !math.IsNaN(f) {
				product *= f
			}
		}
		return Number(product)
	case MethodAverage:
		nums := numeric(values)
		if len(nums) == 0 {
			return Number(0)
		}
		sum := 0.0
		for _, f := range nums {
			sum += f
		}
		return Number(sum / float64(len(nums)))
	case MethodMax:
		nums := numeric(values)
		if len(nums) == 0 {
			return Number(0)
		}
		result := math.Inf(-1)
		for _, f := range nums {
			result = math.Max(result, f)
		}
		return Number(result)
	case MethodMin:
		nums := numeric(values)
		if len(nums) == 0 {
			return Number(0)
		}
		result := math.Inf(1)
		for _, f := range nums {
			result = math.Min(result, f)
		}
		return Number(result)
	case MethodConcat:
		var sb strings.Builder
		for _, v := range values {
			sb.WriteString(v.String())
		}
		return String(sb.String())
	default:
		// add, unset and unknown methods
		sum := 0.0
		for _, v := range values {
			if f := v.Float(); !math.IsNaN(f) {
				sum += f
			}
		}
		return Number(sum)
	}
}

func numeric(values []Value) []float64 {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f := v.Float(); !math.IsNaN(f) {
			nums = append(nums, f)
		}
	}
	return nums
}
