package score

import (
	"encoding/json"
	"propscore/internal/score/rule"
	"propscore/internal/score/value"
)

// RuleTrace is the outcome of one rule of a metric bucket.
type RuleTrace struct {
	Rule    rule.Rule `json:"rule"`
	Matched bool      `json:"matched"`
}

// MetricTrace details how a metric was scored.
type MetricTrace struct {
	Metric   string       `json:"metric"`
	Input    string       `json:"input"`
	Method   value.Method `json:"method,omitempty"`
	Value    value.Value  `json:"value"`
	Rules    []RuleTrace  `json:"rules"`
	Matched  int          `json:"matched"`
	Raw      float64      `json:"-"`
	Weight   float64      `json:"-"`
	Weighted float64      `json:"-"`
}

// MarshalJSON writes NaN and infinities as null.
func (t MetricTrace) MarshalJSON() ([]byte, error) {
	type plain MetricTrace
	return json.Marshal(struct {
		plain
		Raw      *float64 `json:"raw"`
		Weight   *float64 `json:"weight"`
		Weighted *float64 `json:"weighted"`
	}{
		plain:    plain(t),
		Raw:      JSONFloat(t.Raw),
		Weight:   JSONFloat(t.Weight),
		Weighted: JSONFloat(t.Weighted),
	})
}

// Explain scores rec for p like Score, but evaluates every rule of every
// bucket and reports each outcome. Matched is the index of the winning rule,
// -1 when none matched.
func (e *Engine) Explain(rec Record, p Profile) []MetricTrace {
	traces := make([]MetricTrace, 0, len(p.Metrics))

	for m, metric := range p.Metrics {
		rules := e.rules.RulesFor(metric, p.Stakeholder)
		v := e.resolve(rules, rec)
		raw, matched := e.first(rules, v)

		tr := MetricTrace{
			Metric:  metric,
			Value:   v,
			Rules:   make([]RuleTrace, len(rules)),
			Matched: matched,
			Raw:     raw,
			Weight:  p.WeightAt(m),
		}
		if len(rules) > 0 {
			tr.Input = rules[0].InputSpec
			tr.Method = rules[0].Method
		}
		for i := range rules {
			tr.Rules[i] = RuleTrace{Rule: rules[i], Matched: rules[i].Matches(v)}
		}
		tr.Weighted = tr.Raw * tr.Weight

		traces = append(traces, tr)
	}

	return traces
}
