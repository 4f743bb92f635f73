package score

import (
	"propscore/internal/score/rule"
	"propscore/internal/score/value"
)

// Engine scores records against an indexed rule table.
// For every metric of a profile the first rule of the (metric, stakeholder)
// bucket decides which fields feed the metric; the first rule whose
// condition matches the resolved value gives the raw score, zero otherwise.
// The engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	// rules: indexed rule table, read-only.
	rules *rule.Table
	// resolver: turns input specs into values, including field extraction.
	resolver *value.Resolver
}

// NewEngine creates an engine. A nil resolver means the default one with the
// listing transit field.
func NewEngine(rules *rule.Table, resolver *value.Resolver) *Engine {
	if resolver == nil {
		resolver = value.NewDefaultResolver()
	}
	return &Engine{rules: rules, resolver: resolver}
}

// Rules returns the table the engine scores with.
func (e *Engine) Rules() *rule.Table {
	return e.rules
}

// Score computes the raw, weighted and total score of rec for p.
// A metric without rules, or without a matching rule, scores zero. A
// non-numeric weight is NaN and makes the total NaN.
func (e *Engine) Score(rec Record, p Profile) Result {
	result := Result{
		RecordID:    rec.ID,
		Position:    rec.Position,
		Stakeholder: p.Stakeholder,
		Metrics:     p.Metrics,
		Raw:         make([]float64, len(p.Metrics)),
		Weighted:    make([]float64, len(p.Metrics)),
	}

	for i, metric := range p.Metrics {
		rules := e.rules.RulesFor(metric, p.Stakeholder)
		raw, _ := e.first(rules, e.resolve(rules, rec))
		weighted := raw * p.WeightAt(i)

		result.Raw[i] = raw
		result.Weighted[i] = weighted
		result.Total += weighted
	}

	return result
}

// resolve uses the input spec and method of the first rule only.
func (e *Engine) resolve(rules []rule.Rule, rec Record) value.Value {
	if len(rules) == 0 {
		return value.None()
	}
	return e.resolver.Resolve(rules[0].Input, rules[0].Method, rec.Fields)
}

// first returns the score and index of the first matching rule, or (0, -1).
func (e *Engine) first(rules []rule.Rule, v value.Value) (float64, int) {
	for i := range rules {
		if rules[i].Matches(v) {
			return rules[i].Score, i
		}
	}
	return 0, -1
}
