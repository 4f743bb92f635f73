package rule

import (
	"encoding/json"
	"math"
	"propscore/internal/score/value"
	"strings"
)

// Row is one authored line of the rule master table, as read from storage.
// Threshold and Score keep whatever cell type the source produced.
type Row struct {
	// Metric: output metric the rule scores (column A).
	Metric string `yaml:"metric"`
	// Input: source field name, or a comma-delimited list of names (column B).
	Input string `yaml:"input"`
	// Operator: comparison operator, optionally quote-escaped (column C).
	Operator string `yaml:"operator"`
	// Threshold: comparison target; may encode a range or a list (column D).
	Threshold any `yaml:"threshold"`
	// Score: points awarded on match (column E).
	Score any `yaml:"score"`
	// Stakeholder: whose weights and rule subset the row belongs to (column F).
	Stakeholder string `yaml:"stakeholder"`
	// Method: optional combination method for multi-field inputs (column G).
	Method string `yaml:"method"`
}

// Rule is an immutable, normalized rule.
type Rule struct {
	Metric      string       `json:"metric"`
	InputSpec   string       `json:"input"`
	Input       []string     `json:"-"`
	Operator    Operator     `json:"operator"`
	Threshold   string       `json:"threshold"`
	Score       float64      `json:"score"`
	Stakeholder string       `json:"stakeholder"`
	Method      value.Method `json:"method,omitempty"`
}

// MarshalJSON writes a non-numeric score as null.
func (r Rule) MarshalJSON() ([]byte, error) {
	type plain Rule
	out := struct {
		plain
		Score *float64 `json:"score"`
	}{plain: plain(r)}
	if !math.IsNaN(r.Score) && !math.IsInf(r.Score, 0) {
		out.Score = &r.Score
	}
	return json.Marshal(out)
}

// Matches reports whether the rule's condition holds for actual.
func (r *Rule) Matches(actual value.Value) bool {
	return Match(r.Operator, r.Threshold, actual)
}

// newRule normalizes a row. ok is false for rows without metric, input or
// stakeholder.
func newRule(row Row) (Rule, bool) {
	metric := strings.TrimSpace(row.Metric)
	input := strings.TrimSpace(row.Input)
	stakeholder := strings.TrimSpace(row.Stakeholder)
	if metric == "" || input == "" || stakeholder == "" {
		return Rule{}, false
	}

	return Rule{
		Metric:      metric,
		InputSpec:   input,
		Input:       value.SplitInput(input),
		Operator:    ParseOperator(row.Operator),
		Threshold:   cellString(row.Threshold),
		Score:       cellScore(row.Score),
		Stakeholder: stakeholder,
		Method:      value.ParseMethod(row.Method),
	}, true
}

func cellString(cell any) string {
	return value.FromAny(cell).String()
}

// cellScore treats a blank score cell as zero points.
func cellScore(cell any) float64 {
	v := value.FromAny(cell)
	if v.IsEmpty() {
		return 0
	}
	return v.Float()
}
