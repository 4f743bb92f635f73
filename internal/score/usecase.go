package score

import (
	"encoding/json"
	"math"
	"propscore/internal/score/value"
)

// Record is one listing row. Fields are addressed by column name; the set of
// columns is whatever the source provides.
type Record struct {
	// ID: string form of the identifier column.
	ID string
	// Position: 0-based index of the row in its source.
	Position int
	// Fields: raw cells by column name.
	Fields map[string]value.Value
}

// WeightSet maps an output metric to its weight for one stakeholder.
type WeightSet map[string]float64

// Weight returns the weight of metric, NaN when none is configured.
func (w WeightSet) Weight(metric string) float64 {
	if weight, ok := w[metric]; ok {
		return weight
	}
	return math.NaN()
}

// Profile is a stakeholder's ordered metric list with its weights.
// A metric may be listed more than once; each occurrence keeps its own weight.
type Profile struct {
	Stakeholder string
	Metrics     []string
	// Weights: weight by metric name, first occurrence wins.
	Weights WeightSet
	// Positional: weights parallel to Metrics. Nil falls back to Weights.
	Positional []float64
}

// NewProfile pairs metrics with the parallel weight list. Weights missing at
// the tail are NaN.
func NewProfile(stakeholder string, metrics []string, weights []float64) Profile {
	ws := make(WeightSet, len(metrics))
	positional := make([]float64, len(metrics))
	for i, m := range metrics {
		positional[i] = math.NaN()
		if i < len(weights) {
			positional[i] = weights[i]
		}
		if _, seen := ws[m]; !seen {
			ws[m] = positional[i]
		}
	}
	return Profile{Stakeholder: stakeholder, Metrics: metrics, Weights: ws, Positional: positional}
}

// WeightAt returns the weight of the i-th metric.
func (p Profile) WeightAt(i int) float64 {
	if p.Positional != nil {
		if i < 0 || i >= len(p.Positional) {
			return math.NaN()
		}
		return p.Positional[i]
	}
	if i < 0 || i >= len(p.Metrics) {
		return math.NaN()
	}
	return p.Weights.Weight(p.Metrics[i])
}

// Result is the score of one record for one stakeholder.
// Raw and Weighted are aligned with Metrics.
type Result struct {
	RecordID    string
	Position    int
	Stakeholder string
	Metrics     []string
	Total       float64
	Raw         []float64
	Weighted    []float64
}

// MarshalJSON writes NaN and infinities as null.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RecordID    string     `json:"id"`
		Position    int        `json:"row"`
		Stakeholder string     `json:"stakeholder"`
		Metrics     []string   `json:"metrics"`
		Total       *float64   `json:"total"`
		Raw         []*float64 `json:"raw"`
		Weighted    []*float64 `json:"weighted"`
	}{
		RecordID:    r.RecordID,
		Position:    r.Position,
		Stakeholder: r.Stakeholder,
		Metrics:     r.Metrics,
		Total:       JSONFloat(r.Total),
		Raw:         jsonFloats(r.Raw),
		Weighted:    jsonFloats(r.Weighted),
	})
}

// JSONFloat returns nil for values JSON cannot carry.
func JSONFloat(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func jsonFloats(fs []float64) []*float64 {
	out := make([]*float64, len(fs))
	for i, f := range fs {
		out[i] = JSONFloat(f)
	}
	return out
}

// RecordScorer scores one record for one stakeholder profile.
type RecordScorer interface {
	Score(rec Record, p Profile) Result
}
