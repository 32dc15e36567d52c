// Package energy folds layout attributes into a single scalar score.
//
// The score is a weighted sum over the six attributes reported by
// [analyze.Analyze]. Lower is better, and a layout with zero energy has no
// defects worth penalizing under the chosen weights. An [Evaluator] pairs the
// weights with the analysis [analyze.Policy] so both travel together through
// configuration and the annealing loop.
package energy

import (
	"math"

	"github.com/matzehuels/graphanneal/pkg/analyze"
	"github.com/matzehuels/graphanneal/pkg/model"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// Weights holds one non-negative multiplier per attribute.
type Weights struct {
	Overlap       float64 `json:"overlap" toml:"overlap"`
	NodeOnEdge    float64 `json:"node_on_edge" toml:"node_on_edge"`
	Crossing      float64 `json:"crossing" toml:"crossing"`
	RankViolation float64 `json:"rank_violation" toml:"rank_violation"`
	Length        float64 `json:"length" toml:"length"`
	Area          float64 `json:"area" toml:"area"`
}

// DefaultWeights returns the weights used with the threshold analysis.
func DefaultWeights() Weights {
	return Weights{
		Overlap:       100,
		NodeOnEdge:    100,
		Crossing:      10,
		RankViolation: 5,
		Length:        1,
		Area:          1,
	}
}

// ExactWeights returns the weights used with the exact analysis. Crossings
// are penalized harder and area is ignored.
func ExactWeights() Weights {
	return Weights{
		Overlap:       100,
		NodeOnEdge:    100,
		Crossing:      50,
		RankViolation: 5,
		Length:        1,
		Area:          0,
	}
}

// Vector returns the weights in [analyze.FieldNames] order.
func (w Weights) Vector() [6]float64 {
	return [6]float64{w.Overlap, w.NodeOnEdge, w.Crossing, w.RankViolation, w.Length, w.Area}
}

// Apply returns the weighted sum of a.
func (w Weights) Apply(a analyze.Attributes) float64 {
	attrs, weights := a.Vector(), w.Vector()
	sum := 0.0
	for i := range attrs {
		sum += attrs[i] * weights[i]
	}
	return sum
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	for i, v := range w.Vector() {
		if !(v >= 0) || math.IsInf(v, 1) {
			return errs.New(errs.ErrCodeInvalidConfig, "weight %q must be non-negative and finite, got %v", analyze.FieldNames[i], v)
		}
	}
	return nil
}

// Evaluator scores layouts. The zero value weighs nothing and reports zero
// energy for every layout; use [Default] or [Exact] for the presets.
type Evaluator struct {
	Policy  analyze.Policy `json:"policy" toml:"policy"`
	Weights Weights        `json:"weights" toml:"weights"`
}

// Default returns the threshold policy with [DefaultWeights].
func Default() Evaluator {
	return Evaluator{Policy: analyze.ThresholdPolicy(), Weights: DefaultWeights()}
}

// Exact returns the exact policy with [ExactWeights].
func Exact() Evaluator {
	return Evaluator{Policy: analyze.ExactPolicy(), Weights: ExactWeights()}
}

// Validate checks both the policy and the weights.
func (e Evaluator) Validate() error {
	if err := e.Policy.Validate(); err != nil {
		return err
	}
	return e.Weights.Validate()
}

// Analyze returns the attribute vector of m under the evaluator's policy.
func (e Evaluator) Analyze(m *model.Model) analyze.Attributes {
	return analyze.Analyze(m, e.Policy)
}

// Energy returns the weighted score of m. It does not modify m.
func (e Evaluator) Energy(m *model.Model) float64 {
	return e.Weights.Apply(e.Analyze(m))
}

// Score returns both the attributes and the energy of m.
func (e Evaluator) Score(m *model.Model) (analyze.Attributes, float64) {
	a := e.Analyze(m)
	return a, e.Weights.Apply(a)
}
