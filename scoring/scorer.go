package scoring

import (
	"fmt"

	"github.com/c360studio/semarch/architecture"
)

// Scorer computes ScoreResults from a fixed weight table. A Scorer is
// immutable and safe for concurrent use.
type Scorer struct {
	weights    Weights
	categories []string
}

// NewScorer creates a Scorer for the given weight table.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	rulesCopy := make(map[string]RuleWeight, len(w.Rules))
	for k, v := range w.Rules {
		rulesCopy[k] = v
	}
	w.Rules = rulesCopy
	return &Scorer{weights: w, categories: w.Categories()}, nil
}

// DefaultScorer returns a Scorer over DefaultWeights.
func DefaultScorer() *Scorer {
	s, err := NewScorer(DefaultWeights())
	if err != nil {
		panic(err)
	}
	return s
}

// Weights returns the scorer's weight table.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// HardCeiling returns the cap applied to hard-violating architectures.
func (s *Scorer) HardCeiling() float64 {
	return s.weights.HardCeiling
}

// Score evaluates a given its violations.
//
// Weighted = 1 - Σ(weight × count / base). When any violation is hard the
// scalar is HardCeiling × clamp(raw, 0, 1), so the architecture stays below
// any acceptance threshold above the ceiling but remains rankable.
func (s *Scorer) Score(a *architecture.Architecture, violations []architecture.Violation) architecture.ScoreResult {
	base := s.weights.NormalizationBase
	if base == 0 {
		base = float64(max(1, a.NodeCount()))
	}

	penalty := 0.0
	perCategory := make(map[string]float64, len(s.categories))
	for _, c := range s.categories {
		perCategory[c] = 0
	}
	for _, v := range violations {
		rw := s.weights.Lookup(v.RuleID)
		p := rw.Weight / base
		penalty += p
		perCategory[rw.Category] += p
	}

	result := architecture.ScoreResult{
		PerObjective:   make(map[string]float64, len(perCategory)),
		HardViolations: architecture.CountHard(violations),
	}
	for c, p := range perCategory {
		result.PerObjective[c] = 1.0 - p
	}

	raw := 1.0 - penalty
	if result.HardViolations > 0 {
		result.Weighted = s.weights.HardCeiling * clamp(raw, 0, 1)
	} else {
		result.Weighted = raw
	}
	return result
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
