// Package rules detects structural-quality violations in an architecture
// graph. Detection is a pure function of the graph: the same input yields
// the same, deterministically ordered, violation list on every call.
package rules

import (
	"fmt"

	"github.com/c360studio/semarch/architecture"
)

// Rule identifiers emitted by the detector.
const (
	RuleMillersLaw           = "millers_law_func"
	RuleVolatilityIsolation  = "volatility_isolation"
	RuleReqUnsatisfied       = "req_unsatisfied"
	RuleReqUnverified        = "req_unverified"
	RuleIsolation            = "isolation"
	RuleAllocationCohesion   = "allocation_cohesion"
	RuleFuncNearDuplicate    = "func_near_duplicate"
	RuleFuncMergeCandidate   = "func_merge_candidate"
	RuleSchemaNearDuplicate  = "schema_near_duplicate"
	RuleSchemaMergeCandidate = "schema_merge_candidate"
)

// RuleIDs lists every rule the detector can emit.
var RuleIDs = []string{
	RuleMillersLaw,
	RuleVolatilityIsolation,
	RuleReqUnsatisfied,
	RuleReqUnverified,
	RuleIsolation,
	RuleAllocationCohesion,
	RuleFuncNearDuplicate,
	RuleFuncMergeCandidate,
	RuleSchemaNearDuplicate,
	RuleSchemaMergeCandidate,
}

// Thresholds parameterizes the rule catalog.
type Thresholds struct {
	// MinFuncsPerModule and MaxFuncsPerModule bound module cardinality.
	MinFuncsPerModule int `json:"min_funcs_per_module" yaml:"min_funcs_per_module"`
	MaxFuncsPerModule int `json:"max_funcs_per_module" yaml:"max_funcs_per_module"`

	// HighVolatility is the volatility at or above which a FUNC is "high".
	HighVolatility float64 `json:"high_volatility" yaml:"high_volatility"`

	// NearDuplicate is the similarity at or above which a pair is a hard violation.
	NearDuplicate float64 `json:"near_duplicate" yaml:"near_duplicate"`

	// MergeCandidate is the similarity at or above which a pair is a soft violation.
	MergeCandidate float64 `json:"merge_candidate" yaml:"merge_candidate"`
}

// DefaultThresholds returns the standard rule constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinFuncsPerModule: 5,
		MaxFuncsPerModule: 9,
		HighVolatility:    0.7,
		NearDuplicate:     0.85,
		MergeCandidate:    0.70,
	}
}

// Validate checks that the thresholds are coherent.
func (t Thresholds) Validate() error {
	if t.MinFuncsPerModule < 1 {
		return fmt.Errorf("min_funcs_per_module must be at least 1")
	}
	if t.MaxFuncsPerModule < t.MinFuncsPerModule {
		return fmt.Errorf("max_funcs_per_module must be >= min_funcs_per_module")
	}
	if t.HighVolatility <= 0 || t.HighVolatility > 1 {
		return fmt.Errorf("high_volatility must be in (0, 1]")
	}
	if t.MergeCandidate <= 0 || t.MergeCandidate > t.NearDuplicate || t.NearDuplicate > 1 {
		return fmt.Errorf("similarity thresholds must satisfy 0 < merge_candidate <= near_duplicate <= 1")
	}
	return nil
}

// check is one entry of the rule catalog.
type check func(a *architecture.Architecture, t Thresholds) []architecture.Violation

// Detector applies the fixed rule catalog to an architecture.
type Detector struct {
	thresholds Thresholds
	checks     []check
}

// NewDetector creates a Detector with the given thresholds.
func NewDetector(t Thresholds) (*Detector, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	return &Detector{
		thresholds: t,
		checks: []check{
			checkCardinality,
			checkVolatility,
			checkTraceability,
			checkIsolation,
			checkAllocationCohesion,
			checkFuncSimilarity,
			checkSchemaSimilarity,
		},
	}, nil
}

// DefaultDetector returns a Detector using DefaultThresholds.
func DefaultDetector() *Detector {
	d, err := NewDetector(DefaultThresholds())
	if err != nil {
		panic(err)
	}
	return d
}

// Thresholds returns the detector's thresholds.
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Detect returns every violation in a, sorted by rule id then affected nodes.
func (d *Detector) Detect(a *architecture.Architecture) []architecture.Violation {
	var out []architecture.Violation
	for _, c := range d.checks {
		out = append(out, c(a, d.thresholds)...)
	}
	architecture.SortViolations(out)
	return out
}
