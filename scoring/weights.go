// Package scoring evaluates architectures against a versioned rule-weight
// table, producing a scalar score and one score per rule category.
package scoring

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semarch/rules"
)

// Rule categories used as Pareto objectives.
const (
	CategoryStructure    = "structure"
	CategoryTraceability = "traceability"
	CategoryConnectivity = "connectivity"
	CategoryRedundancy   = "redundancy"
	CategoryOther        = "other"
)

const (
	// DefaultHardCeiling caps the weighted score of hard-violating architectures.
	DefaultHardCeiling = 0.5

	// defaultRuleWeight applies to rule ids missing from the table.
	defaultRuleWeight = 1.0
)

// RuleWeight is one entry of the weight table.
type RuleWeight struct {
	Weight   float64 `yaml:"weight" json:"weight"`
	Category string  `yaml:"category" json:"category"`
}

// Weights represents the weights.yaml structure.
type Weights struct {
	Version string `yaml:"version" json:"version"`

	// NormalizationBase divides every penalty. Zero means "use the node
	// count of the scored architecture" (at least 1).
	NormalizationBase float64 `yaml:"normalization_base" json:"normalization_base"`

	// HardCeiling is the maximum weighted score of an architecture that
	// carries a hard violation.
	HardCeiling float64 `yaml:"hard_ceiling" json:"hard_ceiling"`

	Rules map[string]RuleWeight `yaml:"rules" json:"rules"`
}

// DefaultWeights returns the built-in weight table.
func DefaultWeights() Weights {
	return Weights{
		Version:     "1",
		HardCeiling: DefaultHardCeiling,
		Rules: map[string]RuleWeight{
			rules.RuleMillersLaw:           {Weight: 1.0, Category: CategoryStructure},
			rules.RuleVolatilityIsolation:  {Weight: 0.5, Category: CategoryStructure},
			rules.RuleAllocationCohesion:   {Weight: 1.0, Category: CategoryStructure},
			rules.RuleReqUnsatisfied:       {Weight: 1.0, Category: CategoryTraceability},
			rules.RuleReqUnverified:        {Weight: 0.5, Category: CategoryTraceability},
			rules.RuleIsolation:            {Weight: 0.5, Category: CategoryConnectivity},
			rules.RuleFuncNearDuplicate:    {Weight: 2.0, Category: CategoryRedundancy},
			rules.RuleFuncMergeCandidate:   {Weight: 0.5, Category: CategoryRedundancy},
			rules.RuleSchemaNearDuplicate:  {Weight: 2.0, Category: CategoryRedundancy},
			rules.RuleSchemaMergeCandidate: {Weight: 0.5, Category: CategoryRedundancy},
		},
	}
}

// Validate checks the table for usable values.
func (w Weights) Validate() error {
	if w.Version == "" {
		return fmt.Errorf("version is required")
	}
	if w.NormalizationBase < 0 {
		return fmt.Errorf("normalization_base must be >= 0")
	}
	if w.HardCeiling <= 0 || w.HardCeiling >= 1 {
		return fmt.Errorf("hard_ceiling must be in (0, 1)")
	}
	for id, rw := range w.Rules {
		if rw.Weight < 0 {
			return fmt.Errorf("rule %s: weight must be >= 0", id)
		}
	}
	return nil
}

// Lookup returns the weight and category for a rule id, falling back to
// weight 1.0 in category "other" for unknown rules.
func (w Weights) Lookup(ruleID string) RuleWeight {
	rw, ok := w.Rules[ruleID]
	if !ok {
		return RuleWeight{Weight: defaultRuleWeight, Category: CategoryOther}
	}
	if rw.Category == "" {
		rw.Category = CategoryOther
	}
	return rw
}

// Categories returns the sorted categories named by the table, always
// including "other".
func (w Weights) Categories() []string {
	set := map[string]bool{CategoryOther: true}
	for _, rw := range w.Rules {
		if rw.Category != "" {
			set[rw.Category] = true
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ParseWeights parses a YAML weight table. Missing fields take the
// built-in defaults; rule entries override the built-in entry of the same id.
func ParseWeights(data []byte) (Weights, error) {
	var parsed Weights
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Weights{}, fmt.Errorf("parse weights: %w", err)
	}

	w := DefaultWeights()
	if parsed.Version != "" {
		w.Version = parsed.Version
	}
	if parsed.NormalizationBase != 0 {
		w.NormalizationBase = parsed.NormalizationBase
	}
	if parsed.HardCeiling != 0 {
		w.HardCeiling = parsed.HardCeiling
	}
	for id, rw := range parsed.Rules {
		w.Rules[id] = rw
	}

	if err := w.Validate(); err != nil {
		return Weights{}, fmt.Errorf("invalid weights: %w", err)
	}
	return w, nil
}

// LoadWeights loads a weight table from a YAML file.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read weights file: %w", err)
	}
	return ParseWeights(data)
}
