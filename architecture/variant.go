package architecture

// ScoreResult is the multi-objective evaluation of an architecture.
// PerObjective holds one score per rule category; Weighted is the scalar
// used for ranking and acceptance.
type ScoreResult struct {
	PerObjective   map[string]float64 `json:"per_objective"`
	Weighted       float64            `json:"weighted"`
	HardViolations int                `json:"hard_violations"`
}

// Acceptable returns true when the score carries no hard violations.
func (s ScoreResult) Acceptable() bool {
	return s.HardViolations == 0
}

// Dominates reports whether s is at least as good as other on every
// objective and strictly better on at least one. Objectives missing from
// one side count as 0.
func (s ScoreResult) Dominates(other ScoreResult) bool {
	better := false
	for _, k := range objectiveUnion(s.PerObjective, other.PerObjective) {
		a, b := s.PerObjective[k], other.PerObjective[k]
		if a < b {
			return false
		}
		if a > b {
			better = true
		}
	}
	return better
}

func objectiveUnion(a, b map[string]float64) []string {
	set := make(map[string]bool, len(a)+len(b))
	for k := range a {
		set[k] = true
	}
	for k := range b {
		set[k] = true
	}
	return SortedKeys(set)
}

// Variant is one candidate architecture with its score and lineage.
// Lineage forms a DAG stored as an arena: Index is the variant's slot in
// the search's lineage slice and ParentIndex points at its parent's slot
// (-1 for the root).
type Variant struct {
	ID              string        `json:"id"`
	Index           int           `json:"index"`
	ParentIndex     int           `json:"parent_index"`
	ParentID        string        `json:"parent_id,omitempty"`
	Architecture    *Architecture `json:"architecture"`
	Score           ScoreResult   `json:"score"`
	AppliedOperator OperatorKind  `json:"applied_operator,omitempty"`
	Generation      int           `json:"generation"`
}

// IsRoot returns true for the baseline variant.
func (v Variant) IsRoot() bool {
	return v.ParentIndex < 0
}
