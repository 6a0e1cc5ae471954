package architecture

import (
	"sort"
	"strings"
)

// Severity classifies a violation.
type Severity string

// Hard violations must never exist in an acceptable candidate; soft
// violations are weighted quality signals.
const (
	SeverityHard Severity = "hard"
	SeveritySoft Severity = "soft"
)

// OperatorKind names a move operator in the registry.
type OperatorKind string

// Move operator kinds.
const (
	OpNone             OperatorKind = ""
	OpFuncSplit        OperatorKind = "FUNC_SPLIT"
	OpModSplit         OperatorKind = "MOD_SPLIT"
	OpFuncMerge        OperatorKind = "FUNC_MERGE"
	OpFuncMergeSimilar OperatorKind = "FUNC_MERGE_SIMILAR"
	OpMerge            OperatorKind = "MERGE"
	OpFlowRedirect     OperatorKind = "FLOW_REDIRECT"
	OpFlowConsolidate  OperatorKind = "FLOW_CONSOLIDATE"
	OpAllocShift       OperatorKind = "ALLOC_SHIFT"
	OpAllocRebalance   OperatorKind = "ALLOC_REBALANCE"
	OpReqLink          OperatorKind = "REQ_LINK"
	OpTestLink         OperatorKind = "TEST_LINK"
	OpRealloc          OperatorKind = "REALLOC"
)

// OperatorKinds lists every operator kind in a fixed order.
var OperatorKinds = []OperatorKind{
	OpFuncSplit,
	OpModSplit,
	OpFuncMerge,
	OpFuncMergeSimilar,
	OpMerge,
	OpFlowRedirect,
	OpFlowConsolidate,
	OpAllocShift,
	OpAllocRebalance,
	OpReqLink,
	OpTestLink,
	OpRealloc,
}

// Violation is a detected rule breach.
type Violation struct {
	RuleID            string       `json:"rule_id"`
	Severity          Severity     `json:"severity"`
	AffectedNodes     []string     `json:"affected_nodes"`
	Message           string       `json:"message"`
	SuggestedOperator OperatorKind `json:"suggested_operator,omitempty"`
}

// IsHard returns true for hard violations.
func (v Violation) IsHard() bool {
	return v.Severity == SeverityHard
}

// Primary returns the first affected node id, or "".
func (v Violation) Primary() string {
	if len(v.AffectedNodes) == 0 {
		return ""
	}
	return v.AffectedNodes[0]
}

// AffectedOfType returns the affected node ids whose type is t, in order.
func (v Violation) AffectedOfType(a *Architecture, t NodeType) []string {
	var out []string
	for _, id := range v.AffectedNodes {
		if a.IsType(id, t) {
			out = append(out, id)
		}
	}
	return out
}

// HasHard returns true if any violation is hard.
func HasHard(violations []Violation) bool {
	for _, v := range violations {
		if v.IsHard() {
			return true
		}
	}
	return false
}

// CountHard returns the number of hard violations.
func CountHard(violations []Violation) int {
	n := 0
	for _, v := range violations {
		if v.IsHard() {
			n++
		}
	}
	return n
}

// SortViolations orders violations by rule id, then affected nodes, then
// message. Detectors use it to keep their output deterministic.
func SortViolations(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		ak, bk := strings.Join(a.AffectedNodes, "\x00"), strings.Join(b.AffectedNodes, "\x00")
		if ak != bk {
			return ak < bk
		}
		return a.Message < b.Message
	})
}
