package rules

import (
	"fmt"

	"github.com/c360studio/semarch/architecture"
)

// Weights of the similarity terms.
const (
	funcDescWeight    = 0.35
	funcVerbWeight    = 0.25
	funcIOExactWeight = 0.25
	funcIOShareWeight = 0.15
	funcReqWeight     = 0.10
	funcParentWeight  = 0.05
	schemaFieldWeight = 0.50
	schemaLabelWeight = 0.25
	schemaFlowWeight  = 0.25
)

// FuncSimilarity scores how alike two FUNC nodes of a are, in [0, 1].
func FuncSimilarity(a *architecture.Architecture, x, y string) float64 {
	nx, okx := a.Node(x)
	ny, oky := a.Node(y)
	if !okx || !oky {
		return 0
	}

	score := funcDescWeight * TokenJaccard(nx.Description(), ny.Description())

	if vx, vy := CanonicalVerb(label(nx)), CanonicalVerb(label(ny)); vx != "" && vx == vy {
		score += funcVerbWeight
	}

	inX, outX := a.IOCounts(x)
	inY, outY := a.IOCounts(y)
	switch {
	case inX == inY && outX == outY && inX+outX > 0:
		score += funcIOExactWeight
	case (inX > 0 && inY > 0) || (outX > 0 && outY > 0):
		score += funcIOShareWeight
	}

	score += funcReqWeight * Jaccard(a.SatisfiedReqs(x), a.SatisfiedReqs(y))

	if px := a.ComposeParent(x); px != "" && px == a.ComposeParent(y) {
		score += funcParentWeight
	}
	return clamp01(score)
}

// SchemaSimilarity scores how alike two SCHEMA nodes of a are, in [0, 1].
func SchemaSimilarity(a *architecture.Architecture, x, y string) float64 {
	nx, okx := a.Node(x)
	ny, oky := a.Node(y)
	if !okx || !oky {
		return 0
	}

	dx, dy := nx.Properties[architecture.PropStruct], ny.Properties[architecture.PropStruct]
	fx, parsedX := StructFields(dx)
	fy, parsedY := StructFields(dy)
	var fields float64
	if parsedX || parsedY {
		fields = Jaccard(fx, fy)
	} else {
		fields = TokenJaccard(structText(dx), structText(dy))
	}

	score := schemaFieldWeight*fields +
		schemaLabelWeight*TokenJaccard(label(nx), label(ny)) +
		schemaFlowWeight*Jaccard(a.Neighbors(x, architecture.NodeFlow), a.Neighbors(y, architecture.NodeFlow))
	return clamp01(score)
}

func checkFuncSimilarity(a *architecture.Architecture, t Thresholds) []architecture.Violation {
	return pairwise(a, t, architecture.NodeFunc, FuncSimilarity,
		RuleFuncNearDuplicate, RuleFuncMergeCandidate, architecture.OpFuncMergeSimilar, "Functions")
}

func checkSchemaSimilarity(a *architecture.Architecture, t Thresholds) []architecture.Violation {
	return pairwise(a, t, architecture.NodeSchema, SchemaSimilarity,
		RuleSchemaNearDuplicate, RuleSchemaMergeCandidate, architecture.OpMerge, "Schemas")
}

// pairwise scores every unordered pair of nodes of type nt.
func pairwise(
	a *architecture.Architecture,
	t Thresholds,
	nt architecture.NodeType,
	sim func(*architecture.Architecture, string, string) float64,
	hardRule, softRule string,
	softOp architecture.OperatorKind,
	noun string,
) []architecture.Violation {
	var out []architecture.Violation
	nodes := a.NodesOfType(nt)
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			x, y := nodes[i].ID, nodes[j].ID
			s := sim(a, x, y)
			switch {
			case s >= t.NearDuplicate:
				out = append(out, architecture.Violation{
					RuleID:            hardRule,
					Severity:          architecture.SeverityHard,
					AffectedNodes:     []string{x, y},
					Message:           fmt.Sprintf("%s %s and %s are near-duplicates (similarity %.2f)", noun, x, y, s),
					SuggestedOperator: architecture.OpMerge,
				})
			case s >= t.MergeCandidate:
				out = append(out, architecture.Violation{
					RuleID:            softRule,
					Severity:          architecture.SeveritySoft,
					AffectedNodes:     []string{x, y},
					Message:           fmt.Sprintf("%s %s and %s are merge candidates (similarity %.2f)", noun, x, y, s),
					SuggestedOperator: softOp,
				})
			}
		}
	}
	return out
}

func label(n architecture.Node) string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
