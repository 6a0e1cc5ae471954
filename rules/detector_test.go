package rules

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semarch/architecture"
)

// Tests cover:
// - Miller's Law upper and lower bounds
// - isolation, traceability, volatility and allocation cohesion rules
// - FUNC and SCHEMA similarity thresholds
// - deterministic ordering and idempotence of Detect

func countRule(vs []architecture.Violation, rule string) int {
	n := 0
	for _, v := range vs {
		if v.RuleID == rule {
			n++
		}
	}
	return n
}

func oversizedModule(t *testing.T) *architecture.Architecture {
	t.Helper()
	nodes := []architecture.Node{{ID: "M1", Type: architecture.NodeModule, Label: "Core"}}
	var edges []architecture.Edge
	for i := 1; i <= 11; i++ {
		id := fmt.Sprintf("F%d", i)
		nodes = append(nodes, architecture.Node{ID: id, Type: architecture.NodeFunc, Label: id})
		edges = append(edges, architecture.Edge{Source: id, Target: "M1", Type: architecture.EdgeAllocate})
	}
	a, err := architecture.New(nodes, edges)
	require.NoError(t, err)
	return a
}

func TestDetect_OversizedModuleWithIsolatedFuncs(t *testing.T) {
	vs := DefaultDetector().Detect(oversizedModule(t))

	require.Len(t, vs, 12)
	assert.Equal(t, 1, countRule(vs, RuleMillersLaw))
	assert.Equal(t, 11, countRule(vs, RuleIsolation))

	for _, v := range vs {
		switch v.RuleID {
		case RuleMillersLaw:
			assert.Contains(t, v.Message, "11 FUNCs (max 9)")
			assert.Equal(t, architecture.OpModSplit, v.SuggestedOperator)
			assert.Equal(t, "M1", v.Primary())
		case RuleIsolation:
			assert.Equal(t, architecture.OpFlowRedirect, v.SuggestedOperator)
			assert.Len(t, v.AffectedNodes, 1)
		}
		assert.False(t, v.IsHard())
	}
}

func TestDetect_Idempotent(t *testing.T) {
	a := oversizedModule(t)
	d := DefaultDetector()
	assert.Equal(t, d.Detect(a), d.Detect(a))
}

func TestDetect_UndersizedModule(t *testing.T) {
	a := architecture.MustNew(
		[]architecture.Node{
			{ID: "M", Type: architecture.NodeModule},
			{ID: "A", Type: architecture.NodeFunc, Label: "ParseInput"},
			{ID: "B", Type: architecture.NodeFunc, Label: "RenderOutput"},
			{ID: "X", Type: architecture.NodeFlow},
		},
		[]architecture.Edge{
			{Source: "A", Target: "M", Type: architecture.EdgeAllocate},
			{Source: "M", Target: "B", Type: architecture.EdgeAllocate},
			{Source: "A", Target: "X", Type: architecture.EdgeIO},
			{Source: "X", Target: "B", Type: architecture.EdgeIO},
		},
	)

	vs := DefaultDetector().Detect(a)
	require.Len(t, vs, 1)
	assert.Equal(t, RuleMillersLaw, vs[0].RuleID)
	assert.Contains(t, vs[0].Message, "2 FUNCs (min 5)")
	assert.Equal(t, architecture.OpFuncMerge, vs[0].SuggestedOperator)
	assert.Equal(t, []string{"M", "A", "B"}, vs[0].AffectedNodes)
}

func TestDetect_Traceability(t *testing.T) {
	a := architecture.MustNew(
		[]architecture.Node{
			{ID: "R1", Type: architecture.NodeReq},
			{ID: "R2", Type: architecture.NodeReq},
			{ID: "T1", Type: architecture.NodeTest},
			{ID: "U", Type: architecture.NodeUseCase},
		},
		[]architecture.Edge{
			{Source: "U", Target: "R1", Type: architecture.EdgeSatisfy},
			{Source: "R1", Target: "T1", Type: architecture.EdgeVerify},
		},
	)

	vs := DefaultDetector().Detect(a)
	require.Len(t, vs, 2)
	assert.Equal(t, RuleReqUnsatisfied, vs[0].RuleID)
	assert.Equal(t, architecture.OpReqLink, vs[0].SuggestedOperator)
	assert.Equal(t, RuleReqUnverified, vs[1].RuleID)
	assert.Equal(t, architecture.OpTestLink, vs[1].SuggestedOperator)
	assert.Equal(t, []string{"R2"}, vs[0].AffectedNodes)
}

func TestDetect_VolatilityAndCohesion(t *testing.T) {
	nodes := []architecture.Node{
		{ID: "M1", Type: architecture.NodeModule},
		{ID: "M2", Type: architecture.NodeModule},
		{ID: "X", Type: architecture.NodeFlow},
	}
	var edges []architecture.Edge
	vols := []any{0.9, 0.1, 0.2, nil, 0.3}
	verbs := []string{"Parse", "Render", "Send", "Store", "Delete"}
	for i, v := range vols {
		id := fmt.Sprintf("F%d", i)
		n := architecture.Node{ID: id, Type: architecture.NodeFunc, Label: verbs[i] + "Thing"}
		if v != nil {
			n.Properties = map[string]any{architecture.PropVolatility: v}
		}
		nodes = append(nodes, n)
		edges = append(edges,
			architecture.Edge{Source: id, Target: "M1", Type: architecture.EdgeAllocate},
			architecture.Edge{Source: "X", Target: id, Type: architecture.EdgeIO},
		)
	}
	edges = append(edges, architecture.Edge{Source: "M2", Target: "F4", Type: architecture.EdgeAllocate})

	vs := DefaultDetector().Detect(architecture.MustNew(nodes, edges))

	var got []string
	for _, v := range vs {
		got = append(got, v.RuleID)
	}
	assert.Contains(t, got, RuleVolatilityIsolation)
	assert.Contains(t, got, RuleAllocationCohesion)

	for _, v := range vs {
		switch v.RuleID {
		case RuleVolatilityIsolation:
			assert.Equal(t, []string{"M1", "F0"}, v.AffectedNodes)
			assert.Equal(t, architecture.OpAllocShift, v.SuggestedOperator)
		case RuleAllocationCohesion:
			assert.Equal(t, []string{"F4", "M1", "M2"}, v.AffectedNodes)
			assert.Equal(t, architecture.OpRealloc, v.SuggestedOperator)
		}
	}
}

func nearDuplicatePair(t *testing.T) *architecture.Architecture {
	t.Helper()
	desc := map[string]any{architecture.PropDescription: "validate customer order totals"}
	a, err := architecture.New(
		[]architecture.Node{
			{ID: "C", Type: architecture.NodeFuncChain},
			{ID: "A", Type: architecture.NodeFunc, Label: "ValidateOrder", Properties: desc},
			{ID: "B", Type: architecture.NodeFunc, Label: "CheckOrder", Properties: desc},
			{ID: "IN", Type: architecture.NodeFlow},
			{ID: "OUT", Type: architecture.NodeFlow},
		},
		[]architecture.Edge{
			{Source: "C", Target: "A", Type: architecture.EdgeCompose},
			{Source: "C", Target: "B", Type: architecture.EdgeCompose},
			{Source: "IN", Target: "A", Type: architecture.EdgeIO},
			{Source: "A", Target: "OUT", Type: architecture.EdgeIO},
			{Source: "IN", Target: "B", Type: architecture.EdgeIO},
			{Source: "B", Target: "OUT", Type: architecture.EdgeIO},
		},
	)
	require.NoError(t, err)
	return a
}

func TestDetect_FuncNearDuplicate(t *testing.T) {
	a := nearDuplicatePair(t)

	assert.InDelta(t, 0.90, FuncSimilarity(a, "A", "B"), 1e-9)

	vs := DefaultDetector().Detect(a)
	require.Equal(t, 1, countRule(vs, RuleFuncNearDuplicate))
	assert.Zero(t, countRule(vs, RuleFuncMergeCandidate))
	for _, v := range vs {
		if v.RuleID == RuleFuncNearDuplicate {
			assert.True(t, v.IsHard())
			assert.Equal(t, architecture.OpMerge, v.SuggestedOperator)
			assert.Equal(t, []string{"A", "B"}, v.AffectedNodes)
		}
	}
}

func TestFuncSimilarity_MergeCandidate(t *testing.T) {
	// Same verb, same io arity and parent, half the description tokens.
	a := architecture.MustNew(
		[]architecture.Node{
			{ID: "C", Type: architecture.NodeFuncChain},
			{ID: "A", Type: architecture.NodeFunc, Label: "VerifyPayment",
				Properties: map[string]any{architecture.PropDescription: "payment card"}},
			{ID: "B", Type: architecture.NodeFunc, Label: "EnsurePayment",
				Properties: map[string]any{architecture.PropDescription: "payment"}},
			{ID: "X", Type: architecture.NodeFlow},
		},
		[]architecture.Edge{
			{Source: "C", Target: "A", Type: architecture.EdgeCompose},
			{Source: "C", Target: "B", Type: architecture.EdgeCompose},
			{Source: "X", Target: "A", Type: architecture.EdgeIO},
			{Source: "X", Target: "B", Type: architecture.EdgeIO},
		},
	)

	// 0.35*0.5 + 0.25 + 0.25 + 0.05
	assert.InDelta(t, 0.725, FuncSimilarity(a, "A", "B"), 1e-9)

	vs := DefaultDetector().Detect(a)
	require.Equal(t, 1, countRule(vs, RuleFuncMergeCandidate))
	for _, v := range vs {
		if v.RuleID == RuleFuncMergeCandidate {
			assert.False(t, v.IsHard())
			assert.Equal(t, architecture.OpFuncMergeSimilar, v.SuggestedOperator)
		}
	}
}

func TestSchemaSimilarity(t *testing.T) {
	a := architecture.MustNew(
		[]architecture.Node{
			{ID: "S1", Type: architecture.NodeSchema, Label: "Order Record",
				Properties: map[string]any{architecture.PropStruct: map[string]any{"id": "string", "total": "float"}}},
			{ID: "S2", Type: architecture.NodeSchema, Label: "Order Record",
				Properties: map[string]any{architecture.PropStruct: `{"id": "string", "total": 0}`}},
			{ID: "S3", Type: architecture.NodeSchema, Label: "Invoice",
				Properties: map[string]any{architecture.PropStruct: "number: int\nissued: date"}},
			{ID: "X", Type: architecture.NodeFlow},
		},
		[]architecture.Edge{
			{Source: "X", Target: "S1", Type: architecture.EdgeRelation},
			{Source: "X", Target: "S2", Type: architecture.EdgeRelation},
		},
	)

	assert.InDelta(t, 1.0, SchemaSimilarity(a, "S1", "S2"), 1e-9)
	assert.InDelta(t, 0.0, SchemaSimilarity(a, "S1", "S3"), 1e-9)

	vs := DefaultDetector().Detect(a)
	require.Equal(t, 1, countRule(vs, RuleSchemaNearDuplicate))
	assert.Zero(t, countRule(vs, RuleSchemaMergeCandidate))
}

func TestNewDetector_RejectsIncoherentThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.MaxFuncsPerModule = 2
	_, err := NewDetector(th)
	require.Error(t, err)

	th = DefaultThresholds()
	th.MergeCandidate = 0.9
	_, err = NewDetector(th)
	require.Error(t, err)
}

func TestFuncSimilarity_LowercaseLabelsShareNoVerb(t *testing.T) {
	a := architecture.MustNew([]architecture.Node{
		{ID: "A", Type: architecture.NodeFunc, Label: "ProcessOrder"},
		{ID: "B", Type: architecture.NodeFunc, Label: "process order"},
		{ID: "C", Type: architecture.NodeFunc, Label: "Process order"},
	}, nil)

	assert.Zero(t, FuncSimilarity(a, "A", "B"))
	assert.InDelta(t, funcVerbWeight, FuncSimilarity(a, "A", "C"), 1e-9)
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, []string{"customer", "order", "validate"}, Tokens("Validate the customerOrder"))
	assert.Equal(t, "validate", CanonicalVerb("CheckOrder"))
	assert.Equal(t, "validate", CanonicalVerb("Assert totals"))
	assert.Equal(t, "", CanonicalVerb("assert totals"))
	assert.Equal(t, "", CanonicalVerb("42 orders"))
	assert.Equal(t, "get", CanonicalVerb("FetchInvoice"))
	assert.Equal(t, "", CanonicalVerb(""))
	assert.Zero(t, Jaccard(nil, nil))

	fields, ok := StructFields("name: string\nage: int")
	require.True(t, ok)
	assert.Equal(t, []string{"age", "name"}, fields)

	_, ok = StructFields("free text without fields")
	assert.False(t, ok)
}
