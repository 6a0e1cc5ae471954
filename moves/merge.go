package moves

import (
	"sort"
	"strings"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/rules"
)

// mergePair combines nodes x and y into a single node "x+y". Every edge of
// either original is re-pointed at the merged node; edges between x and y
// disappear and parallel edges are de-duplicated. The originals' properties
// are preserved under merged_properties.
func mergePair(a *architecture.Architecture, x, y string) Outcome {
	if x == y {
		return failed("cannot merge %s with itself", x)
	}
	if y < x {
		x, y = y, x
	}
	nx, okx := a.Node(x)
	ny, oky := a.Node(y)
	if !okx || !oky {
		return failed("merge target missing: %s, %s", x, y)
	}
	if nx.Type != ny.Type {
		return failed("cannot merge %s %s with %s %s", nx.Type, x, ny.Type, y)
	}

	d := a.Edit()
	merged := architecture.Node{
		ID:         d.UniqueID(x + "+" + y),
		Type:       nx.Type,
		Label:      mergedLabel(nx, ny),
		Properties: mergeProperties(nx, ny),
	}
	if err := d.AddNode(merged); err != nil {
		return failed("add merged node: %v", err)
	}
	d.Rewire(x, merged.ID)
	d.Rewire(y, merged.ID)
	d.RemoveNode(x)
	d.RemoveNode(y)
	return finish(d, "merged %s and %s into %s", x, y, merged.ID)
}

func mergedLabel(x, y architecture.Node) string {
	lx, ly := x.Label, y.Label
	switch {
	case lx == "":
		return ly
	case ly == "" || lx == ly:
		return lx
	}
	return lx + " / " + ly
}

// mergeProperties combines two property maps without losing information:
// descriptions are joined, volatility takes the maximum, struct maps are
// unioned, any other key keeps the first node's value.
func mergeProperties(x, y architecture.Node) map[string]any {
	out := make(map[string]any)
	for k, v := range y.Properties {
		out[k] = v
	}
	for k, v := range x.Properties {
		out[k] = v
	}

	if dx, dy := x.Description(), y.Description(); dx != "" && dy != "" && dx != dy {
		out[architecture.PropDescription] = dx + "; " + dy
	}

	vx, okx := x.Float(architecture.PropVolatility)
	vy, oky := y.Float(architecture.PropVolatility)
	switch {
	case okx && oky:
		out[architecture.PropVolatility] = max(vx, vy)
	case oky:
		out[architecture.PropVolatility] = vy
	}

	sx, okx := x.Properties[architecture.PropStruct].(map[string]any)
	sy, oky := y.Properties[architecture.PropStruct].(map[string]any)
	if okx && oky {
		union := make(map[string]any, len(sx)+len(sy))
		for k, v := range sy {
			union[k] = v
		}
		for k, v := range sx {
			union[k] = v
		}
		out[architecture.PropStruct] = union
	}

	out[architecture.PropMergedFrom] = []string{x.ID, y.ID}
	out[architecture.PropMergedProperties] = map[string]any{
		x.ID: provenance(x),
		y.ID: provenance(y),
	}
	return out
}

func provenance(n architecture.Node) map[string]any {
	c := n.Clone()
	p := map[string]any{"label": c.Label}
	if len(c.Properties) > 0 {
		p["properties"] = c.Properties
	}
	return p
}

// firstTwoFuncs returns the two smallest FUNC ids affected by v.
func firstTwoFuncs(v architecture.Violation, a *architecture.Architecture) (string, string, bool) {
	funcs := v.AffectedOfType(a, architecture.NodeFunc)
	if len(funcs) < 2 {
		return "", "", false
	}
	funcs = append([]string(nil), funcs...)
	sort.Strings(funcs)
	return funcs[0], funcs[1], true
}

// funcMerge combines the first two FUNCs of a violation.
type funcMerge struct{}

func (funcMerge) Kind() architecture.OperatorKind { return architecture.OpFuncMerge }

func (funcMerge) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, _, ok := firstTwoFuncs(v, a)
	return ok
}

func (funcMerge) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	x, y, ok := firstTwoFuncs(v, a)
	if !ok {
		return failed("violation names fewer than two FUNCs")
	}
	return mergePair(a, x, y)
}

func isFuncSimilarity(rule string) bool {
	return rule == rules.RuleFuncNearDuplicate || rule == rules.RuleFuncMergeCandidate
}

func isSimilarity(rule string) bool {
	return isFuncSimilarity(rule) ||
		rule == rules.RuleSchemaNearDuplicate || rule == rules.RuleSchemaMergeCandidate
}

// funcMergeSimilar merges the FUNC pair named by a similarity violation.
type funcMergeSimilar struct{}

func (funcMergeSimilar) Kind() architecture.OperatorKind { return architecture.OpFuncMergeSimilar }

func (funcMergeSimilar) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	if !isFuncSimilarity(v.RuleID) {
		return false
	}
	_, _, ok := firstTwoFuncs(v, a)
	return ok
}

func (o funcMergeSimilar) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	if !o.Precondition(v, a) {
		return failed("not a FUNC similarity violation")
	}
	x, y, _ := firstTwoFuncs(v, a)
	return mergePair(a, x, y)
}

// merge is the type-generic pair merge for FUNC and SCHEMA similarity.
type merge struct{}

func (merge) Kind() architecture.OperatorKind { return architecture.OpMerge }

func (merge) pair(v architecture.Violation, a *architecture.Architecture) (string, string, bool) {
	if !isSimilarity(v.RuleID) || len(v.AffectedNodes) < 2 {
		return "", "", false
	}
	x, y := v.AffectedNodes[0], v.AffectedNodes[1]
	nx, okx := a.Node(x)
	ny, oky := a.Node(y)
	if !okx || !oky || nx.Type != ny.Type {
		return "", "", false
	}
	if nx.Type != architecture.NodeFunc && nx.Type != architecture.NodeSchema {
		return "", "", false
	}
	return x, y, true
}

func (o merge) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, _, ok := o.pair(v, a)
	return ok
}

func (o merge) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	x, y, ok := o.pair(v, a)
	if !ok {
		return failed("violation does not name a mergeable pair")
	}
	return mergePair(a, x, y)
}

// flowConsolidate merges two FLOWs that carry the same SCHEMA.
type flowConsolidate struct{}

func (flowConsolidate) Kind() architecture.OperatorKind { return architecture.OpFlowConsolidate }

// candidates finds the first SCHEMA reachable from v that two or more FLOWs
// share, returning the two smallest FLOW ids.
func (flowConsolidate) candidates(v architecture.Violation, a *architecture.Architecture) (string, string, bool) {
	schemas := make(map[string]bool)
	for _, id := range v.AffectedNodes {
		n, ok := a.Node(id)
		if !ok {
			continue
		}
		switch n.Type {
		case architecture.NodeSchema:
			schemas[id] = true
		case architecture.NodeFunc:
			for _, flow := range a.IOFlows(id) {
				for _, s := range a.Neighbors(flow, architecture.NodeSchema) {
					schemas[s] = true
				}
			}
		}
	}
	for _, s := range architecture.SortedKeys(schemas) {
		flows := a.Neighbors(s, architecture.NodeFlow)
		if len(flows) >= 2 {
			return flows[0], flows[1], true
		}
	}
	return "", "", false
}

func (o flowConsolidate) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, _, ok := o.candidates(v, a)
	return ok
}

func (o flowConsolidate) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	x, y, ok := o.candidates(v, a)
	if !ok {
		return failed("no FLOWs share a SCHEMA")
	}
	return mergePair(a, x, y)
}

// joinIDs renders ids for outcome details.
func joinIDs(ids []string) string {
	return strings.Join(ids, ", ")
}
