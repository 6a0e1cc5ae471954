package moves

import (
	"strings"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/rules"
)

// flowRedirect attaches an incoming io edge to an isolated FUNC.
type flowRedirect struct{}

func (flowRedirect) Kind() architecture.OperatorKind { return architecture.OpFlowRedirect }

func (flowRedirect) target(v architecture.Violation, a *architecture.Architecture) (string, bool) {
	for _, f := range v.AffectedOfType(a, architecture.NodeFunc) {
		if in, out := a.IOCounts(f); in+out == 0 {
			return f, true
		}
	}
	return "", false
}

func (o flowRedirect) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, ok := o.target(v, a)
	return ok
}

func (o flowRedirect) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	f, ok := o.target(v, a)
	if !ok {
		return failed("violation names no isolated FUNC")
	}

	d := a.Edit()
	flow := siblingFlow(a, f)
	if flow == "" {
		if flows := a.NodesOfType(architecture.NodeFlow); len(flows) > 0 {
			flow = flows[0].ID
		}
	}
	if flow == "" {
		fn, _ := a.Node(f)
		n := architecture.Node{
			ID:    d.UniqueID("flow:" + f),
			Type:  architecture.NodeFlow,
			Label: label(fn) + " input",
		}
		if err := d.AddNode(n); err != nil {
			return failed("add flow: %v", err)
		}
		flow = n.ID
	}
	d.AddEdge(architecture.Edge{Source: flow, Target: f, Type: architecture.EdgeIO})
	return finish(d, "connected %s to %s", flow, f)
}

// siblingFlow returns the smallest io FLOW used by a FUNC that shares f's
// compose parent or one of its modules.
func siblingFlow(a *architecture.Architecture, f string) string {
	siblings := make(map[string]bool)
	if parent := a.ComposeParent(f); parent != "" {
		for _, e := range a.EdgesFrom(parent) {
			if e.Type == architecture.EdgeCompose && a.IsType(e.Target, architecture.NodeFunc) {
				siblings[e.Target] = true
			}
		}
	}
	modFuncs := a.ModuleFuncs()
	for _, m := range a.Allocations()[f] {
		for _, peer := range modFuncs[m] {
			siblings[peer] = true
		}
	}
	delete(siblings, f)

	best := ""
	for _, s := range architecture.SortedKeys(siblings) {
		for _, flow := range a.IOFlows(s) {
			if best == "" || flow < best {
				best = flow
			}
		}
	}
	return best
}

func label(n architecture.Node) string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

func nodeText(n architecture.Node) string {
	return strings.TrimSpace(label(n) + " " + n.Description())
}

// bestMatch returns the candidate with the highest token overlap with
// text, smallest id among ties, and the overlap score.
func bestMatch(text string, candidates []architecture.Node) (string, float64) {
	best, score := "", -1.0
	for _, c := range candidates {
		s := rules.TokenJaccard(text, nodeText(c))
		if s > score {
			best, score = c.ID, s
		}
	}
	return best, score
}

// reqLink satisfies an unsatisfied REQ with the best-matching FUNC.
type reqLink struct{}

func (reqLink) Kind() architecture.OperatorKind { return architecture.OpReqLink }

func (reqLink) target(v architecture.Violation, a *architecture.Architecture) (string, bool) {
	if len(a.NodesOfType(architecture.NodeFunc)) == 0 {
		return "", false
	}
	for _, r := range v.AffectedOfType(a, architecture.NodeReq) {
		satisfied := false
		for _, e := range a.EdgesTo(r) {
			if e.Type == architecture.EdgeSatisfy {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return r, true
		}
	}
	return "", false
}

func (o reqLink) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, ok := o.target(v, a)
	return ok
}

func (o reqLink) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	r, ok := o.target(v, a)
	if !ok {
		return failed("violation names no unsatisfied REQ")
	}
	req, _ := a.Node(r)
	f, _ := bestMatch(nodeText(req), a.NodesOfType(architecture.NodeFunc))

	d := a.Edit()
	d.AddEdge(architecture.Edge{Source: f, Target: r, Type: architecture.EdgeSatisfy})
	return finish(d, "%s now satisfies %s", f, r)
}

// testLink verifies an unverified REQ with the best-matching TEST, creating
// a TEST when none overlaps.
type testLink struct{}

func (testLink) Kind() architecture.OperatorKind { return architecture.OpTestLink }

func (testLink) target(v architecture.Violation, a *architecture.Architecture) (string, bool) {
	for _, r := range v.AffectedOfType(a, architecture.NodeReq) {
		verified := false
		for _, e := range a.EdgesFrom(r) {
			if e.Type == architecture.EdgeVerify {
				verified = true
				break
			}
		}
		if !verified {
			return r, true
		}
	}
	return "", false
}

func (o testLink) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, ok := o.target(v, a)
	return ok
}

func (o testLink) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	r, ok := o.target(v, a)
	if !ok {
		return failed("violation names no unverified REQ")
	}
	req, _ := a.Node(r)

	d := a.Edit()
	test, score := bestMatch(nodeText(req), a.NodesOfType(architecture.NodeTest))
	if score <= 0 {
		n := architecture.Node{
			ID:    d.UniqueID("test:" + r),
			Type:  architecture.NodeTest,
			Label: "Verify " + label(req),
		}
		if err := d.AddNode(n); err != nil {
			return failed("add test: %v", err)
		}
		test = n.ID
	}
	d.AddEdge(architecture.Edge{Source: r, Target: test, Type: architecture.EdgeVerify})
	return finish(d, "%s now verifies %s", test, r)
}
