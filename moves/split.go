package moves

import (
	"sort"
	"strings"

	"github.com/c360studio/semarch/architecture"
)

// modSplit moves part of an oversized module's FUNCs into a new sibling
// module, keeping FUNCs that satisfy the same REQ together.
type modSplit struct{}

func (modSplit) Kind() architecture.OperatorKind { return architecture.OpModSplit }

func (modSplit) target(v architecture.Violation, a *architecture.Architecture) (string, []string, bool) {
	modFuncs := a.ModuleFuncs()
	for _, m := range v.AffectedOfType(a, architecture.NodeModule) {
		if funcs := modFuncs[m]; len(funcs) >= 2 {
			return m, funcs, true
		}
	}
	return "", nil, false
}

func (o modSplit) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, _, ok := o.target(v, a)
	return ok
}

func (o modSplit) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	m, funcs, ok := o.target(v, a)
	if !ok {
		return failed("violation names no MOD with two or more FUNCs")
	}
	_, moved := partitionByRequirement(a, funcs)

	mod, _ := a.Node(m)
	d := a.Edit()
	split := architecture.Node{
		ID:    d.UniqueID(m),
		Type:  architecture.NodeModule,
		Label: mod.Label + " (split)",
	}
	if err := d.AddNode(split); err != nil {
		return failed("add module: %v", err)
	}
	if parent := a.ComposeParent(m); parent != "" {
		d.AddEdge(architecture.Edge{Source: parent, Target: split.ID, Type: architecture.EdgeCompose})
	}
	for _, f := range moved {
		reallocate(d, f, m, split.ID)
	}
	return finish(d, "split %s: moved %s to %s", m, joinIDs(moved), split.ID)
}

// partitionByRequirement divides funcs into two non-empty groups. FUNCs are
// clustered by their first satisfied REQ; clusters are assigned largest
// first to the smaller group. A single cluster is halved by id.
func partitionByRequirement(a *architecture.Architecture, funcs []string) (keep, moved []string) {
	clusters := make(map[string][]string)
	for _, f := range funcs {
		key := ""
		if reqs := a.SatisfiedReqs(f); len(reqs) > 0 {
			key = reqs[0]
		}
		clusters[key] = append(clusters[key], f)
	}

	if len(clusters) < 2 {
		half := (len(funcs) + 1) / 2
		return append([]string(nil), funcs[:half]...), append([]string(nil), funcs[half:]...)
	}

	keys := architecture.SortedKeys(clusters)
	sort.SliceStable(keys, func(i, j int) bool {
		return len(clusters[keys[i]]) > len(clusters[keys[j]])
	})
	for _, k := range keys {
		if len(keep) <= len(moved) {
			keep = append(keep, clusters[k]...)
		} else {
			moved = append(moved, clusters[k]...)
		}
	}
	sort.Strings(keep)
	sort.Strings(moved)
	return keep, moved
}

// reallocate replaces every allocation between f and from with f→to.
func reallocate(d *architecture.Draft, f, from, to string) {
	d.RemoveEdges(func(e architecture.Edge) bool {
		return e.Type == architecture.EdgeAllocate &&
			((e.Source == f && e.Target == from) || (e.Source == from && e.Target == f))
	})
	d.AddEdge(architecture.Edge{Source: f, Target: to, Type: architecture.EdgeAllocate})
}

// funcSplit divides a FUNC that satisfies several REQs into two FUNCs,
// each satisfying half of them. Each half is described by its own REQs, and
// when the original both consumes and produces io the first half takes the
// inputs and the second the outputs.
type funcSplit struct{}

func (funcSplit) Kind() architecture.OperatorKind { return architecture.OpFuncSplit }

func (funcSplit) target(v architecture.Violation, a *architecture.Architecture) (string, []string, bool) {
	for _, f := range v.AffectedOfType(a, architecture.NodeFunc) {
		if reqs := a.SatisfiedReqs(f); len(reqs) >= 2 {
			return f, reqs, true
		}
	}
	return "", nil, false
}

func (o funcSplit) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, _, ok := o.target(v, a)
	return ok
}

func (o funcSplit) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	f, reqs, ok := o.target(v, a)
	if !ok {
		return failed("violation names no FUNC satisfying two or more REQs")
	}
	orig, _ := a.Node(f)
	half := (len(reqs) + 1) / 2
	groups := [2][]string{reqs[:half], reqs[half:]}

	d := a.Edit()
	var ids [2]string
	for i := range ids {
		n := orig.Clone()
		n.ID = d.UniqueID(f + "." + string(rune('1'+i)))
		n.Label = orig.Label + " (" + string(rune('1'+i)) + ")"
		if n.Properties == nil {
			n.Properties = make(map[string]any)
		}
		n.Properties[architecture.PropDescription] = requirementText(a, groups[i])
		if err := d.AddNode(n); err != nil {
			return failed("add split FUNC: %v", err)
		}
		ids[i] = n.ID
	}

	in, out := a.IOCounts(f)
	divideIO := in > 0 && out > 0
	for _, e := range a.Incident(f) {
		if e.Type == architecture.EdgeSatisfy && e.Source == f && a.IsType(e.Target, architecture.NodeReq) {
			continue
		}
		if e.Source == f && e.Target == f {
			continue
		}
		for i, id := range ids {
			if divideIO && e.Type == architecture.EdgeIO && (e.Target == f) != (i == 0) {
				continue
			}
			c := e.Clone()
			if c.Source == f {
				c.Source = id
			}
			if c.Target == f {
				c.Target = id
			}
			d.AddEdge(c)
		}
	}
	for i, group := range groups {
		for _, req := range group {
			d.AddEdge(architecture.Edge{Source: ids[i], Target: req, Type: architecture.EdgeSatisfy})
		}
	}
	d.RemoveNode(f)
	return finish(d, "split %s into %s and %s", f, ids[0], ids[1])
}

// requirementText joins the label and description of each REQ.
func requirementText(a *architecture.Architecture, reqs []string) string {
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		n, _ := a.Node(r)
		text := n.Label
		if text == "" {
			text = r
		}
		if desc := n.Description(); desc != "" {
			text += ": " + desc
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "; ")
}
