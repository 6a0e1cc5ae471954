package moves

import (
	"sort"

	"github.com/c360studio/semarch/architecture"
)

// allocShift moves the FUNCs named by a violation out of their module into
// a dedicated "<mod>-volatile" module.
type allocShift struct{}

func (allocShift) Kind() architecture.OperatorKind { return architecture.OpAllocShift }

func (allocShift) target(v architecture.Violation, a *architecture.Architecture) (string, []string, bool) {
	mods := v.AffectedOfType(a, architecture.NodeModule)
	if len(mods) == 0 {
		return "", nil, false
	}
	m := mods[0]
	allocated := make(map[string]bool)
	for _, f := range a.ModuleFuncs()[m] {
		allocated[f] = true
	}
	var listed []string
	for _, f := range v.AffectedOfType(a, architecture.NodeFunc) {
		if allocated[f] {
			listed = append(listed, f)
		}
	}
	// Moving every FUNC would only rename the module.
	if len(listed) == 0 || len(listed) == len(allocated) {
		return "", nil, false
	}
	sort.Strings(listed)
	return m, listed, true
}

func (o allocShift) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, _, ok := o.target(v, a)
	return ok
}

func (o allocShift) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	m, funcs, ok := o.target(v, a)
	if !ok {
		return failed("violation names no movable FUNCs")
	}
	mod, _ := a.Node(m)
	d := a.Edit()
	dest := architecture.Node{
		ID:    d.UniqueID(m + "-volatile"),
		Type:  architecture.NodeModule,
		Label: mod.Label + " (volatile)",
	}
	if err := d.AddNode(dest); err != nil {
		return failed("add module: %v", err)
	}
	if parent := a.ComposeParent(m); parent != "" {
		d.AddEdge(architecture.Edge{Source: parent, Target: dest.ID, Type: architecture.EdgeCompose})
	}
	for _, f := range funcs {
		reallocate(d, f, m, dest.ID)
	}
	return finish(d, "moved %s from %s to %s", joinIDs(funcs), m, dest.ID)
}

// allocRebalance moves FUNCs between modules so the violating module's
// size moves toward [min, max].
type allocRebalance struct {
	min, max int
}

func (allocRebalance) Kind() architecture.OperatorKind { return architecture.OpAllocRebalance }

// plan returns the FUNCs to move and their source and destination modules.
func (o allocRebalance) plan(v architecture.Violation, a *architecture.Architecture) (from, to string, funcs []string) {
	modFuncs := a.ModuleFuncs()
	mods := a.NodesOfType(architecture.NodeModule)

	for _, m := range v.AffectedOfType(a, architecture.NodeModule) {
		n := len(modFuncs[m])
		switch {
		case n > o.max:
			// Receiver: the emptiest other module with room, then by id.
			best, room := "", 0
			for _, other := range mods {
				c := len(modFuncs[other.ID])
				if other.ID == m || c >= o.max {
					continue
				}
				if best == "" || c < len(modFuncs[best]) {
					best, room = other.ID, o.max-c
				}
			}
			if best == "" {
				continue
			}
			count := min(n-o.max, room)
			return m, best, modFuncs[m][n-count:]

		case n > 0 && n < o.min:
			// Donor: the fullest other module with excess, then by id.
			best, excess := "", 0
			for _, other := range mods {
				c := len(modFuncs[other.ID])
				if other.ID == m || c <= o.min {
					continue
				}
				if best == "" || c > len(modFuncs[best]) {
					best, excess = other.ID, c-o.min
				}
			}
			if best == "" {
				continue
			}
			donor := modFuncs[best]
			count := min(o.min-n, excess)
			return best, m, donor[len(donor)-count:]
		}
	}
	return "", "", nil
}

func (o allocRebalance) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, _, funcs := o.plan(v, a)
	return len(funcs) > 0
}

func (o allocRebalance) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	from, to, funcs := o.plan(v, a)
	if len(funcs) == 0 {
		return failed("no module can take or give FUNCs")
	}
	d := a.Edit()
	for _, f := range funcs {
		reallocate(d, f, from, to)
	}
	return finish(d, "moved %s from %s to %s", joinIDs(funcs), from, to)
}

// realloc collapses a multi-module allocation onto the module whose FUNCs
// share the most io flows with the reallocated FUNC.
type realloc struct{}

func (realloc) Kind() architecture.OperatorKind { return architecture.OpRealloc }

func (realloc) target(v architecture.Violation, a *architecture.Architecture) (string, []string, bool) {
	alloc := a.Allocations()
	for _, f := range v.AffectedOfType(a, architecture.NodeFunc) {
		if mods := alloc[f]; len(mods) >= 2 {
			return f, mods, true
		}
	}
	return "", nil, false
}

func (o realloc) Precondition(v architecture.Violation, a *architecture.Architecture) bool {
	_, _, ok := o.target(v, a)
	return ok
}

func (o realloc) Apply(a *architecture.Architecture, v architecture.Violation) Outcome {
	f, mods, ok := o.target(v, a)
	if !ok {
		return failed("violation names no multiply-allocated FUNC")
	}

	flows := make(map[string]bool)
	for _, fl := range a.IOFlows(f) {
		flows[fl] = true
	}
	modFuncs := a.ModuleFuncs()
	keep, bestPeers := "", -1
	for _, m := range mods {
		peers := 0
		for _, peer := range modFuncs[m] {
			if peer == f {
				continue
			}
			for _, fl := range a.IOFlows(peer) {
				if flows[fl] {
					peers++
					break
				}
			}
		}
		if peers > bestPeers {
			keep, bestPeers = m, peers
		}
	}

	d := a.Edit()
	var dropped []string
	for _, m := range mods {
		if m == keep {
			continue
		}
		dropped = append(dropped, m)
		d.RemoveEdges(func(e architecture.Edge) bool {
			return e.Type == architecture.EdgeAllocate &&
				((e.Source == f && e.Target == m) || (e.Source == m && e.Target == f))
		})
	}
	return finish(d, "kept %s on %s, dropped %s", f, keep, joinIDs(dropped))
}
