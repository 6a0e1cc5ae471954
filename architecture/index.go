package architecture

import "sort"

// Allocations maps every FUNC to the sorted MOD ids it is allocated to.
// Allocate edges are accepted in both directions (FUNC→MOD and MOD→FUNC).
func (a *Architecture) Allocations() map[string][]string {
	seen := make(map[string]map[string]bool)
	for _, e := range a.edges {
		if e.Type != EdgeAllocate {
			continue
		}
		fn, mod := "", ""
		switch {
		case a.IsType(e.Source, NodeFunc) && a.IsType(e.Target, NodeModule):
			fn, mod = e.Source, e.Target
		case a.IsType(e.Source, NodeModule) && a.IsType(e.Target, NodeFunc):
			fn, mod = e.Target, e.Source
		default:
			continue
		}
		if seen[fn] == nil {
			seen[fn] = make(map[string]bool)
		}
		seen[fn][mod] = true
	}
	return sortedSets(seen)
}

// ModuleFuncs maps every MOD that has allocations to its sorted FUNC ids.
func (a *Architecture) ModuleFuncs() map[string][]string {
	seen := make(map[string]map[string]bool)
	for fn, mods := range a.Allocations() {
		for _, m := range mods {
			if seen[m] == nil {
				seen[m] = make(map[string]bool)
			}
			seen[m][fn] = true
		}
	}
	return sortedSets(seen)
}

// IOCounts returns the number of incoming and outgoing io edges of id.
func (a *Architecture) IOCounts(id string) (in, out int) {
	for _, k := range a.in[id] {
		if a.edges[k].Type == EdgeIO {
			in++
		}
	}
	for _, k := range a.out[id] {
		if a.edges[k].Type == EdgeIO {
			out++
		}
	}
	return in, out
}

// ComposeParent returns the smallest id among nodes that compose id, or ""
// when the node has no compose parent.
func (a *Architecture) ComposeParent(id string) string {
	parent := ""
	for _, k := range a.in[id] {
		e := a.edges[k]
		if e.Type != EdgeCompose {
			continue
		}
		if parent == "" || e.Source < parent {
			parent = e.Source
		}
	}
	return parent
}

// SatisfiedReqs returns the sorted REQ ids that id satisfies.
func (a *Architecture) SatisfiedReqs(id string) []string {
	set := make(map[string]bool)
	for _, k := range a.out[id] {
		e := a.edges[k]
		if e.Type == EdgeSatisfy && a.IsType(e.Target, NodeReq) {
			set[e.Target] = true
		}
	}
	return sortedKeys(set)
}

// IOFlows returns the sorted FLOW ids connected to id by io edges.
func (a *Architecture) IOFlows(id string) []string {
	set := make(map[string]bool)
	for _, e := range a.Incident(id) {
		if e.Type != EdgeIO {
			continue
		}
		if other := e.Other(id); a.IsType(other, NodeFlow) {
			set[other] = true
		}
	}
	return sortedKeys(set)
}

// Neighbors returns the sorted ids of nodes of type t adjacent to id by
// any edge.
func (a *Architecture) Neighbors(id string, t NodeType) []string {
	set := make(map[string]bool)
	for _, e := range a.Incident(id) {
		if other := e.Other(id); other != id && a.IsType(other, t) {
			set[other] = true
		}
	}
	return sortedKeys(set)
}

func sortedSets(m map[string]map[string]bool) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, set := range m {
		out[k] = sortedKeys(set)
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
