package architecture

import (
	"fmt"
	"sort"
)

// Architecture is an immutable snapshot of the typed node/edge graph.
// Node order is the construction order; lookups go through an index built
// once in New.
type Architecture struct {
	nodes []Node
	edges []Edge

	byID map[string]int
	out  map[string][]int
	in   map[string][]int
}

// New validates and freezes a graph. Node ids must be unique and non-empty,
// and every edge must reference existing nodes. The inputs are deep-copied.
func New(nodes []Node, edges []Edge) (*Architecture, error) {
	a := &Architecture{
		nodes: make([]Node, 0, len(nodes)),
		edges: make([]Edge, 0, len(edges)),
		byID:  make(map[string]int, len(nodes)),
		out:   make(map[string][]int),
		in:    make(map[string][]int),
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node with empty id")
		}
		if !n.Type.IsValid() {
			return nil, fmt.Errorf("node %s: unknown type %q", n.ID, n.Type)
		}
		if _, dup := a.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %s", n.ID)
		}
		a.byID[n.ID] = len(a.nodes)
		a.nodes = append(a.nodes, n.Clone())
	}

	for _, e := range edges {
		if !e.Type.IsValid() {
			return nil, fmt.Errorf("edge %s->%s: unknown type %q", e.Source, e.Target, e.Type)
		}
		if _, ok := a.byID[e.Source]; !ok {
			return nil, fmt.Errorf("edge %s->%s (%s): unknown source node", e.Source, e.Target, e.Type)
		}
		if _, ok := a.byID[e.Target]; !ok {
			return nil, fmt.Errorf("edge %s->%s (%s): unknown target node", e.Source, e.Target, e.Type)
		}
		idx := len(a.edges)
		a.edges = append(a.edges, e.Clone())
		a.out[e.Source] = append(a.out[e.Source], idx)
		a.in[e.Target] = append(a.in[e.Target], idx)
	}

	return a, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(nodes []Node, edges []Edge) *Architecture {
	a, err := New(nodes, edges)
	if err != nil {
		panic(err)
	}
	return a
}

// Empty returns an architecture with no nodes.
func Empty() *Architecture {
	return MustNew(nil, nil)
}

// NodeCount returns the number of nodes.
func (a *Architecture) NodeCount() int { return len(a.nodes) }

// EdgeCount returns the number of edges.
func (a *Architecture) EdgeCount() int { return len(a.edges) }

// Nodes returns the nodes in construction order. The slice is a copy;
// node properties are shared and must not be modified.
func (a *Architecture) Nodes() []Node {
	return append([]Node(nil), a.nodes...)
}

// Edges returns the edges in construction order. The slice is a copy.
func (a *Architecture) Edges() []Edge {
	return append([]Edge(nil), a.edges...)
}

// Node looks up a node by id.
func (a *Architecture) Node(id string) (Node, bool) {
	i, ok := a.byID[id]
	if !ok {
		return Node{}, false
	}
	return a.nodes[i], true
}

// HasNode returns true if id names a node.
func (a *Architecture) HasNode(id string) bool {
	_, ok := a.byID[id]
	return ok
}

// IsType returns true if id names a node of type t.
func (a *Architecture) IsType(id string, t NodeType) bool {
	n, ok := a.Node(id)
	return ok && n.Type == t
}

// NodesOfType returns all nodes of type t sorted by id.
func (a *Architecture) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range a.nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EdgesOfType returns all edges of type t in construction order.
func (a *Architecture) EdgesOfType(t EdgeType) []Edge {
	var out []Edge
	for _, e := range a.edges {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFrom returns the edges whose source is id.
func (a *Architecture) EdgesFrom(id string) []Edge {
	idx := a.out[id]
	out := make([]Edge, len(idx))
	for i, k := range idx {
		out[i] = a.edges[k]
	}
	return out
}

// EdgesTo returns the edges whose target is id.
func (a *Architecture) EdgesTo(id string) []Edge {
	idx := a.in[id]
	out := make([]Edge, len(idx))
	for i, k := range idx {
		out[i] = a.edges[k]
	}
	return out
}

// Incident returns every edge touching id, outgoing first.
func (a *Architecture) Incident(id string) []Edge {
	return append(a.EdgesFrom(id), a.EdgesTo(id)...)
}

// HasEdge returns true if an edge with the given key exists.
func (a *Architecture) HasEdge(source, target string, t EdgeType) bool {
	for _, k := range a.out[source] {
		e := a.edges[k]
		if e.Target == target && e.Type == t {
			return true
		}
	}
	return false
}

// Edit returns a Draft seeded with a deep copy of this architecture.
func (a *Architecture) Edit() *Draft {
	d := &Draft{
		nodes: make([]Node, len(a.nodes)),
		edges: make([]Edge, len(a.edges)),
	}
	for i, n := range a.nodes {
		d.nodes[i] = n.Clone()
	}
	for i, e := range a.edges {
		d.edges[i] = e.Clone()
	}
	return d
}
