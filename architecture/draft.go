package architecture

import (
	"fmt"
	"strconv"
)

// Draft is a private, mutable copy of an Architecture used by move
// operators. It is not safe for concurrent use and is discarded after Build.
type Draft struct {
	nodes []Node
	edges []Edge
}

// Build freezes the draft into a new Architecture, re-validating edges.
func (d *Draft) Build() (*Architecture, error) {
	return New(d.nodes, d.edges)
}

// Node looks up a node in the draft.
func (d *Draft) Node(id string) (Node, bool) {
	for _, n := range d.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasNode returns true if id names a node in the draft.
func (d *Draft) HasNode(id string) bool {
	_, ok := d.Node(id)
	return ok
}

// AddNode appends a node. It fails if the id already exists.
func (d *Draft) AddNode(n Node) error {
	if d.HasNode(n.ID) {
		return fmt.Errorf("node %s already exists", n.ID)
	}
	d.nodes = append(d.nodes, n.Clone())
	return nil
}

// SetNode replaces the node with the same id.
func (d *Draft) SetNode(n Node) error {
	for i := range d.nodes {
		if d.nodes[i].ID == n.ID {
			d.nodes[i] = n.Clone()
			return nil
		}
	}
	return fmt.Errorf("node %s not found", n.ID)
}

// RemoveNode deletes a node and every edge touching it.
func (d *Draft) RemoveNode(id string) {
	nodes := d.nodes[:0]
	for _, n := range d.nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	d.nodes = nodes
	d.RemoveEdges(func(e Edge) bool { return e.Touches(id) })
}

// HasEdge returns true if an edge with the given key exists in the draft.
func (d *Draft) HasEdge(source, target string, t EdgeType) bool {
	for _, e := range d.edges {
		if e.Source == source && e.Target == target && e.Type == t {
			return true
		}
	}
	return false
}

// AddEdge appends an edge unless one with the same key already exists.
// It returns true if the edge was added.
func (d *Draft) AddEdge(e Edge) bool {
	if d.HasEdge(e.Source, e.Target, e.Type) {
		return false
	}
	d.edges = append(d.edges, e.Clone())
	return true
}

// RemoveEdges deletes every edge matching the predicate and returns the
// number removed.
func (d *Draft) RemoveEdges(match func(Edge) bool) int {
	kept := d.edges[:0]
	removed := 0
	for _, e := range d.edges {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	d.edges = kept
	return removed
}

// Edges returns a copy of the draft's edges.
func (d *Draft) Edges() []Edge {
	return append([]Edge(nil), d.edges...)
}

// Rewire re-points every edge endpoint equal to from onto to. Self-loops
// created by the rewiring are dropped and parallel edges de-duplicated,
// keeping the first occurrence.
func (d *Draft) Rewire(from, to string) {
	for i := range d.edges {
		if d.edges[i].Source == from {
			d.edges[i].Source = to
		}
		if d.edges[i].Target == from {
			d.edges[i].Target = to
		}
	}
	d.RemoveEdges(func(e Edge) bool { return e.Source == e.Target && e.Source == to })
	d.DedupeEdges()
}

// DedupeEdges removes parallel edges sharing (source, target, type),
// keeping the first occurrence.
func (d *Draft) DedupeEdges() {
	seen := make(map[EdgeKey]bool, len(d.edges))
	kept := d.edges[:0]
	for _, e := range d.edges {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		kept = append(kept, e)
	}
	d.edges = kept
}

// UniqueID returns base if unused, otherwise base-2, base-3, ... .
func (d *Draft) UniqueID(base string) string {
	if !d.HasNode(base) {
		return base
	}
	for i := 2; ; i++ {
		id := base + "-" + strconv.Itoa(i)
		if !d.HasNode(id) {
			return id
		}
	}
}
