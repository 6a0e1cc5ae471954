// Package architecture provides the immutable typed-graph snapshot that the
// optimization engine reads and rewrites: nodes, edges, violations, scores and
// variants.
//
// An Architecture is never modified after construction. Every transformation
// goes through Edit, which returns a private Draft, and Draft.Build, which
// produces a new Architecture value.
package architecture

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// NodeType identifies the kind of element a node represents.
type NodeType string

// Node types understood by the engine.
const (
	NodeSystem    NodeType = "SYS"
	NodeUseCase   NodeType = "UC"
	NodeActor     NodeType = "ACTOR"
	NodeFuncChain NodeType = "FCHAIN"
	NodeFunc      NodeType = "FUNC"
	NodeFlow      NodeType = "FLOW"
	NodeReq       NodeType = "REQ"
	NodeTest      NodeType = "TEST"
	NodeModule    NodeType = "MOD"
	NodeSchema    NodeType = "SCHEMA"
)

// IsValid returns true if the node type is known.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeSystem, NodeUseCase, NodeActor, NodeFuncChain, NodeFunc,
		NodeFlow, NodeReq, NodeTest, NodeModule, NodeSchema:
		return true
	}
	return false
}

// EdgeType identifies the relationship an edge represents.
type EdgeType string

// Edge types understood by the engine.
const (
	EdgeCompose  EdgeType = "compose"
	EdgeIO       EdgeType = "io"
	EdgeSatisfy  EdgeType = "satisfy"
	EdgeVerify   EdgeType = "verify"
	EdgeAllocate EdgeType = "allocate"
	EdgeRelation EdgeType = "relation"
)

// IsValid returns true if the edge type is known.
func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeCompose, EdgeIO, EdgeSatisfy, EdgeVerify, EdgeAllocate, EdgeRelation:
		return true
	}
	return false
}

// Well-known node property keys.
const (
	PropDescription = "description"
	PropVolatility  = "volatility"
	PropStruct      = "struct"

	// PropMergedFrom and PropMergedProperties record merge provenance so the
	// original nodes can be reconstructed from a merged node.
	PropMergedFrom       = "merged_from"
	PropMergedProperties = "merged_properties"
)

// Node is a typed graph element. Properties carry rule-specific data and
// must be treated as read-only once the node belongs to an Architecture.
type Node struct {
	ID         string         `json:"id" yaml:"id"`
	Type       NodeType       `json:"type" yaml:"type"`
	Label      string         `json:"label" yaml:"label"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// String returns the named property as a string, or "" if absent.
func (n Node) String(key string) string {
	v, ok := n.Properties[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Float returns the named property as a float64 when it holds a number.
func (n Node) Float(key string) (float64, bool) {
	v, ok := n.Properties[key]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

// Description returns the node's description property.
func (n Node) Description() string {
	return n.String(PropDescription)
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Properties = cloneProperties(n.Properties)
	return n
}

// Edge is a typed, directed relationship between two nodes.
type Edge struct {
	Source     string         `json:"source" yaml:"source"`
	Target     string         `json:"target" yaml:"target"`
	Type       EdgeType       `json:"type" yaml:"type"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Key identifies an edge by (source, target, type). Parallel edges sharing
// a key are considered duplicates.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Type: e.Type}
}

// Touches returns true if the edge has id as source or target.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Other returns the endpoint opposite to id.
func (e Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	e.Properties = cloneProperties(e.Properties)
	return e
}

// EdgeKey is the identity of an edge for de-duplication.
type EdgeKey struct {
	Source string
	Target string
	Type   EdgeType
}

func cloneProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneProperties(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	}
	return v
}
