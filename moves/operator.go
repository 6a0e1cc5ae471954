// Package moves implements the graph-rewriting operators used by the
// optimizer. Operators never mutate their input architecture: each works on
// a Draft and builds a new Architecture on success.
package moves

import (
	"fmt"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/rules"
)

// Operator is one move in the catalog.
type Operator interface {
	// Kind returns the operator's registry key.
	Kind() architecture.OperatorKind

	// Precondition reports whether Apply can act on v in a.
	Precondition(v architecture.Violation, a *architecture.Architecture) bool

	// Apply rewrites a to address v. On failure the Outcome carries
	// Success=false and a nil Architecture.
	Apply(a *architecture.Architecture, v architecture.Violation) Outcome
}

// Outcome is the result of applying an operator.
type Outcome struct {
	Success      bool
	Architecture *architecture.Architecture
	Detail       string
}

func failed(format string, args ...any) Outcome {
	return Outcome{Detail: fmt.Sprintf(format, args...)}
}

// finish builds the draft into a successful outcome.
func finish(d *architecture.Draft, format string, args ...any) Outcome {
	a, err := d.Build()
	if err != nil {
		return failed("build variant: %v", err)
	}
	return Outcome{Success: true, Architecture: a, Detail: fmt.Sprintf(format, args...)}
}

// constructors is the operator table. Every OperatorKind except OpNone must
// have an entry.
var constructors = map[architecture.OperatorKind]func(rules.Thresholds) Operator{
	architecture.OpFuncSplit:        func(rules.Thresholds) Operator { return funcSplit{} },
	architecture.OpModSplit:         func(rules.Thresholds) Operator { return modSplit{} },
	architecture.OpFuncMerge:        func(rules.Thresholds) Operator { return funcMerge{} },
	architecture.OpFuncMergeSimilar: func(rules.Thresholds) Operator { return funcMergeSimilar{} },
	architecture.OpMerge:            func(rules.Thresholds) Operator { return merge{} },
	architecture.OpFlowRedirect:     func(rules.Thresholds) Operator { return flowRedirect{} },
	architecture.OpFlowConsolidate:  func(rules.Thresholds) Operator { return flowConsolidate{} },
	architecture.OpAllocShift:       func(rules.Thresholds) Operator { return allocShift{} },
	architecture.OpAllocRebalance:   func(t rules.Thresholds) Operator { return allocRebalance{min: t.MinFuncsPerModule, max: t.MaxFuncsPerModule} },
	architecture.OpReqLink:          func(rules.Thresholds) Operator { return reqLink{} },
	architecture.OpTestLink:         func(rules.Thresholds) Operator { return testLink{} },
	architecture.OpRealloc:          func(rules.Thresholds) Operator { return realloc{} },
}

// Registry resolves operator kinds to implementations.
type Registry struct {
	ops map[architecture.OperatorKind]Operator
}

// NewRegistry builds the full operator catalog. Thresholds bound the
// module sizes targeted by ALLOC_REBALANCE.
func NewRegistry(t rules.Thresholds) *Registry {
	ops := make(map[architecture.OperatorKind]Operator, len(constructors))
	for kind, build := range constructors {
		ops[kind] = build(t)
	}
	return &Registry{ops: ops}
}

// DefaultRegistry builds the catalog with rules.DefaultThresholds.
func DefaultRegistry() *Registry {
	return NewRegistry(rules.DefaultThresholds())
}

// Get returns the operator registered for kind.
func (r *Registry) Get(kind architecture.OperatorKind) (Operator, bool) {
	op, ok := r.ops[kind]
	return op, ok
}

// Kinds returns the registered kinds in architecture.OperatorKinds order.
func (r *Registry) Kinds() []architecture.OperatorKind {
	var out []architecture.OperatorKind
	for _, k := range architecture.OperatorKinds {
		if _, ok := r.ops[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Applicable returns the operators whose precondition holds for v, in
// architecture.OperatorKinds order.
func (r *Registry) Applicable(v architecture.Violation, a *architecture.Architecture) []Operator {
	var out []Operator
	for _, k := range architecture.OperatorKinds {
		op, ok := r.ops[k]
		if ok && op.Precondition(v, a) {
			out = append(out, op)
		}
	}
	return out
}
