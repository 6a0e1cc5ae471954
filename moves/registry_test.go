package moves

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semarch/architecture"
)

func TestRegistry_CoversEveryKind(t *testing.T) {
	r := DefaultRegistry()
	for _, kind := range architecture.OperatorKinds {
		op, ok := r.Get(kind)
		require.True(t, ok, "no operator registered for %s", kind)
		assert.Equal(t, kind, op.Kind())
	}
	assert.Equal(t, architecture.OperatorKinds, r.Kinds())

	_, ok := r.Get(architecture.OpNone)
	assert.False(t, ok)
}

func TestRegistry_ApplyFailureReturnsNoArchitecture(t *testing.T) {
	a := architecture.MustNew([]architecture.Node{{ID: "X", Type: architecture.NodeActor}}, nil)
	v := architecture.Violation{RuleID: "unknown", AffectedNodes: []string{"X"}}

	r := DefaultRegistry()
	for _, kind := range architecture.OperatorKinds {
		op, _ := r.Get(kind)
		assert.False(t, op.Precondition(v, a), kind)
		out := op.Apply(a, v)
		assert.False(t, out.Success, kind)
		assert.Nil(t, out.Architecture, kind)
		assert.NotEmpty(t, out.Detail, kind)
	}
	assert.Empty(t, r.Applicable(v, a))
}
