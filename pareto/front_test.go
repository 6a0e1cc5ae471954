package pareto

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semarch/architecture"
)

func variant(id string, x, y float64) architecture.Variant {
	return weighted(id, x, y, (x+y)/2)
}

func weighted(id string, x, y, w float64) architecture.Variant {
	return architecture.Variant{
		ID: id,
		Score: architecture.ScoreResult{
			PerObjective: map[string]float64{"x": x, "y": y},
			Weighted:     w,
		},
	}
}

func ids(vs []architecture.Variant) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestFront_RejectsDominated(t *testing.T) {
	f := NewFront(3)

	assert.True(t, f.Add(variant("A", 0.9, 0.5)))
	assert.True(t, f.Add(variant("B", 0.5, 0.9)))
	assert.False(t, f.Add(variant("C", 0.4, 0.4)))

	assert.Equal(t, []string{"A", "B"}, ids(f.Variants()))
	assert.True(t, f.NonDominated())
}

func TestFront_EvictsDominatedMembers(t *testing.T) {
	f := NewFront(5)
	f.Add(variant("A", 0.5, 0.5))
	f.Add(variant("B", 0.6, 0.3))

	assert.True(t, f.Add(variant("C", 0.7, 0.6)))
	assert.Equal(t, []string{"C"}, ids(f.Variants()))
}

func TestFront_IdenticalVectorsCoexist(t *testing.T) {
	f := NewFront(5)
	assert.True(t, f.Add(variant("A", 0.5, 0.5)))
	assert.True(t, f.Add(variant("B", 0.5, 0.5)))
	assert.Equal(t, []string{"A", "B"}, ids(f.Variants()))

	best, ok := f.Best()
	require.True(t, ok)
	assert.Equal(t, "A", best.ID)
}

func TestFront_CapacityEvictsLowestWeightedNewestFirst(t *testing.T) {
	f := NewFront(2)
	require.True(t, f.Add(weighted("A", 0.9, 0.1, 0.5)))
	require.True(t, f.Add(weighted("B", 0.1, 0.9, 0.5)))

	// Ties on Weighted with both members; the newcomer is last in order.
	assert.False(t, f.Add(weighted("C", 0.5, 0.5, 0.5)))
	assert.Equal(t, []string{"A", "B"}, ids(f.Variants()))

	// Higher Weighted displaces the newest of the tied members.
	assert.True(t, f.Add(weighted("D", 0.3, 0.8, 0.6)))
	assert.Equal(t, []string{"A", "D"}, ids(f.Variants()))
	assert.Equal(t, 2, f.Len())
}

func TestFront_MissingObjectivesCountAsZero(t *testing.T) {
	f := NewFront(3)
	f.Add(architecture.Variant{ID: "A", Score: architecture.ScoreResult{
		PerObjective: map[string]float64{"x": 0.5},
	}})
	added := f.Add(architecture.Variant{ID: "B", Score: architecture.ScoreResult{
		PerObjective: map[string]float64{"x": 0.5, "y": 0.1},
	}})

	assert.True(t, added)
	assert.Equal(t, []string{"B"}, ids(f.Variants()))
}

func TestFront_EmptyBest(t *testing.T) {
	_, ok := NewFront(1).Best()
	assert.False(t, ok)
}

func TestFront_NonDominationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	f := NewFront(6)
	for i := 0; i < 500; i++ {
		f.Add(variant(fmt.Sprintf("v%d", i), rng.Float64(), rng.Float64()))
		require.True(t, f.NonDominated(), "iteration %d", i)
		require.LessOrEqual(t, f.Len(), 6)
	}
}
