package scoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/rules"
)

func fourFuncs() *architecture.Architecture {
	return architecture.MustNew([]architecture.Node{
		{ID: "A", Type: architecture.NodeFunc},
		{ID: "B", Type: architecture.NodeFunc},
		{ID: "C", Type: architecture.NodeFunc},
		{ID: "D", Type: architecture.NodeFunc},
	}, nil)
}

func TestScore_NoViolations(t *testing.T) {
	s := DefaultScorer()
	r := s.Score(fourFuncs(), nil)

	assert.Equal(t, 1.0, r.Weighted)
	assert.Zero(t, r.HardViolations)
	assert.True(t, r.Acceptable())
	for _, c := range DefaultWeights().Categories() {
		assert.Equal(t, 1.0, r.PerObjective[c], c)
	}
}

func TestScore_SoftPenaltyNormalizedByNodeCount(t *testing.T) {
	s := DefaultScorer()
	vs := []architecture.Violation{
		{RuleID: rules.RuleIsolation, Severity: architecture.SeveritySoft},
		{RuleID: rules.RuleReqUnsatisfied, Severity: architecture.SeveritySoft},
	}
	r := s.Score(fourFuncs(), vs)

	// (0.5 + 1.0) / 4
	assert.InDelta(t, 1-0.375, r.Weighted, 1e-9)
	assert.InDelta(t, 1-0.125, r.PerObjective[CategoryConnectivity], 1e-9)
	assert.InDelta(t, 1-0.25, r.PerObjective[CategoryTraceability], 1e-9)
	assert.Equal(t, 1.0, r.PerObjective[CategoryStructure])
}

func TestScore_HardViolationCapsWeighted(t *testing.T) {
	s := DefaultScorer()
	vs := []architecture.Violation{
		{RuleID: rules.RuleFuncNearDuplicate, Severity: architecture.SeverityHard},
	}
	r := s.Score(fourFuncs(), vs)

	// 0.5 × (1 - 2/4)
	assert.InDelta(t, 0.25, r.Weighted, 1e-9)
	assert.Equal(t, 1, r.HardViolations)
	assert.False(t, r.Acceptable())
	assert.Less(t, r.Weighted, 0.7)
}

func TestScore_UnknownRuleFallsBackToOther(t *testing.T) {
	s := DefaultScorer()
	r := s.Score(fourFuncs(), []architecture.Violation{{RuleID: "custom_rule"}})

	assert.InDelta(t, 0.75, r.Weighted, 1e-9)
	assert.InDelta(t, 0.75, r.PerObjective[CategoryOther], 1e-9)
}

func TestParseWeights_OverridesDefaults(t *testing.T) {
	w, err := ParseWeights([]byte(`
version: "2"
normalization_base: 10
rules:
  isolation:
    weight: 3
    category: connectivity
`))
	require.NoError(t, err)

	assert.Equal(t, "2", w.Version)
	assert.Equal(t, 10.0, w.NormalizationBase)
	assert.Equal(t, DefaultHardCeiling, w.HardCeiling)
	assert.Equal(t, 3.0, w.Lookup(rules.RuleIsolation).Weight)
	assert.Equal(t, 1.0, w.Lookup(rules.RuleMillersLaw).Weight)

	s, err := NewScorer(w)
	require.NoError(t, err)
	r := s.Score(fourFuncs(), []architecture.Violation{{RuleID: rules.RuleIsolation}})
	assert.InDelta(t, 0.7, r.Weighted, 1e-9)
}

func TestParseWeights_RejectsInvalid(t *testing.T) {
	_, err := ParseWeights([]byte("hard_ceiling: 1.5\n"))
	require.Error(t, err)

	_, err = ParseWeights([]byte("rules: [not, a, map]\n"))
	require.Error(t, err)
}

func TestWeightsWatcher_Reloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\n"), 0o644))

	w, err := NewWeightsWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *Scorer, 16)
	w.OnReload(func(s *Scorer) { reloaded <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	assert.Equal(t, "1", w.Scorer().Weights().Version)

	require.NoError(t, os.WriteFile(path, []byte("version: \"7\"\n"), 0o644))

	// A truncating write can surface an intermediate reload first.
	deadline := time.After(5 * time.Second)
	for version := ""; version != "7"; {
		select {
		case s := <-reloaded:
			version = s.Weights().Version
		case <-deadline:
			t.Fatal("weights were not reloaded")
		}
	}
	assert.Equal(t, "7", w.Scorer().Weights().Version)
	assert.Positive(t, w.Reloads())
}
