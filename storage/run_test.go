package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/search"
)

// memKV is an in-memory kvBucket.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

type memEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e memEntry) Value() []byte { return e.value }

func (m *memKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return memEntry{value: append([]byte(nil), v...)}, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return uint64(len(m.data)), nil
}

func (m *memKV) Keys(_ context.Context, _ ...jetstream.WatchOpt) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) == 0 {
		return nil, jetstream.ErrNoKeysFound
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func testStore() *RunStore {
	s := newRunStore(newMemKV(), newMemKV())
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestEntityID(t *testing.T) {
	t.Run("NewEntityID generates valid ID", func(t *testing.T) {
		id := NewEntityID(EntityTypeRun)
		assert.Equal(t, EntityTypeRun, id.Type)
		assert.NotEmpty(t, id.ID)
	})

	t.Run("round trip", func(t *testing.T) {
		original := NewEntityID(EntityTypeRun)
		parsed, err := ParseEntityID(original.String())
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})

	t.Run("String returns correct format", func(t *testing.T) {
		assert.Equal(t, "run:abc123", EntityID{Type: EntityTypeRun, ID: "abc123"}.String())
	})

	t.Run("ParseEntityID rejects invalid format", func(t *testing.T) {
		for _, input := range []string{"invalid", "", "run:", "task:123"} {
			_, err := ParseEntityID(input)
			assert.Error(t, err, input)
		}
	})
}

func TestRunStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := testStore()

	id, err := s.CreateRun(ctx, &Run{Slug: "shop", Config: search.DefaultConfig()})
	require.NoError(t, err)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), run.ID)
	assert.Equal(t, RunStatusPending, run.Status)
	assert.Nil(t, run.StartedAt)

	require.NoError(t, s.UpdateRunStatus(ctx, id, RunStatusRunning, ""))

	res := &search.Result{
		Success:           true,
		Iterations:        3,
		ConvergenceReason: search.ReasonThreshold,
		BestVariant: &architecture.Variant{
			ID:           "v2",
			Architecture: architecture.Empty(),
			Score:        architecture.ScoreResult{Weighted: 0.9},
		},
		Stats: search.Stats{TotalVariantsGenerated: 5, VariantsRejected: 1},
	}
	require.NoError(t, s.SaveResult(ctx, id, res))

	run, err = s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, run.Status)
	require.NotNil(t, run.StartedAt)
	require.NotNil(t, run.CompletedAt)
	assert.True(t, run.CompletedAt.After(*run.StartedAt))
	require.Len(t, run.StatusChange, 2)
	assert.Equal(t, RunStatusPending, run.StatusChange[0].From)
	assert.Equal(t, RunStatusRunning, run.StatusChange[0].To)
	assert.Equal(t, "threshold", run.StatusChange[1].Reason)

	require.NotNil(t, run.Summary)
	assert.Equal(t, RunSummary{
		Success:           true,
		Iterations:        3,
		ConvergenceReason: search.ReasonThreshold,
		BestVariantID:     "v2",
		BestScore:         0.9,
		VariantsGenerated: 5,
		VariantsRejected:  1,
	}, *run.Summary)

	stored, err := s.GetResult(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.BestVariant)
	assert.Equal(t, "v2", stored.BestVariant.ID)
	assert.Equal(t, search.ReasonThreshold, stored.ConvergenceReason)
}

func TestRunStore_FinishedRunsAreFrozen(t *testing.T) {
	ctx := context.Background()
	s := testStore()

	id, err := s.CreateRun(ctx, &Run{Slug: "shop"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, id, RunStatusFailed, "invalid search config"))

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "invalid search config", run.Error)

	err = s.UpdateRunStatus(ctx, id, RunStatusRunning, "")
	assert.True(t, errors.Is(err, ErrTerminalStatus))
	err = s.SaveResult(ctx, id, &search.Result{})
	assert.True(t, errors.Is(err, ErrTerminalStatus))
}

func TestRunStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := testStore()
	missing := NewEntityID(EntityTypeRun)

	_, err := s.GetRun(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetResult(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateRunStatus(ctx, missing, RunStatusRunning, ""), ErrNotFound)

	_, err = s.GetRun(ctx, EntityID{Type: "task", ID: "x"})
	assert.Error(t, err)
}

func TestRunStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	s := testStore()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	for i := 0; i < 3; i++ {
		_, err := s.CreateRun(ctx, &Run{Slug: fmt.Sprintf("arch-%d", i)})
		require.NoError(t, err)
	}

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, r := range runs {
		assert.Equal(t, fmt.Sprintf("arch-%d", i), r.Slug)
	}
}
