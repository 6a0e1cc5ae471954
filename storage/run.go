package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semarch/search"
)

// RunStatus represents the status of an optimization run.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Run records one optimization request and its progress.
type Run struct {
	ID           string         `json:"id"`
	RequestID    string         `json:"request_id,omitempty"`
	Slug         string         `json:"slug"`
	Status       RunStatus      `json:"status"`
	Config       search.Config  `json:"config"`
	NodeCount    int            `json:"node_count"`
	EdgeCount    int            `json:"edge_count"`
	Error        string         `json:"error,omitempty"`
	Summary      *RunSummary    `json:"summary,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	StatusChange []StatusChange `json:"status_changes,omitempty"`
}

// RunSummary is the compact outcome of a finished run. The full result is
// stored separately and read with GetResult.
type RunSummary struct {
	Success           bool                     `json:"success"`
	Iterations        int                      `json:"iterations"`
	ConvergenceReason search.ConvergenceReason `json:"convergence_reason"`
	BestVariantID     string                   `json:"best_variant_id,omitempty"`
	BestScore         float64                  `json:"best_score"`
	FrontSize         int                      `json:"front_size"`
	VariantsGenerated int                      `json:"variants_generated"`
	VariantsRejected  int                      `json:"variants_rejected"`
}

// Summarize condenses a search result.
func Summarize(res *search.Result) *RunSummary {
	s := &RunSummary{
		Success:           res.Success,
		Iterations:        res.Iterations,
		ConvergenceReason: res.ConvergenceReason,
		FrontSize:         len(res.ParetoFront),
		VariantsGenerated: res.Stats.TotalVariantsGenerated,
		VariantsRejected:  res.Stats.VariantsRejected,
	}
	if res.BestVariant != nil {
		s.BestVariantID = res.BestVariant.ID
		s.BestScore = res.BestVariant.Score.Weighted
	}
	return s
}

// StatusChange records a status transition.
type StatusChange struct {
	From      RunStatus `json:"from"`
	To        RunStatus `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// kvBucket is the subset of jetstream.KeyValue used by RunStore.
type kvBucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Keys(ctx context.Context, opts ...jetstream.WatchOpt) ([]string, error)
}

// RunStore provides run storage operations backed by NATS KV.
type RunStore struct {
	runs    kvBucket
	results kvBucket
	now     func() time.Time
}

// NewRunStore creates a RunStore with the given JetStream context.
// It creates the necessary KV buckets if they don't exist.
func NewRunStore(ctx context.Context, js jetstream.JetStream) (*RunStore, error) {
	runs, err := getOrCreateBucket(ctx, js, BucketRuns, 10)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	results, err := getOrCreateBucket(ctx, js, BucketResults, 1)
	if err != nil {
		return nil, fmt.Errorf("create results bucket: %w", err)
	}

	return newRunStore(runs, results), nil
}

func newRunStore(runs, results kvBucket) *RunStore {
	return &RunStore{runs: runs, results: results, now: time.Now}
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string, history uint8) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semarch %s storage", strings.ToLower(name)),
		History:     history,
	})
}

// CreateRun stores a new pending run and returns its ID.
func (s *RunStore) CreateRun(ctx context.Context, r *Run) (EntityID, error) {
	id := NewEntityID(EntityTypeRun)
	now := s.now()
	r.ID = id.String()
	r.Status = RunStatusPending
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := s.putRun(ctx, id, r); err != nil {
		return EntityID{}, fmt.Errorf("store run: %w", err)
	}
	return id, nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(ctx context.Context, id EntityID) (*Run, error) {
	if id.Type != EntityTypeRun {
		return nil, fmt.Errorf("invalid entity type: expected run, got %s", id.Type)
	}

	entry, err := s.runs.Get(ctx, id.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var r Run
	if err := json.Unmarshal(entry.Value(), &r); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &r, nil
}

// UpdateRunStatus moves a run to newStatus and records the change.
// Finished runs cannot change status.
func (s *RunStore) UpdateRunStatus(ctx context.Context, id EntityID, newStatus RunStatus, reason string) error {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return fmt.Errorf("update run %s to %s: %w", id, newStatus, ErrTerminalStatus)
	}

	s.transition(run, newStatus, reason)
	if newStatus == RunStatusFailed {
		run.Error = reason
	}

	if err := s.putRun(ctx, id, run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// SaveResult stores the full search result and completes the run.
func (s *RunStore) SaveResult(ctx context.Context, id EntityID, res *search.Result) error {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return fmt.Errorf("save result for run %s: %w", id, ErrTerminalStatus)
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if _, err := s.results.Put(ctx, id.ID, data); err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	run.Summary = Summarize(res)
	s.transition(run, RunStatusComplete, string(res.ConvergenceReason))
	if err := s.putRun(ctx, id, run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// GetResult retrieves the full search result of a completed run.
func (s *RunStore) GetResult(ctx context.Context, id EntityID) (*search.Result, error) {
	if id.Type != EntityTypeRun {
		return nil, fmt.Errorf("invalid entity type: expected run, got %s", id.Type)
	}

	entry, err := s.results.Get(ctx, id.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}

	var res search.Result
	if err := json.Unmarshal(entry.Value(), &res); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &res, nil
}

// ListRuns returns all runs, oldest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]*Run, error) {
	keys, err := s.runs.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	runs := make([]*Run, 0, len(keys))
	for _, key := range keys {
		entry, err := s.runs.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var r Run
		if err := json.Unmarshal(entry.Value(), &r); err != nil {
			continue
		}
		runs = append(runs, &r)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *RunStore) transition(run *Run, to RunStatus, reason string) {
	now := s.now()
	run.StatusChange = append(run.StatusChange, StatusChange{
		From:      run.Status,
		To:        to,
		Reason:    reason,
		Timestamp: now,
	})
	run.Status = to
	run.UpdatedAt = now

	if to == RunStatusRunning && run.StartedAt == nil {
		run.StartedAt = &now
	}
	if to.IsTerminal() {
		run.CompletedAt = &now
	}
}

func (s *RunStore) putRun(ctx context.Context, id EntityID, r *Run) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	_, err = s.runs.Put(ctx, id.ID, data)
	return err
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "key not found")
}
