package archoptimizer

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/moves"
	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/scoring"
	"github.com/c360studio/semarch/search"
)

// Executor runs optimization requests. It holds no NATS state so it can be
// exercised directly in tests.
type Executor struct {
	detector      *rules.Detector
	registry      *moves.Registry
	scorer        func() *scoring.Scorer
	defaults      search.Config
	progressEvery int
	logger        *slog.Logger
}

// NewExecutor creates an Executor. scorer is called once per run so a
// hot-reloaded weight table takes effect on the next request.
func NewExecutor(detector *rules.Detector, scorer func() *scoring.Scorer, defaults search.Config, progressEvery int, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if scorer == nil {
		scorer = scoring.DefaultScorer
	}
	return &Executor{
		detector:      detector,
		registry:      moves.NewRegistry(detector.Thresholds()),
		scorer:        scorer,
		defaults:      defaults,
		progressEvery: progressEvery,
		logger:        logger,
	}
}

// Detector returns the executor's detector.
func (e *Executor) Detector() *rules.Detector {
	return e.detector
}

// Config returns the search configuration a request would run with.
func (e *Executor) Config(req *OptimizeRequest) search.Config {
	return req.Search.Apply(e.defaults)
}

// Execute runs one optimization. The run stops early, keeping its best
// variant, when ctx is cancelled. progress may be nil. The only error is a
// *search.ConfigError.
func (e *Executor) Execute(ctx context.Context, req *OptimizeRequest, runID string, progress func(*OptimizeProgress)) (*search.Result, error) {
	baseline := req.Architecture
	if baseline == nil {
		baseline = architecture.Empty()
	}

	ctx, span := startOptimizeSpan(ctx, req.Slug, baseline.NodeCount(), baseline.EdgeCount())
	defer span.End()

	tracker := &progressTracker{
		base:  OptimizeProgress{RequestID: req.RequestID, RunID: runID},
		every: e.progressEvery,
		emit:  progress,
	}

	opts := search.Options{
		Detector: e.detector,
		Scorer:   e.scorer(),
		Registry: e.registry,
		Logger:   e.logger.With("slug", req.Slug, "run_id", runID),
		Hooks: search.Hooks{
			OnIteration:    tracker.iteration,
			OnNewBest:      tracker.newBest,
			OnParetoUpdate: tracker.paretoUpdate,
			Interrupt: func(int) bool {
				return ctx.Err() != nil
			},
		},
	}

	start := time.Now()
	res, err := search.Optimize(baseline, e.Config(req), opts)
	if err != nil {
		recordConfigError()
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid search config")
		return nil, err
	}

	recordRun(res, time.Since(start))
	setOptimizeSpanResult(span, res)
	return res, nil
}

// progressTracker turns search hooks into progress events.
type progressTracker struct {
	base  OptimizeProgress
	every int
	emit  func(*OptimizeProgress)

	// iterations counts OnIteration calls; a new best found during
	// iteration i is reported before that iteration's record.
	iterations int
	bestID     string
	bestScore  float64
	frontSize  int
}

func (t *progressTracker) iteration(rec search.IterationRecord) {
	t.iterations++
	if t.emit == nil || t.every <= 0 || rec.Iteration%t.every != 0 {
		return
	}
	p := t.snapshot(ProgressIteration)
	p.Iteration = rec.Iteration
	p.Violations = rec.Violations
	p.Accepted = rec.Accepted
	p.CurrentID = rec.CurrentID
	p.CurrentScore = rec.CurrentScore
	t.emit(p)
}

func (t *progressTracker) newBest(v architecture.Variant) {
	t.bestID = v.ID
	t.bestScore = v.Score.Weighted
	if t.emit == nil {
		return
	}
	p := t.snapshot(ProgressNewBest)
	p.Iteration = t.iterations
	p.CurrentID = v.ID
	p.CurrentScore = v.Score.Weighted
	t.emit(p)
}

func (t *progressTracker) paretoUpdate(front []architecture.Variant) {
	t.frontSize = len(front)
}

func (t *progressTracker) snapshot(event ProgressEvent) *OptimizeProgress {
	p := t.base
	p.Event = event
	p.BestID = t.bestID
	p.BestScore = t.bestScore
	p.FrontSize = t.frontSize
	return &p
}
