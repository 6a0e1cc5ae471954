// Package search runs the violation-guided local search: each iteration
// applies move operators to the current variant's violations, keeps the
// best hard-free candidate, and accepts it by simulated annealing.
//
// A run is single-threaded and deterministic. All randomness comes from one
// generator seeded with Config.RandomSeed and owned by the run's State.
package search

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/moves"
	"github.com/c360studio/semarch/pareto"
	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/scoring"
)

// Hooks let a host observe a run and stop it between iterations. Every
// hook is optional and called synchronously.
type Hooks struct {
	OnIteration    func(IterationRecord)
	OnNewBest      func(architecture.Variant)
	OnParetoUpdate func([]architecture.Variant)

	// Interrupt is polled before each iteration; returning true ends the
	// run with ReasonInterrupted.
	Interrupt func(iteration int) bool
}

// Options supplies the collaborators of a run. Nil fields take defaults.
type Options struct {
	Detector *rules.Detector
	Scorer   *scoring.Scorer
	Registry *moves.Registry
	Hooks    Hooks
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Detector == nil {
		o.Detector = rules.DefaultDetector()
	}
	if o.Scorer == nil {
		o.Scorer = scoring.DefaultScorer()
	}
	if o.Registry == nil {
		o.Registry = moves.NewRegistry(o.Detector.Thresholds())
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Optimize searches for improved variants of baseline. The only error is a
// *ConfigError for an invalid configuration; every other outcome, including
// non-convergence, is reported in the Result.
func Optimize(baseline *architecture.Architecture, cfg Config, opts Options) (*Result, error) {
	st, err := NewState(baseline, cfg, opts)
	if err != nil {
		return nil, err
	}
	for st.Step() {
	}
	return st.Result(), nil
}

// candidate is a scored, hard-free result of one operator application.
type candidate struct {
	arch       *architecture.Architecture
	violations []architecture.Violation
	score      architecture.ScoreResult
	op         architecture.OperatorKind
}

// State is the complete mutable state of one run.
type State struct {
	cfg  Config
	opts Options
	rng  *rand.Rand

	phase       Phase
	reason      ConvergenceReason
	iteration   int
	temperature float64

	// lineage is the arena of accepted variants; current indexes into it.
	lineage           []architecture.Variant
	current           int
	currentViolations []architecture.Violation

	front  *pareto.Front
	bestID string
	window []float64

	stats Stats
	trace []IterationRecord
}

// NewState validates cfg and evaluates the baseline.
func NewState(baseline *architecture.Architecture, cfg Config, opts Options) (*State, error) {
	opts = opts.withDefaults()
	if err := cfg.Validate(opts.Scorer.HardCeiling()); err != nil {
		return nil, err
	}
	if baseline == nil {
		baseline = architecture.Empty()
	}

	st := &State{
		cfg:         cfg,
		opts:        opts,
		rng:         rand.New(rand.NewSource(cfg.RandomSeed)),
		phase:       PhaseInit,
		temperature: cfg.AnnealingInitialTemp,
		front:       pareto.NewFront(cfg.ParetoFrontSize),
		stats: Stats{
			OperatorUsage: make(map[architecture.OperatorKind]int),
		},
	}

	violations := opts.Detector.Detect(baseline)
	root := architecture.Variant{
		ID:           "v0",
		Index:        0,
		ParentIndex:  -1,
		Architecture: baseline,
		Score:        opts.Scorer.Score(baseline, violations),
	}
	st.lineage = []architecture.Variant{root}
	st.currentViolations = violations
	st.stats.ScoreHistory = []float64{root.Score.Weighted}
	if root.Score.Acceptable() {
		st.offer(root)
	}

	opts.Logger.Debug("Search initialized",
		"nodes", baseline.NodeCount(),
		"violations", len(violations),
		"weighted", root.Score.Weighted,
		"seed", cfg.RandomSeed)
	return st, nil
}

// Phase returns the run's current phase.
func (s *State) Phase() Phase {
	return s.phase
}

// Current returns the current variant.
func (s *State) Current() architecture.Variant {
	return s.lineage[s.current]
}

// Lineage returns every accepted variant, root first.
func (s *State) Lineage() []architecture.Variant {
	return append([]architecture.Variant(nil), s.lineage...)
}

// Done reports whether the run has reached a terminal phase.
func (s *State) Done() bool {
	switch s.phase {
	case PhaseConverged, PhaseMaxIterations, PhaseInterrupted:
		return true
	}
	return false
}

// Step runs one iteration and reports whether another may follow.
func (s *State) Step() bool {
	if s.Done() {
		return false
	}
	if len(s.currentViolations) == 0 {
		s.finish(PhaseConverged, ReasonThreshold)
		return false
	}
	if s.iteration >= s.cfg.MaxIterations {
		s.finish(PhaseMaxIterations, ReasonMaxIterations)
		return false
	}
	if h := s.opts.Hooks.Interrupt; h != nil && h(s.iteration) {
		s.finish(PhaseInterrupted, ReasonInterrupted)
		return false
	}
	s.phase = PhaseIterating

	cur := s.Current()
	rec := IterationRecord{
		Iteration:   s.iteration,
		Temperature: s.temperature,
		Violations:  len(s.currentViolations),
	}

	cands, rejected := s.generate(cur)
	rec.Candidates = len(cands) + rejected
	rec.Rejected = rejected

	if len(cands) > 0 {
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].score.Weighted > cands[j].score.Weighted
		})
		proposal := cands[0]
		delta := proposal.score.Weighted - cur.Score.Weighted
		rec.ProposalOperator = proposal.op
		rec.ProposalScore = proposal.score.Weighted
		rec.Delta = delta

		if s.accept(delta) {
			v := s.adopt(cur, proposal)
			rec.Accepted = true
			rec.VariantID = v.ID
			s.window = append(s.window, delta)
			if len(s.window) > s.cfg.ConvergenceWindow {
				s.window = s.window[1:]
			}
		}
	}

	s.temperature *= s.cfg.AnnealingDecay
	s.iteration++

	now := s.Current()
	rec.CurrentID = now.ID
	rec.CurrentScore = now.Score.Weighted
	s.stats.ScoreHistory = append(s.stats.ScoreHistory, now.Score.Weighted)
	s.trace = append(s.trace, rec)

	s.opts.Logger.Debug("Search iteration",
		"iteration", rec.Iteration,
		"violations", rec.Violations,
		"candidates", rec.Candidates,
		"rejected", rec.Rejected,
		"operator", rec.ProposalOperator,
		"delta", rec.Delta,
		"accepted", rec.Accepted,
		"current", rec.CurrentID)
	if h := s.opts.Hooks.OnIteration; h != nil {
		h(rec)
	}

	if s.converged() {
		s.finish(PhaseConverged, ReasonNoImprovement)
		return false
	}
	return true
}

// generate applies one operator per violation of cur. Candidates that
// carry a hard violation are pruned and counted as rejected.
func (s *State) generate(cur architecture.Variant) ([]candidate, int) {
	var out []candidate
	rejected := 0
	for _, v := range s.currentViolations {
		op := s.choose(v, cur.Architecture)
		if op == nil {
			continue
		}
		res := op.Apply(cur.Architecture, v)
		if !res.Success {
			continue
		}
		s.stats.TotalVariantsGenerated++
		s.stats.OperatorUsage[op.Kind()]++

		violations := s.opts.Detector.Detect(res.Architecture)
		if architecture.HasHard(violations) {
			s.stats.VariantsRejected++
			rejected++
			continue
		}
		out = append(out, candidate{
			arch:       res.Architecture,
			violations: violations,
			score:      s.opts.Scorer.Score(res.Architecture, violations),
			op:         op.Kind(),
		})
	}
	return out, rejected
}

// choose picks the violation's suggested operator when it applies, else a
// seeded-random applicable operator.
func (s *State) choose(v architecture.Violation, a *architecture.Architecture) moves.Operator {
	applicable := s.opts.Registry.Applicable(v, a)
	if len(applicable) == 0 {
		return nil
	}
	if v.SuggestedOperator != architecture.OpNone {
		for _, op := range applicable {
			if op.Kind() == v.SuggestedOperator {
				return op
			}
		}
	}
	return applicable[s.rng.Intn(len(applicable))]
}

// accept applies the annealing rule: improvements always pass, others pass
// with probability exp(Δ/T).
func (s *State) accept(delta float64) bool {
	if delta > 0 {
		return true
	}
	return s.rng.Float64() < math.Exp(delta/s.temperature)
}

// adopt records the proposal as a new variant and makes it current.
func (s *State) adopt(parent architecture.Variant, c candidate) architecture.Variant {
	v := architecture.Variant{
		ID:              fmt.Sprintf("v%d", len(s.lineage)),
		Index:           len(s.lineage),
		ParentIndex:     parent.Index,
		ParentID:        parent.ID,
		Architecture:    c.arch,
		Score:           c.score,
		AppliedOperator: c.op,
		Generation:      parent.Generation + 1,
	}
	s.lineage = append(s.lineage, v)
	s.current = v.Index
	s.currentViolations = c.violations
	s.offer(v)
	return v
}

// offer inserts a hard-free variant into the front and fires hooks.
func (s *State) offer(v architecture.Variant) {
	if !s.front.Add(v) {
		return
	}
	if h := s.opts.Hooks.OnParetoUpdate; h != nil {
		h(s.front.Variants())
	}
	best, ok := s.front.Best()
	if ok && best.ID != s.bestID {
		s.bestID = best.ID
		if h := s.opts.Hooks.OnNewBest; h != nil {
			h(best)
		}
	}
}

func (s *State) converged() bool {
	if len(s.window) < s.cfg.ConvergenceWindow {
		return false
	}
	sum := 0.0
	for _, d := range s.window {
		sum += math.Abs(d)
	}
	return sum/float64(len(s.window)) < s.cfg.ConvergenceThreshold
}

func (s *State) finish(phase Phase, reason ConvergenceReason) {
	s.phase = phase
	s.reason = reason
	s.opts.Logger.Info("Search finished",
		"reason", reason,
		"iterations", s.iteration,
		"variants_generated", s.stats.TotalVariantsGenerated,
		"variants_rejected", s.stats.VariantsRejected,
		"front_size", s.front.Len())
}

// Result assembles the run's result. It may be called at any time; before
// the run is done the convergence reason is empty.
func (s *State) Result() *Result {
	res := &Result{
		Iterations:        s.iteration,
		ParetoFront:       s.front.Variants(),
		ConvergenceReason: s.reason,
		Stats: Stats{
			TotalVariantsGenerated: s.stats.TotalVariantsGenerated,
			VariantsRejected:       s.stats.VariantsRejected,
			OperatorUsage:          make(map[architecture.OperatorKind]int, len(s.stats.OperatorUsage)),
			ScoreHistory:           append([]float64(nil), s.stats.ScoreHistory...),
		},
		Trace: append([]IterationRecord(nil), s.trace...),
	}
	for k, v := range s.stats.OperatorUsage {
		res.Stats.OperatorUsage[k] = v
	}
	if best, ok := s.front.Best(); ok {
		res.BestVariant = &best
		res.Success = best.Score.Weighted >= s.cfg.SuccessThreshold
	}
	if s.reason == ReasonThreshold {
		cur := s.Current()
		res.Success = cur.Score.Acceptable() && cur.Score.Weighted >= s.cfg.SuccessThreshold
	}
	return res
}
