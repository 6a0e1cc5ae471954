package search

import (
	"github.com/c360studio/semarch/architecture"
)

// ConvergenceReason explains why a run stopped.
type ConvergenceReason string

// Convergence reasons.
const (
	ReasonThreshold     ConvergenceReason = "threshold"
	ReasonNoImprovement ConvergenceReason = "no_improvement"
	ReasonMaxIterations ConvergenceReason = "max_iterations"
	ReasonInterrupted   ConvergenceReason = "interrupted"
)

// Phase is the state-machine position of a run.
type Phase string

// Run phases.
const (
	PhaseInit          Phase = "init"
	PhaseIterating     Phase = "iterating"
	PhaseConverged     Phase = "converged"
	PhaseMaxIterations Phase = "max_iterations"
	PhaseInterrupted   Phase = "interrupted"
)

// Stats aggregates counters over a run.
type Stats struct {
	TotalVariantsGenerated int                               `json:"total_variants_generated"`
	VariantsRejected       int                               `json:"variants_rejected"`
	OperatorUsage          map[architecture.OperatorKind]int `json:"operator_usage"`

	// ScoreHistory holds the current variant's weighted score at the start
	// of the run and after every iteration.
	ScoreHistory []float64 `json:"score_history"`
}

// IterationRecord traces one iteration.
type IterationRecord struct {
	Iteration   int     `json:"iteration"`
	Temperature float64 `json:"temperature"`
	Violations  int     `json:"violations"`
	Candidates  int     `json:"candidates"`
	Rejected    int     `json:"rejected"`

	// Proposal fields are empty when no candidate survived.
	ProposalOperator architecture.OperatorKind `json:"proposal_operator,omitempty"`
	ProposalScore    float64                   `json:"proposal_score,omitempty"`
	Delta            float64                   `json:"delta"`
	Accepted         bool                      `json:"accepted"`
	VariantID        string                    `json:"variant_id,omitempty"`

	CurrentID    string  `json:"current_id"`
	CurrentScore float64 `json:"current_score"`
}

// Result is the outcome of an optimization run.
type Result struct {
	Success           bool                   `json:"success"`
	Iterations        int                    `json:"iterations"`
	ParetoFront       []architecture.Variant `json:"pareto_front"`
	BestVariant       *architecture.Variant  `json:"best_variant"`
	ConvergenceReason ConvergenceReason      `json:"convergence_reason"`
	Stats             Stats                  `json:"stats"`
	Trace             []IterationRecord      `json:"trace"`
}
