package arch

import "github.com/c360studio/semstreams/vocabulary"

// Run predicates.
const (
	// RunSlug is the caller-supplied name of the architecture being optimized.
	RunSlug = "arch.run.slug"

	// RunStatus tracks the run lifecycle.
	// Values: "pending", "running", "complete", "failed"
	RunStatus = "arch.run.status"

	// RunConvergence is why the search stopped.
	// Values: "threshold", "no_improvement", "max_iterations", "interrupted"
	RunConvergence = "arch.run.convergence"

	// RunIterations is the number of search iterations executed.
	RunIterations = "arch.run.iterations"

	// RunSuccess reports whether the best variant met the success threshold.
	RunSuccess = "arch.run.success"

	// RunCreatedAt is when the run was requested (RFC3339).
	RunCreatedAt = "arch.run.created_at"
)

// Variant score predicates.
const (
	// VariantWeighted is the weighted aggregate score in [0, 1].
	VariantWeighted = "arch.variant.weighted"

	// VariantObjective holds one per-objective score as "category=value".
	VariantObjective = "arch.variant.objective"

	// VariantHardViolations is the number of hard violations.
	VariantHardViolations = "arch.variant.hard_violations"

	// VariantViolation names a rule violated by the variant.
	// Repeated once per violation.
	VariantViolation = "arch.variant.violation"
)

// Variant structure predicates.
const (
	// VariantID is the variant identifier within its run.
	VariantID = "arch.variant.id"

	// VariantOperator is the move operator that produced the variant.
	VariantOperator = "arch.variant.operator"

	// VariantGeneration is the distance from the baseline.
	VariantGeneration = "arch.variant.generation"

	// VariantNodeCount is the number of nodes in the variant.
	VariantNodeCount = "arch.variant.node_count"

	// VariantEdgeCount is the number of edges in the variant.
	VariantEdgeCount = "arch.variant.edge_count"

	// VariantBest marks the run's best variant.
	VariantBest = "arch.variant.best"
)

// Relationship predicates linking architecture entities.
const (
	// DerivedFrom links a variant to its parent variant.
	// Domain: variant entity, Range: variant entity
	DerivedFrom = "arch.rel.derived_from"

	// ProducedBy links a variant to the run that produced it.
	// Domain: variant entity, Range: run entity
	ProducedBy = "arch.rel.produced_by"
)

func init() {
	vocabulary.Register(RunSlug,
		vocabulary.WithDescription("Name of the architecture being optimized"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"slug"))

	vocabulary.Register(RunStatus,
		vocabulary.WithDescription("Run lifecycle status: pending, running, complete, failed"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"status"))

	vocabulary.Register(RunConvergence,
		vocabulary.WithDescription("Reason the search stopped"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"convergenceReason"))

	vocabulary.Register(RunIterations,
		vocabulary.WithDescription("Number of search iterations executed"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"iterations"))

	vocabulary.Register(RunSuccess,
		vocabulary.WithDescription("Whether the best variant met the success threshold"),
		vocabulary.WithDataType("bool"),
		vocabulary.WithIRI(Namespace+"success"))

	vocabulary.Register(RunCreatedAt,
		vocabulary.WithDescription("Run creation timestamp"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(DcCreated))

	vocabulary.Register(VariantWeighted,
		vocabulary.WithDescription("Weighted aggregate score in [0, 1]"),
		vocabulary.WithDataType("float"),
		vocabulary.WithIRI(Namespace+"weightedScore"))

	vocabulary.Register(VariantObjective,
		vocabulary.WithDescription("Per-objective score as category=value"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"objectiveScore"))

	vocabulary.Register(VariantHardViolations,
		vocabulary.WithDescription("Number of hard violations"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"hardViolations"))

	vocabulary.Register(VariantViolation,
		vocabulary.WithDescription("Rule violated by the variant"),
		vocabulary.WithDataType("array"),
		vocabulary.WithIRI(Namespace+"violation"))

	vocabulary.Register(VariantID,
		vocabulary.WithDescription("Variant identifier within its run"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"variantId"))

	vocabulary.Register(VariantOperator,
		vocabulary.WithDescription("Move operator that produced the variant"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"appliedOperator"))

	vocabulary.Register(VariantGeneration,
		vocabulary.WithDescription("Number of moves from the baseline"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"generation"))

	vocabulary.Register(VariantNodeCount,
		vocabulary.WithDescription("Number of nodes in the variant"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"nodeCount"))

	vocabulary.Register(VariantEdgeCount,
		vocabulary.WithDescription("Number of edges in the variant"),
		vocabulary.WithDataType("int"),
		vocabulary.WithIRI(Namespace+"edgeCount"))

	vocabulary.Register(VariantBest,
		vocabulary.WithDescription("Marks the best variant of a run"),
		vocabulary.WithDataType("bool"),
		vocabulary.WithIRI(Namespace+"isBest"))

	vocabulary.Register(DerivedFrom,
		vocabulary.WithDescription("Parent variant this variant was derived from"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(ProvWasDerivedFrom))

	vocabulary.Register(ProducedBy,
		vocabulary.WithDescription("Optimization run that produced the variant"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(ProvGeneratedBy))
}
