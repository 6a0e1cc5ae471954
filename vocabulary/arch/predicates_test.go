package arch

import (
	"testing"

	"github.com/c360studio/semstreams/vocabulary"
)

func TestPredicatesRegistered(t *testing.T) {
	predicates := []string{
		RunSlug,
		RunStatus,
		RunConvergence,
		RunIterations,
		RunSuccess,
		RunCreatedAt,
		VariantWeighted,
		VariantObjective,
		VariantHardViolations,
		VariantViolation,
		VariantID,
		VariantOperator,
		VariantGeneration,
		VariantNodeCount,
		VariantEdgeCount,
		VariantBest,
		DerivedFrom,
		ProducedBy,
	}

	for _, pred := range predicates {
		t.Run(pred, func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(pred)
			if meta == nil || meta.Description == "" {
				t.Errorf("predicate %s not registered or missing description", pred)
			}
		})
	}
}

func TestPredicateMappings(t *testing.T) {
	tests := []struct {
		predicate    string
		expectedIRI  string
		expectedType string
	}{
		{DerivedFrom, ProvWasDerivedFrom, "entity_id"},
		{ProducedBy, ProvGeneratedBy, "entity_id"},
		{RunCreatedAt, DcCreated, "datetime"},
		{VariantWeighted, Namespace + "weightedScore", "float"},
		{VariantGeneration, Namespace + "generation", "int"},
	}

	for _, tt := range tests {
		t.Run(tt.predicate, func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(tt.predicate)
			if meta == nil {
				t.Fatalf("predicate %s not registered", tt.predicate)
			}
			if meta.StandardIRI != tt.expectedIRI {
				t.Errorf("predicate %s: expected IRI %s, got %s", tt.predicate, tt.expectedIRI, meta.StandardIRI)
			}
			if meta.DataType != tt.expectedType {
				t.Errorf("predicate %s: expected type %s, got %s", tt.predicate, tt.expectedType, meta.DataType)
			}
		})
	}
}
