package arch

import (
	"testing"

	"github.com/c360studio/semstreams/vocabulary"
	"github.com/c360studio/semstreams/vocabulary/bfo"
	"github.com/c360studio/semstreams/vocabulary/cco"
)

func TestTypesFor(t *testing.T) {
	tests := []struct {
		name    string
		kind    EntityKind
		withBFO bool
		withCCO bool
		want    []string
	}{
		{"run", KindRun, false, false, []string{ClassRun, vocabulary.ProvActivity}},
		{"variant", KindVariant, false, false, []string{ClassVariant, vocabulary.ProvEntity}},
		{"run bfo", KindRun, true, false, []string{ClassRun, vocabulary.ProvActivity, bfo.Process}},
		{"variant cco", KindVariant, true, true, []string{ClassVariant, vocabulary.ProvEntity, bfo.GenericallyDependentContinuant, cco.InformationContentEntity}},
		{"unknown", EntityKind("unknown"), true, true, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TypesFor(tt.kind, tt.withBFO, tt.withCCO)
			if len(got) != len(tt.want) {
				t.Fatalf("TypesFor() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("type[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPredicateIRI(t *testing.T) {
	if got := PredicateIRI(DerivedFrom); got != ProvWasDerivedFrom {
		t.Errorf("PredicateIRI(DerivedFrom) = %s", got)
	}
	if got := PredicateIRI("arch.unregistered"); got != Namespace+"arch.unregistered" {
		t.Errorf("unregistered predicate should fall back to namespace, got %s", got)
	}
}

func TestDataType(t *testing.T) {
	if got := DataType(ProducedBy); got != "entity_id" {
		t.Errorf("DataType(ProducedBy) = %q", got)
	}
	if got := DataType(RunCreatedAt); got != "datetime" {
		t.Errorf("DataType(RunCreatedAt) = %q", got)
	}
	if got := DataType("arch.unregistered"); got != "" {
		t.Errorf("unregistered predicate should have no data type, got %q", got)
	}
}
