package arch

import (
	"github.com/c360studio/semstreams/vocabulary"
	"github.com/c360studio/semstreams/vocabulary/bfo"
	"github.com/c360studio/semstreams/vocabulary/cco"
)

// EntityKind distinguishes the architecture entities published to the graph.
type EntityKind string

const (
	KindRun     EntityKind = "run"
	KindVariant EntityKind = "variant"
)

// ClassMap maps entity kinds to architecture class IRIs.
var ClassMap = map[EntityKind]string{
	KindRun:     ClassRun,
	KindVariant: ClassVariant,
}

// PROVClassMap maps entity kinds to PROV-O class IRIs.
var PROVClassMap = map[EntityKind]string{
	KindRun:     vocabulary.ProvActivity,
	KindVariant: vocabulary.ProvEntity,
}

// BFOClassMap maps entity kinds to BFO class IRIs.
var BFOClassMap = map[EntityKind]string{
	KindRun:     bfo.Process,
	KindVariant: bfo.GenericallyDependentContinuant,
}

// CCOClassMap maps entity kinds to CCO class IRIs.
// A variant is a design, so it maps to an information content entity.
var CCOClassMap = map[EntityKind]string{
	KindRun:     cco.ActOfArtifactProcessing,
	KindVariant: cco.InformationContentEntity,
}

// TypesFor returns the rdf:type IRIs for an entity kind. Architecture and
// PROV-O types are always included; BFO and CCO types on request.
func TypesFor(kind EntityKind, includeBFO, includeCCO bool) []string {
	types := make([]string, 0, 4)
	if class, ok := ClassMap[kind]; ok {
		types = append(types, class)
	}
	if class, ok := PROVClassMap[kind]; ok {
		types = append(types, class)
	}
	if includeBFO {
		if class, ok := BFOClassMap[kind]; ok {
			types = append(types, class)
		}
	}
	if includeCCO {
		if class, ok := CCOClassMap[kind]; ok {
			types = append(types, class)
		}
	}
	return types
}

// PredicateIRI returns the registered IRI for a predicate, falling back to
// the architecture namespace.
func PredicateIRI(predicate string) string {
	if meta := vocabulary.GetPredicateMetadata(predicate); meta != nil && meta.StandardIRI != "" {
		return meta.StandardIRI
	}
	return Namespace + predicate
}

// DataType returns the registered data type of a predicate ("string",
// "int", "float", "bool", "datetime", "entity_id", "array"), or "" when the
// predicate is not registered.
func DataType(predicate string) string {
	if meta := vocabulary.GetPredicateMetadata(predicate); meta != nil {
		return meta.DataType
	}
	return ""
}
