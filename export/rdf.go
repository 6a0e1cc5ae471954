// Package export serializes optimization runs and their variants as RDF
// (Turtle, N-Triples, JSON-LD) with optional BFO/CCO type alignment.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semarch/graph"
	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semarch/vocabulary/arch"
	"github.com/c360studio/semstreams/message"
)

// RDFExporter exports graph entities to RDF under an ontology profile.
type RDFExporter struct {
	profile  ProfileConfig
	entities []graph.Entity
	prefixes map[string]string
}

// NewRDFExporter creates a new RDF exporter. Unknown profiles fall back to
// ProfileMinimal.
func NewRDFExporter(profile Profile) *RDFExporter {
	config, ok := GetProfileConfig(profile)
	if !ok {
		config = Profiles[ProfileMinimal]
	}
	return &RDFExporter{
		profile:  config,
		prefixes: defaultPrefixes(),
	}
}

// NewRunExporter returns an exporter holding a run and its Pareto front.
func NewRunExporter(profile Profile, run graph.RunSummary, res *search.Result, detector *rules.Detector, now time.Time) *RDFExporter {
	e := NewRDFExporter(profile)
	e.AddEntities(graph.BuildEntities(run, res, detector, now)...)
	return e
}

func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs":   "http://www.w3.org/2000/01/rdf-schema#",
		"xsd":    xsdNamespace,
		"dc":     "http://purl.org/dc/terms/",
		"prov":   "http://www.w3.org/ns/prov#",
		"bfo":    "http://purl.obolibrary.org/obo/",
		"cco":    "http://www.ontologyrepository.com/CommonCoreOntologies/",
		"arch":   arch.Namespace,
		"entity": arch.EntityNamespace,
	}
}

// AddEntities appends entities to the export.
func (e *RDFExporter) AddEntities(entities ...graph.Entity) {
	e.entities = append(e.entities, entities...)
}

// Len returns the number of entities queued for export.
func (e *RDFExporter) Len() int {
	return len(e.entities)
}

// Export serializes all entities to the specified format.
func (e *RDFExporter) Export(format Format) (string, error) {
	switch format {
	case FormatTurtle:
		return e.toTurtle(), nil
	case FormatNTriples:
		return e.toNTriples(), nil
	case FormatJSONLD:
		return e.toJSONLD()
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func (e *RDFExporter) types(entity graph.Entity) []string {
	return arch.TypesFor(entity.Kind, e.profile.IncludeBFO, e.profile.IncludeCCO)
}

func (e *RDFExporter) toTurtle() string {
	w := NewTurtleWriter(e.prefixes)
	w.WritePrefixes()

	for _, entity := range e.entities {
		w.WriteSubject(EntityIRI(entity.ID))
		types := e.types(entity)
		for i, typeIRI := range types {
			w.WriteType(typeIRI, i == len(types)-1 && len(entity.Triples) == 0)
		}
		for i, t := range entity.Triples {
			w.WritePredicate(arch.PredicateIRI(t.Predicate), objectTerm(t), i == len(entity.Triples)-1)
		}
		w.WriteBlank()
	}
	return w.String()
}

func (e *RDFExporter) toNTriples() string {
	w := NewNTriplesWriter()
	for _, entity := range e.entities {
		iri := EntityIRI(entity.ID)
		for _, typeIRI := range e.types(entity) {
			w.WriteTypeTriple(iri, typeIRI)
		}
		for _, t := range entity.Triples {
			w.WriteTriple(iri, arch.PredicateIRI(t.Predicate), objectTerm(t))
		}
	}
	return w.String()
}

func (e *RDFExporter) toJSONLD() (string, error) {
	w := NewJSONLDWriter()
	w.SetContext(e.prefixes)

	for _, entity := range e.entities {
		props := make(map[string]any)
		for _, t := range entity.Triples {
			key := arch.PredicateIRI(t.Predicate)
			value := objectTerm(t).jsonld()
			switch prev := props[key].(type) {
			case nil:
				props[key] = value
			case []any:
				props[key] = append(prev, value)
			default:
				props[key] = []any{prev, value}
			}
		}
		w.AddNode(EntityIRI(entity.ID), e.types(entity), props)
	}

	data, err := w.Bytes()
	if err != nil {
		return "", fmt.Errorf("marshal JSON-LD: %w", err)
	}
	return string(data) + "\n", nil
}

// objectTerm types a triple's object from its predicate's registered data type.
func objectTerm(t message.Triple) Term {
	switch arch.DataType(t.Predicate) {
	case "entity_id":
		if s, ok := t.Object.(string); ok {
			return IRITerm(EntityIRI(s))
		}
	case "datetime":
		if s, ok := t.Object.(string); ok {
			return Term{Value: s, Datatype: xsdDateTime}
		}
	}
	return LiteralTerm(t.Object)
}

// EntityIRI converts a dotted entity ID to an IRI.
// Example: "semarch.local.arch.optimizer.run.42"
//       -> "https://semarch.dev/entity/arch/run/42"
func EntityIRI(entityID string) string {
	parts := strings.Split(entityID, ".")
	if len(parts) < 6 {
		return arch.EntityNamespace + entityID
	}
	// org, platform, domain, system, type, instance...
	return arch.EntityNamespace + parts[4] + "/" + strings.Join(parts[5:], "/")
}
