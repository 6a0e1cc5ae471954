package arch

// Namespace is the base IRI prefix for architecture vocabulary terms.
const Namespace = "https://semarch.dev/ontology/arch/"

// EntityNamespace is the base IRI for architecture entity instances.
const EntityNamespace = "https://semarch.dev/entity/arch/"

// Standard ontology IRI constants for mappings.
const (
	// ProvWasDerivedFrom is the PROV-O derivation property.
	ProvWasDerivedFrom = "http://www.w3.org/ns/prov#wasDerivedFrom"

	// ProvGeneratedBy is the PROV-O generation property.
	ProvGeneratedBy = "http://www.w3.org/ns/prov#wasGeneratedBy"

	// DcCreated is the Dublin Core created property.
	DcCreated = "http://purl.org/dc/terms/created"
)

// Class IRIs define the types of architecture entities.
const (
	// ClassRun represents one optimization run over a baseline.
	// Extends: prov:Activity
	ClassRun = Namespace + "OptimizationRun"

	// ClassVariant represents an architecture variant produced by a run.
	// Extends: prov:Entity
	ClassVariant = Namespace + "Variant"
)
