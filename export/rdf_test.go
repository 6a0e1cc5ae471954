package export_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/export"
	"github.com/c360studio/semarch/graph"
	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semarch/vocabulary/arch"
	"github.com/c360studio/semstreams/vocabulary/bfo"
)

func testExporter(profile export.Profile) *export.RDFExporter {
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	root := architecture.Variant{
		ID:           "v0",
		ParentIndex:  -1,
		Architecture: architecture.Empty(),
		Score:        architecture.ScoreResult{Weighted: 0.6, PerObjective: map[string]float64{"structure": 0.6}},
	}
	child := architecture.Variant{
		ID:              "v1",
		Index:           1,
		ParentID:        "v0",
		Architecture:    architecture.Empty(),
		AppliedOperator: architecture.OpModSplit,
		Generation:      1,
		Score:           architecture.ScoreResult{Weighted: 0.9, PerObjective: map[string]float64{"structure": 0.9}},
	}
	res := &search.Result{ParetoFront: []architecture.Variant{root, child}, BestVariant: &child}
	run := graph.RunSummary{
		RunID:       "r1",
		Slug:        "shop \"main\"",
		Status:      "complete",
		Convergence: "threshold",
		Iterations:  3,
		Success:     true,
		CreatedAt:   created,
	}
	return export.NewRunExporter(profile, run, res, rules.DefaultDetector(), created)
}

func TestNewRunExporter(t *testing.T) {
	exporter := testExporter(export.ProfileMinimal)
	if exporter.Len() != 3 {
		t.Fatalf("expected run plus two variants, got %d entities", exporter.Len())
	}
}

func TestExportTurtle(t *testing.T) {
	output, err := testExporter(export.ProfileMinimal).Export(export.FormatTurtle)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	for _, want := range []string{
		"@prefix arch: <" + arch.Namespace + "> .",
		"<https://semarch.dev/entity/arch/run/r1>",
		"a <" + arch.ClassRun + ">",
		"<" + arch.ProvWasDerivedFrom + "> <https://semarch.dev/entity/arch/variant/r1-v0>",
		`"2026-03-04T05:06:07Z"^^xsd:dateTime`,
		`"3"^^xsd:integer`,
		`"0.9"^^xsd:decimal`,
		`"true"^^xsd:boolean`,
		`"shop \"main\""`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Turtle output missing %q", want)
		}
	}
	if strings.Contains(output, bfo.Process) {
		t.Error("minimal profile should not include BFO types")
	}
	if strings.Index(output, "@prefix arch:") > strings.Index(output, "@prefix xsd:") {
		t.Error("prefixes should be sorted")
	}
}

func TestExportNTriples(t *testing.T) {
	output, err := testExporter(export.ProfileBFO).Export(export.FormatNTriples)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	for _, line := range lines {
		if !strings.HasPrefix(line, "<") || !strings.HasSuffix(line, " .") {
			t.Errorf("malformed N-Triples line: %s", line)
		}
	}
	if !strings.Contains(output, "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <"+bfo.Process+">") {
		t.Error("BFO profile should assert bfo:Process for the run")
	}
	if !strings.Contains(output, "^^<http://www.w3.org/2001/XMLSchema#dateTime>") {
		t.Error("N-Triples should use full datatype IRIs")
	}
}

func TestExportJSONLD(t *testing.T) {
	output, err := testExporter(export.ProfileCCO).Export(export.FormatJSONLD)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc struct {
		Context map[string]string `json:"@context"`
		Graph   []map[string]any  `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("JSON-LD output is not valid JSON: %v", err)
	}
	if doc.Context["arch"] != arch.Namespace {
		t.Errorf("expected arch prefix in context, got %v", doc.Context)
	}
	if len(doc.Graph) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(doc.Graph))
	}

	run := doc.Graph[0]
	if run["@id"] != "https://semarch.dev/entity/arch/run/r1" {
		t.Errorf("unexpected run id %v", run["@id"])
	}
	if run[arch.Namespace+"iterations"] != float64(3) {
		t.Errorf("iterations should be a JSON number, got %v", run[arch.Namespace+"iterations"])
	}

	best := doc.Graph[2]
	if best[arch.Namespace+"isBest"] != true {
		t.Errorf("second variant should be flagged best, got %v", best[arch.Namespace+"isBest"])
	}
	parent, ok := best[arch.ProvWasDerivedFrom].(map[string]any)
	if !ok || parent["@id"] != "https://semarch.dev/entity/arch/variant/r1-v0" {
		t.Errorf("derivation should be an @id reference, got %v", best[arch.ProvWasDerivedFrom])
	}
}

func TestExportJSONLD_RepeatedPredicates(t *testing.T) {
	exporter := export.NewRDFExporter(export.ProfileMinimal)
	exporter.AddEntities(graph.Entity{
		ID:   graph.VariantEntityID("r1", "v3"),
		Kind: arch.KindVariant,
		Triples: graph.BuildVariantTriples("r1", architecture.Variant{ID: "v3", ParentIndex: -1},
			[]architecture.Violation{{RuleID: "isolation"}, {RuleID: "req_unverified"}}, false, time.Now()),
	})

	output, err := exporter.Export(export.FormatJSONLD)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	var doc struct {
		Graph []map[string]any `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	violations, ok := doc.Graph[0][arch.Namespace+"violation"].([]any)
	if !ok || len(violations) != 2 {
		t.Errorf("repeated predicate should become an array, got %v", doc.Graph[0][arch.Namespace+"violation"])
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	if _, err := testExporter(export.ProfileMinimal).Export(export.Format("rdfxml")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestEntityIRI(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{graph.RunEntityID("r1"), "https://semarch.dev/entity/arch/run/r1"},
		{graph.VariantEntityID("r1", "v2"), "https://semarch.dev/entity/arch/variant/r1-v2"},
		{"short.id", "https://semarch.dev/entity/arch/short.id"},
	}
	for _, tt := range tests {
		if got := export.EntityIRI(tt.id); got != tt.want {
			t.Errorf("EntityIRI(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
