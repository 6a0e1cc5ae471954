package export_test

import (
	"testing"

	"github.com/c360studio/semarch/export"
)

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    export.Profile
		wantErr bool
	}{
		{"", export.ProfileMinimal, false},
		{"bfo", export.ProfileBFO, false},
		{"cco", export.ProfileCCO, false},
		{"owl", "", true},
	}
	for _, tt := range tests {
		got, err := export.ParseProfile(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProfile(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseProfile(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProfileConfigs(t *testing.T) {
	cco, ok := export.GetProfileConfig(export.ProfileCCO)
	if !ok || !cco.IncludeBFO || !cco.IncludeCCO {
		t.Errorf("CCO profile should include BFO and CCO, got %+v", cco)
	}
	minimal, _ := export.GetProfileConfig(export.ProfileMinimal)
	if minimal.IncludeBFO || minimal.IncludeCCO {
		t.Errorf("minimal profile should not include upper ontologies, got %+v", minimal)
	}
	if got := export.ListProfiles(); len(got) != 3 || got[0] != export.ProfileBFO {
		t.Errorf("ListProfiles() = %v", got)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := export.ParseFormat("JSONLD"); err != nil || f != export.FormatJSONLD {
		t.Errorf("ParseFormat(JSONLD) = %q, %v", f, err)
	}
	if f, err := export.ParseFormat(""); err != nil || f != export.FormatTurtle {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if _, err := export.ParseFormat("rdfxml"); err == nil {
		t.Error("expected error for unsupported format")
	}
	info, ok := export.GetFormatInfo(export.FormatNTriples)
	if !ok || info.Extension != ".nt" {
		t.Errorf("unexpected N-Triples info %+v", info)
	}
}

func TestLiteralTerm(t *testing.T) {
	tests := []struct {
		in       any
		value    string
		datatype string
	}{
		{"plain", "plain", ""},
		{42, "42", "http://www.w3.org/2001/XMLSchema#integer"},
		{0.25, "0.25", "http://www.w3.org/2001/XMLSchema#decimal"},
		{false, "false", "http://www.w3.org/2001/XMLSchema#boolean"},
	}
	for _, tt := range tests {
		got := export.LiteralTerm(tt.in)
		if got.Value != tt.value || got.Datatype != tt.datatype || got.IRI != "" {
			t.Errorf("LiteralTerm(%v) = %+v", tt.in, got)
		}
	}
}
