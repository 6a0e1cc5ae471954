package architecture

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of an Architecture.
type Document struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Document returns the serializable form of a.
func (a *Architecture) Document() Document {
	return Document{Nodes: a.Nodes(), Edges: a.Edges()}
}

// MarshalJSON implements json.Marshaler.
func (a *Architecture) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Document())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Architecture) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	built, err := New(doc.Nodes, doc.Edges)
	if err != nil {
		return err
	}
	*a = *built
	return nil
}

// Decode parses a JSON or YAML architecture document. JSON is detected by a
// leading '{'; anything else is parsed as YAML.
func Decode(data []byte) (*Architecture, error) {
	var doc Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse architecture JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse architecture YAML: %w", err)
		}
	}

	a, err := New(doc.Nodes, doc.Edges)
	if err != nil {
		return nil, fmt.Errorf("build architecture: %w", err)
	}
	return a, nil
}

// Encode writes a as indented JSON.
func Encode(a *Architecture) ([]byte, error) {
	return json.MarshalIndent(a.Document(), "", "  ")
}
