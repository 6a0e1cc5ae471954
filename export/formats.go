package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	Name        Format
	MIMEType    string
	Extension   string
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD - JSON for Linked Data",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat validates a format name. Empty selects FormatTurtle.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatTurtle, nil
	}
	f := Format(strings.ToLower(s))
	if _, ok := FormatRegistry[f]; !ok {
		return "", fmt.Errorf("unsupported format: %s", s)
	}
	return f, nil
}

// XSD datatype IRIs.
const (
	xsdNamespace = "http://www.w3.org/2001/XMLSchema#"
	xsdInteger   = xsdNamespace + "integer"
	xsdDecimal   = xsdNamespace + "decimal"
	xsdBoolean   = xsdNamespace + "boolean"
	xsdDateTime  = xsdNamespace + "dateTime"

	rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
)

// Term is an RDF object: an IRI, or a literal with an optional datatype.
type Term struct {
	IRI      string
	Value    string
	Datatype string
}

// IRITerm returns a term referencing iri.
func IRITerm(iri string) Term {
	return Term{IRI: iri}
}

// LiteralTerm returns a literal term typed from the Go value.
func LiteralTerm(v any) Term {
	switch x := v.(type) {
	case string:
		return Term{Value: x}
	case int:
		return Term{Value: strconv.Itoa(x), Datatype: xsdInteger}
	case int64:
		return Term{Value: strconv.FormatInt(x, 10), Datatype: xsdInteger}
	case float64:
		return Term{Value: strconv.FormatFloat(x, 'f', -1, 64), Datatype: xsdDecimal}
	case bool:
		return Term{Value: strconv.FormatBool(x), Datatype: xsdBoolean}
	default:
		return Term{Value: fmt.Sprint(x)}
	}
}

func (t Term) ntriples() string {
	if t.IRI != "" {
		return "<" + t.IRI + ">"
	}
	lit := `"` + escapeString(t.Value) + `"`
	if t.Datatype != "" {
		lit += "^^<" + t.Datatype + ">"
	}
	return lit
}

func (t Term) turtle() string {
	if t.IRI != "" || t.Datatype == "" {
		return t.ntriples()
	}
	return `"` + escapeString(t.Value) + `"^^xsd:` + strings.TrimPrefix(t.Datatype, xsdNamespace)
}

func (t Term) jsonld() any {
	if t.IRI != "" {
		return map[string]any{"@id": t.IRI}
	}
	switch t.Datatype {
	case xsdInteger:
		if n, err := strconv.ParseInt(t.Value, 10, 64); err == nil {
			return n
		}
	case xsdDecimal:
		if f, err := strconv.ParseFloat(t.Value, 64); err == nil {
			return f
		}
	case xsdBoolean:
		return t.Value == "true"
	case "":
		return t.Value
	}
	return map[string]any{"@value": t.Value, "@type": t.Datatype}
}

// TurtleWriter writes RDF in Turtle format.
type TurtleWriter struct {
	prefixes map[string]string
	sb       strings.Builder
}

// NewTurtleWriter creates a new Turtle writer with the given prefixes.
func NewTurtleWriter(prefixes map[string]string) *TurtleWriter {
	w := &TurtleWriter{prefixes: make(map[string]string, len(prefixes))}
	for k, v := range prefixes {
		w.prefixes[k] = v
	}
	return w
}

// WritePrefixes writes prefix declarations in sorted order.
func (w *TurtleWriter) WritePrefixes() {
	keys := make([]string, 0, len(w.prefixes))
	for k := range w.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, prefix := range keys {
		fmt.Fprintf(&w.sb, "@prefix %s: <%s> .\n", prefix, w.prefixes[prefix])
	}
	w.sb.WriteString("\n")
}

// WriteSubject starts a new subject block.
func (w *TurtleWriter) WriteSubject(iri string) {
	fmt.Fprintf(&w.sb, "<%s>\n", iri)
}

// WriteType writes a type assertion.
func (w *TurtleWriter) WriteType(typeIRI string, last bool) {
	fmt.Fprintf(&w.sb, "    a <%s>%s\n", typeIRI, terminator(last))
}

// WritePredicate writes a predicate-object pair.
func (w *TurtleWriter) WritePredicate(predicateIRI string, object Term, last bool) {
	fmt.Fprintf(&w.sb, "    <%s> %s%s\n", predicateIRI, object.turtle(), terminator(last))
}

// WriteBlank writes a blank line for readability.
func (w *TurtleWriter) WriteBlank() {
	w.sb.WriteString("\n")
}

// String returns the accumulated Turtle output.
func (w *TurtleWriter) String() string {
	return w.sb.String()
}

func terminator(last bool) string {
	if last {
		return " ."
	}
	return " ;"
}

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	sb strings.Builder
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter() *NTriplesWriter {
	return &NTriplesWriter{}
}

// WriteTriple writes a single triple.
func (w *NTriplesWriter) WriteTriple(subject, predicate string, object Term) {
	fmt.Fprintf(&w.sb, "<%s> <%s> %s .\n", subject, predicate, object.ntriples())
}

// WriteTypeTriple writes a type assertion triple.
func (w *NTriplesWriter) WriteTypeTriple(subject, typeIRI string) {
	fmt.Fprintf(&w.sb, "<%s> <%s> <%s> .\n", subject, rdfType, typeIRI)
}

// String returns the accumulated N-Triples output.
func (w *NTriplesWriter) String() string {
	return w.sb.String()
}

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]any `json:"@context"`
	Graph   []JSONLDNode   `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph.
type JSONLDNode struct {
	ID         string         `json:"@id"`
	Type       []string       `json:"@type,omitempty"`
	Properties map[string]any `json:"-"`
}

// MarshalJSON flattens Properties into the node object.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Properties)+2)
	for k, v := range n.Properties {
		m[k] = v
	}
	m["@id"] = n.ID
	if len(n.Type) > 0 {
		m["@type"] = n.Type
	}
	return json.Marshal(m)
}

// JSONLDWriter writes RDF in JSON-LD format.
type JSONLDWriter struct {
	doc JSONLDDocument
}

// NewJSONLDWriter creates a new JSON-LD writer.
func NewJSONLDWriter() *JSONLDWriter {
	return &JSONLDWriter{
		doc: JSONLDDocument{
			Context: make(map[string]any),
			Graph:   make([]JSONLDNode, 0),
		},
	}
}

// SetContext sets the @context with prefixes.
func (w *JSONLDWriter) SetContext(prefixes map[string]string) {
	for k, v := range prefixes {
		w.doc.Context[k] = v
	}
}

// AddNode adds a node to the graph.
func (w *JSONLDWriter) AddNode(id string, types []string, properties map[string]any) {
	w.doc.Graph = append(w.doc.Graph, JSONLDNode{
		ID:         id,
		Type:       types,
		Properties: properties,
	})
}

// Bytes returns the indented JSON-LD document.
func (w *JSONLDWriter) Bytes() ([]byte, error) {
	return json.MarshalIndent(w.doc, "", "  ")
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
