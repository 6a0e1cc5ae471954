package main

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/c360studio/semstreams/service"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func openapiCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI 3.0 document of the HTTP endpoints",
		Long: `OpenAPI collects the specifications registered by semarch components and
writes a combined OpenAPI 3.0 document as YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := buildOpenAPIDocument(service.GetAllOpenAPISpecs())
			if out == "" {
				return writeOpenAPI(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()
			return writeOpenAPI(f, doc)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

// openAPIDocument is the root of an OpenAPI 3.0 document.
type openAPIDocument struct {
	OpenAPI    string              `yaml:"openapi"`
	Info       openAPIInfo         `yaml:"info"`
	Servers    []openAPIServer     `yaml:"servers"`
	Paths      map[string]pathItem `yaml:"paths"`
	Components struct {
		Schemas map[string]any `yaml:"schemas"`
	} `yaml:"components"`
	Tags []openAPITag `yaml:"tags"`
}

type openAPIInfo struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

type openAPIServer struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

type openAPITag struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type pathItem struct {
	Get    *operation `yaml:"get,omitempty"`
	Post   *operation `yaml:"post,omitempty"`
	Put    *operation `yaml:"put,omitempty"`
	Delete *operation `yaml:"delete,omitempty"`
}

type operation struct {
	Summary     string              `yaml:"summary"`
	Description string              `yaml:"description,omitempty"`
	Tags        []string            `yaml:"tags,omitempty"`
	Parameters  []parameter         `yaml:"parameters,omitempty"`
	Responses   map[string]response `yaml:"responses"`
}

type parameter struct {
	Name        string    `yaml:"name"`
	In          string    `yaml:"in"`
	Required    bool      `yaml:"required,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Schema      schemaRef `yaml:"schema"`
}

type response struct {
	Description string               `yaml:"description"`
	Content     map[string]mediaType `yaml:"content,omitempty"`
}

type mediaType struct {
	Schema schemaRef `yaml:"schema"`
}

type schemaRef struct {
	Ref   string     `yaml:"$ref,omitempty"`
	Type  string     `yaml:"type,omitempty"`
	Items *schemaRef `yaml:"items,omitempty"`
}

// buildOpenAPIDocument merges the registered specs. Specs are visited in
// name order so the output is stable.
func buildOpenAPIDocument(specs map[string]*service.OpenAPISpec) openAPIDocument {
	doc := openAPIDocument{
		OpenAPI: "3.0.3",
		Info: openAPIInfo{
			Title:       "Semarch API",
			Description: "Architecture optimization runs, violation detection and scoring",
			Version:     Version,
		},
		Servers: []openAPIServer{{URL: "http://localhost:8080", Description: "Development server"}},
		Paths:   make(map[string]pathItem),
	}
	doc.Components.Schemas = make(map[string]any)

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	tags := make(map[string]openAPITag)
	seen := make(map[reflect.Type]bool)
	for _, name := range names {
		spec := specs[name]
		for path, ps := range spec.Paths {
			doc.Paths[path] = pathItem{
				Get:    convertOperation(ps.GET),
				Post:   convertOperation(ps.POST),
				Put:    convertOperation(ps.PUT),
				Delete: convertOperation(ps.DELETE),
			}
		}
		for _, tag := range spec.Tags {
			if _, ok := tags[tag.Name]; !ok {
				tags[tag.Name] = openAPITag{Name: tag.Name, Description: tag.Description}
			}
		}
		for _, t := range spec.ResponseTypes {
			if seen[t] {
				continue
			}
			seen[t] = true
			doc.Components.Schemas[typeName(t)] = schemaFromType(t, map[reflect.Type]bool{})
		}
	}

	for _, tag := range tags {
		doc.Tags = append(doc.Tags, tag)
	}
	sort.Slice(doc.Tags, func(i, j int) bool { return doc.Tags[i].Name < doc.Tags[j].Name })
	return doc
}

func convertOperation(op *service.OperationSpec) *operation {
	if op == nil {
		return nil
	}
	out := &operation{
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        op.Tags,
		Responses:   make(map[string]response, len(op.Responses)),
	}
	for _, p := range op.Parameters {
		out.Parameters = append(out.Parameters, parameter{
			Name:        p.Name,
			In:          p.In,
			Required:    p.Required,
			Description: p.Description,
			Schema:      schemaRef{Type: p.Schema.Type},
		})
	}
	for code, resp := range op.Responses {
		r := response{Description: resp.Description}
		contentType := resp.ContentType
		switch {
		case resp.SchemaRef != "":
			if contentType == "" {
				contentType = "application/json"
			}
			schema := schemaRef{Ref: resp.SchemaRef}
			if resp.IsArray {
				schema = schemaRef{Type: "array", Items: &schemaRef{Ref: resp.SchemaRef}}
			}
			r.Content = map[string]mediaType{contentType: {Schema: schema}}
		case contentType == "application/json":
			r.Content = map[string]mediaType{contentType: {Schema: schemaRef{Type: "object"}}}
		case contentType != "":
			r.Content = map[string]mediaType{contentType: {Schema: schemaRef{Type: "string"}}}
		}
		out.Responses[code] = r
	}
	return out
}

// schemaFromType derives a JSON Schema from t. Types already on the
// current path are emitted as plain objects to stop recursion.
func schemaFromType(t reflect.Type, path map[reflect.Type]bool) map[string]any {
	if t.Kind() == reflect.Pointer {
		schema := schemaFromType(t.Elem(), path)
		schema["nullable"] = true
		return schema
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return map[string]any{"type": "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer", "minimum": 0}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return map[string]any{"type": "string", "format": "byte"}
		}
		return map[string]any{"type": "array", "items": schemaFromType(t.Elem(), path)}
	case reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": schemaFromType(t.Elem(), path)}
	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return map[string]any{"type": "string", "format": "date-time"}
		}
		if path[t] {
			return map[string]any{"type": "object"}
		}
		path[t] = true
		defer delete(path, t)
		return schemaFromStruct(t, path)
	case reflect.Interface:
		return map[string]any{}
	default:
		return map[string]any{"type": "string"}
	}
}

func schemaFromStruct(t reflect.Type, path map[reflect.Type]bool) map[string]any {
	properties := make(map[string]any)
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}
		properties[name] = schemaFromType(field.Type, path)
		if !strings.Contains(opts, "omitempty") && field.Type.Kind() != reflect.Pointer {
			required = append(required, name)
		}
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return typeName(t.Elem())
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func writeOpenAPI(w io.Writer, doc openAPIDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal OpenAPI document: %w", err)
	}
	if _, err := io.WriteString(w, "# Generated by semarch openapi. Do not edit.\n\n"); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
