package archapi

import (
	"reflect"

	"github.com/c360studio/semstreams/service"

	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semarch/storage"
)

func init() {
	service.RegisterOpenAPISpec("arch-api", archAPIOpenAPISpec())
}

// OpenAPISpec implements the OpenAPIProvider interface.
func (c *Component) OpenAPISpec() *service.OpenAPISpec {
	return archAPIOpenAPISpec()
}

func runIDParam() service.ParameterSpec {
	return service.ParameterSpec{
		Name:        "id",
		In:          "path",
		Required:    true,
		Description: "Run ID, with or without the run: prefix",
		Schema:      service.Schema{Type: "string"},
	}
}

// archAPIOpenAPISpec returns the OpenAPI specification for arch-api endpoints.
func archAPIOpenAPISpec() *service.OpenAPISpec {
	return &service.OpenAPISpec{
		Tags: []service.TagSpec{
			{Name: "Runs", Description: "Stored optimization runs and their results"},
			{Name: "Analysis", Description: "On-demand violation detection and scoring"},
		},
		Paths: map[string]service.PathSpec{
			"/api/arch/runs": {
				GET: &service.OperationSpec{
					Summary:     "List runs",
					Description: "Returns stored optimization runs, oldest first",
					Tags:        []string{"Runs"},
					Parameters: []service.ParameterSpec{
						{Name: "status", In: "query", Description: "Filter by status: pending, running, complete, failed", Schema: service.Schema{Type: "string"}},
						{Name: "slug", In: "query", Description: "Filter by architecture slug", Schema: service.Schema{Type: "string"}},
					},
					Responses: map[string]service.ResponseSpec{
						"200": {Description: "Runs", ContentType: "application/json", SchemaRef: "#/components/schemas/Run", IsArray: true},
						"503": {Description: "Run store unavailable"},
					},
				},
			},
			"/api/arch/runs/{id}": {
				GET: &service.OperationSpec{
					Summary:    "Get run",
					Tags:       []string{"Runs"},
					Parameters: []service.ParameterSpec{runIDParam()},
					Responses: map[string]service.ResponseSpec{
						"200": {Description: "Run with status history and summary", ContentType: "application/json", SchemaRef: "#/components/schemas/Run"},
						"404": {Description: "Run not found"},
					},
				},
			},
			"/api/arch/runs/{id}/result": {
				GET: &service.OperationSpec{
					Summary:     "Get run result",
					Description: "Returns the full search result including the Pareto front and trace",
					Tags:        []string{"Runs"},
					Parameters:  []service.ParameterSpec{runIDParam()},
					Responses: map[string]service.ResponseSpec{
						"200": {Description: "Search result", ContentType: "application/json", SchemaRef: "#/components/schemas/Result"},
						"404": {Description: "Run or result not found"},
					},
				},
			},
			"/api/arch/runs/{id}/rdf": {
				GET: &service.OperationSpec{
					Summary:     "Export run as RDF",
					Description: "Serializes the run and its Pareto front as Turtle, N-Triples or JSON-LD",
					Tags:        []string{"Runs"},
					Parameters: []service.ParameterSpec{
						runIDParam(),
						{Name: "format", In: "query", Description: "turtle (default), ntriples or jsonld", Schema: service.Schema{Type: "string"}},
						{Name: "profile", In: "query", Description: "minimal (default), bfo or cco", Schema: service.Schema{Type: "string"}},
					},
					Responses: map[string]service.ResponseSpec{
						"200": {Description: "RDF document", ContentType: "text/turtle"},
						"400": {Description: "Unknown format or profile"},
						"404": {Description: "Run or result not found"},
					},
				},
			},
			"/api/arch/detect": {
				POST: &service.OperationSpec{
					Summary:     "Detect violations",
					Description: "Runs every rule over a JSON or YAML architecture document",
					Tags:        []string{"Analysis"},
					Responses: map[string]service.ResponseSpec{
						"200": {Description: "Violations", ContentType: "application/json", SchemaRef: "#/components/schemas/DetectResponse"},
						"400": {Description: "Malformed or invalid architecture"},
					},
				},
			},
			"/api/arch/score": {
				POST: &service.OperationSpec{
					Summary:     "Score architecture",
					Description: "Scores a JSON or YAML architecture document against the rule weights",
					Tags:        []string{"Analysis"},
					Responses: map[string]service.ResponseSpec{
						"200": {Description: "Score", ContentType: "application/json", SchemaRef: "#/components/schemas/ScoreResponse"},
						"400": {Description: "Malformed or invalid architecture"},
					},
				},
			},
		},
		ResponseTypes: []reflect.Type{
			reflect.TypeOf(storage.Run{}),
			reflect.TypeOf(storage.RunSummary{}),
			reflect.TypeOf(search.Result{}),
			reflect.TypeOf(DetectResponse{}),
			reflect.TypeOf(ScoreResponse{}),
		},
	}
}
