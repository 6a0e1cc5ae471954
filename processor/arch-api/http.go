package archapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/export"
	"github.com/c360studio/semarch/graph"
	"github.com/c360studio/semarch/storage"
)

// maxRequestBodySize limits POST body sizes.
const maxRequestBodySize = 4 << 20 // 4 MB

// RegisterHTTPHandlers registers all arch-api HTTP handlers under the given prefix.
// The prefix should be the path segment without a trailing slash (e.g. "api/arch").
// Handlers are registered as:
//
//	GET  <prefix>/runs
//	GET  <prefix>/runs/{id}
//	GET  <prefix>/runs/{id}/result
//	GET  <prefix>/runs/{id}/rdf
//	POST <prefix>/detect
//	POST <prefix>/score
func (c *Component) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc("GET "+prefix+"runs", c.handleListRuns)
	mux.HandleFunc("GET "+prefix+"runs/{id}", c.handleGetRun)
	mux.HandleFunc("GET "+prefix+"runs/{id}/result", c.handleGetResult)
	mux.HandleFunc("GET "+prefix+"runs/{id}/rdf", c.handleExportRun)
	mux.HandleFunc("POST "+prefix+"detect", c.handleDetect)
	mux.HandleFunc("POST "+prefix+"score", c.handleScore)
}

// ----------------------------------------------------------------------------
// GET runs
// ----------------------------------------------------------------------------

// handleListRuns returns stored runs, oldest first. The optional status and
// slug query parameters filter the list.
func (c *Component) handleListRuns(w http.ResponseWriter, r *http.Request) {
	c.requests.Add(1)
	store := c.runStore()
	if store == nil {
		c.unavailable(w)
		return
	}

	runs, err := store.ListRuns(r.Context())
	if err != nil {
		c.internalError(w, "list runs", err)
		return
	}

	status := storage.RunStatus(r.URL.Query().Get("status"))
	slug := r.URL.Query().Get("slug")
	out := make([]*storage.Run, 0, len(runs))
	for _, run := range runs {
		if status != "" && run.Status != status {
			continue
		}
		if slug != "" && run.Slug != slug {
			continue
		}
		out = append(out, run)
	}
	writeJSON(w, http.StatusOK, out)
}

// ----------------------------------------------------------------------------
// GET runs/{id}
// ----------------------------------------------------------------------------

func (c *Component) handleGetRun(w http.ResponseWriter, r *http.Request) {
	c.requests.Add(1)
	store := c.runStore()
	if store == nil {
		c.unavailable(w)
		return
	}

	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := store.GetRun(r.Context(), id)
	if err != nil {
		c.storeError(w, "get run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ----------------------------------------------------------------------------
// GET runs/{id}/result
// ----------------------------------------------------------------------------

func (c *Component) handleGetResult(w http.ResponseWriter, r *http.Request) {
	c.requests.Add(1)
	store := c.runStore()
	if store == nil {
		c.unavailable(w)
		return
	}

	id, ok := runID(w, r)
	if !ok {
		return
	}
	res, err := store.GetResult(r.Context(), id)
	if err != nil {
		c.storeError(w, "get result", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ----------------------------------------------------------------------------
// GET runs/{id}/rdf?format=&profile=
// ----------------------------------------------------------------------------

// handleExportRun serializes a completed run and its Pareto front as RDF.
func (c *Component) handleExportRun(w http.ResponseWriter, r *http.Request) {
	c.requests.Add(1)
	store := c.runStore()
	if store == nil {
		c.unavailable(w)
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	profile, err := export.ParseProfile(r.URL.Query().Get("profile"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := store.GetRun(r.Context(), id)
	if err != nil {
		c.storeError(w, "get run", err)
		return
	}
	res, err := store.GetResult(r.Context(), id)
	if err != nil {
		c.storeError(w, "get result", err)
		return
	}

	summary := graph.RunSummary{
		RunID:       id.ID,
		Slug:        run.Slug,
		Status:      string(run.Status),
		Convergence: string(res.ConvergenceReason),
		Iterations:  res.Iterations,
		Success:     res.Success,
		CreatedAt:   run.CreatedAt,
	}
	body, err := export.NewRunExporter(profile, summary, res, c.detector, time.Now()).Export(format)
	if err != nil {
		c.internalError(w, "export run", err)
		return
	}

	info, _ := export.GetFormatInfo(format)
	w.Header().Set("Content-Type", info.MIMEType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// ----------------------------------------------------------------------------
// POST detect
// ----------------------------------------------------------------------------

// DetectResponse is the response body of POST detect.
type DetectResponse struct {
	Violations []architecture.Violation `json:"violations"`
	Hard       bool                     `json:"hard"`
}

func (c *Component) handleDetect(w http.ResponseWriter, r *http.Request) {
	c.requests.Add(1)
	arch, ok := c.readArchitecture(w, r)
	if !ok {
		return
	}

	violations := c.detector.Detect(arch)
	if violations == nil {
		violations = []architecture.Violation{}
	}
	writeJSON(w, http.StatusOK, DetectResponse{
		Violations: violations,
		Hard:       architecture.HasHard(violations),
	})
}

// ----------------------------------------------------------------------------
// POST score
// ----------------------------------------------------------------------------

// ScoreResponse is the response body of POST score.
type ScoreResponse struct {
	Score      architecture.ScoreResult `json:"score"`
	Violations int                      `json:"violations"`
	Acceptable bool                     `json:"acceptable"`
}

func (c *Component) handleScore(w http.ResponseWriter, r *http.Request) {
	c.requests.Add(1)
	arch, ok := c.readArchitecture(w, r)
	if !ok {
		return
	}

	violations := c.detector.Detect(arch)
	score := c.scorer.Score(arch, violations)
	writeJSON(w, http.StatusOK, ScoreResponse{
		Score:      score,
		Violations: len(violations),
		Acceptable: score.Acceptable(),
	})
}

// readArchitecture decodes a JSON or YAML architecture document from the
// request body, answering 400 on failure.
func (c *Component) readArchitecture(w http.ResponseWriter, r *http.Request) (*architecture.Architecture, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
		return nil, false
	}
	arch, err := architecture.Decode(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	return arch, true
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

// runID reads the {id} path value. Both "run:<id>" and a bare id are accepted.
func runID(w http.ResponseWriter, r *http.Request) (storage.EntityID, bool) {
	raw := r.PathValue("id")
	if !strings.Contains(raw, ":") {
		raw = string(storage.EntityTypeRun) + ":" + raw
	}
	id, err := storage.ParseEntityID(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return storage.EntityID{}, false
	}
	return id, true
}

func (c *Component) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	c.internalError(w, op, err)
}

func (c *Component) internalError(w http.ResponseWriter, op string, err error) {
	c.errorsCount.Add(1)
	c.logger.Error("arch-api request failed", "op", op, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: op + " failed"})
}

func (c *Component) unavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "run store unavailable"})
}

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
