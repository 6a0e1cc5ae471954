package archapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/scoring"
	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semarch/storage"
)

// fakeRuns is an in-memory runReader keyed by bare run id.
type fakeRuns struct {
	runs    map[string]*storage.Run
	results map[string]*search.Result
	listErr error
}

func (f *fakeRuns) GetRun(_ context.Context, id storage.EntityID) (*storage.Run, error) {
	r, ok := f.runs[id.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r, nil
}

func (f *fakeRuns) GetResult(_ context.Context, id storage.EntityID) (*search.Result, error) {
	res, ok := f.results[id.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return res, nil
}

func (f *fakeRuns) ListRuns(context.Context) ([]*storage.Run, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*storage.Run
	for _, id := range []string{"r1", "r2"} {
		if r, ok := f.runs[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// oversizedDoc is a JSON document with one module holding eleven functions.
func oversizedDoc() string {
	var b strings.Builder
	b.WriteString(`{"nodes":[{"id":"SYS","type":"SYS"},{"id":"M1","type":"MOD"}`)
	for i := 1; i <= 11; i++ {
		fmt.Fprintf(&b, `,{"id":"F%d","type":"FUNC","label":"F%d"}`, i, i)
	}
	b.WriteString(`],"edges":[{"source":"SYS","target":"M1","type":"compose"}`)
	for i := 1; i <= 11; i++ {
		fmt.Fprintf(&b, `,{"source":"F%d","target":"M1","type":"allocate"}`, i)
	}
	b.WriteString(`]}`)
	return b.String()
}

// setupTestComponent creates a Component backed by one completed and one
// running run.
func setupTestComponent(t *testing.T) *Component {
	t.Helper()
	arch, err := architecture.Decode([]byte(oversizedDoc()))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	cfg := search.DefaultConfig()
	cfg.MaxIterations = 10
	res, err := search.Optimize(arch, cfg, search.Options{})
	if err != nil {
		t.Fatalf("optimize fixture: %v", err)
	}

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	runs := &fakeRuns{
		runs: map[string]*storage.Run{
			"r1": {ID: "run:r1", Slug: "shop", Status: storage.RunStatusComplete, CreatedAt: created, Summary: storage.Summarize(res)},
			"r2": {ID: "run:r2", Slug: "billing", Status: storage.RunStatusRunning, CreatedAt: created.Add(time.Minute)},
		},
		results: map[string]*search.Result{"r1": res},
	}

	c := &Component{
		name:     "arch-api",
		config:   DefaultConfig(),
		logger:   slog.New(slog.DiscardHandler),
		detector: rules.DefaultDetector(),
		scorer:   scoring.DefaultScorer(),
	}
	c.setRuns(runs)
	return c
}

// registerHandlers wires the component's handlers into a fresh mux and returns a test server.
func registerHandlers(c *Component) *httptest.Server {
	mux := http.NewServeMux()
	c.RegisterHTTPHandlers("api/arch", mux)
	return httptest.NewServer(mux)
}

func getJSON(t *testing.T, url string, wantStatus int, dst any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d, want %d (%s)", url, resp.StatusCode, wantStatus, body)
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func TestHandleListRuns(t *testing.T) {
	srv := registerHandlers(setupTestComponent(t))
	defer srv.Close()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all", query: "", want: []string{"run:r1", "run:r2"}},
		{name: "by status", query: "?status=complete", want: []string{"run:r1"}},
		{name: "by slug", query: "?slug=billing", want: []string{"run:r2"}},
		{name: "no match", query: "?slug=billing&status=failed", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var runs []storage.Run
			getJSON(t, srv.URL+"/api/arch/runs"+tt.query, http.StatusOK, &runs)
			got := make([]string, 0, len(runs))
			for _, r := range runs {
				got = append(got, r.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("runs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleListRuns_StoreError(t *testing.T) {
	c := setupTestComponent(t)
	c.setRuns(&fakeRuns{listErr: fmt.Errorf("bucket gone")})
	srv := registerHandlers(c)
	defer srv.Close()

	getJSON(t, srv.URL+"/api/arch/runs", http.StatusInternalServerError, nil)
	if got := c.errorsCount.Load(); got != 1 {
		t.Errorf("errorsCount = %d, want 1", got)
	}
}

func TestHandleGetRun(t *testing.T) {
	srv := registerHandlers(setupTestComponent(t))
	defer srv.Close()

	for _, id := range []string{"r1", "run:r1"} {
		var run storage.Run
		getJSON(t, srv.URL+"/api/arch/runs/"+id, http.StatusOK, &run)
		if run.Slug != "shop" || run.Summary == nil {
			t.Errorf("GET runs/%s = %+v", id, run)
		}
	}

	getJSON(t, srv.URL+"/api/arch/runs/missing", http.StatusNotFound, nil)
	getJSON(t, srv.URL+"/api/arch/runs/variant:x", http.StatusBadRequest, nil)
}

func TestHandleGetResult(t *testing.T) {
	srv := registerHandlers(setupTestComponent(t))
	defer srv.Close()

	var res search.Result
	getJSON(t, srv.URL+"/api/arch/runs/r1/result", http.StatusOK, &res)
	if res.BestVariant == nil {
		t.Fatal("result has no best variant")
	}
	if res.BestVariant.Score.HardViolations != 0 {
		t.Errorf("best variant has %d hard violations", res.BestVariant.Score.HardViolations)
	}

	// A running run has no result yet.
	getJSON(t, srv.URL+"/api/arch/runs/r2/result", http.StatusNotFound, nil)
}

func TestHandleExportRun(t *testing.T) {
	srv := registerHandlers(setupTestComponent(t))
	defer srv.Close()

	tests := []struct {
		name        string
		query       string
		contentType string
		contains    string
	}{
		{name: "default turtle", query: "", contentType: "text/turtle", contains: "@prefix"},
		{name: "ntriples", query: "?format=ntriples", contentType: "application/n-triples", contains: "/run/r1>"},
		{name: "jsonld with bfo", query: "?format=jsonld&profile=bfo", contentType: "application/ld+json", contains: "@context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/api/arch/runs/r1/rdf" + tt.query)
			if err != nil {
				t.Fatalf("GET rdf: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body does not contain %q:\n%s", tt.contains, body)
			}
		})
	}

	getJSON(t, srv.URL+"/api/arch/runs/r1/rdf?format=rdfxml", http.StatusBadRequest, nil)
	getJSON(t, srv.URL+"/api/arch/runs/r1/rdf?profile=owl", http.StatusBadRequest, nil)
	getJSON(t, srv.URL+"/api/arch/runs/r2/rdf", http.StatusNotFound, nil)
}

func TestRunEndpoints_Unavailable(t *testing.T) {
	c := setupTestComponent(t)
	c.setRuns(nil)
	srv := registerHandlers(c)
	defer srv.Close()

	for _, path := range []string{"runs", "runs/r1", "runs/r1/result", "runs/r1/rdf"} {
		getJSON(t, srv.URL+"/api/arch/"+path, http.StatusServiceUnavailable, nil)
	}
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestHandleDetect(t *testing.T) {
	srv := registerHandlers(setupTestComponent(t))
	defer srv.Close()

	resp := post(t, srv.URL+"/api/arch/detect", oversizedDoc())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got DetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, v := range got.Violations {
		if v.SuggestedOperator == architecture.OpModSplit {
			found = true
		}
	}
	if !found {
		t.Errorf("no MOD_SPLIT suggestion in %+v", got.Violations)
	}
}

func TestHandleDetect_CleanArchitecture(t *testing.T) {
	srv := registerHandlers(setupTestComponent(t))
	defer srv.Close()

	resp := post(t, srv.URL+"/api/arch/detect", "nodes:\n  - id: SYS\n    type: SYS\n")
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"violations":[]`) {
		t.Errorf("expected empty violations array, got %s", body)
	}
}

func TestHandleDetect_BadRequests(t *testing.T) {
	srv := registerHandlers(setupTestComponent(t))
	defer srv.Close()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "malformed json", body: `{"nodes":`, status: http.StatusBadRequest},
		{name: "dangling edge", body: `{"nodes":[{"id":"A","type":"FUNC"}],"edges":[{"source":"A","target":"B","type":"io"}]}`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/arch/detect", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestHandleScore(t *testing.T) {
	srv := registerHandlers(setupTestComponent(t))
	defer srv.Close()

	resp := post(t, srv.URL+"/api/arch/score", oversizedDoc())
	defer resp.Body.Close()

	var got ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Violations == 0 {
		t.Error("expected violations")
	}
	if !got.Acceptable {
		t.Error("oversized module is a soft violation and should be acceptable")
	}
	if got.Score.Weighted <= 0 || got.Score.Weighted >= 1 {
		t.Errorf("weighted = %v, want in (0,1)", got.Score.Weighted)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := registerHandlers(setupTestComponent(t))
	defer srv.Close()

	resp := post(t, srv.URL+"/api/arch/runs", "{}")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST runs status = %d, want 405", resp.StatusCode)
	}
}
