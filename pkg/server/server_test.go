package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/pipeline"
	"github.com/matzehuels/tracegraph/pkg/toolexec"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

type stubRenderer struct{ failAt string }

func (s stubRenderer) Render(_ context.Context, doc trace.GraphDocument, format, graphPath, imagePath string) error {
	if doc.String() == s.failAt {
		return &apperrors.RenderError{Position: doc.Position, Tick: doc.Tick, Output: "Error: syntax error", Cause: errors.New("exit status 1")}
	}
	if err := os.WriteFile(graphPath, []byte(doc.Source), 0644); err != nil {
		return err
	}
	return os.WriteFile(imagePath, []byte(format+":"+doc.Source), 0644)
}

func (stubRenderer) Tools() []toolexec.Tool { return nil }

type stubCompositor struct{}

func (stubCompositor) Composite(_ context.Context, _ int, images []string, out string) error {
	var all []byte
	for _, img := range images {
		data, err := os.ReadFile(img)
		if err != nil {
			return err
		}
		all = append(all, data...)
	}
	return os.WriteFile(out, all, 0644)
}

func (stubCompositor) Tools() []toolexec.Tool { return nil }

func newTestServer(t *testing.T, r stubRenderer) *httptest.Server {
	t.Helper()
	s := New(t.TempDir(), pipeline.Options{Renderer: r, Compositor: stubCompositor{}, Jobs: 2}, nil)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

const twoPositions = "digraph{a->b}\n// End of index\ndigraph{a->c}\n// End of index\n"

func postTrace(t *testing.T, ts *httptest.Server, query, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/runs"+query, "text/plain", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /runs: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, stubRenderer{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestCreateRunAndFetchFiles(t *testing.T) {
	ts := newTestServer(t, stubRenderer{})

	resp := postTrace(t, ts, "?format=svg", twoPositions)
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var run RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}
	if run.RunID == "" || run.Format != "svg" || run.Ticks != 2 || len(run.Positions) != 2 {
		t.Fatalf("run = %+v", run)
	}
	if want := "/runs/" + run.RunID + "/1_0.svg"; run.Positions[1].Composite != want {
		t.Errorf("composite url = %q, want %q", run.Positions[1].Composite, want)
	}
	if want := "/runs/" + run.RunID + "/split/0_0.svg"; run.Positions[0].Ticks[0] != want {
		t.Errorf("tick url = %q, want %q", run.Positions[0].Ticks[0], want)
	}

	file, err := http.Get(ts.URL + run.Positions[0].Composite)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Body.Close()
	data, _ := io.ReadAll(file.Body)
	if file.StatusCode != http.StatusOK || string(data) != "svg:digraph{a->b}" {
		t.Errorf("composite = %d %q", file.StatusCode, data)
	}

	manifest, err := http.Get(ts.URL + "/runs/" + run.RunID)
	if err != nil {
		t.Fatal(err)
	}
	defer manifest.Body.Close()
	var m pipeline.Manifest
	if err := json.NewDecoder(manifest.Body).Decode(&m); err != nil {
		t.Fatal(err)
	}
	if len(m.Positions) != 2 || m.Format != "svg" {
		t.Errorf("manifest = %+v", m)
	}
}

func TestCreateRunCustomMarker(t *testing.T) {
	ts := newTestServer(t, stubRenderer{})
	resp := postTrace(t, ts, "?delimiter=offset", "digraph{x}\n// End of offset\n")
	var run RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated || len(run.Positions) != 1 {
		t.Errorf("status = %d, run = %+v", resp.StatusCode, run)
	}
}

func TestCreateRunBadRequest(t *testing.T) {
	ts := newTestServer(t, stubRenderer{})
	for _, q := range []string{"?format=P%20NG", "?delimiter=both"} {
		resp := postTrace(t, ts, q, twoPositions)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestCreateRunRenderFailure(t *testing.T) {
	ts := newTestServer(t, stubRenderer{failAt: "1_0"})

	resp := postTrace(t, ts, "", twoPositions)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	var e ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatal(err)
	}
	if e.Code != string(apperrors.ErrCodeRenderFailed) || e.Position == nil || *e.Position != 1 || e.Tick == nil || *e.Tick != 0 {
		t.Errorf("error = %+v", e)
	}
	if e.Output != "Error: syntax error" || len(e.Completed) != 1 || e.Completed[0] != 0 {
		t.Errorf("error = %+v", e)
	}
}

func TestCreateRunToolUnavailable(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	s := New(t.TempDir(), pipeline.Options{}, nil)
	ts := httptest.NewServer(s)
	defer ts.Close()

	resp := postTrace(t, ts, "", twoPositions)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestGetFileRejectsBadPaths(t *testing.T) {
	ts := newTestServer(t, stubRenderer{})

	tests := []struct {
		path string
		want int
		code apperrors.Code
	}{
		{"/runs/not-a-uuid/0_0.png", http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"/runs/6f1c9a52-8f5e-4a43-9a7e-0b8f6f2d1c11/0_0.png", http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"/runs/6f1c9a52-8f5e-4a43-9a7e-0b8f6f2d1c11/split/0_0.png", http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"/runs/6f1c9a52-8f5e-4a43-9a7e-0b8f6f2d1c11", http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"/runs/6f1c9a52-8f5e-4a43-9a7e-0b8f6f2d1c11/split/", http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"/runs/6f1c9a52-8f5e-4a43-9a7e-0b8f6f2d1c11/a..b.png", http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		if err != nil {
			t.Fatal(err)
		}
		var body ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
		if body.Code != string(tt.code) {
			t.Errorf("GET %s code = %q, want %s", tt.path, body.Code, tt.code)
		}
	}
}

func TestGetFileStaysInsideRun(t *testing.T) {
	base := t.TempDir()
	secret := base + "/secret.txt"
	if err := os.WriteFile(secret, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	s := New(base+"/runs", pipeline.Options{Renderer: stubRenderer{}, Compositor: stubCompositor{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/runs/6f1c9a52-8f5e-4a43-9a7e-0b8f6f2d1c11/..%2F..%2Fsecret.txt", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body %q", rec.Code, rec.Body.String())
	}
}
