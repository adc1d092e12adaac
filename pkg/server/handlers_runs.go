package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/pipeline"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

// RunResponse is the body returned by POST /runs.
type RunResponse struct {
	RunID     string             `json:"run_id"`
	Format    string             `json:"format"`
	Positions []PositionResponse `json:"positions"`
	Ticks     int                `json:"ticks"`
	Duration  string             `json:"duration"`
}

// PositionResponse lists the URLs of one position's files.
type PositionResponse struct {
	Index     int      `json:"index"`
	Composite string   `json:"composite"`
	Ticks     []string `json:"ticks"`
}

// ErrorResponse is the body of a failed run.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Position  *int   `json:"position,omitempty"`
	Tick      *int   `json:"tick,omitempty"`
	Output    string `json:"output,omitempty"`
	Completed []int  `json:"completed,omitempty"`
}

// handleCreateRun renders the posted trace.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBytes))
	if err != nil {
		jsonError(w, "read trace: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	opts := s.defaults
	q := r.URL.Query()
	if f := q.Get("format"); f != "" {
		opts.Format = f
	}
	if q.Get("delimiter") != "" || q.Get("marker") != "" {
		d, err := trace.ResolveDelimiter(q.Get("delimiter"), q.Get("marker"))
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Delimiter = d
	}
	opts.RunID = uuid.NewString()
	opts.TargetDir = filepath.Join(s.baseDir, opts.RunID)

	p, err := pipeline.New(opts)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := p.Run(r.Context(), string(body))
	if err != nil {
		s.logger.Error("run failed", "run", opts.RunID, "error", err)
		status, resp := failure(err)
		resp.RunID = opts.RunID
		if result != nil {
			resp.Completed = result.Completed()
		}
		writeJSON(w, status, resp)
		return
	}

	layout := p.Layout()
	resp := RunResponse{
		RunID:     result.RunID,
		Format:    p.Options().Format,
		Positions: make([]PositionResponse, 0, len(result.Positions)),
		Ticks:     result.Stats.Ticks,
		Duration:  result.Stats.Duration.String(),
	}
	for _, pos := range result.Positions {
		pr := PositionResponse{
			Index:     pos.Index,
			Composite: fileURL(result.RunID, layout.Rel(pos.Composite)),
			Ticks:     make([]string, len(pos.Images)),
		}
		for i, img := range pos.Images {
			pr.Ticks[i] = fileURL(result.RunID, layout.Rel(img))
		}
		resp.Positions = append(resp.Positions, pr)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// failure maps an error to a status code and body. Errors without a code
// are reported as internal.
func failure(err error) (int, ErrorResponse) {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	resp := ErrorResponse{Error: err.Error(), Code: string(code)}

	var unavailable *apperrors.ToolUnavailableError
	var renderErr *apperrors.RenderError
	var compErr *apperrors.CompositeError
	switch {
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, resp
	case errors.As(err, &renderErr):
		resp.Position, resp.Tick = &renderErr.Position, &renderErr.Tick
		resp.Output = renderErr.Output
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &compErr):
		resp.Position = &compErr.Position
		resp.Output = compErr.Output
		return http.StatusUnprocessableEntity, resp
	}
	switch code {
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidFormat,
		apperrors.ErrCodeInvalidConfig, apperrors.ErrCodeInvalidDelimiter:
		return http.StatusBadRequest, resp
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeFileNotFound:
		return http.StatusNotFound, resp
	}
	return http.StatusInternalServerError, resp
}

// writeError writes err as a JSON error response.
func writeError(w http.ResponseWriter, err error) {
	status, resp := failure(err)
	writeJSON(w, status, resp)
}

// handleGetRun returns the manifest of a run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.runDir(w, r)
	if !ok {
		return
	}
	m, err := pipeline.ReadManifest(dir)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, apperrors.New(apperrors.ErrCodeNotFound, "run not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleGetFile serves one output file of a run.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.runDir(w, r)
	if !ok {
		return
	}
	rel := chi.URLParam(r, "*")
	for _, segment := range strings.Split(rel, "/") {
		if err := apperrors.ValidateFileName(segment); err != nil {
			writeError(w, err)
			return
		}
	}
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if !strings.HasPrefix(path, dir+string(filepath.Separator)) {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid path %q", rel))
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, apperrors.New(apperrors.ErrCodeNotFound, "file %q not found", rel))
		return
	}
	http.ServeFile(w, r, path)
}

// runDir validates the run ID and returns its directory.
func (s *Server) runDir(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid run id"))
		return "", false
	}
	return filepath.Join(s.baseDir, id.String()), true
}

func fileURL(runID, rel string) string {
	return "/runs/" + runID + "/" + rel
}
