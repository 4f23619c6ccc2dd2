package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kaleida/analytics-ingest/internal/domain"
	"github.com/kaleida/analytics-ingest/internal/ingest"
	"github.com/kaleida/analytics-ingest/internal/pkg/httputil"
	"github.com/kaleida/analytics-ingest/internal/service/imports"
)

// uploadFile is one file in an upload request body.
type uploadFile struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Content  string `json:"content"`
}

// importRequest is the body of both the validate and commit endpoints.
type importRequest struct {
	ClientID string       `json:"client_id"`
	Files    []uploadFile `json:"files"`
}

func (req *importRequest) toFiles() []imports.File {
	files := make([]imports.File, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, imports.File{
			Name:     f.Name,
			Platform: domain.Platform(f.Platform),
			Content:  f.Content,
		})
	}
	return files
}

// fileValidation pairs a file name with its dry-run report.
type fileValidation struct {
	Name       string                   `json:"name"`
	Validation *ingest.ValidationResult `json:"validation"`
}

// HandleValidate runs the dry-run pipeline over every uploaded file and
// returns the per-file reports without persisting anything.
func (h *Handlers) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Files) == 0 {
		httputil.BadRequest(w, "no files provided")
		return
	}

	results := make([]fileValidation, 0, len(req.Files))
	valid := true
	for _, f := range req.toFiles() {
		v, err := h.imports.Validate(r.Context(), req.ClientID, f)
		if errors.Is(err, imports.ErrNoClient) {
			httputil.BadRequest(w, "client_id is required")
			return
		}
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		if !v.IsValid() {
			valid = false
		}
		results = append(results, fileValidation{Name: f.Name, Validation: v})
	}

	httputil.OK(w, map[string]any{
		"valid": valid,
		"files": results,
	})
}

// HandleImport validates and commits a batch. The response carries the
// job id so the client can poll progress while large batches run.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Files) == 0 {
		httputil.BadRequest(w, "no files provided")
		return
	}

	jobID := uuid.New().String()
	res, err := h.imports.ImportBatch(r.Context(), req.ClientID, jobID, req.toFiles())
	if errors.Is(err, imports.ErrNoClient) {
		httputil.BadRequest(w, "client_id is required")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"job_id": jobID,
		"result": res,
	})
}

// HandleProgress returns live progress for an import job.
func (h *Handlers) HandleProgress(w http.ResponseWriter, r *http.Request) {
	if h.progress == nil {
		httputil.Unavailable(w, "progress tracking is not enabled")
		return
	}
	jobID := chi.URLParam(r, "jobID")
	p, err := h.progress.Get(r.Context(), jobID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, p)
}
