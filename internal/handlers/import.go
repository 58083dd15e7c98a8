// internal/handlers/import.go
package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/pos-ledger/internal/adapters/storage"
	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
	"github.com/ammerola/pos-ledger/internal/handlers/middleware"
)

// ImportHandler stores uploaded files and queues them for ingestion.
type ImportHandler struct {
	storage     ports.FileStorage
	queue       ports.JobQueue
	logger      *slog.Logger
	maxFileSize int64
	now         func() time.Time
}

func NewImportHandler(fileStorage ports.FileStorage, queue ports.JobQueue, maxFileSize int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		storage:     fileStorage,
		queue:       queue,
		logger:      logger.With(slog.String("handler", "import")),
		maxFileSize: maxFileSize,
		now:         time.Now,
	}
}

// ImportAccepted is returned once an upload is queued.
type ImportAccepted struct {
	JobID     string            `json:"job_id"`
	Kind      domain.ImportKind `json:"kind"`
	ObjectKey string            `json:"object_key"`
	Status    string            `json:"status"`
}

var allowedExtensions = map[domain.ImportKind][]string{
	domain.ImportCatalog:    {".xlsx"},
	domain.ImportCatalogPDF: {".pdf"},
	domain.ImportSales:      {".xlsx"},
}

// ImportCatalog handles POST /api/v1/import/catalog
func (h *ImportHandler) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, domain.ImportCatalog)
}

// ImportCatalogPDF handles POST /api/v1/import/catalog/pdf
func (h *ImportHandler) ImportCatalogPDF(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, domain.ImportCatalogPDF)
}

// ImportSales handles POST /api/v1/import/sales
func (h *ImportHandler) ImportSales(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, domain.ImportSales)
}

func (h *ImportHandler) accept(w http.ResponseWriter, r *http.Request, kind domain.ImportKind) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		respondError(w, r, http.StatusBadRequest, "failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !hasExtension(allowedExtensions[kind], ext) {
		respondError(w, r, http.StatusBadRequest, "unsupported file type "+ext)
		return
	}

	key := storage.NewUploadKey(string(kind), header.Filename, h.now())
	if _, err := h.storage.Upload(ctx, key, file, header.Header.Get("Content-Type")); err != nil {
		respondDomainError(w, r, h.logger, "failed to store upload", err)
		return
	}

	job := domain.ImportJob{
		JobID:     uuid.NewString(),
		Kind:      kind,
		ObjectKey: key,
		FileName:  header.Filename,
	}
	if p, ok := middleware.PrincipalFromContext(ctx); ok {
		job.Requested = p.Username
	}

	id, err := h.queue.EnqueueImport(ctx, job)
	if err != nil {
		if delErr := h.storage.Delete(ctx, key); delErr != nil {
			h.logger.WarnContext(ctx, "failed to remove orphaned upload",
				slog.String("key", key),
				slog.String("error", delErr.Error()))
		}
		respondDomainError(w, r, h.logger, "failed to queue import", err)
		return
	}

	h.logger.InfoContext(ctx, "import queued",
		slog.String("job_id", id),
		slog.String("kind", string(kind)),
		slog.String("file_name", header.Filename),
		slog.Int64("size", header.Size))

	respondJSON(w, http.StatusAccepted, ImportAccepted{
		JobID:     id,
		Kind:      kind,
		ObjectKey: key,
		Status:    "queued",
	})
}

// Status handles GET /api/v1/import/status/{id}
func (h *ImportHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.queue.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to get import status", err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func hasExtension(allowed []string, ext string) bool {
	for _, a := range allowed {
		if a == ext {
			return true
		}
	}
	return false
}
