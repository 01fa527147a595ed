package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/crm-import/internal/model"
)

// Importer runs one import batch. Implemented by importer.Coordinator.
type Importer interface {
	Import(ctx context.Context, orgID string, rows []any, commonTags []string) (*model.ImportReport, error)
}

// ImportService provides the bulk contact import endpoint.
type ImportService struct {
	importer     Importer
	maxBodyBytes int64
}

// NewImportService creates the import endpoint handler. maxBodyBytes caps the
// request body; values below 1 fall back to 16 MiB.
func NewImportService(imp Importer, maxBodyBytes int64) *ImportService {
	if maxBodyBytes < 1 {
		maxBodyBytes = 16 << 20
	}
	return &ImportService{importer: imp, maxBodyBytes: maxBodyBytes}
}

// RegisterRoutes registers import routes.
func (s *ImportService) RegisterRoutes(r chi.Router) {
	r.Post("/contacts/import", s.HandleImport)
}

type importRequest struct {
	Contacts   any      `json:"contacts"`
	CommonTags []string `json:"commonTags"`
}

// HandleImport accepts a batch of raw contact rows and responds with the full
// import report. Row-level rejections surface in the report, not the HTTP
// status: 200 when everything stored, 207 when some rows were rejected but
// all accepted rows stored, 500 when any storage write failed.
// POST /api/contacts/import
func (s *ImportService) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := orgIDFromRequest(r)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Contacts == nil {
		writeJSONError(w, "contacts is required", http.StatusBadRequest)
		return
	}
	rows, ok := req.Contacts.([]any)
	if !ok {
		writeJSONError(w, "contacts must be a list", http.StatusBadRequest)
		return
	}
	if len(rows) == 0 {
		writeJSONError(w, "contacts must not be empty", http.StatusBadRequest)
		return
	}

	report, err := s.importer.Import(ctx, orgID, rows, req.CommonTags)
	if err != nil {
		zap.L().Error("import request failed",
			zap.String("component", "api"),
			zap.String("organization_id", orgID),
			zap.Error(err),
		)
		writeJSONError(w, "import failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, statusCodeFor(report.Status()), report)
}

// statusCodeFor maps a batch outcome to its HTTP status.
func statusCodeFor(status model.ImportStatus) int {
	switch status {
	case model.ImportStatusFull:
		return http.StatusOK
	case model.ImportStatusPartial:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}
