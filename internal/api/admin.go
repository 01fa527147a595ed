package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/crm-import/internal/model"
)

// AdminStore is the storage surface the admin endpoints depend on.
type AdminStore interface {
	UpsertOrganizationCRMInfo(ctx context.Context, info model.OrganizationCRMInfo) error
	Ping(ctx context.Context) error
}

// AdminService provides tenant administration endpoints.
type AdminService struct {
	store AdminStore
}

// NewAdminService creates the admin endpoint handler.
func NewAdminService(store AdminStore) *AdminService {
	return &AdminService{store: store}
}

// RegisterRoutes registers admin routes.
func (s *AdminService) RegisterRoutes(r chi.Router) {
	r.Put("/organizations/{orgID}/crm-info", s.HandleUpsertCRMInfo)
}

// HandleUpsertCRMInfo replaces the stored CRM metadata blob for a tenant.
// PUT /api/organizations/{orgID}/crm-info
func (s *AdminService) HandleUpsertCRMInfo(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSONError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		writeJSONError(w, "crm info must be valid JSON", http.StatusBadRequest)
		return
	}

	info := model.OrganizationCRMInfo{
		OrganizationID: orgID,
		Info:           body,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.store.UpsertOrganizationCRMInfo(r.Context(), info); err != nil {
		zap.L().Error("crm info upsert failed",
			zap.String("component", "api"),
			zap.String("organization_id", orgID),
			zap.Error(err),
		)
		writeJSONError(w, "failed to store crm info", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "ok",
		"organizationId": orgID,
	})
}
