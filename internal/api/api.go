// Package api exposes the import pipeline over HTTP. Each service registers
// its routes on a shared chi router; cross-cutting concerns (logging,
// recovery, rate limiting, CORS) live on the router itself.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/sells-group/crm-import/internal/model"
)

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// orgIDFromRequest extracts the tenant from the X-Organization-ID header,
// falling back to the default organization for single-tenant deployments.
func orgIDFromRequest(r *http.Request) string {
	if orgID := r.Header.Get("X-Organization-ID"); orgID != "" {
		return orgID
	}
	return model.DefaultOrganizationID
}
