package model

import "time"

// DefaultOrganizationID is the placeholder tenant used when no organization
// is resolved for a request. A development affordance, not a security
// boundary.
const DefaultOrganizationID = "org-default"

// OrganizationCRMInfo holds per-tenant CRM connection details, maintained by
// admin tooling. One row per organization, replaced on write.
type OrganizationCRMInfo struct {
	OrganizationID string    `json:"organization_id"`
	Info           []byte    `json:"info"`
	UpdatedAt      time.Time `json:"updated_at"`
}
