package model

import "time"

// RawContactRecord is one loosely-typed candidate row submitted by a caller,
// keyed by business field name. Values arrive as whatever the JSON decoder
// produced (string, float64, bool, map, slice, nil).
type RawContactRecord map[string]any

// Raw field names accepted by the import pipeline. Anything outside this set
// is ignored by the normalizer rather than persisted.
const (
	FieldEmail             = "email"
	FieldFirstName         = "firstName"
	FieldLastName          = "lastName"
	FieldFullName          = "fullName"
	FieldTitle             = "title"
	FieldCompanyName       = "currentCompanyName"
	FieldCompanyWebsite    = "companyWebsite"
	FieldCompanyLinkedin   = "companyLinkedin"
	FieldCity              = "city"
	FieldState             = "state"
	FieldCountry           = "country"
	FieldLinkedinURL       = "linkedinUrl"
	FieldTwitterURL        = "twitterUrl"
	FieldResearchNotes     = "researchNotes"
	FieldDateOfResearch    = "dateOfResearch"
	FieldLastActivityAt    = "lastActivityAt"
	FieldEmploymentHistory = "employmentHistory"
	FieldPhoneNumbers      = "phoneNumbers"
	FieldContactEmails     = "contactEmails"
	FieldAdditionalData    = "additionalData"
	FieldTags              = "tags"
)

// String returns the named field as a string. ok is false when the field is
// absent or not a string.
func (r RawContactRecord) String(field string) (string, bool) {
	v, present := r[field]
	if !present {
		return "", false
	}
	s, isStr := v.(string)
	return s, isStr
}

// NormalizedContact is the canonical storage-ready projection of one accepted
// row. Optional scalars are nil pointers, never empty strings; structured
// sub-fields are JSON-encoded blobs defaulting to {}.
type NormalizedContact struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Email          string     `json:"email"`
	FirstName      *string    `json:"first_name"`
	LastName       *string    `json:"last_name"`
	FullName       *string    `json:"full_name"`
	Title          *string    `json:"title"`
	CompanyName    *string    `json:"company_name"`
	CompanyWebsite *string    `json:"company_website"`
	CompanyLinkedin *string   `json:"company_linkedin"`
	City           *string    `json:"city"`
	State          *string    `json:"state"`
	Country        *string    `json:"country"`
	LinkedinURL    *string    `json:"linkedin_url"`
	TwitterURL     *string    `json:"twitter_url"`
	ResearchNotes  *string    `json:"research_notes"`
	DateOfResearch *time.Time `json:"date_of_research"`
	LastActivityAt *time.Time `json:"last_activity_at"`

	EmploymentHistory []byte `json:"employment_history"`
	PhoneNumbers      []byte `json:"phone_numbers"`
	ContactEmails     []byte `json:"contact_emails"`
	AdditionalData    []byte `json:"additional_data"`

	// Row-level tags parsed from the raw record, merged with batch-common
	// tags at insertion time.
	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
