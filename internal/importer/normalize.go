package importer

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/crm-import/internal/model"
)

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ParseDate converts a raw field value to a time. The second return is false
// when the value is absent, malformed, or of an unsupported type; callers
// store NULL in that case rather than failing the row.
func ParseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// Normalizer converts validated raw rows into storage-ready contacts. One
// Normalizer serves one batch: every contact it produces shares the batch
// timestamp captured at construction.
type Normalizer struct {
	orgID string
	now   time.Time
}

// NewNormalizer captures the batch-wide timestamp for created_at/updated_at.
func NewNormalizer(orgID string, now time.Time) *Normalizer {
	return &Normalizer{orgID: orgID, now: now.UTC()}
}

// Normalize maps one validated row to a NormalizedContact with a fresh UUID.
// Only the fixed field schema is carried over; unexpected caller-supplied
// keys are dropped.
func (n *Normalizer) Normalize(rec model.RawContactRecord) *model.NormalizedContact {
	email, _ := rec.String(model.FieldEmail)

	c := &model.NormalizedContact{
		ID:              uuid.New().String(),
		OrganizationID:  n.orgID,
		Email:           email,
		FirstName:       optString(rec, model.FieldFirstName),
		LastName:        optString(rec, model.FieldLastName),
		Title:           optString(rec, model.FieldTitle),
		CompanyName:     optString(rec, model.FieldCompanyName),
		CompanyWebsite:  optString(rec, model.FieldCompanyWebsite),
		CompanyLinkedin: optString(rec, model.FieldCompanyLinkedin),
		City:            optString(rec, model.FieldCity),
		State:           optString(rec, model.FieldState),
		Country:         optString(rec, model.FieldCountry),
		LinkedinURL:     optString(rec, model.FieldLinkedinURL),
		TwitterURL:      optString(rec, model.FieldTwitterURL),
		ResearchNotes:   optString(rec, model.FieldResearchNotes),
		CreatedAt:       n.now,
		UpdatedAt:       n.now,
	}

	c.FullName = buildFullName(rec)

	if t, ok := ParseDate(rec[model.FieldDateOfResearch]); ok {
		c.DateOfResearch = &t
	}
	if t, ok := ParseDate(rec[model.FieldLastActivityAt]); ok {
		c.LastActivityAt = &t
	}

	c.EmploymentHistory = encodeJSON(rec[model.FieldEmploymentHistory])
	c.PhoneNumbers = encodeJSON(rec[model.FieldPhoneNumbers])
	c.ContactEmails = encodeJSON(rec[model.FieldContactEmails])
	c.AdditionalData = encodeJSON(rec[model.FieldAdditionalData])

	if raw, ok := rec.String(model.FieldTags); ok {
		c.Tags = SplitTags(raw)
	}

	return c
}

// buildFullName prefers an explicit fullName, then first+last joined with a
// space, then whichever of the two is present.
func buildFullName(rec model.RawContactRecord) *string {
	if v := optString(rec, model.FieldFullName); v != nil {
		return v
	}
	first := optString(rec, model.FieldFirstName)
	last := optString(rec, model.FieldLastName)
	switch {
	case first != nil && last != nil:
		joined := *first + " " + *last
		return &joined
	case first != nil:
		return first
	case last != nil:
		return last
	default:
		return nil
	}
}

// SplitTags parses a comma-separated tag string, trimming whitespace and
// dropping empty entries. Matching stays case-sensitive.
func SplitTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// MergeTags unions row-level tags with batch-common tags, collapsing exact
// duplicates while preserving first-seen order.
func MergeTags(rowTags, commonTags []string) []string {
	seen := make(map[string]struct{}, len(rowTags)+len(commonTags))
	var merged []string
	for _, t := range append(append([]string{}, rowTags...), commonTags...) {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}

func optString(rec model.RawContactRecord, field string) *string {
	if s, ok := rec.String(field); ok {
		return &s
	}
	return nil
}

func encodeJSON(v any) []byte {
	if v == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
