package model

// Tag is a tenant-scoped label shared across imports. (OrganizationID, Name)
// is unique; tags are created on first use and reused indefinitely.
type Tag struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
}

// ContactTagLink associates a contact with a tag. The (ContactID, TagID) pair
// is unique; inserting a duplicate link is a no-op.
type ContactTagLink struct {
	ContactID string `json:"contact_id"`
	TagID     string `json:"tag_id"`
}
