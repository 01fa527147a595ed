package model

// ErrorKind classifies a single field-level validation failure.
type ErrorKind string

const (
	ErrMissingField   ErrorKind = "missing_field"
	ErrInvalidFormat  ErrorKind = "invalid_format"
	ErrTypeMismatch   ErrorKind = "type_mismatch"
	ErrLengthExceeded ErrorKind = "length_exceeded"
	ErrStructure      ErrorKind = "structure_error"
	ErrOther          ErrorKind = "other"
)

// ValidationError describes one failed validation rule for one field.
type ValidationError struct {
	Field   string    `json:"field"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// RowValidationFailure itemizes a rejected row. Contact carries the raw row
// with email fields masked.
type RowValidationFailure struct {
	Row     int               `json:"row"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors"`
	Contact any               `json:"contact"`
}

// DuplicateSkip records a row dropped because its email already exists.
type DuplicateSkip struct {
	Row    int    `json:"row"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// StorageFailure records a per-contact insert or tag-reconciliation failure.
// The offending transaction was rolled back; no partial contact remains.
type StorageFailure struct {
	Email    string `json:"email,omitempty"`
	RowIndex int    `json:"rowIndex,omitempty"`
	Message  string `json:"message"`
	Detail   string `json:"error,omitempty"`
}

// ImportStatus is the overall outcome of a batch.
type ImportStatus string

const (
	// ImportStatusFull: every row stored, nothing rejected.
	ImportStatusFull ImportStatus = "full"
	// ImportStatusPartial: validation or duplicate rejections occurred, but
	// every accepted row was stored.
	ImportStatusPartial ImportStatus = "partial"
	// ImportStatusFailed: at least one storage error occurred.
	ImportStatusFailed ImportStatus = "failed"
)

// ImportReport aggregates per-row outcomes for one batch. It is the sole
// return value of the batch coordinator and is never persisted.
type ImportReport struct {
	Success              bool                   `json:"success"`
	SuccessCount         int                    `json:"successCount"`
	ValidationErrorCount int                    `json:"validationErrorCount"`
	DuplicateSkipCount   int                    `json:"duplicateSkipCount"`
	ValidationErrors     []RowValidationFailure `json:"validationErrors"`
	SkippedDuplicates    []DuplicateSkip        `json:"skippedDuplicates"`
	DatabaseErrors       []StorageFailure       `json:"databaseErrors"`
}

// Status derives the overall batch outcome.
func (r *ImportReport) Status() ImportStatus {
	switch {
	case len(r.DatabaseErrors) > 0:
		return ImportStatusFailed
	case len(r.ValidationErrors) > 0 || len(r.SkippedDuplicates) > 0:
		return ImportStatusPartial
	default:
		return ImportStatusFull
	}
}
