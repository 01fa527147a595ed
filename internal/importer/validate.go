// Package importer implements the bulk contact import pipeline: per-row
// validation, duplicate checking, normalization, and batch coordination.
package importer

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sells-group/crm-import/internal/model"
	"github.com/sells-group/crm-import/internal/sanitize"
)

// emailPattern accepts a simple local@domain.tld shape. Full RFC 5322
// validation is deliberately out of scope; the unique constraint is the
// final arbiter.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Per-field string length ceilings enforced at validation time.
var lengthCeilings = []struct {
	field string
	max   int
}{
	{model.FieldFirstName, 100},
	{model.FieldLastName, 100},
	{model.FieldTitle, 200},
	{model.FieldCity, 100},
	{model.FieldState, 100},
	{model.FieldCountry, 100},
	{model.FieldCompanyName, 255},
}

// ValidateRow checks one raw row and returns all rule violations in a fixed
// order. An empty result means the row is valid. Rules never short-circuit
// except when the row is not a structured object at all, in which case a
// single structure error is returned. No I/O occurs here.
func ValidateRow(row any, index int) []model.ValidationError {
	rec, ok := row.(map[string]any)
	if !ok || rec == nil {
		return []model.ValidationError{{
			Field:   "contact",
			Message: fmt.Sprintf("row %d is not a contact object", index+1),
			Kind:    model.ErrStructure,
		}}
	}

	var errs []model.ValidationError

	emailVal, present := rec[model.FieldEmail]
	switch {
	case !present || emailVal == nil:
		errs = append(errs, model.ValidationError{
			Field:   model.FieldEmail,
			Message: "email is required",
			Kind:    model.ErrMissingField,
		})
	default:
		email, isStr := emailVal.(string)
		if !isStr {
			errs = append(errs, model.ValidationError{
				Field:   model.FieldEmail,
				Message: "email must be a string",
				Kind:    model.ErrTypeMismatch,
			})
		} else if !emailPattern.MatchString(email) {
			errs = append(errs, model.ValidationError{
				Field:   model.FieldEmail,
				Message: fmt.Sprintf("invalid email format: %s", sanitize.MaskEmail(email)),
				Kind:    model.ErrInvalidFormat,
			})
		}
	}

	if v, present := rec[model.FieldDateOfResearch]; present && v != nil {
		switch v.(type) {
		case string, time.Time:
		default:
			errs = append(errs, model.ValidationError{
				Field:   model.FieldDateOfResearch,
				Message: "dateOfResearch must be a string or date value",
				Kind:    model.ErrTypeMismatch,
			})
		}
	}

	for _, ceiling := range lengthCeilings {
		if s, ok := rec[ceiling.field].(string); ok && len(s) > ceiling.max {
			errs = append(errs, model.ValidationError{
				Field:   ceiling.field,
				Message: fmt.Sprintf("%s exceeds %d characters", ceiling.field, ceiling.max),
				Kind:    model.ErrLengthExceeded,
			})
		}
	}

	if v, present := rec[model.FieldAdditionalData]; present && v != nil {
		if _, ok := v.(map[string]any); !ok {
			errs = append(errs, model.ValidationError{
				Field:   model.FieldAdditionalData,
				Message: "additionalData must be an object",
				Kind:    model.ErrTypeMismatch,
			})
		}
	}

	return errs
}
