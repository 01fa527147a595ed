// Package fileimport loads raw contact rows from CSV and XLSX files so batch
// files go through the same pipeline as API payloads. Each row becomes a
// map keyed by the canonical contact field names.
package fileimport

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-import/internal/model"
)

// headerAliases maps normalized file headers to canonical field names.
// Normalization lowercases and strips spaces, underscores and dashes, so
// "First Name", "first_name" and "firstname" all land on the same field.
var headerAliases = map[string]string{
	"email":              model.FieldEmail,
	"firstname":          model.FieldFirstName,
	"lastname":           model.FieldLastName,
	"fullname":           model.FieldFullName,
	"name":               model.FieldFullName,
	"title":              model.FieldTitle,
	"jobtitle":           model.FieldTitle,
	"company":            model.FieldCompanyName,
	"companyname":        model.FieldCompanyName,
	"currentcompanyname": model.FieldCompanyName,
	"companywebsite":     model.FieldCompanyWebsite,
	"website":            model.FieldCompanyWebsite,
	"companylinkedin":    model.FieldCompanyLinkedin,
	"city":               model.FieldCity,
	"state":              model.FieldState,
	"country":            model.FieldCountry,
	"linkedin":           model.FieldLinkedinURL,
	"linkedinurl":        model.FieldLinkedinURL,
	"twitter":            model.FieldTwitterURL,
	"twitterurl":         model.FieldTwitterURL,
	"notes":              model.FieldResearchNotes,
	"researchnotes":      model.FieldResearchNotes,
	"dateofresearch":     model.FieldDateOfResearch,
	"tags":               model.FieldTags,
}

// Rows reads contact rows from path, dispatching on the file extension.
func Rows(path string) ([]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSVRows(path)
	case ".xlsx":
		return XLSXRows(path)
	default:
		return nil, eris.Errorf("fileimport: unsupported file type %q (csv, xlsx)", filepath.Ext(path))
	}
}

// canonicalField resolves a file header to a contact field name. Headers with
// no alias are kept verbatim after trimming.
func canonicalField(header string) string {
	trimmed := strings.TrimSpace(header)
	normalized := strings.ToLower(trimmed)
	normalized = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(normalized)
	if field, ok := headerAliases[normalized]; ok {
		return field
	}
	return trimmed
}

// rowFromCells zips a header row with one data row. Empty cells are omitted
// so absent and blank values look the same downstream.
func rowFromCells(header []string, cells []string) map[string]any {
	row := make(map[string]any, len(header))
	for i, field := range header {
		if field == "" || i >= len(cells) {
			continue
		}
		value := strings.TrimSpace(cells[i])
		if value == "" {
			continue
		}
		row[field] = value
	}
	return row
}

// headerFields resolves every header cell to its canonical field name.
func headerFields(cells []string) []string {
	fields := make([]string, len(cells))
	for i, cell := range cells {
		fields[i] = canonicalField(cell)
	}
	return fields
}
