package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Statement builders for the conflict-handling inserts the import pipeline
// relies on. Identifiers are always sanitized through pgx.Identifier; values
// travel exclusively as bind parameters.

// InsertSQL builds INSERT INTO table (cols...) VALUES ($1..$n).
func InsertSQL(table string, cols []string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		sanitizeTable(table),
		quoteAndJoin(cols),
		placeholders(1, len(cols)),
	)
}

// UpsertReturningSQL builds the atomic insert-or-fetch statement:
// INSERT ... ON CONFLICT (keys) DO UPDATE SET touch = EXCLUDED.touch
// RETURNING ret. The DO UPDATE arm exists so RETURNING yields the surviving
// row on conflict; a DO NOTHING arm would return no row.
func UpsertReturningSQL(table string, cols, conflictKeys []string, touchCol, returnCol string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s RETURNING %s",
		sanitizeTable(table),
		quoteAndJoin(cols),
		placeholders(1, len(cols)),
		quoteAndJoin(conflictKeys),
		pgx.Identifier{touchCol}.Sanitize(),
		pgx.Identifier{touchCol}.Sanitize(),
		pgx.Identifier{returnCol}.Sanitize(),
	)
}

// InsertIgnoreSQL builds INSERT ... ON CONFLICT (keys) DO NOTHING, for links
// where a duplicate pair is a silent no-op rather than an error.
func InsertIgnoreSQL(table string, cols, conflictKeys []string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		sanitizeTable(table),
		quoteAndJoin(cols),
		placeholders(1, len(cols)),
		quoteAndJoin(conflictKeys),
	)
}

// UpsertReplaceSQL builds INSERT ... ON CONFLICT (keys) DO UPDATE SET that
// replaces every non-key column with the incoming value.
func UpsertReplaceSQL(table string, cols, conflictKeys []string) string {
	conflictSet := make(map[string]bool, len(conflictKeys))
	for _, k := range conflictKeys {
		conflictSet[k] = true
	}
	var setClauses []string
	for _, c := range cols {
		if conflictSet[c] {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(table),
		quoteAndJoin(cols),
		placeholders(1, len(cols)),
		quoteAndJoin(conflictKeys),
		strings.Join(setClauses, ", "),
	)
}

// placeholders renders $start..$start+count-1.
func placeholders(start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

// sanitizeTable handles schema-qualified table names like "crm.contacts".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
