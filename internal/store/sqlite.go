package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crm-import/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// development; it mirrors the postgres driver's conflict semantics.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id                 TEXT PRIMARY KEY,
	organization_id    TEXT NOT NULL,
	email              TEXT NOT NULL UNIQUE,
	first_name         TEXT,
	last_name          TEXT,
	full_name          TEXT,
	title              TEXT,
	company_name       TEXT,
	company_website    TEXT,
	company_linkedin   TEXT,
	city               TEXT,
	state              TEXT,
	country            TEXT,
	linkedin_url       TEXT,
	twitter_url        TEXT,
	research_notes     TEXT,
	date_of_research   DATETIME,
	last_activity_at   DATETIME,
	employment_history TEXT NOT NULL DEFAULT '{}',
	phone_numbers      TEXT NOT NULL DEFAULT '{}',
	contact_emails     TEXT NOT NULL DEFAULT '{}',
	additional_data    TEXT NOT NULL DEFAULT '{}',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contacts_organization_id ON contacts(organization_id);

CREATE TABLE IF NOT EXISTS tags (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	name            TEXT NOT NULL,
	UNIQUE (organization_id, name)
);

CREATE TABLE IF NOT EXISTS contact_tags (
	contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (contact_id, tag_id)
);

CREATE TABLE IF NOT EXISTS organization_crm_info (
	organization_id TEXT PRIMARY KEY,
	info            TEXT NOT NULL,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS relay_tasks (
	id         TEXT PRIMARY KEY,
	relay_key  TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_relay_tasks_key ON relay_tasks(relay_key);
CREATE INDEX IF NOT EXISTS idx_relay_tasks_expires_at ON relay_tasks(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ContactIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM contacts WHERE email = ? LIMIT 1`,
		email,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrap(err, "sqlite: contact by email")
	}
	return id, nil
}

func (s *SQLiteStore) InsertContactWithTags(ctx context.Context, c *model.NormalizedContact, tags []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin contact tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO contacts (
			id, organization_id, email,
			first_name, last_name, full_name, title,
			company_name, company_website, company_linkedin,
			city, state, country,
			linkedin_url, twitter_url, research_notes,
			date_of_research, last_activity_at,
			employment_history, phone_numbers, contact_emails, additional_data,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrganizationID, c.Email,
		c.FirstName, c.LastName, c.FullName, c.Title,
		c.CompanyName, c.CompanyWebsite, c.CompanyLinkedin,
		c.City, c.State, c.Country,
		c.LinkedinURL, c.TwitterURL, c.ResearchNotes,
		c.DateOfResearch, c.LastActivityAt,
		string(c.EmploymentHistory), string(c.PhoneNumbers),
		string(c.ContactEmails), string(c.AdditionalData),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert contact")
	}

	for _, name := range tags {
		var tagID string
		err := tx.QueryRowContext(ctx,
			`INSERT INTO tags (id, organization_id, name) VALUES (?, ?, ?)
			 ON CONFLICT (organization_id, name) DO UPDATE SET name = excluded.name
			 RETURNING id`,
			uuid.New().String(), c.OrganizationID, name,
		).Scan(&tagID)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert tag %s", name)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO contact_tags (contact_id, tag_id) VALUES (?, ?)
			 ON CONFLICT (contact_id, tag_id) DO NOTHING`,
			c.ID, tagID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: link tag %s", name)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit contact tx")
}

func (s *SQLiteStore) UpsertOrganizationCRMInfo(ctx context.Context, info model.OrganizationCRMInfo) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organization_crm_info (organization_id, info, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (organization_id) DO UPDATE SET info = excluded.info, updated_at = excluded.updated_at`,
		info.OrganizationID, string(info.Info), info.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert organization crm info")
}

func (s *SQLiteStore) AppendRelayTask(ctx context.Context, key string, payload []byte, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relay_tasks (id, relay_key, payload, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), key, string(payload), time.Now().UTC(), expiresAt,
	)
	return eris.Wrap(err, "sqlite: append relay task")
}

func (s *SQLiteStore) DrainRelayTasks(ctx context.Context, key string, now time.Time) ([][]byte, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin drain tx")
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx,
		`SELECT payload FROM relay_tasks WHERE relay_key = ? AND expires_at > ? ORDER BY created_at`,
		key, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: drain relay tasks")
	}

	var payloads [][]byte
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan relay task")
		}
		payloads = append(payloads, []byte(p))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, eris.Wrap(err, "sqlite: drain relay tasks iterate")
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM relay_tasks WHERE relay_key = ?`, key); err != nil {
		return nil, eris.Wrap(err, "sqlite: delete drained relay tasks")
	}
	return payloads, eris.Wrap(tx.Commit(), "sqlite: commit drain tx")
}

func (s *SQLiteStore) DeleteExpiredRelayTasks(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM relay_tasks WHERE expires_at <= ?`,
		now,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired relay tasks")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}
