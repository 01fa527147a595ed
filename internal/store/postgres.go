package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-import/internal/db"
	"github.com/sells-group/crm-import/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// contactColumns is the fixed insert schema for contacts. The normalizer
// guarantees a value (possibly NULL) for every column.
var contactColumns = []string{
	"id", "organization_id", "email",
	"first_name", "last_name", "full_name", "title",
	"company_name", "company_website", "company_linkedin",
	"city", "state", "country",
	"linkedin_url", "twitter_url", "research_notes",
	"date_of_research", "last_activity_at",
	"employment_history", "phone_numbers", "contact_emails", "additional_data",
	"created_at", "updated_at",
}

var (
	insertContactSQL = db.InsertSQL("contacts", contactColumns)
	upsertTagSQL     = db.UpsertReturningSQL("tags",
		[]string{"id", "organization_id", "name"},
		[]string{"organization_id", "name"},
		"name", "id")
	linkTagSQL = db.InsertIgnoreSQL("contact_tags",
		[]string{"contact_id", "tag_id"},
		[]string{"contact_id", "tag_id"})
	upsertCRMInfoSQL = db.UpsertReplaceSQL("organization_crm_info",
		[]string{"organization_id", "info", "updated_at"},
		[]string{"organization_id"})
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest import operations.
var preparedStatements = map[string]string{
	"contact_id_by_email": `SELECT id FROM contacts WHERE email = $1 LIMIT 1`,
	"insert_contact":      insertContactSQL,
	"upsert_tag":          upsertTagSQL,
	"link_tag":            linkTagSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
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
	date_of_research   TIMESTAMPTZ,
	last_activity_at   TIMESTAMPTZ,
	employment_history JSONB NOT NULL DEFAULT '{}',
	phone_numbers      JSONB NOT NULL DEFAULT '{}',
	contact_emails     JSONB NOT NULL DEFAULT '{}',
	additional_data    JSONB NOT NULL DEFAULT '{}',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contacts_organization_id ON contacts(organization_id);
CREATE INDEX IF NOT EXISTS idx_contacts_company_name ON contacts(company_name);

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
	info            JSONB NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS relay_tasks (
	id         TEXT PRIMARY KEY,
	relay_key  TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_relay_tasks_key ON relay_tasks(relay_key);
CREATE INDEX IF NOT EXISTS idx_relay_tasks_expires_at ON relay_tasks(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ContactIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM contacts WHERE email = $1 LIMIT 1`,
		email,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrap(err, "postgres: contact by email")
	}
	return id, nil
}

// InsertContactWithTags stores one contact and its tag associations as a
// single transaction. Tag rows are acquired with an atomic upsert so
// concurrent imports racing on the same (organization_id, name) converge on
// one row; duplicate links are silent no-ops.
func (s *PostgresStore) InsertContactWithTags(ctx context.Context, c *model.NormalizedContact, tags []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin contact tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, insertContactSQL,
		c.ID, c.OrganizationID, c.Email,
		c.FirstName, c.LastName, c.FullName, c.Title,
		c.CompanyName, c.CompanyWebsite, c.CompanyLinkedin,
		c.City, c.State, c.Country,
		c.LinkedinURL, c.TwitterURL, c.ResearchNotes,
		c.DateOfResearch, c.LastActivityAt,
		c.EmploymentHistory, c.PhoneNumbers, c.ContactEmails, c.AdditionalData,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert contact")
	}

	for _, name := range tags {
		var tagID string
		err := tx.QueryRow(ctx, upsertTagSQL,
			uuid.New().String(), c.OrganizationID, name,
		).Scan(&tagID)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert tag %s", name)
		}
		if _, err := tx.Exec(ctx, linkTagSQL, c.ID, tagID); err != nil {
			return eris.Wrapf(err, "postgres: link tag %s", name)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit contact tx")
}

func (s *PostgresStore) UpsertOrganizationCRMInfo(ctx context.Context, info model.OrganizationCRMInfo) error {
	_, err := s.pool.Exec(ctx, upsertCRMInfoSQL,
		info.OrganizationID, info.Info, info.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: upsert organization crm info")
}

func (s *PostgresStore) AppendRelayTask(ctx context.Context, key string, payload []byte, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO relay_tasks (id, relay_key, payload, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), key, payload, time.Now().UTC(), expiresAt,
	)
	return eris.Wrap(err, "postgres: append relay task")
}

func (s *PostgresStore) DrainRelayTasks(ctx context.Context, key string, now time.Time) ([][]byte, error) {
	rows, err := s.pool.Query(ctx,
		`WITH drained AS (
			DELETE FROM relay_tasks WHERE relay_key = $1 RETURNING payload, created_at, expires_at
		)
		SELECT payload FROM drained WHERE expires_at > $2 ORDER BY created_at`,
		key, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: drain relay tasks")
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var p []byte
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "postgres: scan relay task")
		}
		payloads = append(payloads, p)
	}
	return payloads, eris.Wrap(rows.Err(), "postgres: drain relay tasks iterate")
}

func (s *PostgresStore) DeleteExpiredRelayTasks(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM relay_tasks WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired relay tasks")
	}
	return int(tag.RowsAffected()), nil
}
