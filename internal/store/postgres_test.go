package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-import/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func testContact() *model.NormalizedContact {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	first := "Alice"
	return &model.NormalizedContact{
		ID:                "contact-1",
		OrganizationID:    "org-1",
		Email:             "alice@example.com",
		FirstName:         &first,
		EmploymentHistory: []byte("{}"),
		PhoneNumbers:      []byte("{}"),
		ContactEmails:     []byte("{}"),
		AdditionalData:    []byte("{}"),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestPostgresStore_ContactIDByEmail_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id FROM contacts WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("contact-1"))

	id, err := s.ContactIDByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "contact-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ContactIDByEmail_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id FROM contacts`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	id, err := s.ContactIDByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ContactIDByEmail_StorageError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id FROM contacts`).
		WithArgs("alice@example.com").
		WillReturnError(errors.New("connection refused"))

	_, err := s.ContactIDByEmail(context.Background(), "alice@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact by email")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertContactWithTags_CommitsOneTransaction(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	c := testContact()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "contacts"`).
		WithArgs(
			c.ID, c.OrganizationID, c.Email,
			c.FirstName, c.LastName, c.FullName, c.Title,
			c.CompanyName, c.CompanyWebsite, c.CompanyLinkedin,
			c.City, c.State, c.Country,
			c.LinkedinURL, c.TwitterURL, c.ResearchNotes,
			c.DateOfResearch, c.LastActivityAt,
			c.EmploymentHistory, c.PhoneNumbers, c.ContactEmails, c.AdditionalData,
			c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO "tags"`).
		WithArgs(pgxmock.AnyArg(), "org-1", "vip").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("tag-1"))
	mock.ExpectExec(`INSERT INTO "contact_tags"`).
		WithArgs("contact-1", "tag-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.InsertContactWithTags(context.Background(), c, []string{"vip"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertContactWithTags_TagFailureRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	c := testContact()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "contacts"`).
		WithArgs(
			c.ID, c.OrganizationID, c.Email,
			c.FirstName, c.LastName, c.FullName, c.Title,
			c.CompanyName, c.CompanyWebsite, c.CompanyLinkedin,
			c.City, c.State, c.Country,
			c.LinkedinURL, c.TwitterURL, c.ResearchNotes,
			c.DateOfResearch, c.LastActivityAt,
			c.EmploymentHistory, c.PhoneNumbers, c.ContactEmails, c.AdditionalData,
			c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO "tags"`).
		WithArgs(pgxmock.AnyArg(), "org-1", "vip").
		WillReturnError(errors.New("tag table unavailable"))
	mock.ExpectRollback()

	err := s.InsertContactWithTags(context.Background(), c, []string{"vip"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert tag vip")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertContactWithTags_NoTags(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	c := testContact()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "contacts"`).
		WithArgs(
			c.ID, c.OrganizationID, c.Email,
			c.FirstName, c.LastName, c.FullName, c.Title,
			c.CompanyName, c.CompanyWebsite, c.CompanyLinkedin,
			c.City, c.State, c.Country,
			c.LinkedinURL, c.TwitterURL, c.ResearchNotes,
			c.DateOfResearch, c.LastActivityAt,
			c.EmploymentHistory, c.PhoneNumbers, c.ContactEmails, c.AdditionalData,
			c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.InsertContactWithTags(context.Background(), c, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertOrganizationCRMInfo(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectExec(`INSERT INTO "organization_crm_info"`).
		WithArgs("org-1", []byte(`{"crm":"salesforce"}`), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertOrganizationCRMInfo(context.Background(), model.OrganizationCRMInfo{
		OrganizationID: "org-1",
		Info:           []byte(`{"crm":"salesforce"}`),
		UpdatedAt:      now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendRelayTask(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	expires := time.Now().UTC().Add(time.Hour)
	mock.ExpectExec(`INSERT INTO relay_tasks`).
		WithArgs(pgxmock.AnyArg(), "n8n:leads", []byte(`{"task":1}`), pgxmock.AnyArg(), expires).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendRelayTask(context.Background(), "n8n:leads", []byte(`{"task":1}`), expires)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DrainRelayTasks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`DELETE FROM relay_tasks`).
		WithArgs("n8n:leads", now).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).
			AddRow([]byte(`{"task":1}`)).
			AddRow([]byte(`{"task":2}`)))

	payloads, err := s.DrainRelayTasks(context.Background(), "n8n:leads", now)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, `{"task":1}`, string(payloads[0]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredRelayTasks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectExec(`DELETE FROM relay_tasks WHERE expires_at`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpiredRelayTasks(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
