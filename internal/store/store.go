package store

import (
	"context"
	"time"

	"github.com/sells-group/crm-import/internal/model"
)

// Store defines the persistence surface of the import service. Both drivers
// (postgres, sqlite) implement it; the postgres driver is the production
// target and the reference for conflict semantics.
type Store interface {
	// Contacts. ContactIDByEmail is a global lookup, not tenant-scoped, and
	// returns "" without error when no contact has the email.
	// InsertContactWithTags inserts the contact row, upserts each tag for
	// the contact's tenant, and links them, all in one transaction. Any
	// failure rolls the whole contact back.
	ContactIDByEmail(ctx context.Context, email string) (string, error)
	InsertContactWithTags(ctx context.Context, c *model.NormalizedContact, tags []string) error

	// Admin
	UpsertOrganizationCRMInfo(ctx context.Context, info model.OrganizationCRMInfo) error

	// Task relay durable fallback
	AppendRelayTask(ctx context.Context, key string, payload []byte, expiresAt time.Time) error
	DrainRelayTasks(ctx context.Context, key string, now time.Time) ([][]byte, error)
	DeleteExpiredRelayTasks(ctx context.Context, now time.Time) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
