package importer

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crm-import/internal/model"
	"github.com/sells-group/crm-import/internal/resilience"
	"github.com/sells-group/crm-import/internal/sanitize"
)

// duplicateReason is the user-visible reason attached to duplicate skips.
// Email uniqueness is global, not tenant-scoped.
const duplicateReason = "Duplicate email exists globally"

// ContactStore is the storage surface the coordinator depends on. Each
// InsertContactWithTags call is one atomic unit: the contact row plus its tag
// upserts and links commit or roll back together.
type ContactStore interface {
	ContactIDByEmail(ctx context.Context, email string) (string, error)
	InsertContactWithTags(ctx context.Context, c *model.NormalizedContact, tags []string) error
}

// Config tunes batch processing.
type Config struct {
	// DuplicateCheckConcurrency bounds concurrent email lookups against the
	// shared connection pool. Values below 1 mean sequential.
	DuplicateCheckConcurrency int `yaml:"duplicate_check_concurrency" mapstructure:"duplicate_check_concurrency"`

	// DuplicateCheckRetries is how many times a transiently failed email
	// lookup is retried before the row is rejected.
	DuplicateCheckRetries int `yaml:"duplicate_check_retries" mapstructure:"duplicate_check_retries"`
}

// Coordinator orchestrates validation, duplicate checking, normalization and
// insertion for one batch at a time. It owns the per-request lifetime of raw
// and normalized rows; tags are long-lived tenant resources owned by storage.
type Coordinator struct {
	store ContactStore
	cfg   Config
}

// NewCoordinator creates a batch coordinator on top of a contact store.
func NewCoordinator(store ContactStore, cfg Config) *Coordinator {
	return &Coordinator{store: store, cfg: cfg}
}

// candidate is a row that passed structural validation.
type candidate struct {
	index int // zero-based position in the batch
	rec   model.RawContactRecord
	email string

	existingID string // non-empty when a stored contact already has this email
	checkErr   error
}

// Import runs the full pipeline for one batch and reports per-row outcomes.
// Rejections never abort sibling rows; the returned error is reserved for
// request-level failures such as context cancellation.
func (co *Coordinator) Import(ctx context.Context, orgID string, rows []any, commonTags []string) (*model.ImportReport, error) {
	log := zap.L().With(
		zap.String("component", "importer"),
		zap.String("organization_id", orgID),
		zap.Int("rows", len(rows)),
	)

	report := &model.ImportReport{
		ValidationErrors:  []model.RowValidationFailure{},
		SkippedDuplicates: []model.DuplicateSkip{},
		DatabaseErrors:    []model.StorageFailure{},
	}

	// Phase 1: pure validation, in input order.
	var candidates []*candidate
	for i, row := range rows {
		if errs := ValidateRow(row, i); len(errs) > 0 {
			report.ValidationErrors = append(report.ValidationErrors, model.RowValidationFailure{
				Row:     i + 1,
				Message: "contact failed validation",
				Errors:  errs,
				Contact: sanitize.Record(row),
			})
			continue
		}
		rec := model.RawContactRecord(row.(map[string]any))
		email, _ := rec.String(model.FieldEmail)
		candidates = append(candidates, &candidate{index: i, rec: rec, email: email})
	}

	// Phase 2: duplicate checks, bounded against the connection pool.
	if err := co.checkDuplicates(ctx, candidates); err != nil {
		return nil, err
	}

	// Phase 3: classify check results and normalize survivors, restoring
	// input order. Emails accepted earlier in the same batch count as
	// duplicates too.
	normalizer := NewNormalizer(orgID, time.Now().UTC())
	seenInBatch := make(map[string]struct{}, len(candidates))
	var accepted []*model.NormalizedContact
	for _, cand := range candidates {
		switch {
		case cand.checkErr != nil:
			report.ValidationErrors = append(report.ValidationErrors, model.RowValidationFailure{
				Row:     cand.index + 1,
				Message: "duplicate check failed",
				Errors: []model.ValidationError{{
					Field:   model.FieldEmail,
					Message: cand.checkErr.Error(),
					Kind:    model.ErrOther,
				}},
				Contact: sanitize.Record(map[string]any(cand.rec)),
			})
		case cand.existingID != "":
			report.SkippedDuplicates = append(report.SkippedDuplicates, model.DuplicateSkip{
				Row:    cand.index + 1,
				Email:  cand.email,
				Reason: duplicateReason,
			})
		default:
			if _, dup := seenInBatch[cand.email]; dup {
				report.SkippedDuplicates = append(report.SkippedDuplicates, model.DuplicateSkip{
					Row:    cand.index + 1,
					Email:  cand.email,
					Reason: duplicateReason,
				})
				continue
			}
			seenInBatch[cand.email] = struct{}{}
			accepted = append(accepted, normalizer.Normalize(cand.rec))
		}
	}

	// Phase 4: insert accepted rows, one transaction per contact. A failed
	// contact is rolled back and reported; the batch continues.
	for i, contact := range accepted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tags := MergeTags(contact.Tags, commonTags)
		if err := co.store.InsertContactWithTags(ctx, contact, tags); err != nil {
			log.Error("contact insert failed",
				zap.String("email", sanitize.MaskEmail(contact.Email)),
				zap.Error(err),
			)
			report.DatabaseErrors = append(report.DatabaseErrors, model.StorageFailure{
				Email:    sanitize.MaskEmail(contact.Email),
				RowIndex: i + 1,
				Message:  "failed to store contact",
				Detail:   err.Error(),
			})
			continue
		}
		report.SuccessCount++
	}

	report.ValidationErrorCount = len(report.ValidationErrors)
	report.DuplicateSkipCount = len(report.SkippedDuplicates)
	report.Success = len(report.DatabaseErrors) == 0

	log.Info("import batch complete",
		zap.Int("stored", report.SuccessCount),
		zap.Int("validation_errors", report.ValidationErrorCount),
		zap.Int("duplicate_skips", report.DuplicateSkipCount),
		zap.Int("storage_errors", len(report.DatabaseErrors)),
		zap.String("status", string(report.Status())),
	)

	return report, nil
}

// checkDuplicates resolves existing contact ids for every candidate. Lookup
// failures are captured per candidate, never propagated, so one flaky check
// cannot fail the batch.
func (co *Coordinator) checkDuplicates(ctx context.Context, candidates []*candidate) error {
	concurrency := co.cfg.DuplicateCheckConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    co.cfg.DuplicateCheckRetries + 1,
		InitialBackoff: 100 * time.Millisecond,
		OnRetry:        resilience.RetryLogger("importer", "contact lookup"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, cand := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			id, err := resilience.DoVal(gctx, retryCfg, func(ctx context.Context) (string, error) {
				return co.store.ContactIDByEmail(ctx, cand.email)
			})
			if err != nil {
				cand.checkErr = err
				return nil
			}
			cand.existingID = id
			return nil
		})
	}
	return g.Wait()
}
