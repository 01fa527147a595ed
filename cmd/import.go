package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-import/internal/fileimport"
	"github.com/sells-group/crm-import/internal/importer"
	"github.com/sells-group/crm-import/internal/model"
	"github.com/sells-group/crm-import/internal/store"
)

var (
	importFilePath string
	importOrgID    string
	importTags     []string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import contacts from a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := runImport(ctx, st, importFilePath, importOrgID, importTags)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "encode report")
		}

		if report.Status() == model.ImportStatusFailed {
			return eris.Errorf("%d contacts failed to store", len(report.DatabaseErrors))
		}
		return nil
	},
}

// runImport loads rows from a file and pushes them through the batch
// coordinator.
func runImport(ctx context.Context, st store.Store, path, orgID string, tags []string) (*model.ImportReport, error) {
	rows, err := fileimport.Rows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("no contact rows in %s", path)
	}

	coordinator := importer.NewCoordinator(st, cfg.Import)
	report, err := coordinator.Import(ctx, orgID, rows, tags)
	if err != nil {
		return nil, eris.Wrap(err, "import batch")
	}

	zap.L().Info("file import complete",
		zap.String("file", path),
		zap.Int("stored", report.SuccessCount),
		zap.Int("validation_errors", report.ValidationErrorCount),
		zap.Int("duplicate_skips", report.DuplicateSkipCount),
	)
	return report, nil
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to CSV or XLSX file (required)")
	importCmd.Flags().StringVar(&importOrgID, "org", model.DefaultOrganizationID, "organization the contacts belong to")
	importCmd.Flags().StringSliceVar(&importTags, "tags", nil, "tags applied to every imported contact")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
