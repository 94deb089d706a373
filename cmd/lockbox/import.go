package main

import (
	"github.com/flexprice/lockbox/internal/api/dto"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/postgres"
	"github.com/flexprice/lockbox/internal/repository"
	"github.com/flexprice/lockbox/internal/sentry"
	"github.com/flexprice/lockbox/internal/service"
	"github.com/spf13/cobra"
)

var (
	runMigrations bool
	concurrency   int
)

var importCmd = &cobra.Command{
	Use:   "import <file|s3://bucket/key>...",
	Short: "Parse lockbox files and store their batches",
	Long: `import parses every file and stores its batches, checks and invoice
applications. Files are imported concurrently and independently: a file that
fails validation is recorded as rejected and does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if concurrency > 0 {
			cfg.Lockbox.ImportConcurrency = concurrency
		}

		if runMigrations {
			m, err := postgres.NewMigrator(cfg, log)
			if err != nil {
				return err
			}
			err = m.Up()
			m.Close()
			if err != nil {
				return err
			}
		}

		db, err := postgres.NewDB(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		reporter := sentry.NewSentryService(cfg, log)
		if err := reporter.Init(); err != nil {
			return err
		}
		defer reporter.Flush()

		ctx := commandContext(cmd)
		reader := &fileReader{cfg: cfg, log: log}
		reqs := make([]*dto.ImportFileRequest, 0, len(args))
		for _, location := range args {
			req, err := reader.read(ctx, location)
			if err != nil {
				return err
			}
			reqs = append(reqs, req)
		}

		params := service.NewServiceParams(log, cfg, postgres.NewClient(db, reporter, log), reporter,
			repository.NewLockboxRepository(db, log),
			repository.NewPaymentMethodRepository(db, log),
		)
		resp := service.NewLockboxService(params).ImportFiles(ctx, reqs)

		if err := printJSON(cmd, resp); err != nil {
			return err
		}
		if resp.Failed > 0 {
			return ierr.NewErrorf("%d of %d files failed to import", resp.Failed, len(reqs)).
				Mark(ierr.ErrValidation)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&runMigrations, "migrate", false, "Apply pending migrations first")
	importCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Files imported at once (default from config)")
	rootCmd.AddCommand(importCmd)
}
