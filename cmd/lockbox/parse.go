package main

import (
	"github.com/flexprice/lockbox/internal/api/dto"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/service"
	"github.com/spf13/cobra"
)

var strict bool

// parseResult is the parse outcome of one file
type parseResult struct {
	FileName string                 `json:"file_name"`
	Result   *dto.ParseFileResponse `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Details  map[string]any         `json:"details,omitempty"`
}

var parseCmd = &cobra.Command{
	Use:   "parse <file|s3://bucket/key>...",
	Short: "Validate lockbox files without importing them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("strict") {
			cfg.Lockbox.StrictRecordTypes = strict
		}

		ctx := commandContext(cmd)
		reader := &fileReader{cfg: cfg, log: log}
		svc := service.NewLockboxService(service.ServiceParams{Logger: log, Config: cfg})

		results := make([]*parseResult, 0, len(args))
		failed := 0
		for _, location := range args {
			req, err := reader.read(ctx, location)
			if err != nil {
				return err
			}

			res := &parseResult{FileName: req.FileName}
			res.Result, err = svc.ParseFile(ctx, &req.ParseFileRequest)
			if err != nil {
				failed++
				res.Error = err.Error()
				res.Details = ierr.ReportableDetails(err)
			}
			results = append(results, res)
		}

		if err := printJSON(cmd, results); err != nil {
			return err
		}
		if failed > 0 {
			return ierr.NewErrorf("%d of %d files failed validation", failed, len(args)).
				Mark(ierr.ErrValidation)
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().BoolVar(&strict, "strict", false, "Reject unknown record types instead of skipping them")
	rootCmd.AddCommand(parseCmd)
}
