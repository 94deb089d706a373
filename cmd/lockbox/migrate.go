package main

import (
	"fmt"

	"github.com/flexprice/lockbox/internal/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "up"
		if len(args) == 1 {
			action = args[0]
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := postgres.NewMigrator(cfg, log)
		if err != nil {
			return err
		}
		defer m.Close()

		switch action {
		case "down":
			return m.Down()
		case "version":
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		default:
			return m.Up()
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
