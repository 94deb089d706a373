package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flexprice/lockbox/internal/config"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	tenantID string
	userID   string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "lockbox",
	Short: "Parse and import bank lockbox remittance files",
	Long: `lockbox validates fixed-width bank lockbox remittance files and imports
their batches, checks and invoice applications.

Configuration is read from config.yaml and LOCKBOX_* environment variables.

Examples:
  lockbox parse remit-20241019.txt
  lockbox import remit-20241019.txt s3://remittance/2024/10/20.txt
  lockbox migrate up`,
	SilenceUsage: true,
}

func init() {
	time.Local = time.UTC

	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", types.DefaultTenantID, "Tenant to import for")
	rootCmd.PersistentFlags().StringVar(&userID, "user", types.DefaultUserID, "User recorded as the creator")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the logger for a command
func loadConfig() (*config.Configuration, *logger.Logger, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Logging.Level = types.LogLevelDebug
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	ctx := types.SetTenantID(cmd.Context(), tenantID)
	ctx = types.SetUserID(ctx, userID)
	return types.SetRequestID(ctx, types.GenerateUUID())
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
