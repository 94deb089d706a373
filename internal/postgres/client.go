package postgres

import (
	"context"

	"github.com/flexprice/lockbox/internal/config"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/sentry"
	"go.uber.org/fx"
)

// IClient defines the transaction boundary used by the services
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// Module provides the database pool and runs pending migrations on start
// when auto migration is enabled
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			NewClient,
		),
		fx.Invoke(registerLifecycle),
	)
}

// NewClient exposes the pool as the transaction boundary, with a Sentry
// span around every transaction
func NewClient(db *DB, svc *sentry.Service, log *logger.Logger) IClient {
	return NewSentryClient(db, svc, log)
}

func registerLifecycle(lc fx.Lifecycle, db *DB, cfg *config.Configuration, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Postgres.AutoMigrate {
				return nil
			}
			m, err := NewMigrator(cfg, log)
			if err != nil {
				return err
			}
			defer m.Close()
			return m.Up()
		},
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}
