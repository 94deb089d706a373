package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flexprice/lockbox/internal/api"
	v1 "github.com/flexprice/lockbox/internal/api/v1"
	"github.com/flexprice/lockbox/internal/config"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/postgres"
	"github.com/flexprice/lockbox/internal/repository"
	"github.com/flexprice/lockbox/internal/s3"
	"github.com/flexprice/lockbox/internal/sentry"
	"github.com/flexprice/lockbox/internal/service"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/flexprice/lockbox/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// File sources
			provideS3Service,

			// Repositories
			repository.NewLockboxRepository,
			repository.NewPaymentMethodRepository,
		),
		// Monitoring
		sentry.Module(),
		postgres.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewLockboxService,
			service.NewPaymentMethodService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideS3Service(cfg *config.Configuration, log *logger.Logger) (s3.Service, error) {
	return s3.NewService(context.Background(), cfg, log)
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	db *postgres.DB,
	s3Service s3.Service,
	lockboxService service.LockboxService,
	paymentMethodService service.PaymentMethodService,
) api.Handlers {
	return api.Handlers{
		Health:        v1.NewHealthHandler(db, logger),
		Lockbox:       v1.NewLockboxHandler(lockboxService, s3Service, cfg, logger),
		PaymentMethod: v1.NewPaymentMethodHandler(paymentMethodService, logger),
	}
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
