package service

import (
	"github.com/flexprice/lockbox/internal/cache"
	"github.com/flexprice/lockbox/internal/config"
	"github.com/flexprice/lockbox/internal/domain/lockbox"
	"github.com/flexprice/lockbox/internal/domain/payment"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/postgres"
	"github.com/flexprice/lockbox/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	// Sentry may be nil, which reports nothing
	Sentry *sentry.Service
	// Cache holds payment method lookups
	Cache cache.Cache

	// Repositories
	LockboxRepo       lockbox.Repository
	PaymentMethodRepo payment.Repository
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	lockboxRepo lockbox.Repository,
	paymentMethodRepo payment.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:            logger,
		Config:            config,
		DB:                db,
		Sentry:            sentry,
		Cache:             cache.NewInMemoryCache(config.Lockbox.PaymentMethodCacheTTL),
		LockboxRepo:       lockboxRepo,
		PaymentMethodRepo: paymentMethodRepo,
	}
}
