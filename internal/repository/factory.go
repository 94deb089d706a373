package repository

import (
	"github.com/flexprice/lockbox/internal/domain/lockbox"
	"github.com/flexprice/lockbox/internal/domain/payment"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/postgres"
	postgresRepo "github.com/flexprice/lockbox/internal/repository/postgres"
)

func NewLockboxRepository(db *postgres.DB, logger *logger.Logger) lockbox.Repository {
	return postgresRepo.NewLockboxRepository(db, logger)
}

func NewPaymentMethodRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentMethodRepository(db, logger)
}
