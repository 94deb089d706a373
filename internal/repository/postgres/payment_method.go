package postgres

import (
	"context"
	"fmt"

	"github.com/flexprice/lockbox/internal/domain/payment"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/postgres"
	"github.com/flexprice/lockbox/internal/types"
)

const paymentMethodColumns = `id, tenant_id, customer_id, account_number, routing_number,
	status, created_at, updated_at, created_by, updated_by`

type paymentMethodRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentMethodRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentMethodRepository{db: db, logger: logger}
}

func (r *paymentMethodRepository) Create(ctx context.Context, method *payment.Method) error {
	r.logger.Debugw("creating payment method",
		"payment_method_id", method.ID,
		"customer_id", method.CustomerID,
	)

	query := fmt.Sprintf(`INSERT INTO payment_methods (%s) VALUES (%s)`,
		paymentMethodColumns, namedValues(paymentMethodColumns))
	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, method); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A payment method for this account already exists").
				WithReportableDetails(map[string]any{
					"account_number": method.AccountNumber,
					"routing_number": method.RoutingNumber,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create payment method").
			WithReportableDetails(map[string]any{
				"payment_method_id": method.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentMethodRepository) FindByAccount(ctx context.Context, accountNumber, routingNumber string) (*payment.Method, error) {
	var method payment.Method
	query := fmt.Sprintf(`SELECT %s FROM payment_methods
		WHERE account_number = $1 AND routing_number = $2 AND tenant_id = $3 AND status = $4
		LIMIT 1`, paymentMethodColumns)

	err := r.db.GetQuerier(ctx).GetContext(ctx, &method, query,
		accountNumber, routingNumber, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		return nil, notFoundOr(err, "Payment method not found", map[string]any{
			"account_number": accountNumber,
			"routing_number": routingNumber,
		})
	}
	return &method, nil
}
