package payment

import (
	"context"
)

// Repository defines the interface for stored payment methods
type Repository interface {
	Create(ctx context.Context, method *Method) error
	// FindByAccount returns the method registered for the account and
	// routing number pair, or a not found error
	FindByAccount(ctx context.Context, accountNumber, routingNumber string) (*Method, error)
}
