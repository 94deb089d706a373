package testutil

import (
	"context"

	"github.com/flexprice/lockbox/internal/domain/payment"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/types"
)

// InMemoryPaymentMethodStore implements payment.Repository
type InMemoryPaymentMethodStore struct {
	*InMemoryStore[*payment.Method]
	// lookups counts FindByAccount calls so tests can observe caching
	lookups int
}

func NewInMemoryPaymentMethodStore() *InMemoryPaymentMethodStore {
	return &InMemoryPaymentMethodStore{
		InMemoryStore: NewInMemoryStore[*payment.Method](),
	}
}

func (s *InMemoryPaymentMethodStore) Create(ctx context.Context, method *payment.Method) error {
	if method == nil {
		return ierr.NewError("payment method cannot be nil").
			WithHint("Payment method cannot be nil").
			Mark(ierr.ErrValidation)
	}
	c := *method
	return s.InMemoryStore.Create(ctx, method.ID, &c)
}

func (s *InMemoryPaymentMethodStore) FindByAccount(ctx context.Context, accountNumber, routingNumber string) (*payment.Method, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()

	found, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, m *payment.Method, _ interface{}) bool {
		return m.AccountNumber == accountNumber &&
			m.RoutingNumber == routingNumber &&
			m.TenantID == types.GetTenantID(ctx) &&
			m.Status == types.StatusPublished
	}, nil)
	if len(found) == 0 {
		return nil, ierr.NewError("payment method not found").
			WithHint("Payment method not found").
			WithReportableDetails(map[string]any{
				"account_number": accountNumber,
				"routing_number": routingNumber,
			}).
			Mark(ierr.ErrNotFound)
	}
	c := *found[0]
	return &c, nil
}

// Lookups reports how many times FindByAccount reached the store
func (s *InMemoryPaymentMethodStore) Lookups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookups
}

func (s *InMemoryPaymentMethodStore) Clear() {
	s.InMemoryStore.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = 0
}
