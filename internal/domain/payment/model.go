package payment

import (
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/types"
)

// Method is a stored bank account a customer pays from
type Method struct {
	// Unique identifier for this payment method
	ID string `db:"id" json:"id"`
	// The customer_id of the account owner
	CustomerID string `db:"customer_id" json:"customer_id"`
	// The account_number as printed on checks
	AccountNumber string `db:"account_number" json:"account_number"`
	// The routing_number of the bank holding the account
	RoutingNumber string `db:"routing_number" json:"routing_number"`

	types.BaseModel
}

// Validate validates the payment method
func (m *Method) Validate() error {
	if m.AccountNumber == "" {
		return ierr.NewError("invalid account number").
			WithHint("Account number is required").
			Mark(ierr.ErrValidation)
	}
	if m.RoutingNumber == "" {
		return ierr.NewError("invalid routing number").
			WithHint("Routing number is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
