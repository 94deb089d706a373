package dto

import (
	"context"

	"github.com/flexprice/lockbox/internal/domain/payment"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/flexprice/lockbox/internal/validator"
)

// CreatePaymentMethodRequest registers the bank account a customer pays from
type CreatePaymentMethodRequest struct {
	CustomerID    string `json:"customer_id" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,max=15"`
	RoutingNumber string `json:"routing_number" validate:"required,max=10"`
}

func (r *CreatePaymentMethodRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CreatePaymentMethodRequest) ToPaymentMethod(ctx context.Context) *payment.Method {
	return &payment.Method{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_METHOD),
		CustomerID:    r.CustomerID,
		AccountNumber: r.AccountNumber,
		RoutingNumber: r.RoutingNumber,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// PaymentMethodResponse represents a payment method in responses
type PaymentMethodResponse struct {
	*payment.Method
}
