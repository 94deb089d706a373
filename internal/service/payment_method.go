package service

import (
	"context"

	"github.com/flexprice/lockbox/internal/api/dto"
	ierr "github.com/flexprice/lockbox/internal/errors"
)

// PaymentMethodService registers the accounts lockbox checks are drawn on
type PaymentMethodService interface {
	CreatePaymentMethod(ctx context.Context, req *dto.CreatePaymentMethodRequest) (*dto.PaymentMethodResponse, error)
}

type paymentMethodService struct {
	ServiceParams
}

func NewPaymentMethodService(params ServiceParams) PaymentMethodService {
	return &paymentMethodService{ServiceParams: params}
}

func (s *paymentMethodService) CreatePaymentMethod(ctx context.Context, req *dto.CreatePaymentMethodRequest) (*dto.PaymentMethodResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	_, err := s.PaymentMethodRepo.FindByAccount(ctx, req.AccountNumber, req.RoutingNumber)
	if err == nil {
		return nil, ierr.NewError("payment method already exists").
			WithHint("A payment method for this account already exists").
			WithReportableDetails(map[string]any{
				"account_number": req.AccountNumber,
				"routing_number": req.RoutingNumber,
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	method := req.ToPaymentMethod(ctx)
	if err := method.Validate(); err != nil {
		return nil, err
	}
	if err := s.PaymentMethodRepo.Create(ctx, method); err != nil {
		return nil, err
	}

	s.Logger.Infow("created payment method",
		"payment_method_id", method.ID,
		"customer_id", method.CustomerID,
	)
	return &dto.PaymentMethodResponse{Method: method}, nil
}
