package paymentmethods

import (
	"context"
	"fmt"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
)

// Service exposes the payment method registry.
type Service interface {
	ListActive(ctx context.Context) ([]models.PaymentMethod, error)
}

type service struct {
	repo Repository
}

// NewService builds the payment methods service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment methods repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.PaymentMethod, error) {
	methods, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	return methods, nil
}
