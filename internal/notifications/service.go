package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
)

// Service exposes notification reads for customers and vendors.
type Service interface {
	List(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, recipientID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds the notifications service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	if recipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "recipient identity missing")
	}
	rows, err := s.repo.ListByRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return rows, nil
}

func (s *service) MarkRead(ctx context.Context, notificationID, recipientID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	if recipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "recipient identity missing")
	}
	updated, err := s.repo.MarkRead(ctx, notificationID, recipientID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found or already read")
	}
	return nil
}
