package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
)

type stubNotificationsRepo struct {
	rows    []models.Notification
	updated bool
	marked  uuid.UUID
}

func (s *stubNotificationsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubNotificationsRepo) CreateTx(ctx context.Context, tx *gorm.DB, notification models.Notification) error {
	s.rows = append(s.rows, notification)
	return nil
}

func (s *stubNotificationsRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	return s.rows, nil
}

func (s *stubNotificationsRepo) MarkRead(ctx context.Context, notificationID, recipientID uuid.UUID) (bool, error) {
	s.marked = notificationID
	return s.updated, nil
}

func TestListRequiresRecipient(t *testing.T) {
	svc, err := NewService(&stubNotificationsRepo{})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	_, err = svc.List(context.Background(), uuid.Nil, 10)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	repo := &stubNotificationsRepo{updated: true}
	svc, _ := NewService(repo)
	id := uuid.New()
	if err := svc.MarkRead(context.Background(), id, uuid.New()); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.marked != id {
		t.Fatalf("unexpected marked id %s", repo.marked)
	}
}

func TestMarkReadNotFound(t *testing.T) {
	svc, _ := NewService(&stubNotificationsRepo{updated: false})
	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}
