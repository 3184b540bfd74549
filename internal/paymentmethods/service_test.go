package paymentmethods

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
)

type stubMethodsRepo struct {
	methods []models.PaymentMethod
	err     error
}

func (s *stubMethodsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubMethodsRepo) ListActive(ctx context.Context) ([]models.PaymentMethod, error) {
	return s.methods, s.err
}

func (s *stubMethodsRepo) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.PaymentMethod, error) {
	panic("not implemented")
}

func (s *stubMethodsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	panic("not implemented")
}

func TestListActive(t *testing.T) {
	repo := &stubMethodsRepo{methods: []models.PaymentMethod{
		{ID: uuid.New(), Name: "Pix"},
		{ID: uuid.New(), Name: "Boleto"},
	}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	methods, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods got %d", len(methods))
	}
}

func TestListActiveWrapsRepoError(t *testing.T) {
	svc, _ := NewService(&stubMethodsRepo{err: errors.New("connection reset")})
	_, err := svc.ListActive(context.Background())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("unexpected error %v", err)
	}
}
