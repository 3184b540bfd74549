package paymentmethods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
)

// Repository defines persistence operations for payment methods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context) ([]models.PaymentMethod, error)
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.PaymentMethod, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment methods repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListActive(ctx context.Context) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&methods).Error
	return methods, err
}

func (r *repository) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.PaymentMethod, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var methods []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&methods).Error
	return methods, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&method).Error
	if err != nil {
		return nil, err
	}
	return &method, nil
}
