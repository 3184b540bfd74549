package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
	"github.com/helpnet/helpnet-backend/pkg/logger"
)

// cacheStore is the slice of the redis client the catalog needs.
type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(scope, id string) string
}

// Service exposes catalog reads with a short-lived cache in front of the DB.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, limit int) ([]models.Product, error)
	InvalidateProduct(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	cache    cacheStore
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService builds the catalog read service. Cache is optional; reads fall
// through to the repository when it is absent or unavailable.
func NewService(repo Repository, cache cacheStore, cacheTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logg:     logg,
	}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	if s.cache != nil {
		key := s.cache.CacheKey("product", id.String())
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
			var product models.Product
			if err := json.Unmarshal([]byte(raw), &product); err == nil {
				return &product, nil
			}
		}
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if raw, err := json.Marshal(product); err == nil {
			key := s.cache.CacheKey("product", id.String())
			if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil && s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "product_id", id.String()), "product cache write failed")
			}
		}
	}

	return product, nil
}

func (s *service) ListProducts(ctx context.Context, limit int) ([]models.Product, error) {
	products, err := s.repo.ListActive(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

// InvalidateProduct drops the cached entry after a stock or price change.
func (s *service) InvalidateProduct(ctx context.Context, id uuid.UUID) error {
	if s.cache == nil || id == uuid.Nil {
		return nil
	}
	return s.cache.Del(ctx, s.cache.CacheKey("product", id.String()))
}
