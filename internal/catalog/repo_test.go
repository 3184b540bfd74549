package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  tags TEXT,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, active bool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	require.NoError(t, db.Exec(`
		INSERT INTO products (id, sku, name, price_cents, stock, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, "SKU-"+id.String()[:8], "Cordless Drill", 15000, stock, active).Error)
	return id
}

func loadProduct(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Product {
	t.Helper()

	var product models.Product
	require.NoError(t, db.Where("id = ?", id).First(&product).Error)
	return &product
}

func TestRepositoryReserveDecrementsStock(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := seedProduct(t, db, 5, true)

	reserved, err := repo.Reserve(ctx, id, 2)
	require.NoError(t, err)
	assert.True(t, reserved)

	product := loadProduct(t, db, id)
	assert.Equal(t, 3, product.Stock)
	assert.True(t, product.IsActive)
}

func TestRepositoryReserveDeactivatesAtZeroStock(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := seedProduct(t, db, 2, true)

	reserved, err := repo.Reserve(ctx, id, 2)
	require.NoError(t, err)
	assert.True(t, reserved)

	product := loadProduct(t, db, id)
	assert.Zero(t, product.Stock)
	assert.False(t, product.IsActive)

	// the now-inactive listing rejects further reservations
	reserved, err = repo.Reserve(ctx, id, 1)
	require.NoError(t, err)
	assert.False(t, reserved)
}

func TestRepositoryReserveInsufficientStock(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := seedProduct(t, db, 1, true)

	reserved, err := repo.Reserve(ctx, id, 2)
	require.NoError(t, err)
	assert.False(t, reserved)

	product := loadProduct(t, db, id)
	assert.Equal(t, 1, product.Stock)
	assert.True(t, product.IsActive)
}

func TestRepositoryReleaseRestoresStockAndReactivates(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := seedProduct(t, db, 3, true)
	reserved, err := repo.Reserve(ctx, id, 3)
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, repo.Release(ctx, id, 3))

	product := loadProduct(t, db, id)
	assert.Equal(t, 3, product.Stock)
	assert.True(t, product.IsActive)
}
