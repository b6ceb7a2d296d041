package handler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gestvendas/internal/database"
	"gestvendas/internal/database/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestCatalog(t *testing.T) (*CatalogHandler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewCatalogHandler(db, nil, newTestLogger()), db
}

func seedCategory(t *testing.T, db *gorm.DB) models.Category {
	t.Helper()
	category := models.Category{Name: "Beverages", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	return category
}

func seedProduct(t *testing.T, db *gorm.DB, categoryID int64, code string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		Code:          code,
		Name:          "Product " + code,
		CategoryID:    categoryID,
		Unit:          "unit",
		PurchasePrice: decimal.RequireFromString("6.00"),
		SalePrice:     decimal.RequireFromString("10.00"),
		StockQuantity: stock,
		MinStock:      5,
		MaxStock:      100,
		TaxRate:       decimal.NewFromInt(23),
		IsActive:      true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestProductProfitMargin(t *testing.T) {
	product := models.Product{
		PurchasePrice: decimal.RequireFromString("6.00"),
		SalePrice:     decimal.RequireFromString("10.00"),
	}
	assert.True(t, product.ProfitMargin().Equal(decimal.RequireFromString("66.67")),
		"got %s", product.ProfitMargin())

	free := models.Product{SalePrice: decimal.NewFromInt(10)}
	assert.True(t, free.ProfitMargin().IsZero())
}

func TestProductStockStatus(t *testing.T) {
	product := models.Product{MinStock: 5, MaxStock: 100}

	product.StockQuantity = 3
	assert.Equal(t, models.StockStatusLow, product.StockStatus())

	product.StockQuantity = 5
	assert.Equal(t, models.StockStatusLow, product.StockStatus())

	product.StockQuantity = 50
	assert.Equal(t, models.StockStatusNormal, product.StockStatus())

	product.StockQuantity = 100
	assert.Equal(t, models.StockStatusHigh, product.StockStatus())
}

func TestCreateProductDefaults(t *testing.T) {
	handler, db := newTestCatalog(t)
	category := seedCategory(t, db)

	product, err := handler.CreateProduct(context.Background(), CreateProductRequest{
		Code:          "P-001",
		Name:          "Espresso Beans",
		CategoryID:    category.ID,
		PurchasePrice: decimal.RequireFromString("6.00"),
		SalePrice:     decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, "unit", product.Unit)
	assert.Equal(t, 5, product.MinStock)
	assert.Equal(t, 100, product.MaxStock)
	assert.True(t, product.TaxRate.Equal(decimal.NewFromInt(23)))
	assert.True(t, product.IsActive)
}

func TestCreateProductDuplicateCode(t *testing.T) {
	handler, db := newTestCatalog(t)
	category := seedCategory(t, db)
	seedProduct(t, db, category.ID, "P-001", 10)

	_, err := handler.CreateProduct(context.Background(), CreateProductRequest{
		Code:          "P-001",
		Name:          "Another",
		CategoryID:    category.ID,
		PurchasePrice: decimal.NewFromInt(1),
		SalePrice:     decimal.NewFromInt(2),
	})
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateProductUnknownCategory(t *testing.T) {
	handler, _ := newTestCatalog(t)

	_, err := handler.CreateProduct(context.Background(), CreateProductRequest{
		Code:       "P-001",
		Name:       "Orphan",
		CategoryID: 999,
		SalePrice:  decimal.NewFromInt(2),
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestAdjustStockDecrementsAndReads(t *testing.T) {
	_, db := newTestCatalog(t)
	category := seedCategory(t, db)
	product := seedProduct(t, db, category.ID, "P-001", 10)

	remaining, err := AdjustStock(db, product.ID, -3, false)
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)

	remaining, err = AdjustStock(db, product.ID, 5, false)
	require.NoError(t, err)
	assert.Equal(t, 12, remaining)
}

func TestAdjustStockInsufficient(t *testing.T) {
	_, db := newTestCatalog(t)
	category := seedCategory(t, db)
	product := seedProduct(t, db, category.ID, "P-001", 10)

	_, err := AdjustStock(db, product.ID, -15, false)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 10, reloaded.StockQuantity, "failed adjustment must not change stock")
}

func TestAdjustStockAllowNegative(t *testing.T) {
	_, db := newTestCatalog(t)
	category := seedCategory(t, db)
	product := seedProduct(t, db, category.ID, "P-001", 10)

	remaining, err := AdjustStock(db, product.ID, -15, true)
	require.NoError(t, err)
	assert.Equal(t, -5, remaining)
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	_, db := newTestCatalog(t)

	_, err := AdjustStock(db, 999, -1, false)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListLowStock(t *testing.T) {
	handler, db := newTestCatalog(t)
	category := seedCategory(t, db)
	low := seedProduct(t, db, category.ID, "P-LOW", 2)
	seedProduct(t, db, category.ID, "P-OK", 50)

	inactive := seedProduct(t, db, category.ID, "P-GONE", 1)
	require.NoError(t, db.Model(&inactive).Update("is_active", false).Error)

	products, err := handler.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, low.ID, products[0].ID)
}

func TestDeactivateProductNotFound(t *testing.T) {
	handler, _ := newTestCatalog(t)
	assert.ErrorIs(t, handler.DeactivateProduct(context.Background(), 999), ErrProductNotFound)
}

func TestListProductsSearchAndPaging(t *testing.T) {
	handler, db := newTestCatalog(t)
	category := seedCategory(t, db)
	for i := 1; i <= 5; i++ {
		seedProduct(t, db, category.ID, fmt.Sprintf("P-%03d", i), 10)
	}

	products, total, err := handler.ListProducts(context.Background(), ListProductsRequest{
		Search:   "P-00",
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, products, 2)
}
