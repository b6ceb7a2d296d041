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
	catalog "gestvendas/internal/services/catalog/handler"
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

func newTestMovements(t *testing.T) (*MovementHandler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMovementHandler(db, nil, logger, false), db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) models.Product {
	t.Helper()
	category := models.Category{Name: "Beverages", IsActive: true}
	require.NoError(t, db.Create(&category).Error)

	product := models.Product{
		Code:          "P-001",
		Name:          "Espresso Beans",
		CategoryID:    category.ID,
		Unit:          "unit",
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

func TestRecordAdjustmentMutatesStockAtomically(t *testing.T) {
	handler, db := newTestMovements(t)
	product := seedProduct(t, db, 10)

	notes := "stocktake correction"
	mv, err := handler.RecordAdjustment(context.Background(), RecordAdjustmentRequest{
		ProductID: product.ID,
		Quantity:  -4,
		Notes:     &notes,
		UserID:    1,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MovementTypeAdjustment, mv.MovementType)
	assert.Equal(t, models.ReferenceTypeManual, mv.ReferenceType)
	assert.Equal(t, -4, mv.Quantity)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 6, reloaded.StockQuantity)
}

func TestRecordAdjustmentRejectsZeroAndOverdraw(t *testing.T) {
	handler, db := newTestMovements(t)
	product := seedProduct(t, db, 10)

	_, err := handler.RecordAdjustment(context.Background(), RecordAdjustmentRequest{
		ProductID: product.ID,
		Quantity:  0,
		UserID:    1,
	})
	assert.ErrorIs(t, err, ErrZeroQuantity)

	_, err = handler.RecordAdjustment(context.Background(), RecordAdjustmentRequest{
		ProductID: product.ID,
		Quantity:  -11,
		UserID:    1,
	})
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)

	var count int64
	require.NoError(t, db.Model(&models.InventoryMovement{}).Count(&count).Error)
	assert.Zero(t, count, "rejected adjustments must not leave movements")

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 10, reloaded.StockQuantity)
}

func TestListForProductChronologicalReplay(t *testing.T) {
	handler, db := newTestMovements(t)
	product := seedProduct(t, db, 20)

	for _, delta := range []int{-5, 3, -2} {
		_, err := handler.RecordAdjustment(context.Background(), RecordAdjustmentRequest{
			ProductID: product.ID,
			Quantity:  delta,
			UserID:    1,
		})
		require.NoError(t, err)
	}

	movements, total, err := handler.ListForProduct(context.Background(), ListMovementsRequest{
		ProductID: product.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, movements, 3)

	// Replaying the signed quantities from the opening stock must land
	// on the current stock.
	running := 20
	for _, mv := range movements {
		running += mv.Quantity
	}
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, reloaded.StockQuantity, running)
}

func TestListForProductRejectsUnknownType(t *testing.T) {
	handler, _ := newTestMovements(t)
	_, _, err := handler.ListForProduct(context.Background(), ListMovementsRequest{
		ProductID:    1,
		MovementType: "sideways",
	})
	assert.ErrorIs(t, err, ErrInvalidMovementType)
}

func TestDocumentMovementSum(t *testing.T) {
	_, db := newTestMovements(t)
	product := seedProduct(t, db, 20)

	for _, qty := range []int{-3, 3} {
		mv := models.InventoryMovement{
			ProductID:     product.ID,
			MovementType:  models.MovementTypeOut,
			Quantity:      qty,
			ReferenceType: models.ReferenceTypeSale,
			ReferenceID:   42,
			UserID:        1,
		}
		require.NoError(t, db.Create(&mv).Error)
	}

	sum, err := DocumentMovementSum(db, models.ReferenceTypeSale, 42)
	require.NoError(t, err)
	assert.Zero(t, sum)

	sum, err = DocumentMovementSum(db, models.ReferenceTypeSale, 777)
	require.NoError(t, err)
	assert.Zero(t, sum, "no movements means zero net effect")
}
