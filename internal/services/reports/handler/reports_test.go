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
	ledger "gestvendas/internal/services/ledger/handler"
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

func newTestReports(t *testing.T) (*ReportsHandler, *ledger.LedgerHandler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewReportsHandler(db, nil, logger), ledger.NewLedgerHandler(db, nil, logger, false), db
}

func seedWorld(t *testing.T, db *gorm.DB) (models.Customer, models.Product) {
	t.Helper()
	category := models.Category{Name: "Beverages", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	customer := models.Customer{Name: "Maria Santos", Country: "Portugal", CustomerType: "individual", IsActive: true}
	require.NoError(t, db.Create(&customer).Error)
	product := models.Product{
		Code:          "P-001",
		Name:          "Espresso Beans",
		CategoryID:    category.ID,
		Unit:          "unit",
		PurchasePrice: decimal.RequireFromString("6.00"),
		SalePrice:     decimal.RequireFromString("10.00"),
		StockQuantity: 100,
		MinStock:      5,
		MaxStock:      200,
		TaxRate:       decimal.NewFromInt(23),
		IsActive:      true,
	}
	require.NoError(t, db.Create(&product).Error)
	return customer, product
}

func TestDashboardExcludesCancelledSales(t *testing.T) {
	reports, ledgerHandler, db := newTestReports(t)
	customer, product := seedWorld(t, db)

	post := func(qty int) *models.Sale {
		sale, err := ledgerHandler.PostSale(context.Background(), ledger.PostSaleRequest{
			CustomerID: customer.ID,
			UserID:     1,
			Items:      []ledger.LineItemRequest{{ProductID: product.ID, Quantity: qty}},
		})
		require.NoError(t, err)
		return sale
	}

	post(3) // 36.90
	voided := post(2)
	_, err := ledgerHandler.ReverseSale(context.Background(), voided.ID, 1, "")
	require.NoError(t, err)

	stats, err := reports.Dashboard(context.Background())
	require.NoError(t, err)

	assert.True(t, stats.TotalSales.Equal(decimal.RequireFromString("36.90")), "total %s", stats.TotalSales)
	assert.True(t, stats.MonthSales.Equal(decimal.RequireFromString("36.90")))
	assert.Equal(t, int64(1), stats.PendingSalesCount)
	assert.Equal(t, int64(1), stats.ProductCount)
	assert.Equal(t, int64(1), stats.CustomerCount)
	assert.Equal(t, int64(0), stats.LowStockCount)
	assert.NotEmpty(t, stats.RecentSales)
}

func TestMonthlySalesBucketsWindow(t *testing.T) {
	reports, ledgerHandler, db := newTestReports(t)
	customer, product := seedWorld(t, db)

	_, err := ledgerHandler.PostSale(context.Background(), ledger.PostSaleRequest{
		CustomerID: customer.ID,
		UserID:     1,
		Items:      []ledger.LineItemRequest{{ProductID: product.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	totals, err := reports.MonthlySales(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, totals, 6)

	current := totals[len(totals)-1]
	assert.True(t, current.Total.Equal(decimal.RequireFromString("36.90")), "current month %s", current.Total)
	for _, monthly := range totals[:len(totals)-1] {
		assert.True(t, monthly.Total.IsZero())
	}
}

func TestTopProductsRanksByQuantity(t *testing.T) {
	reports, ledgerHandler, db := newTestReports(t)
	customer, product := seedWorld(t, db)

	second := models.Product{
		Code:          "P-002",
		Name:          "Filter Coffee",
		CategoryID:    product.CategoryID,
		Unit:          "unit",
		SalePrice:     decimal.RequireFromString("5.00"),
		StockQuantity: 100,
		MinStock:      5,
		MaxStock:      200,
		TaxRate:       decimal.NewFromInt(23),
		IsActive:      true,
	}
	require.NoError(t, db.Create(&second).Error)

	_, err := ledgerHandler.PostSale(context.Background(), ledger.PostSaleRequest{
		CustomerID: customer.ID,
		UserID:     1,
		Items: []ledger.LineItemRequest{
			{ProductID: product.ID, Quantity: 2},
			{ProductID: second.ID, Quantity: 7},
		},
	})
	require.NoError(t, err)

	rows, err := reports.TopProducts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ProductID)
	assert.Equal(t, int64(7), rows[0].QuantitySold)
	assert.Equal(t, "Filter Coffee", rows[0].Name)
}
