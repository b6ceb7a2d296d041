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

type env struct {
	documents *DocumentsHandler
	ledger    *ledger.LedgerHandler
	db        *gorm.DB
	customer  models.Customer
	supplier  models.Supplier
	product   models.Product
}

func newTestEnv(t *testing.T) env {
	t.Helper()
	db := newTestDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	category := models.Category{Name: "Beverages", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	customer := models.Customer{Name: "Maria Santos", Country: "Portugal", CustomerType: "individual", IsActive: true}
	require.NoError(t, db.Create(&customer).Error)
	supplier := models.Supplier{Name: "Distribuidora Norte", Country: "Portugal", IsActive: true}
	require.NoError(t, db.Create(&supplier).Error)
	product := models.Product{
		Code:          "P-001",
		Name:          "Espresso Beans",
		CategoryID:    category.ID,
		Unit:          "unit",
		PurchasePrice: decimal.RequireFromString("6.00"),
		SalePrice:     decimal.RequireFromString("10.00"),
		StockQuantity: 50,
		MinStock:      5,
		MaxStock:      100,
		TaxRate:       decimal.NewFromInt(23),
		IsActive:      true,
	}
	require.NoError(t, db.Create(&product).Error)

	return env{
		documents: NewDocumentsHandler(db, nil, logger),
		ledger:    ledger.NewLedgerHandler(db, nil, logger, false),
		db:        db,
		customer:  customer,
		supplier:  supplier,
		product:   product,
	}
}

func (e env) postSale(t *testing.T, qty int) *models.Sale {
	t.Helper()
	sale, err := e.ledger.PostSale(context.Background(), ledger.PostSaleRequest{
		CustomerID: e.customer.ID,
		UserID:     1,
		Items:      []ledger.LineItemRequest{{ProductID: e.product.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return sale
}

func TestGetSalePreloadsItems(t *testing.T) {
	e := newTestEnv(t)
	posted := e.postSale(t, 2)

	sale, err := e.documents.GetSale(context.Background(), posted.ID)
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	require.NotNil(t, sale.Items[0].Product)
	assert.Equal(t, e.product.ID, sale.Items[0].Product.ID)
	require.NotNil(t, sale.Customer)
	assert.Equal(t, e.customer.Name, sale.Customer.Name)

	_, err = e.documents.GetSale(context.Background(), 999)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestGetSaleByInvoiceNumber(t *testing.T) {
	e := newTestEnv(t)
	posted := e.postSale(t, 1)

	sale, err := e.documents.GetSaleByInvoiceNumber(context.Background(), posted.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, posted.ID, sale.ID)
}

func TestListSalesFilters(t *testing.T) {
	e := newTestEnv(t)
	first := e.postSale(t, 1)
	e.postSale(t, 2)

	_, err := e.ledger.SetSaleStatus(context.Background(), first.ID, models.SaleStatusPaid, 1)
	require.NoError(t, err)

	paid, total, err := e.documents.ListSales(context.Background(), ListSalesRequest{Status: models.SaleStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, paid, 1)
	assert.Equal(t, first.ID, paid[0].ID)

	all, total, err := e.documents.ListSales(context.Background(), ListSalesRequest{CustomerID: e.customer.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}

func TestDeleteSaleRequiresReversal(t *testing.T) {
	e := newTestEnv(t)
	sale := e.postSale(t, 3)

	err := e.documents.DeleteSale(context.Background(), sale.ID)
	assert.ErrorIs(t, err, ErrDocumentNotReversed)

	_, err = e.ledger.ReverseSale(context.Background(), sale.ID, 1, "posted in error")
	require.NoError(t, err)

	require.NoError(t, e.documents.DeleteSale(context.Background(), sale.ID))

	_, err = e.documents.GetSale(context.Background(), sale.ID)
	assert.ErrorIs(t, err, ErrSaleNotFound)

	var items int64
	require.NoError(t, e.db.Model(&models.SaleItem{}).Where("sale_id = ?", sale.ID).Count(&items).Error)
	assert.Zero(t, items, "items must go with the header")

	// The audit trail outlives the document.
	var movements int64
	require.NoError(t, e.db.Model(&models.InventoryMovement{}).
		Where("reference_type = ? AND reference_id = ?", models.ReferenceTypeSale, sale.ID).
		Count(&movements).Error)
	assert.Equal(t, int64(2), movements)
}

func TestDeletePurchaseRequiresReversal(t *testing.T) {
	e := newTestEnv(t)

	purchase, err := e.ledger.PostPurchase(context.Background(), ledger.PostPurchaseRequest{
		SupplierID: e.supplier.ID,
		UserID:     1,
		Items:      []ledger.LineItemRequest{{ProductID: e.product.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	err = e.documents.DeletePurchase(context.Background(), purchase.ID)
	assert.ErrorIs(t, err, ErrDocumentNotReversed)

	_, err = e.ledger.ReversePurchase(context.Background(), purchase.ID, 1, "")
	require.NoError(t, err)

	require.NoError(t, e.documents.DeletePurchase(context.Background(), purchase.ID))

	_, err = e.documents.GetPurchase(context.Background(), purchase.ID)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}
