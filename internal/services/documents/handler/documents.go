package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gestvendas/internal/database/models"
	movement "gestvendas/internal/services/movement/handler"
)

var (
	ErrSaleNotFound        = errors.New("sale not found")
	ErrPurchaseNotFound    = errors.New("purchase not found")
	ErrDocumentNotReversed = errors.New("document still has net stock effect; reverse it first")
)

// DocumentsHandler is the read and delete side of posted documents.
// Posting and reversal live in the ledger service; this one never
// touches stock.
type DocumentsHandler struct {
	db    *gorm.DB
	redis *redis.Client
	log   *logrus.Logger
}

func NewDocumentsHandler(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		db:    db,
		redis: redisClient,
		log:   logger,
	}
}

func (s *DocumentsHandler) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.WithContext(ctx).Where("id = ?", id).
		Preload("Items.Product").
		Preload("Customer").
		First(&sale).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &sale, nil
}

func (s *DocumentsHandler) GetSaleByInvoiceNumber(ctx context.Context, invoiceNumber string) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.WithContext(ctx).Where("invoice_number = ?", invoiceNumber).
		Preload("Items.Product").
		Preload("Customer").
		First(&sale).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale by invoice number: %w", err)
	}
	return &sale, nil
}

func (s *DocumentsHandler) GetPurchase(ctx context.Context, id int64) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := s.db.WithContext(ctx).Where("id = ?", id).
		Preload("Items.Product").
		Preload("Supplier").
		First(&purchase).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return &purchase, nil
}

type ListSalesRequest struct {
	Status     string
	CustomerID int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

func (s *DocumentsHandler) ListSales(ctx context.Context, req ListSalesRequest) ([]models.Sale, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Sale{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.CustomerID > 0 {
		query = query.Where("customer_id = ?", req.CustomerID)
	}
	if req.DateFrom != nil {
		query = query.Where("sale_date >= ?", *req.DateFrom)
	}
	if req.DateTo != nil {
		query = query.Where("sale_date <= ?", *req.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	var sales []models.Sale
	if err := query.Order("sale_date DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Preload("Customer").
		Preload("Items").
		Find(&sales).Error; err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	return sales, total, nil
}

type ListPurchasesRequest struct {
	Status     string
	SupplierID int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

func (s *DocumentsHandler) ListPurchases(ctx context.Context, req ListPurchasesRequest) ([]models.Purchase, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Purchase{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.SupplierID > 0 {
		query = query.Where("supplier_id = ?", req.SupplierID)
	}
	if req.DateFrom != nil {
		query = query.Where("purchase_date >= ?", *req.DateFrom)
	}
	if req.DateTo != nil {
		query = query.Where("purchase_date <= ?", *req.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	var purchases []models.Purchase
	if err := query.Order("purchase_date DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Preload("Supplier").
		Preload("Items").
		Find(&purchases).Error; err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, total, nil
}

// DeleteSale removes a sale header and its items. It refuses while
// the sale still has a net stock effect: the caller reverses first,
// which leaves the movement trail intact, then deletes. Movements
// referencing the document are kept.
func (s *DocumentsHandler) DeleteSale(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		if err := tx.Where("id = ?", id).First(&sale).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrSaleNotFound
			}
			return fmt.Errorf("load sale: %w", err)
		}

		net, err := movement.DocumentMovementSum(tx, models.ReferenceTypeSale, sale.ID)
		if err != nil {
			return err
		}
		if net != 0 {
			return ErrDocumentNotReversed
		}

		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
			return fmt.Errorf("delete sale items: %w", err)
		}
		if err := tx.Delete(&sale).Error; err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}
		return nil
	})
}

func (s *DocumentsHandler) DeletePurchase(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := tx.Where("id = ?", id).First(&purchase).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrPurchaseNotFound
			}
			return fmt.Errorf("load purchase: %w", err)
		}

		net, err := movement.DocumentMovementSum(tx, models.ReferenceTypePurchase, purchase.ID)
		if err != nil {
			return err
		}
		if net != 0 {
			return ErrDocumentNotReversed
		}

		if err := tx.Where("purchase_id = ?", purchase.ID).Delete(&models.PurchaseItem{}).Error; err != nil {
			return fmt.Errorf("delete purchase items: %w", err)
		}
		if err := tx.Delete(&purchase).Error; err != nil {
			return fmt.Errorf("delete purchase: %w", err)
		}
		return nil
	})
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
