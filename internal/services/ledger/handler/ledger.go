package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gestvendas/internal/database/models"
	catalog "gestvendas/internal/services/catalog/handler"
	"gestvendas/internal/utils"
)

const (
	EventSalePosted       = "sale.posted"
	EventSaleReversed     = "sale.reversed"
	EventPurchasePosted   = "purchase.posted"
	EventPurchaseReversed = "purchase.reversed"
	EventStatusChanged    = "document.status-changed"

	invoiceNumberAttempts = 5
)

var (
	ErrEmptyDocument          = errors.New("document must have at least one line item")
	ErrInvalidQuantity        = errors.New("quantity must be a positive integer")
	ErrInvalidUnitPrice       = errors.New("unit price must not be negative")
	ErrInvalidTaxRate         = errors.New("tax rate must not be negative")
	ErrInvalidDiscount        = errors.New("discount must not be negative")
	ErrInactiveCounterparty   = errors.New("counterparty not found or inactive")
	ErrInvoiceNumberExhausted = errors.New("could not allocate a unique invoice number")
	ErrDocumentNotFound       = errors.New("document not found")
	ErrDocumentCancelled      = errors.New("document is already cancelled")
	ErrInvalidStatus          = errors.New("invalid status transition")
)

// LedgerHandler posts sale and purchase documents: it computes line
// and header totals, mutates product stock and appends inventory
// movements, all inside one database transaction.
type LedgerHandler struct {
	db            *gorm.DB
	redis         *redis.Client
	log           *logrus.Logger
	allowNegative bool
}

func NewLedgerHandler(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger, allowNegativeStock bool) *LedgerHandler {
	return &LedgerHandler{
		db:            db,
		redis:         redisClient,
		log:           logger,
		allowNegative: allowNegativeStock,
	}
}

type LineItemRequest struct {
	ProductID int64
	Quantity  int
	// UnitPrice and TaxRate default to the product's current sale or
	// purchase price and tax rate when nil. Whatever values end up on
	// the line are snapshots; later product changes never touch them.
	UnitPrice *decimal.Decimal
	TaxRate   *decimal.Decimal
}

type PostSaleRequest struct {
	CustomerID    int64
	UserID        int64
	SaleDate      time.Time
	DueDate       *time.Time
	PaymentMethod *string
	Notes         *string
	Discount      decimal.Decimal
	Items         []LineItemRequest
}

type PostPurchaseRequest struct {
	SupplierID    int64
	UserID        int64
	PurchaseDate  time.Time
	DueDate       *time.Time
	PaymentMethod *string
	Notes         *string
	Items         []LineItemRequest
}

type lineAmounts struct {
	product    models.Product
	quantity   int
	unitPrice  decimal.Decimal
	taxRate    decimal.Decimal
	preTax     decimal.Decimal
	tax        decimal.Decimal
	totalPrice decimal.Decimal
}

func validateItems(items []LineItemRequest) error {
	if len(items) == 0 {
		return ErrEmptyDocument
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("product %d: %w", item.ProductID, ErrInvalidQuantity)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return fmt.Errorf("product %d: %w", item.ProductID, ErrInvalidUnitPrice)
		}
		if item.TaxRate != nil && item.TaxRate.IsNegative() {
			return fmt.Errorf("product %d: %w", item.ProductID, ErrInvalidTaxRate)
		}
	}
	return nil
}

// computeLine resolves snapshots and derives the line amounts:
// preTax = quantity * unitPrice, tax = preTax * rate / 100,
// totalPrice = preTax + tax.
func computeLine(product models.Product, item LineItemRequest, defaultPrice decimal.Decimal) lineAmounts {
	unitPrice := defaultPrice
	if item.UnitPrice != nil {
		unitPrice = *item.UnitPrice
	}
	taxRate := product.TaxRate
	if item.TaxRate != nil {
		taxRate = *item.TaxRate
	}

	preTax := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	tax := preTax.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)

	return lineAmounts{
		product:    product,
		quantity:   item.Quantity,
		unitPrice:  unitPrice,
		taxRate:    taxRate,
		preTax:     preTax,
		tax:        tax,
		totalPrice: preTax.Add(tax),
	}
}

func loadActiveProduct(tx *gorm.DB, productID int64) (*models.Product, error) {
	var product models.Product
	if err := tx.Where("id = ? AND is_active = ?", productID, true).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product %d: %w", productID, catalog.ErrProductNotFound)
		}
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}
	return &product, nil
}

// allocateInvoiceNumber generates candidates until one does not exist
// yet, bounded by invoiceNumberAttempts. The unique index on
// invoice_number remains the authoritative guard underneath.
func allocateInvoiceNumber(tx *gorm.DB, model interface{}, prefix string) (string, error) {
	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		candidate := utils.GenerateInvoiceNumber(prefix)
		var count int64
		if err := tx.Model(model).Where("invoice_number = ?", candidate).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check invoice number: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", ErrInvoiceNumberExhausted
}

func (s *LedgerHandler) PostSale(ctx context.Context, req PostSaleRequest) (*models.Sale, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}
	if req.Discount.IsNegative() {
		return nil, ErrInvalidDiscount
	}

	saleDate := req.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now()
	}

	var sale models.Sale
	productIDs := make([]int64, 0, len(req.Items))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.Where("id = ? AND is_active = ?", req.CustomerID, true).First(&customer).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("customer %d: %w", req.CustomerID, ErrInactiveCounterparty)
			}
			return fmt.Errorf("load customer: %w", err)
		}

		lines := make([]lineAmounts, 0, len(req.Items))
		subtotal := decimal.Zero
		taxAmount := decimal.Zero
		for _, item := range req.Items {
			product, err := loadActiveProduct(tx, item.ProductID)
			if err != nil {
				return err
			}
			line := computeLine(*product, item, product.SalePrice)
			lines = append(lines, line)
			subtotal = subtotal.Add(line.preTax)
			taxAmount = taxAmount.Add(line.tax)
		}
		totalAmount := subtotal.Add(taxAmount).Sub(req.Discount)

		invoiceNumber, err := allocateInvoiceNumber(tx, &models.Sale{}, utils.InvoicePrefixSale)
		if err != nil {
			return err
		}

		sale = models.Sale{
			InvoiceNumber: invoiceNumber,
			CustomerID:    req.CustomerID,
			UserID:        req.UserID,
			SaleDate:      saleDate,
			DueDate:       req.DueDate,
			Subtotal:      subtotal,
			TaxAmount:     taxAmount,
			TotalAmount:   totalAmount,
			Discount:      req.Discount,
			Status:        models.SaleStatusPending,
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
		}
		if err := tx.Create(&sale).Error; err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		for _, line := range lines {
			item := models.SaleItem{
				SaleID:     sale.ID,
				ProductID:  line.product.ID,
				Quantity:   line.quantity,
				UnitPrice:  line.unitPrice,
				TaxRate:    line.taxRate,
				TotalPrice: line.totalPrice,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create sale item: %w", err)
			}

			if _, err := catalog.AdjustStock(tx, line.product.ID, -line.quantity, s.allowNegative); err != nil {
				return fmt.Errorf("product %d: %w", line.product.ID, err)
			}

			movement := models.InventoryMovement{
				ProductID:     line.product.ID,
				MovementType:  models.MovementTypeOut,
				Quantity:      -line.quantity,
				ReferenceType: models.ReferenceTypeSale,
				ReferenceID:   sale.ID,
				UserID:        req.UserID,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("create inventory movement: %w", err)
			}

			productIDs = append(productIDs, line.product.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("id = ?", sale.ID).
		Preload("Items.Product").
		Preload("Customer").
		First(&sale).Error; err != nil {
		return nil, fmt.Errorf("reload sale: %w", err)
	}

	s.afterCommit(ctx, EventSalePosted, "sale", sale.ID, sale.InvoiceNumber, sale.TotalAmount, req.UserID, productIDs)
	return &sale, nil
}

func (s *LedgerHandler) PostPurchase(ctx context.Context, req PostPurchaseRequest) (*models.Purchase, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	purchaseDate := req.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = time.Now()
	}

	var purchase models.Purchase
	productIDs := make([]int64, 0, len(req.Items))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var supplier models.Supplier
		if err := tx.Where("id = ? AND is_active = ?", req.SupplierID, true).First(&supplier).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("supplier %d: %w", req.SupplierID, ErrInactiveCounterparty)
			}
			return fmt.Errorf("load supplier: %w", err)
		}

		lines := make([]lineAmounts, 0, len(req.Items))
		subtotal := decimal.Zero
		taxAmount := decimal.Zero
		for _, item := range req.Items {
			product, err := loadActiveProduct(tx, item.ProductID)
			if err != nil {
				return err
			}
			line := computeLine(*product, item, product.PurchasePrice)
			lines = append(lines, line)
			subtotal = subtotal.Add(line.preTax)
			taxAmount = taxAmount.Add(line.tax)
		}
		totalAmount := subtotal.Add(taxAmount)

		invoiceNumber, err := allocateInvoiceNumber(tx, &models.Purchase{}, utils.InvoicePrefixPurchase)
		if err != nil {
			return err
		}

		purchase = models.Purchase{
			InvoiceNumber: invoiceNumber,
			SupplierID:    req.SupplierID,
			UserID:        req.UserID,
			PurchaseDate:  purchaseDate,
			DueDate:       req.DueDate,
			Subtotal:      subtotal,
			TaxAmount:     taxAmount,
			TotalAmount:   totalAmount,
			Status:        models.PurchaseStatusPending,
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}

		for _, line := range lines {
			item := models.PurchaseItem{
				PurchaseID: purchase.ID,
				ProductID:  line.product.ID,
				Quantity:   line.quantity,
				UnitPrice:  line.unitPrice,
				TaxRate:    line.taxRate,
				TotalPrice: line.totalPrice,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create purchase item: %w", err)
			}

			if _, err := catalog.AdjustStock(tx, line.product.ID, line.quantity, true); err != nil {
				return fmt.Errorf("product %d: %w", line.product.ID, err)
			}

			movement := models.InventoryMovement{
				ProductID:     line.product.ID,
				MovementType:  models.MovementTypeIn,
				Quantity:      line.quantity,
				ReferenceType: models.ReferenceTypePurchase,
				ReferenceID:   purchase.ID,
				UserID:        req.UserID,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("create inventory movement: %w", err)
			}

			productIDs = append(productIDs, line.product.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("id = ?", purchase.ID).
		Preload("Items.Product").
		Preload("Supplier").
		First(&purchase).Error; err != nil {
		return nil, fmt.Errorf("reload purchase: %w", err)
	}

	s.afterCommit(ctx, EventPurchasePosted, "purchase", purchase.ID, purchase.InvoiceNumber, purchase.TotalAmount, req.UserID, productIDs)
	return &purchase, nil
}

// ReverseSale cancels a posted sale by writing compensating inventory
// movements and restoring stock in one transaction. History is never
// edited in place; the original movements stay.
func (s *LedgerHandler) ReverseSale(ctx context.Context, saleID, userID int64, reason string) (*models.Sale, error) {
	var sale models.Sale
	productIDs := []int64{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", saleID).Preload("Items").First(&sale).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrDocumentNotFound
			}
			return fmt.Errorf("load sale: %w", err)
		}
		if sale.Status == models.SaleStatusCancelled {
			return ErrDocumentCancelled
		}

		notes := reversalNotes(reason)
		for _, item := range sale.Items {
			if _, err := catalog.AdjustStock(tx, item.ProductID, item.Quantity, true); err != nil {
				return fmt.Errorf("product %d: %w", item.ProductID, err)
			}
			movement := models.InventoryMovement{
				ProductID:     item.ProductID,
				MovementType:  models.MovementTypeIn,
				Quantity:      item.Quantity,
				ReferenceType: models.ReferenceTypeSale,
				ReferenceID:   sale.ID,
				Notes:         notes,
				UserID:        userID,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("create reversal movement: %w", err)
			}
			productIDs = append(productIDs, item.ProductID)
		}

		res := tx.Model(&models.Sale{}).Where("id = ?", sale.ID).
			Updates(map[string]interface{}{"status": models.SaleStatusCancelled, "updated_at": time.Now()})
		if res.Error != nil {
			return fmt.Errorf("cancel sale: %w", res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("id = ?", saleID).Preload("Items").First(&sale).Error; err != nil {
		return nil, fmt.Errorf("reload sale: %w", err)
	}

	s.afterCommit(ctx, EventSaleReversed, "sale", sale.ID, sale.InvoiceNumber, sale.TotalAmount, userID, productIDs)
	return &sale, nil
}

// ReversePurchase is the purchase-side counterpart: it removes the
// received quantities again, so it is subject to the same stock floor
// as a sale.
func (s *LedgerHandler) ReversePurchase(ctx context.Context, purchaseID, userID int64, reason string) (*models.Purchase, error) {
	var purchase models.Purchase
	productIDs := []int64{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", purchaseID).Preload("Items").First(&purchase).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrDocumentNotFound
			}
			return fmt.Errorf("load purchase: %w", err)
		}
		if purchase.Status == models.PurchaseStatusCancelled {
			return ErrDocumentCancelled
		}

		notes := reversalNotes(reason)
		for _, item := range purchase.Items {
			if _, err := catalog.AdjustStock(tx, item.ProductID, -item.Quantity, s.allowNegative); err != nil {
				return fmt.Errorf("product %d: %w", item.ProductID, err)
			}
			movement := models.InventoryMovement{
				ProductID:     item.ProductID,
				MovementType:  models.MovementTypeOut,
				Quantity:      -item.Quantity,
				ReferenceType: models.ReferenceTypePurchase,
				ReferenceID:   purchase.ID,
				Notes:         notes,
				UserID:        userID,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("create reversal movement: %w", err)
			}
			productIDs = append(productIDs, item.ProductID)
		}

		res := tx.Model(&models.Purchase{}).Where("id = ?", purchase.ID).
			Updates(map[string]interface{}{"status": models.PurchaseStatusCancelled, "updated_at": time.Now()})
		if res.Error != nil {
			return fmt.Errorf("cancel purchase: %w", res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("id = ?", purchaseID).Preload("Items").First(&purchase).Error; err != nil {
		return nil, fmt.Errorf("reload purchase: %w", err)
	}

	s.afterCommit(ctx, EventPurchaseReversed, "purchase", purchase.ID, purchase.InvoiceNumber, purchase.TotalAmount, userID, productIDs)
	return &purchase, nil
}

// SetSaleStatus records a payment: pending -> paid is the only
// transition handled here. Cancellation goes through ReverseSale. The
// pending check lives in the UPDATE itself, so a reversal committing
// in between cannot be overwritten.
func (s *LedgerHandler) SetSaleStatus(ctx context.Context, saleID int64, status string, userID int64) (*models.Sale, error) {
	if status != models.SaleStatusPaid {
		return nil, ErrInvalidStatus
	}

	res := s.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND status = ?", saleID, models.SaleStatusPending).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, fmt.Errorf("update sale status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Sale{}).Where("id = ?", saleID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("load sale: %w", err)
		}
		if count == 0 {
			return nil, ErrDocumentNotFound
		}
		return nil, ErrInvalidStatus
	}

	var sale models.Sale
	if err := s.db.WithContext(ctx).First(&sale, saleID).Error; err != nil {
		return nil, fmt.Errorf("reload sale: %w", err)
	}

	s.afterCommit(ctx, EventStatusChanged, "sale", sale.ID, sale.InvoiceNumber, sale.TotalAmount, userID, nil)
	return &sale, nil
}

func (s *LedgerHandler) SetPurchaseStatus(ctx context.Context, purchaseID int64, status string, userID int64) (*models.Purchase, error) {
	if status != models.PurchaseStatusReceived {
		return nil, ErrInvalidStatus
	}

	res := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status = ?", purchaseID, models.PurchaseStatusPending).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, fmt.Errorf("update purchase status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Purchase{}).Where("id = ?", purchaseID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("load purchase: %w", err)
		}
		if count == 0 {
			return nil, ErrDocumentNotFound
		}
		return nil, ErrInvalidStatus
	}

	var purchase models.Purchase
	if err := s.db.WithContext(ctx).First(&purchase, purchaseID).Error; err != nil {
		return nil, fmt.Errorf("reload purchase: %w", err)
	}

	s.afterCommit(ctx, EventStatusChanged, "purchase", purchase.ID, purchase.InvoiceNumber, purchase.TotalAmount, userID, nil)
	return &purchase, nil
}

// --- post-commit side effects ---

type DocumentEvent struct {
	EventType     string    `json:"event_type"`
	DocumentKind  string    `json:"document_kind"`
	DocumentID    int64     `json:"document_id"`
	InvoiceNumber string    `json:"invoice_number"`
	TotalAmount   string    `json:"total_amount"`
	UserID        int64     `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// afterCommit publishes the document event and drops stale product
// caches. Runs strictly after the transaction committed; failures are
// logged and never affect the document.
func (s *LedgerHandler) afterCommit(ctx context.Context, eventType, kind string, docID int64, invoiceNumber string, total decimal.Decimal, userID int64, productIDs []int64) {
	if s.redis == nil {
		return
	}

	_ = s.redis.Del(ctx, catalog.LowStockCacheKey)
	for _, id := range productIDs {
		_ = s.redis.Del(ctx, catalog.ProductCacheKey(id))
	}

	event := DocumentEvent{
		EventType:     eventType,
		DocumentKind:  kind,
		DocumentID:    docID,
		InvoiceNumber: invoiceNumber,
		TotalAmount:   total.StringFixed(2),
		UserID:        userID,
		Timestamp:     time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.WithError(err).WithField("event", eventType).Error("marshal document event")
		return
	}

	if err := s.redis.Publish(ctx, "ledger:events:"+eventType, payload).Err(); err != nil {
		s.log.WithError(err).WithField("event", eventType).Warn("publish document event")
	}
	if err := s.redis.Publish(ctx, "ledger:events:all", payload).Err(); err != nil {
		s.log.WithError(err).WithField("event", eventType).Warn("publish document event")
	}
}

func reversalNotes(reason string) *string {
	notes := "reversal"
	if reason != "" {
		notes = "reversal: " + reason
	}
	return &notes
}
