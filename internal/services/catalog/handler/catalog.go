package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gestvendas/internal/database/models"
)

const (
	productCachePrefix  = "catalog:product:"
	LowStockCacheKey    = "catalog:low-stock"
	productCacheTTL     = 30 * time.Minute
	lowStockCacheTTL    = 5 * time.Minute
	defaultListPageSize = 20
)

// ProductCacheKey is the redis key for a single cached product. Other
// services that mutate stock use it to drop stale entries.
func ProductCacheKey(productID int64) string {
	return fmt.Sprintf("%s%d", productCachePrefix, productID)
}

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrSupplierNotFound  = errors.New("supplier not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrDuplicateCode     = errors.New("product code already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type CatalogHandler struct {
	db    *gorm.DB
	redis *redis.Client
	log   *logrus.Logger
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		db:    db,
		redis: redisClient,
		log:   logger,
	}
}

func (s *CatalogHandler) InvalidateProductCaches(ctx context.Context, productIDs ...int64) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, LowStockCacheKey)
	for _, id := range productIDs {
		_ = s.redis.Del(ctx, ProductCacheKey(id))
	}
}

// --- Products ---

type CreateProductRequest struct {
	Code          string
	Name          string
	Description   *string
	CategoryID    int64
	SupplierID    *int64
	Unit          string
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	StockQuantity int
	MinStock      int
	MaxStock      int
	TaxRate       *decimal.Decimal
}

type UpdateProductRequest struct {
	Name          *string
	Description   *string
	CategoryID    *int64
	SupplierID    *int64
	Unit          *string
	PurchasePrice *decimal.Decimal
	SalePrice     *decimal.Decimal
	MinStock      *int
	MaxStock      *int
	TaxRate       *decimal.Decimal
	IsActive      *bool
}

type ListProductsRequest struct {
	Search     string
	CategoryID *int64
	IsActive   *bool
	Page       int
	PageSize   int
}

func (s *CatalogHandler) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", req.CategoryID, true).First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("load category: %w", err)
	}

	if req.SupplierID != nil {
		var supplier models.Supplier
		if err := s.db.WithContext(ctx).Where("id = ?", *req.SupplierID).First(&supplier).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ErrSupplierNotFound
			}
			return nil, fmt.Errorf("load supplier: %w", err)
		}
	}

	taxRate := decimal.NewFromInt(23)
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	unit := req.Unit
	if unit == "" {
		unit = "unit"
	}
	minStock := req.MinStock
	if minStock == 0 {
		minStock = 5
	}
	maxStock := req.MaxStock
	if maxStock == 0 {
		maxStock = 100
	}

	product := models.Product{
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		SupplierID:    req.SupplierID,
		Unit:          unit,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		StockQuantity: req.StockQuantity,
		MinStock:      minStock,
		MaxStock:      maxStock,
		TaxRate:       taxRate,
		IsActive:      true,
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.InvalidateProductCaches(ctx, product.ID)
	return &product, nil
}

func (s *CatalogHandler) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.SupplierID != nil {
		updates["supplier_id"] = *req.SupplierID
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}
	if req.PurchasePrice != nil {
		updates["purchase_price"] = *req.PurchasePrice
	}
	if req.SalePrice != nil {
		updates["sale_price"] = *req.SalePrice
	}
	if req.MinStock != nil {
		updates["min_stock"] = *req.MinStock
	}
	if req.MaxStock != nil {
		updates["max_stock"] = *req.MaxStock
	}
	if req.TaxRate != nil {
		updates["tax_rate"] = *req.TaxRate
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := s.db.WithContext(ctx).Model(&product).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update product: %w", err)
		}
	}

	if err := s.db.WithContext(ctx).Where("id = ?", id).Preload("Category").Preload("Supplier").First(&product).Error; err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}

	s.InvalidateProductCaches(ctx, id)
	return &product, nil
}

func (s *CatalogHandler) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if s.redis != nil {
		cacheKey := fmt.Sprintf("%s%d", productCachePrefix, id)
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var product models.Product
			if json.Unmarshal([]byte(cached), &product) == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).
		Preload("Category").
		Preload("Supplier").
		First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	if s.redis != nil {
		if payload, err := json.Marshal(product); err == nil {
			cacheKey := fmt.Sprintf("%s%d", productCachePrefix, id)
			_ = s.redis.Set(ctx, cacheKey, payload, productCacheTTL).Err()
		}
	}

	return &product, nil
}

func (s *CatalogHandler) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("code = ?", code).
		Preload("Category").
		Preload("Supplier").
		First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	return &product, nil
}

func (s *CatalogHandler) ListProducts(ctx context.Context, req ListProductsRequest) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{}).
		Preload("Category").
		Preload("Supplier")

	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", like, like)
	}
	if req.CategoryID != nil {
		query = query.Where("category_id = ?", *req.CategoryID)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	var products []models.Product
	if err := query.Order("name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

// SearchProducts backs the quick-lookup endpoint used by document
// entry forms. Active products only.
func (s *CatalogHandler) SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	like := "%" + term + "%"
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("(name LIKE ? OR code LIKE ?) AND is_active = ?", like, like, true).
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

func (s *CatalogHandler) ListLowStock(ctx context.Context) ([]models.Product, error) {
	var products []models.Product

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, LowStockCacheKey).Result(); err == nil {
			if err := json.Unmarshal([]byte(cached), &products); err == nil {
				return products, nil
			}
		}
	}

	if err := s.db.WithContext(ctx).
		Where("stock_quantity <= min_stock AND is_active = ?", true).
		Order("stock_quantity ASC").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}

	if s.redis != nil {
		if payload, err := json.Marshal(products); err == nil {
			s.redis.Set(ctx, LowStockCacheKey, payload, lowStockCacheTTL)
		}
	}
	return products, nil
}

func (s *CatalogHandler) DeactivateProduct(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("deactivate product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	s.InvalidateProductCaches(ctx, id)
	return nil
}

// AdjustStock applies a stock delta inside the caller's transaction.
// Negative deltas use a conditional decrement so two concurrent
// writers cannot both pass a read-then-check and drive stock below
// zero. A negative floor can be waived by allowNegative.
func AdjustStock(tx *gorm.DB, productID int64, delta int, allowNegative bool) (int, error) {
	query := tx.Model(&models.Product{}).Where("id = ?", productID)
	if delta < 0 && !allowNegative {
		query = query.Where("stock_quantity >= ?", -delta)
	}

	res := query.Updates(map[string]interface{}{
		"stock_quantity": gorm.Expr("stock_quantity + ?", delta),
		"updated_at":     time.Now(),
	})
	if res.Error != nil {
		return 0, fmt.Errorf("adjust stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("adjust stock: %w", err)
		}
		if count == 0 {
			return 0, ErrProductNotFound
		}
		return 0, ErrInsufficientStock
	}

	var quantity int
	if err := tx.Model(&models.Product{}).Where("id = ?", productID).
		Select("stock_quantity").Scan(&quantity).Error; err != nil {
		return 0, fmt.Errorf("read stock: %w", err)
	}
	return quantity, nil
}

// --- Categories ---

type CategoryRequest struct {
	Name        string
	Description *string
}

func (s *CatalogHandler) CreateCategory(ctx context.Context, req CategoryRequest) (*models.Category, error) {
	category := models.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

func (s *CatalogHandler) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := s.db.WithContext(ctx).Model(&models.Category{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var categories []models.Category
	if err := query.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CatalogHandler) DeactivateCategory(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("deactivate category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// --- Suppliers ---

type SupplierRequest struct {
	Name          string
	ContactPerson *string
	Email         *string
	Phone         *string
	Address       *string
	City          *string
	PostalCode    *string
	Country       string
	TaxNumber     *string
}

func (s *CatalogHandler) CreateSupplier(ctx context.Context, req SupplierRequest) (*models.Supplier, error) {
	country := req.Country
	if country == "" {
		country = "Portugal"
	}
	supplier := models.Supplier{
		Name:          strings.TrimSpace(req.Name),
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		PostalCode:    req.PostalCode,
		Country:       country,
		TaxNumber:     req.TaxNumber,
		IsActive:      true,
	}
	if err := s.db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return &supplier, nil
}

func (s *CatalogHandler) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("load supplier: %w", err)
	}
	return &supplier, nil
}

func (s *CatalogHandler) ListSuppliers(ctx context.Context, search string, page, pageSize int) ([]models.Supplier, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Supplier{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count suppliers: %w", err)
	}

	page, pageSize = normalizePage(page, pageSize)
	var suppliers []models.Supplier
	if err := query.Order("name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&suppliers).Error; err != nil {
		return nil, 0, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, total, nil
}

func (s *CatalogHandler) DeactivateSupplier(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&models.Supplier{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("deactivate supplier: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

// --- Customers ---

type CustomerRequest struct {
	Name         string
	Email        *string
	Phone        *string
	Address      *string
	City         *string
	PostalCode   *string
	Country      string
	TaxNumber    *string
	CustomerType string
}

func (s *CatalogHandler) CreateCustomer(ctx context.Context, req CustomerRequest) (*models.Customer, error) {
	country := req.Country
	if country == "" {
		country = "Portugal"
	}
	customerType := req.CustomerType
	if customerType == "" {
		customerType = "individual"
	}
	customer := models.Customer{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		City:         req.City,
		PostalCode:   req.PostalCode,
		Country:      country,
		TaxNumber:    req.TaxNumber,
		CustomerType: customerType,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &customer, nil
}

func (s *CatalogHandler) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("load customer: %w", err)
	}
	return &customer, nil
}

func (s *CatalogHandler) ListCustomers(ctx context.Context, search string, page, pageSize int) ([]models.Customer, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Customer{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	page, pageSize = normalizePage(page, pageSize)
	var customers []models.Customer
	if err := query.Order("name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&customers).Error; err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return customers, total, nil
}

func (s *CatalogHandler) DeactivateCustomer(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("deactivate customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// --- helpers ---

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = defaultListPageSize
	}
	return page, pageSize
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
