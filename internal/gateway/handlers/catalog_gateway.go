package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	catalog "gestvendas/internal/services/catalog/handler"
)

type CatalogHTTPHandler struct {
	catalog *catalog.CatalogHandler
}

func NewCatalogHTTPHandler(catalogHandler *catalog.CatalogHandler) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{catalog: catalogHandler}
}

// Request structs
type CreateProductRequest struct {
	Code          string           `json:"code" binding:"required"`
	Name          string           `json:"name" binding:"required"`
	Description   *string          `json:"description,omitempty"`
	CategoryID    int64            `json:"category_id" binding:"required"`
	SupplierID    *int64           `json:"supplier_id,omitempty"`
	Unit          string           `json:"unit,omitempty"`
	PurchasePrice decimal.Decimal  `json:"purchase_price"`
	SalePrice     decimal.Decimal  `json:"sale_price"`
	StockQuantity int              `json:"stock_quantity,omitempty"`
	MinStock      int              `json:"min_stock,omitempty"`
	MaxStock      int              `json:"max_stock,omitempty"`
	TaxRate       *decimal.Decimal `json:"tax_rate,omitempty"`
}

type UpdateProductRequest struct {
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	SupplierID    *int64           `json:"supplier_id,omitempty"`
	Unit          *string          `json:"unit,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	MinStock      *int             `json:"min_stock,omitempty"`
	MaxStock      *int             `json:"max_stock,omitempty"`
	TaxRate       *decimal.Decimal `json:"tax_rate,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

type CategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
}

type SupplierRequest struct {
	Name          string  `json:"name" binding:"required"`
	ContactPerson *string `json:"contact_person,omitempty"`
	Email         *string `json:"email,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	City          *string `json:"city,omitempty"`
	PostalCode    *string `json:"postal_code,omitempty"`
	Country       string  `json:"country,omitempty"`
	TaxNumber     *string `json:"tax_number,omitempty"`
}

type CustomerRequest struct {
	Name         string  `json:"name" binding:"required"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Address      *string `json:"address,omitempty"`
	City         *string `json:"city,omitempty"`
	PostalCode   *string `json:"postal_code,omitempty"`
	Country      string  `json:"country,omitempty"`
	TaxNumber    *string `json:"tax_number,omitempty"`
	CustomerType string  `json:"customer_type,omitempty"`
}

// Query structs
type ListProductsQuery struct {
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
	Search     string `form:"search,omitempty"`
	CategoryID *int64 `form:"category_id,omitempty"`
	IsActive   *bool  `form:"is_active,omitempty"`
}

type ListPartiesQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Search   string `form:"search,omitempty"`
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid ID"))
		return 0, false
	}
	return id, true
}

// --- Products ---

func (h *CatalogHTTPHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), catalog.CreateProductRequest{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		SupplierID:    req.SupplierID,
		Unit:          req.Unit,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		StockQuantity: req.StockQuantity,
		MinStock:      req.MinStock,
		MaxStock:      req.MaxStock,
		TaxRate:       req.TaxRate,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Product created successfully", product))
}

func (h *CatalogHTTPHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, catalog.UpdateProductRequest{
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		SupplierID:    req.SupplierID,
		Unit:          req.Unit,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		MinStock:      req.MinStock,
		MaxStock:      req.MaxStock,
		TaxRate:       req.TaxRate,
		IsActive:      req.IsActive,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Product updated successfully", product))
}

func (h *CatalogHTTPHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *CatalogHTTPHandler) GetProductByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Product code required"))
		return
	}
	product, err := h.catalog.GetProductByCode(c.Request.Context(), code)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *CatalogHTTPHandler) ListProducts(c *gin.Context) {
	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	products, total, err := h.catalog.ListProducts(c.Request.Context(), catalog.ListProductsRequest{
		Search:     query.Search,
		CategoryID: query.CategoryID,
		IsActive:   query.IsActive,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	meta := PageMeta{Page: query.Page, PageSize: query.PageSize, Total: total}
	c.JSON(http.StatusOK, successWithMetaResponse("Products retrieved successfully", products, meta))
}

func (h *CatalogHTTPHandler) SearchProducts(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Search term required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	products, err := h.catalog.SearchProducts(c.Request.Context(), term, limit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Products retrieved successfully", products))
}

func (h *CatalogHTTPHandler) ListLowStock(c *gin.Context) {
	products, err := h.catalog.ListLowStock(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Low stock products retrieved successfully", products))
}

func (h *CatalogHTTPHandler) DeactivateProduct(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeactivateProduct(c.Request.Context(), id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Product deactivated successfully", nil))
}

// --- Categories ---

func (h *CatalogHTTPHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), catalog.CategoryRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Category created successfully", category))
}

func (h *CatalogHTTPHandler) ListCategories(c *gin.Context) {
	activeOnly := c.DefaultQuery("active_only", "true") == "true"
	categories, err := h.catalog.ListCategories(c.Request.Context(), activeOnly)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

func (h *CatalogHTTPHandler) DeactivateCategory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeactivateCategory(c.Request.Context(), id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Category deactivated successfully", nil))
}

// --- Suppliers ---

func (h *CatalogHTTPHandler) CreateSupplier(c *gin.Context) {
	var req SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	supplier, err := h.catalog.CreateSupplier(c.Request.Context(), catalog.SupplierRequest{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		PostalCode:    req.PostalCode,
		Country:       req.Country,
		TaxNumber:     req.TaxNumber,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Supplier created successfully", supplier))
}

func (h *CatalogHTTPHandler) GetSupplier(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	supplier, err := h.catalog.GetSupplier(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Supplier retrieved successfully", supplier))
}

func (h *CatalogHTTPHandler) ListSuppliers(c *gin.Context) {
	var query ListPartiesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	suppliers, total, err := h.catalog.ListSuppliers(c.Request.Context(), query.Search, query.Page, query.PageSize)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	meta := PageMeta{Page: query.Page, PageSize: query.PageSize, Total: total}
	c.JSON(http.StatusOK, successWithMetaResponse("Suppliers retrieved successfully", suppliers, meta))
}

func (h *CatalogHTTPHandler) DeactivateSupplier(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeactivateSupplier(c.Request.Context(), id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Supplier deactivated successfully", nil))
}

// --- Customers ---

func (h *CatalogHTTPHandler) CreateCustomer(c *gin.Context) {
	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	customer, err := h.catalog.CreateCustomer(c.Request.Context(), catalog.CustomerRequest{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		City:         req.City,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
		TaxNumber:    req.TaxNumber,
		CustomerType: req.CustomerType,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Customer created successfully", customer))
}

func (h *CatalogHTTPHandler) GetCustomer(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	customer, err := h.catalog.GetCustomer(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Customer retrieved successfully", customer))
}

func (h *CatalogHTTPHandler) ListCustomers(c *gin.Context) {
	var query ListPartiesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	customers, total, err := h.catalog.ListCustomers(c.Request.Context(), query.Search, query.Page, query.PageSize)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	meta := PageMeta{Page: query.Page, PageSize: query.PageSize, Total: total}
	c.JSON(http.StatusOK, successWithMetaResponse("Customers retrieved successfully", customers, meta))
}

func (h *CatalogHTTPHandler) DeactivateCustomer(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeactivateCustomer(c.Request.Context(), id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Customer deactivated successfully", nil))
}
