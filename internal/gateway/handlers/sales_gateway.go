package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	documents "gestvendas/internal/services/documents/handler"
	ledger "gestvendas/internal/services/ledger/handler"
)

type SalesHTTPHandler struct {
	ledger    *ledger.LedgerHandler
	documents *documents.DocumentsHandler
}

func NewSalesHTTPHandler(ledgerHandler *ledger.LedgerHandler, documentsHandler *documents.DocumentsHandler) *SalesHTTPHandler {
	return &SalesHTTPHandler{
		ledger:    ledgerHandler,
		documents: documentsHandler,
	}
}

// Request structs
type SaleLineRequest struct {
	ProductID int64            `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	TaxRate   *decimal.Decimal `json:"tax_rate,omitempty"`
}

type CreateSaleRequest struct {
	CustomerID    int64             `json:"customer_id" binding:"required"`
	SaleDate      string            `json:"sale_date,omitempty"`
	DueDate       string            `json:"due_date,omitempty"`
	PaymentMethod *string           `json:"payment_method,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	Discount      *decimal.Decimal  `json:"discount,omitempty"`
	Items         []SaleLineRequest `json:"items" binding:"required,min=1"`
}

type ReverseDocumentRequest struct {
	Reason string `json:"reason,omitempty"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Query structs
type ListSalesQuery struct {
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
	Status     string `form:"status,omitempty"`
	CustomerID int64  `form:"customer_id,omitempty"`
	StartDate  string `form:"start_date,omitempty"`
	EndDate    string `form:"end_date,omitempty"`
}

func parseDate(value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func (h *SalesHTTPHandler) CreateSale(c *gin.Context) {
	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	saleDate, ok := parseDate(req.SaleDate)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid sale_date, expected YYYY-MM-DD"))
		return
	}
	dueDate, ok := parseDate(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid due_date, expected YYYY-MM-DD"))
		return
	}

	items := make([]ledger.LineItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ledger.LineItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			TaxRate:   item.TaxRate,
		})
	}

	discount := decimal.Zero
	if req.Discount != nil {
		discount = *req.Discount
	}

	postReq := ledger.PostSaleRequest{
		CustomerID:    req.CustomerID,
		UserID:        currentUserID(c),
		DueDate:       dueDate,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Discount:      discount,
		Items:         items,
	}
	if saleDate != nil {
		postReq.SaleDate = *saleDate
	}

	sale, err := h.ledger.PostSale(c.Request.Context(), postReq)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Sale created successfully", sale))
}

func (h *SalesHTTPHandler) GetSale(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	sale, err := h.documents.GetSale(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Sale retrieved successfully", sale))
}

func (h *SalesHTTPHandler) ListSales(c *gin.Context) {
	var query ListSalesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	dateFrom, ok := parseDate(query.StartDate)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid start_date, expected YYYY-MM-DD"))
		return
	}
	dateTo, ok := parseDate(query.EndDate)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid end_date, expected YYYY-MM-DD"))
		return
	}

	sales, total, err := h.documents.ListSales(c.Request.Context(), documents.ListSalesRequest{
		Status:     query.Status,
		CustomerID: query.CustomerID,
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	meta := PageMeta{Page: query.Page, PageSize: query.PageSize, Total: total}
	c.JSON(http.StatusOK, successWithMetaResponse("Sales retrieved successfully", sales, meta))
}

func (h *SalesHTTPHandler) ReverseSale(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ReverseDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	sale, err := h.ledger.ReverseSale(c.Request.Context(), id, currentUserID(c), req.Reason)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Sale reversed successfully", sale))
}

func (h *SalesHTTPHandler) SetSaleStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	sale, err := h.ledger.SetSaleStatus(c.Request.Context(), id, req.Status, currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Sale status updated successfully", sale))
}

func (h *SalesHTTPHandler) DeleteSale(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.documents.DeleteSale(c.Request.Context(), id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Sale deleted successfully", nil))
}
