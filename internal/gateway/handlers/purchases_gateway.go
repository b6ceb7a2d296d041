package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	documents "gestvendas/internal/services/documents/handler"
	ledger "gestvendas/internal/services/ledger/handler"
)

type PurchasesHTTPHandler struct {
	ledger    *ledger.LedgerHandler
	documents *documents.DocumentsHandler
}

func NewPurchasesHTTPHandler(ledgerHandler *ledger.LedgerHandler, documentsHandler *documents.DocumentsHandler) *PurchasesHTTPHandler {
	return &PurchasesHTTPHandler{
		ledger:    ledgerHandler,
		documents: documentsHandler,
	}
}

type PurchaseLineRequest struct {
	ProductID int64            `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	TaxRate   *decimal.Decimal `json:"tax_rate,omitempty"`
}

type CreatePurchaseRequest struct {
	SupplierID    int64                 `json:"supplier_id" binding:"required"`
	PurchaseDate  string                `json:"purchase_date,omitempty"`
	DueDate       string                `json:"due_date,omitempty"`
	PaymentMethod *string               `json:"payment_method,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
	Items         []PurchaseLineRequest `json:"items" binding:"required,min=1"`
}

type ListPurchasesQuery struct {
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
	Status     string `form:"status,omitempty"`
	SupplierID int64  `form:"supplier_id,omitempty"`
	StartDate  string `form:"start_date,omitempty"`
	EndDate    string `form:"end_date,omitempty"`
}

func (h *PurchasesHTTPHandler) CreatePurchase(c *gin.Context) {
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	purchaseDate, ok := parseDate(req.PurchaseDate)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid purchase_date, expected YYYY-MM-DD"))
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

	postReq := ledger.PostPurchaseRequest{
		SupplierID:    req.SupplierID,
		UserID:        currentUserID(c),
		DueDate:       dueDate,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Items:         items,
	}
	if purchaseDate != nil {
		postReq.PurchaseDate = *purchaseDate
	}

	purchase, err := h.ledger.PostPurchase(c.Request.Context(), postReq)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Purchase created successfully", purchase))
}

func (h *PurchasesHTTPHandler) GetPurchase(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	purchase, err := h.documents.GetPurchase(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Purchase retrieved successfully", purchase))
}

func (h *PurchasesHTTPHandler) ListPurchases(c *gin.Context) {
	var query ListPurchasesQuery
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

	purchases, total, err := h.documents.ListPurchases(c.Request.Context(), documents.ListPurchasesRequest{
		Status:     query.Status,
		SupplierID: query.SupplierID,
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
	c.JSON(http.StatusOK, successWithMetaResponse("Purchases retrieved successfully", purchases, meta))
}

func (h *PurchasesHTTPHandler) ReversePurchase(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ReverseDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	purchase, err := h.ledger.ReversePurchase(c.Request.Context(), id, currentUserID(c), req.Reason)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Purchase reversed successfully", purchase))
}

func (h *PurchasesHTTPHandler) SetPurchaseStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	purchase, err := h.ledger.SetPurchaseStatus(c.Request.Context(), id, req.Status, currentUserID(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Purchase status updated successfully", purchase))
}

func (h *PurchasesHTTPHandler) DeletePurchase(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.documents.DeletePurchase(c.Request.Context(), id); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Purchase deleted successfully", nil))
}
