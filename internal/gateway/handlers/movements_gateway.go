package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gestvendas/internal/database/models"
	movement "gestvendas/internal/services/movement/handler"
)

type MovementsHTTPHandler struct {
	movements *movement.MovementHandler
}

func NewMovementsHTTPHandler(movementHandler *movement.MovementHandler) *MovementsHTTPHandler {
	return &MovementsHTTPHandler{movements: movementHandler}
}

type RecordAdjustmentRequest struct {
	ProductID int64   `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required"`
	Notes     *string `json:"notes,omitempty"`
}

type ListMovementsQuery struct {
	Page          int    `form:"page,default=1"`
	PageSize      int    `form:"page_size,default=50"`
	MovementType  string `form:"movement_type,omitempty"`
	ReferenceType string `form:"reference_type,omitempty"`
}

func (h *MovementsHTTPHandler) RecordAdjustment(c *gin.Context) {
	var req RecordAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	mv, err := h.movements.RecordAdjustment(c.Request.Context(), movement.RecordAdjustmentRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
		UserID:    currentUserID(c),
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Adjustment recorded successfully", mv))
}

func (h *MovementsHTTPHandler) ListForProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || productID < 1 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product ID"))
		return
	}

	var query ListMovementsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	movements, total, err := h.movements.ListForProduct(c.Request.Context(), movement.ListMovementsRequest{
		ProductID:     productID,
		MovementType:  query.MovementType,
		ReferenceType: query.ReferenceType,
		Page:          query.Page,
		PageSize:      query.PageSize,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	meta := PageMeta{Page: query.Page, PageSize: query.PageSize, Total: total}
	c.JSON(http.StatusOK, successWithMetaResponse("Movements retrieved successfully", movements, meta))
}

func (h *MovementsHTTPHandler) ListForSale(c *gin.Context) {
	h.listForDocument(c, models.ReferenceTypeSale)
}

func (h *MovementsHTTPHandler) ListForPurchase(c *gin.Context) {
	h.listForDocument(c, models.ReferenceTypePurchase)
}

func (h *MovementsHTTPHandler) listForDocument(c *gin.Context, referenceType string) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	movements, err := h.movements.ListForDocument(c.Request.Context(), referenceType, id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Movements retrieved successfully", movements))
}
