package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	catalog "gestvendas/internal/services/catalog/handler"
	documents "gestvendas/internal/services/documents/handler"
	ledger "gestvendas/internal/services/ledger/handler"
	movement "gestvendas/internal/services/movement/handler"
	user "gestvendas/internal/services/user/handler"
)

// abortWithServiceError translates service sentinel errors into HTTP
// statuses. Unknown errors become a plain 500 so internals never leak
// to clients.
func abortWithServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, catalog.ErrSupplierNotFound),
		errors.Is(err, catalog.ErrCustomerNotFound),
		errors.Is(err, ledger.ErrInactiveCounterparty),
		errors.Is(err, ledger.ErrDocumentNotFound),
		errors.Is(err, documents.ErrSaleNotFound),
		errors.Is(err, documents.ErrPurchaseNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrSettingNotFound):
		status = http.StatusNotFound
		message = err.Error()

	case errors.Is(err, catalog.ErrInsufficientStock):
		status = http.StatusUnprocessableEntity
		message = err.Error()

	case errors.Is(err, catalog.ErrDuplicateCode),
		errors.Is(err, user.ErrUserExists),
		errors.Is(err, documents.ErrDocumentNotReversed),
		errors.Is(err, ledger.ErrDocumentCancelled),
		errors.Is(err, ledger.ErrInvalidStatus):
		status = http.StatusConflict
		message = err.Error()

	case errors.Is(err, ledger.ErrEmptyDocument),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidUnitPrice),
		errors.Is(err, ledger.ErrInvalidTaxRate),
		errors.Is(err, ledger.ErrInvalidDiscount),
		errors.Is(err, movement.ErrZeroQuantity),
		errors.Is(err, movement.ErrInvalidMovementType):
		status = http.StatusBadRequest
		message = err.Error()

	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, user.ErrUserInactive):
		status = http.StatusUnauthorized
		message = err.Error()

	case errors.Is(err, ledger.ErrInvoiceNumberExhausted):
		status = http.StatusServiceUnavailable
		message = err.Error()
	}

	c.JSON(status, errorResponse(message))
}

// currentUserID reads the authenticated user set by the JWT
// middleware. Zero means the route was wired without auth, which is a
// server misconfiguration rather than a client error.
func currentUserID(c *gin.Context) int64 {
	value, ok := c.Get("user_id")
	if !ok {
		return 0
	}
	id, _ := value.(int64)
	return id
}
