package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gestvendas/internal/database"
	"gestvendas/internal/database/models"
	"gestvendas/internal/gateway/middleware"
	catalog "gestvendas/internal/services/catalog/handler"
	documents "gestvendas/internal/services/documents/handler"
	ledger "gestvendas/internal/services/ledger/handler"
	user "gestvendas/internal/services/user/handler"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	catalogHTTP := NewCatalogHTTPHandler(catalog.NewCatalogHandler(db, nil, logger))
	ledgerHandler := ledger.NewLedgerHandler(db, nil, logger, false)
	documentsHandler := documents.NewDocumentsHandler(db, nil, logger)
	salesHTTP := NewSalesHTTPHandler(ledgerHandler, documentsHandler)
	userHTTP := NewUserHTTPHandler(user.NewUserHandler(db, nil, logger, time.Hour))

	r := gin.New()
	r.POST("/api/v1/auth/register", userHTTP.Register)
	r.POST("/api/v1/auth/login", userHTTP.Login)

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		protected.POST("/products", catalogHTTP.CreateProduct)
		protected.POST("/sales", salesHTTP.CreateSale)
		protected.GET("/sales/:id", salesHTTP.GetSale)
	}
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "joao",
		"email":    "joao@example.com",
		"password": "segredo123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "joao",
		"password": "segredo123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sales", "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sales", "not-a-token", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSaleFlowOverHTTP(t *testing.T) {
	r, db := newTestRouter(t)
	token := loginToken(t, r)

	category := models.Category{Name: "Beverages", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	customer := models.Customer{Name: "Maria Santos", Country: "Portugal", CustomerType: "individual", IsActive: true}
	require.NoError(t, db.Create(&customer).Error)

	w := doJSON(t, r, http.MethodPost, "/api/v1/products", token, gin.H{
		"code":           "P-001",
		"name":           "Espresso Beans",
		"category_id":    category.ID,
		"purchase_price": "6.00",
		"sale_price":     "10.00",
		"stock_quantity": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var productResp struct {
		Data models.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &productResp))

	w = doJSON(t, r, http.MethodPost, "/api/v1/sales", token, gin.H{
		"customer_id": customer.ID,
		"items": []gin.H{
			{"product_id": productResp.Data.ID, "quantity": 3},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var saleResp struct {
		Data models.Sale `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saleResp))
	assert.True(t, saleResp.Data.TotalAmount.Equal(decimal.RequireFromString("36.90")))
	assert.NotZero(t, saleResp.Data.UserID, "sale must record the authenticated user")

	// Selling more than remains on hand is a 422, not a 500.
	w = doJSON(t, r, http.MethodPost, "/api/v1/sales", token, gin.H{
		"customer_id": customer.ID,
		"items": []gin.H{
			{"product_id": productResp.Data.ID, "quantity": 50},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}
