package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gestvendas/internal/gateway/handlers"
	"gestvendas/internal/gateway/middleware"
	catalog "gestvendas/internal/services/catalog/handler"
	documents "gestvendas/internal/services/documents/handler"
	ledger "gestvendas/internal/services/ledger/handler"
	movement "gestvendas/internal/services/movement/handler"
	reports "gestvendas/internal/services/reports/handler"
	user "gestvendas/internal/services/user/handler"
)

type routerDeps struct {
	catalog   *catalog.CatalogHandler
	ledger    *ledger.LedgerHandler
	movements *movement.MovementHandler
	documents *documents.DocumentsHandler
	users     *user.UserHandler
	reports   *reports.ReportsHandler
}

func setupRouter(deps routerDeps) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit())

	catalogHandler := handlers.NewCatalogHTTPHandler(deps.catalog)
	salesHandler := handlers.NewSalesHTTPHandler(deps.ledger, deps.documents)
	purchasesHandler := handlers.NewPurchasesHTTPHandler(deps.ledger, deps.documents)
	movementsHandler := handlers.NewMovementsHTTPHandler(deps.movements)
	userHandler := handlers.NewUserHTTPHandler(deps.users)
	reportsHandler := handlers.NewReportsHTTPHandler(deps.reports)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", userHandler.Login)
			auth.POST("/register", userHandler.Register)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		users := protected.Group("/users")
		{
			users.GET("/me", userHandler.Me)
			users.PUT("/me/password", userHandler.ChangePassword)
		}

		settings := protected.Group("/settings")
		settings.Use(middleware.AdminOnly())
		{
			settings.GET("", userHandler.ListSettings)
			settings.GET("/:key", userHandler.GetSetting)
			settings.PUT("/:key", userHandler.UpsertSetting)
		}

		products := protected.Group("/products")
		{
			products.POST("", catalogHandler.CreateProduct)
			products.GET("", catalogHandler.ListProducts)
			products.GET("/search", catalogHandler.SearchProducts)
			products.GET("/low-stock", catalogHandler.ListLowStock)
			products.GET("/code/:code", catalogHandler.GetProductByCode)
			products.GET("/:id", catalogHandler.GetProduct)
			products.PUT("/:id", catalogHandler.UpdateProduct)
			products.DELETE("/:id", catalogHandler.DeactivateProduct)
			products.GET("/:id/movements", movementsHandler.ListForProduct)
		}

		categories := protected.Group("/categories")
		{
			categories.POST("", catalogHandler.CreateCategory)
			categories.GET("", catalogHandler.ListCategories)
			categories.DELETE("/:id", catalogHandler.DeactivateCategory)
		}

		suppliers := protected.Group("/suppliers")
		{
			suppliers.POST("", catalogHandler.CreateSupplier)
			suppliers.GET("", catalogHandler.ListSuppliers)
			suppliers.GET("/:id", catalogHandler.GetSupplier)
			suppliers.DELETE("/:id", catalogHandler.DeactivateSupplier)
		}

		customers := protected.Group("/customers")
		{
			customers.POST("", catalogHandler.CreateCustomer)
			customers.GET("", catalogHandler.ListCustomers)
			customers.GET("/:id", catalogHandler.GetCustomer)
			customers.DELETE("/:id", catalogHandler.DeactivateCustomer)
		}

		sales := protected.Group("/sales")
		{
			sales.POST("", salesHandler.CreateSale)
			sales.GET("", salesHandler.ListSales)
			sales.GET("/:id", salesHandler.GetSale)
			sales.POST("/:id/reverse", salesHandler.ReverseSale)
			sales.PUT("/:id/status", salesHandler.SetSaleStatus)
			sales.DELETE("/:id", salesHandler.DeleteSale)
			sales.GET("/:id/movements", movementsHandler.ListForSale)
		}

		purchases := protected.Group("/purchases")
		{
			purchases.POST("", purchasesHandler.CreatePurchase)
			purchases.GET("", purchasesHandler.ListPurchases)
			purchases.GET("/:id", purchasesHandler.GetPurchase)
			purchases.POST("/:id/reverse", purchasesHandler.ReversePurchase)
			purchases.PUT("/:id/status", purchasesHandler.SetPurchaseStatus)
			purchases.DELETE("/:id", purchasesHandler.DeletePurchase)
			purchases.GET("/:id/movements", movementsHandler.ListForPurchase)
		}

		movements := protected.Group("/movements")
		{
			movements.POST("/adjustments", movementsHandler.RecordAdjustment)
		}

		reportsGroup := protected.Group("/reports")
		{
			reportsGroup.GET("/dashboard", reportsHandler.Dashboard)
			reportsGroup.GET("/monthly-sales", reportsHandler.MonthlySales)
			reportsGroup.GET("/top-products", reportsHandler.TopProducts)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	return r
}
