package main

import (
	"time"

	"gestvendas/config"
	"gestvendas/internal/database"
	catalog "gestvendas/internal/services/catalog/handler"
	documents "gestvendas/internal/services/documents/handler"
	ledger "gestvendas/internal/services/ledger/handler"
	movement "gestvendas/internal/services/movement/handler"
	reports "gestvendas/internal/services/reports/handler"
	user "gestvendas/internal/services/user/handler"
	"gestvendas/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	logger := config.NewLogger()

	utils.JwtSecret = []byte(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		logger.WithError(err).Fatal("database migration failed")
	}
	if err := database.SeedDefaults(db); err != nil {
		logger.WithError(err).Fatal("database seeding failed")
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	tokenTTL := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour

	catalogHandler := catalog.NewCatalogHandler(db, redisClient, logger)
	ledgerHandler := ledger.NewLedgerHandler(db, redisClient, logger, cfg.Stock.AllowNegative)
	movementHandler := movement.NewMovementHandler(db, redisClient, logger, cfg.Stock.AllowNegative)
	documentsHandler := documents.NewDocumentsHandler(db, redisClient, logger)
	userHandler := user.NewUserHandler(db, redisClient, logger, tokenTTL)
	reportsHandler := reports.NewReportsHandler(db, redisClient, logger)

	router := setupRouter(routerDeps{
		catalog:   catalogHandler,
		ledger:    ledgerHandler,
		movements: movementHandler,
		documents: documentsHandler,
		users:     userHandler,
		reports:   reportsHandler,
	})

	logger.WithField("addr", cfg.Server.Addr).Info("starting server")
	if err := router.Run(cfg.Server.Addr); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
