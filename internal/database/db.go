package database

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gestvendas/internal/database/models"
)

func NewConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		log.Fatal("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Configuration{},
		&models.Category{},
		&models.Supplier{},
		&models.Customer{},
		&models.Product{},
		&models.Sale{},
		&models.SaleItem{},
		&models.Purchase{},
		&models.PurchaseItem{},
		&models.InventoryMovement{},
	)
}

// SeedDefaults creates the admin account and baseline configuration
// rows on first boot. Existing rows are left untouched.
func SeedDefaults(db *gorm.DB) error {
	var admin models.User
	err := db.Where("username = ?", "admin").First(&admin).Error
	if err == gorm.ErrRecordNotFound {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		fullName := "Administrator"
		admin = models.User{
			Username:     "admin",
			Email:        "admin@gestvendas.com",
			PasswordHash: string(hash),
			FullName:     &fullName,
			Role:         models.RoleAdmin,
			IsActive:     true,
		}
		if err := db.Create(&admin).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	defaults := []models.Configuration{
		{Key: "currency", Value: "EUR", DataType: "string"},
		{Key: "currency_symbol", Value: "€", DataType: "string"},
		{Key: "tax_rate", Value: "23.00", DataType: "decimal"},
		{Key: "company_name", Value: "GestVendas", DataType: "string"},
		{Key: "company_address", Value: "", DataType: "string"},
		{Key: "company_tax_number", Value: "", DataType: "string"},
	}

	for _, cfg := range defaults {
		var existing models.Configuration
		err := db.Where("key = ?", cfg.Key).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&cfg).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	return nil
}
