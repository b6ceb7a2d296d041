package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StockStatusLow    = "low"
	StockStatusNormal = "normal"
	StockStatusHigh   = "high"
)

type Category struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"type:varchar(100);uniqueIndex;not null"`
	Description *string `gorm:"type:text"`
	IsActive    bool    `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Products []Product `gorm:"foreignKey:CategoryID"`
}

type Supplier struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	Name          string  `gorm:"type:varchar(200);not null"`
	ContactPerson *string `gorm:"type:varchar(100)"`
	Email         *string `gorm:"type:varchar(120)"`
	Phone         *string `gorm:"type:varchar(20)"`
	Address       *string `gorm:"type:text"`
	City          *string `gorm:"type:varchar(100)"`
	PostalCode    *string `gorm:"type:varchar(20)"`
	Country       string  `gorm:"type:varchar(100);not null;default:'Portugal'"`
	TaxNumber     *string `gorm:"type:varchar(50)"`
	IsActive      bool    `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Products  []Product  `gorm:"foreignKey:SupplierID"`
	Purchases []Purchase `gorm:"foreignKey:SupplierID"`
}

type Customer struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"type:varchar(200);not null"`
	Email        *string `gorm:"type:varchar(120)"`
	Phone        *string `gorm:"type:varchar(20)"`
	Address      *string `gorm:"type:text"`
	City         *string `gorm:"type:varchar(100)"`
	PostalCode   *string `gorm:"type:varchar(20)"`
	Country      string  `gorm:"type:varchar(100);not null;default:'Portugal'"`
	TaxNumber    *string `gorm:"type:varchar(50)"`
	CustomerType string  `gorm:"type:varchar(50);not null;default:'individual'"`
	IsActive     bool    `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Sales []Sale `gorm:"foreignKey:CustomerID"`
}

type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	Code          string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	Name          string          `gorm:"type:varchar(200);not null"`
	Description   *string         `gorm:"type:text"`
	CategoryID    int64           `gorm:"not null;index"`
	SupplierID    *int64          `gorm:"index"`
	Unit          string          `gorm:"type:varchar(20);not null;default:'unit'"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	StockQuantity int             `gorm:"not null;default:0"`
	MinStock      int             `gorm:"not null;default:5"`
	MaxStock      int             `gorm:"not null;default:100"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:23"`
	IsActive      bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
	Supplier *Supplier `gorm:"foreignKey:SupplierID"`
}

// ProfitMargin is (sale - purchase) / purchase * 100, zero when the
// purchase price is not set.
func (p Product) ProfitMargin() decimal.Decimal {
	if !p.PurchasePrice.IsPositive() {
		return decimal.Zero
	}
	return p.SalePrice.Sub(p.PurchasePrice).
		Div(p.PurchasePrice).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func (p Product) StockStatus() string {
	switch {
	case p.StockQuantity <= p.MinStock:
		return StockStatusLow
	case p.StockQuantity >= p.MaxStock:
		return StockStatusHigh
	default:
		return StockStatusNormal
	}
}
