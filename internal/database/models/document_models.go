package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SaleStatusPending   = "pending"
	SaleStatusPaid      = "paid"
	SaleStatusCancelled = "cancelled"

	PurchaseStatusPending   = "pending"
	PurchaseStatusReceived  = "received"
	PurchaseStatusCancelled = "cancelled"
)

type Sale struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	InvoiceNumber string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	CustomerID    int64           `gorm:"not null;index"`
	UserID        int64           `gorm:"not null"`
	SaleDate      time.Time       `gorm:"not null"`
	DueDate       *time.Time      ``
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status        string          `gorm:"type:varchar(50);not null;default:'pending'"`
	PaymentMethod *string         `gorm:"type:varchar(50)"`
	Notes         *string         `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Customer *Customer  `gorm:"foreignKey:CustomerID"`
	Items    []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleItem amounts are snapshots taken when the sale was posted.
// TaxRate is copied from the product and TotalPrice includes tax;
// neither is ever recomputed from the live product.
type SaleItem struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	SaleID     int64           `gorm:"not null;index"`
	ProductID  int64           `gorm:"not null;index"`
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxRate    decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

type Purchase struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	InvoiceNumber string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	SupplierID    int64           `gorm:"not null;index"`
	UserID        int64           `gorm:"not null"`
	PurchaseDate  time.Time       `gorm:"not null"`
	DueDate       *time.Time      ``
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status        string          `gorm:"type:varchar(50);not null;default:'pending'"`
	PaymentMethod *string         `gorm:"type:varchar(50)"`
	Notes         *string         `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Supplier *Supplier      `gorm:"foreignKey:SupplierID"`
	Items    []PurchaseItem `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
}

type PurchaseItem struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	PurchaseID int64           `gorm:"not null;index"`
	ProductID  int64           `gorm:"not null;index"`
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxRate    decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
