package models

import "time"

const (
	MovementTypeIn         = "in"
	MovementTypeOut        = "out"
	MovementTypeAdjustment = "adjustment"

	ReferenceTypeSale     = "sale"
	ReferenceTypePurchase = "purchase"
	ReferenceTypeManual   = "manual"
)

// InventoryMovement is an append-only audit fact. Quantity is signed:
// negative for stock leaving, positive for stock entering. Rows are
// never updated or deleted in normal operation.
type InventoryMovement struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	ProductID     int64   `gorm:"not null;index"`
	MovementType  string  `gorm:"type:varchar(50);not null"`
	Quantity      int     `gorm:"not null"`
	ReferenceType string  `gorm:"type:varchar(50);not null;index:idx_movement_reference"`
	ReferenceID   int64   `gorm:"not null;index:idx_movement_reference"`
	Notes         *string `gorm:"type:text"`
	UserID        int64   `gorm:"not null"`
	CreatedAt     time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
