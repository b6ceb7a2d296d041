package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gestvendas/internal/database/models"
	catalog "gestvendas/internal/services/catalog/handler"
)

var (
	ErrZeroQuantity        = errors.New("movement quantity must not be zero")
	ErrInvalidMovementType = errors.New("unknown movement type")
)

// MovementHandler owns the append-only inventory movement log. Rows
// are only ever inserted; corrections happen through compensating
// entries, never updates or deletes.
type MovementHandler struct {
	db            *gorm.DB
	redis         *redis.Client
	log           *logrus.Logger
	allowNegative bool
}

func NewMovementHandler(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger, allowNegativeStock bool) *MovementHandler {
	return &MovementHandler{
		db:            db,
		redis:         redisClient,
		log:           logger,
		allowNegative: allowNegativeStock,
	}
}

type RecordAdjustmentRequest struct {
	ProductID int64
	// Quantity carries the sign: positive adds stock, negative
	// removes it.
	Quantity int
	Notes    *string
	UserID   int64
}

// RecordAdjustment applies a manual stock correction: the product
// quantity and the audit row change together or not at all.
func (s *MovementHandler) RecordAdjustment(ctx context.Context, req RecordAdjustmentRequest) (*models.InventoryMovement, error) {
	if req.Quantity == 0 {
		return nil, ErrZeroQuantity
	}

	var movement models.InventoryMovement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := catalog.AdjustStock(tx, req.ProductID, req.Quantity, s.allowNegative); err != nil {
			return fmt.Errorf("product %d: %w", req.ProductID, err)
		}

		movement = models.InventoryMovement{
			ProductID:     req.ProductID,
			MovementType:  models.MovementTypeAdjustment,
			Quantity:      req.Quantity,
			ReferenceType: models.ReferenceTypeManual,
			ReferenceID:   0,
			Notes:         req.Notes,
			UserID:        req.UserID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		_ = s.redis.Del(ctx, catalog.LowStockCacheKey)
		_ = s.redis.Del(ctx, catalog.ProductCacheKey(req.ProductID))
	}
	return &movement, nil
}

type ListMovementsRequest struct {
	ProductID     int64
	MovementType  string
	ReferenceType string
	Page          int
	PageSize      int
}

// ListForProduct returns the movement history of one product in
// chronological order, so running the signed quantities forward
// replays the stock level.
func (s *MovementHandler) ListForProduct(ctx context.Context, req ListMovementsRequest) ([]models.InventoryMovement, int64, error) {
	if req.MovementType != "" {
		switch req.MovementType {
		case models.MovementTypeIn, models.MovementTypeOut, models.MovementTypeAdjustment:
		default:
			return nil, 0, ErrInvalidMovementType
		}
	}

	query := s.db.WithContext(ctx).Model(&models.InventoryMovement{}).
		Where("product_id = ?", req.ProductID)
	if req.MovementType != "" {
		query = query.Where("movement_type = ?", req.MovementType)
	}
	if req.ReferenceType != "" {
		query = query.Where("reference_type = ?", req.ReferenceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	var movements []models.InventoryMovement
	if err := query.Order("created_at ASC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&movements).Error; err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	return movements, total, nil
}

// ListForDocument returns every movement a sale or purchase produced,
// original postings and reversals alike.
func (s *MovementHandler) ListForDocument(ctx context.Context, referenceType string, referenceID int64) ([]models.InventoryMovement, error) {
	var movements []models.InventoryMovement
	if err := s.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		Order("created_at ASC, id ASC").
		Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("list document movements: %w", err)
	}
	return movements, nil
}

// DocumentMovementSum is the net signed quantity a document left on
// stock. Zero means a posting and its reversal cancel out.
func DocumentMovementSum(tx *gorm.DB, referenceType string, referenceID int64) (int64, error) {
	var sum struct {
		Total int64
	}
	if err := tx.Model(&models.InventoryMovement{}).
		Select("COALESCE(SUM(quantity), 0) AS total").
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("sum document movements: %w", err)
	}
	return sum.Total, nil
}
