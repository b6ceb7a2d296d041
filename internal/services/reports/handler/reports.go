package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gestvendas/internal/database/models"
)

const (
	dashboardCacheKey = "reports:dashboard"
	dashboardCacheTTL = 2 * time.Minute
)

type ReportsHandler struct {
	db    *gorm.DB
	redis *redis.Client
	log   *logrus.Logger
}

func NewReportsHandler(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger) *ReportsHandler {
	return &ReportsHandler{
		db:    db,
		redis: redisClient,
		log:   logger,
	}
}

// DashboardStats aggregates the landing-page numbers. Cancelled
// documents are excluded from every money figure.
type DashboardStats struct {
	TotalSales        decimal.Decimal `json:"total_sales"`
	MonthSales        decimal.Decimal `json:"month_sales"`
	TotalPurchases    decimal.Decimal `json:"total_purchases"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	PendingSalesCount int64           `json:"pending_sales_count"`
	ProductCount      int64           `json:"product_count"`
	CustomerCount     int64           `json:"customer_count"`
	SupplierCount     int64           `json:"supplier_count"`
	LowStockCount     int64           `json:"low_stock_count"`
	RecentSales       []models.Sale   `json:"recent_sales"`
}

func (s *ReportsHandler) Dashboard(ctx context.Context) (*DashboardStats, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, dashboardCacheKey).Result(); err == nil {
			var stats DashboardStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats := DashboardStats{}
	var err error

	if stats.TotalSales, err = s.sumAmount(ctx, &models.Sale{}, "status <> ?", models.SaleStatusCancelled); err != nil {
		return nil, err
	}
	monthStart := startOfMonth(time.Now())
	if stats.MonthSales, err = s.sumAmount(ctx, &models.Sale{}, "status <> ? AND sale_date >= ?", models.SaleStatusCancelled, monthStart); err != nil {
		return nil, err
	}
	if stats.TotalPurchases, err = s.sumAmount(ctx, &models.Purchase{}, "status <> ?", models.PurchaseStatusCancelled); err != nil {
		return nil, err
	}
	stats.GrossProfit = stats.TotalSales.Sub(stats.TotalPurchases)

	counts := []struct {
		dest  *int64
		model interface{}
		query string
		args  []interface{}
	}{
		{&stats.PendingSalesCount, &models.Sale{}, "status = ?", []interface{}{models.SaleStatusPending}},
		{&stats.ProductCount, &models.Product{}, "is_active = ?", []interface{}{true}},
		{&stats.CustomerCount, &models.Customer{}, "is_active = ?", []interface{}{true}},
		{&stats.SupplierCount, &models.Supplier{}, "is_active = ?", []interface{}{true}},
		{&stats.LowStockCount, &models.Product{}, "stock_quantity <= min_stock AND is_active = ?", []interface{}{true}},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(c.model).Where(c.query, c.args...).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("count dashboard stat: %w", err)
		}
	}

	if err := s.db.WithContext(ctx).Model(&models.Sale{}).
		Order("sale_date DESC, id DESC").
		Limit(5).
		Preload("Customer").
		Find(&stats.RecentSales).Error; err != nil {
		return nil, fmt.Errorf("recent sales: %w", err)
	}

	if s.redis != nil {
		if payload, err := json.Marshal(stats); err == nil {
			s.redis.Set(ctx, dashboardCacheKey, payload, dashboardCacheTTL)
		}
	}
	return &stats, nil
}

func (s *ReportsHandler) sumAmount(ctx context.Context, model interface{}, query string, args ...interface{}) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Model(model).
		Select("COALESCE(SUM(total_amount), 0) AS total").
		Where(query, args...).
		Scan(&row).Error; err != nil {
		return decimal.Zero, fmt.Errorf("sum amounts: %w", err)
	}
	return row.Total, nil
}

type MonthlyTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// MonthlySales returns per-month sale totals for the trailing window,
// oldest first, with zero rows for months without sales.
func (s *ReportsHandler) MonthlySales(ctx context.Context, months int) ([]MonthlyTotal, error) {
	if months < 1 || months > 36 {
		months = 12
	}
	since := startOfMonth(time.Now()).AddDate(0, -(months - 1), 0)

	var sales []models.Sale
	if err := s.db.WithContext(ctx).
		Where("status <> ? AND sale_date >= ?", models.SaleStatusCancelled, since).
		Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("monthly sales: %w", err)
	}

	// Bucket in Go rather than SQL: date truncation is not portable
	// across the dialects we run against.
	byMonth := make(map[string]decimal.Decimal, months)
	for _, sale := range sales {
		key := sale.SaleDate.Format("2006-01")
		byMonth[key] = byMonth[key].Add(sale.TotalAmount)
	}

	totals := make([]MonthlyTotal, 0, months)
	for i := 0; i < months; i++ {
		month := since.AddDate(0, i, 0).Format("2006-01")
		totals = append(totals, MonthlyTotal{Month: month, Total: byMonth[month]})
	}
	return totals, nil
}

type TopProduct struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// TopProducts ranks products by quantity sold on non-cancelled sales.
func (s *ReportsHandler) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	var rows []TopProduct
	if err := s.db.WithContext(ctx).Model(&models.SaleItem{}).
		Select("sale_items.product_id AS product_id, products.name AS name, SUM(sale_items.quantity) AS quantity_sold, COALESCE(SUM(sale_items.total_price), 0) AS revenue").
		Joins("JOIN sales ON sales.id = sale_items.sale_id AND sales.status <> ?", models.SaleStatusCancelled).
		Joins("JOIN products ON products.id = sale_items.product_id").
		Group("sale_items.product_id, products.name").
		Order("quantity_sold DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return rows, nil
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
