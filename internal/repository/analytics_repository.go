package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesSummary is an aggregate over completed orders in a period.
type SalesSummary struct {
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	OrderCount      int             `json:"order_count"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	AverageOrder    decimal.Decimal `json:"average_order_value"`
	TotalQuantityKg decimal.Decimal `json:"total_quantity_kg"`
}

// ProductPerformance is a per-product sales rollup.
type ProductPerformance struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold decimal.Decimal `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	OrderCount   int             `json:"order_count"`
}

// CategoryPerformance is a per-category sales rollup.
type CategoryPerformance struct {
	CategoryID   uuid.UUID       `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Revenue      decimal.Decimal `json:"revenue"`
	QuantitySold decimal.Decimal `json:"quantity_sold"`
}

// AnalyticsRepository runs read-only rollups over orders and items.
// Revenue figures are always derived from order items, never from the
// stored order totals.
type AnalyticsRepository interface {
	SalesSummary(ctx context.Context, start, end time.Time) (*SalesSummary, error)
	TopProducts(ctx context.Context, start, end time.Time, limit int) ([]*ProductPerformance, error)
	CategoryPerformance(ctx context.Context, start, end time.Time) ([]*CategoryPerformance, error)
}

type analyticsRepository struct {
	db DBTX
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository
func NewAnalyticsRepository(db DBTX) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) SalesSummary(ctx context.Context, start, end time.Time) (*SalesSummary, error) {
	query := `
		SELECT
			COUNT(DISTINCT o.id),
			COALESCE(SUM(oi.price * oi.quantity), 0),
			COALESCE(SUM(CASE WHEN oi.unit = 'ton' THEN oi.quantity * 1000 ELSE oi.quantity END), 0)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE o.status = 'completed'
		  AND o.order_date >= $1 AND o.order_date <= $2
	`

	summary := &SalesSummary{PeriodStart: start, PeriodEnd: end}
	err := r.db.QueryRowContext(ctx, query, start, end).Scan(
		&summary.OrderCount,
		&summary.TotalRevenue,
		&summary.TotalQuantityKg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales summary: %w", err)
	}

	if summary.OrderCount > 0 {
		summary.AverageOrder = summary.TotalRevenue.
			Div(decimal.NewFromInt(int64(summary.OrderCount))).
			Round(3)
	} else {
		summary.AverageOrder = decimal.Zero
	}

	return summary, nil
}

func (r *analyticsRepository) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]*ProductPerformance, error) {
	query := `
		SELECT
			p.id,
			p.name,
			COALESCE(SUM(oi.quantity), 0),
			COALESCE(SUM(oi.price * oi.quantity), 0),
			COUNT(DISTINCT o.id)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.status = 'completed'
		  AND o.order_date >= $1 AND o.order_date <= $2
		GROUP BY p.id, p.name
		ORDER BY SUM(oi.price * oi.quantity) DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute product performance: %w", err)
	}
	defer rows.Close()

	results := []*ProductPerformance{}
	for rows.Next() {
		p := &ProductPerformance{}
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.QuantitySold, &p.Revenue, &p.OrderCount); err != nil {
			return nil, fmt.Errorf("failed to scan product performance: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product performance: %w", err)
	}
	return results, nil
}

func (r *analyticsRepository) CategoryPerformance(ctx context.Context, start, end time.Time) ([]*CategoryPerformance, error) {
	query := `
		SELECT
			c.id,
			c.name,
			COALESCE(SUM(oi.price * oi.quantity), 0),
			COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE o.status = 'completed'
		  AND o.order_date >= $1 AND o.order_date <= $2
		GROUP BY c.id, c.name
		ORDER BY SUM(oi.price * oi.quantity) DESC
	`

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to compute category performance: %w", err)
	}
	defer rows.Close()

	results := []*CategoryPerformance{}
	for rows.Next() {
		c := &CategoryPerformance{}
		if err := rows.Scan(&c.CategoryID, &c.CategoryName, &c.Revenue, &c.QuantitySold); err != nil {
			return nil, fmt.Errorf("failed to scan category performance: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category performance: %w", err)
	}
	return results, nil
}
