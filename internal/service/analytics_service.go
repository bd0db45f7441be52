package service

import (
	"context"
	"errors"
	"time"

	"github.com/wadieregaieg/waadiefr/internal/repository"
)

var ErrInvalidPeriod = errors.New("period end must be after period start")

// Period names accepted by ResolvePeriod.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// SalesReport bundles the rollups for one reporting window.
type SalesReport struct {
	Summary    *repository.SalesSummary          `json:"summary"`
	Top        []*repository.ProductPerformance  `json:"top_products"`
	Categories []*repository.CategoryPerformance `json:"category_performance"`
}

// AnalyticsService produces sales rollups over completed orders.
type AnalyticsService interface {
	SalesSummary(ctx context.Context, start, end time.Time) (*repository.SalesSummary, error)
	TopProducts(ctx context.Context, start, end time.Time, limit int) ([]*repository.ProductPerformance, error)
	CategoryPerformance(ctx context.Context, start, end time.Time) ([]*repository.CategoryPerformance, error)
	Report(ctx context.Context, start, end time.Time, topLimit int) (*SalesReport, error)
}

type analyticsService struct {
	repo repository.AnalyticsRepository
}

// NewAnalyticsService creates a new instance of AnalyticsService.
func NewAnalyticsService(repo repository.AnalyticsRepository) AnalyticsService {
	return &analyticsService{repo: repo}
}

// ResolvePeriod maps a named period onto a [start, end) window ending
// now. Unknown names fall back to daily.
func ResolvePeriod(name string, now time.Time) (time.Time, time.Time) {
	switch name {
	case PeriodWeekly:
		return now.AddDate(0, 0, -7), now
	case PeriodMonthly:
		return now.AddDate(0, -1, 0), now
	case PeriodYearly:
		return now.AddDate(-1, 0, 0), now
	default:
		return now.AddDate(0, 0, -1), now
	}
}

func validatePeriod(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidPeriod
	}
	return nil
}

func (s *analyticsService) SalesSummary(ctx context.Context, start, end time.Time) (*repository.SalesSummary, error) {
	if err := validatePeriod(start, end); err != nil {
		return nil, err
	}
	return s.repo.SalesSummary(ctx, start, end)
}

func (s *analyticsService) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]*repository.ProductPerformance, error) {
	if err := validatePeriod(start, end); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.TopProducts(ctx, start, end, limit)
}

func (s *analyticsService) CategoryPerformance(ctx context.Context, start, end time.Time) ([]*repository.CategoryPerformance, error) {
	if err := validatePeriod(start, end); err != nil {
		return nil, err
	}
	return s.repo.CategoryPerformance(ctx, start, end)
}

// Report runs all three rollups for one window.
func (s *analyticsService) Report(ctx context.Context, start, end time.Time, topLimit int) (*SalesReport, error) {
	summary, err := s.SalesSummary(ctx, start, end)
	if err != nil {
		return nil, err
	}
	top, err := s.TopProducts(ctx, start, end, topLimit)
	if err != nil {
		return nil, err
	}
	categories, err := s.CategoryPerformance(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return &SalesReport{Summary: summary, Top: top, Categories: categories}, nil
}
