package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wadieregaieg/waadiefr/internal/repository"
)

type mockAnalyticsRepository struct {
	summary  *repository.SalesSummary
	top      []*repository.ProductPerformance
	topLimit int
}

func (m *mockAnalyticsRepository) SalesSummary(ctx context.Context, start, end time.Time) (*repository.SalesSummary, error) {
	return m.summary, nil
}

func (m *mockAnalyticsRepository) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]*repository.ProductPerformance, error) {
	m.topLimit = limit
	if limit < len(m.top) {
		return m.top[:limit], nil
	}
	return m.top, nil
}

func (m *mockAnalyticsRepository) CategoryPerformance(ctx context.Context, start, end time.Time) ([]*repository.CategoryPerformance, error) {
	return nil, nil
}

func TestResolvePeriod(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		wantStart time.Time
	}{
		{PeriodDaily, now.AddDate(0, 0, -1)},
		{PeriodWeekly, now.AddDate(0, 0, -7)},
		{PeriodMonthly, now.AddDate(0, -1, 0)},
		{PeriodYearly, now.AddDate(-1, 0, 0)},
		{"unknown", now.AddDate(0, 0, -1)},
		{"", now.AddDate(0, 0, -1)},
	}

	for _, tt := range tests {
		t.Run("period "+tt.name, func(t *testing.T) {
			start, end := ResolvePeriod(tt.name, now)
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %s, want %s", start, tt.wantStart)
			}
			if !end.Equal(now) {
				t.Errorf("end = %s, want %s", end, now)
			}
		})
	}
}

func TestAnalyticsRejectsInvertedWindows(t *testing.T) {
	svc := NewAnalyticsService(&mockAnalyticsRepository{})
	now := time.Now()

	if _, err := svc.SalesSummary(context.Background(), now, now.Add(-time.Hour)); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("inverted window: got %v", err)
	}
	if _, err := svc.SalesSummary(context.Background(), now, now); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("empty window: got %v", err)
	}
}

func TestTopProductsDefaultsLimit(t *testing.T) {
	repo := &mockAnalyticsRepository{}
	svc := NewAnalyticsService(repo)
	now := time.Now()

	if _, err := svc.TopProducts(context.Background(), now.Add(-time.Hour), now, 0); err != nil {
		t.Fatalf("top products failed: %v", err)
	}
	if repo.topLimit != 10 {
		t.Errorf("limit = %d, want default 10", repo.topLimit)
	}

	if _, err := svc.TopProducts(context.Background(), now.Add(-time.Hour), now, 5); err != nil {
		t.Fatalf("top products failed: %v", err)
	}
	if repo.topLimit != 5 {
		t.Errorf("limit = %d, want 5", repo.topLimit)
	}
}

func TestReportBundlesAllRollups(t *testing.T) {
	repo := &mockAnalyticsRepository{
		summary: &repository.SalesSummary{OrderCount: 3},
		top:     []*repository.ProductPerformance{{ProductName: "Tomatoes"}},
	}
	svc := NewAnalyticsService(repo)
	now := time.Now()

	report, err := svc.Report(context.Background(), now.Add(-24*time.Hour), now, 10)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.Summary == nil || report.Summary.OrderCount != 3 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if len(report.Top) != 1 {
		t.Errorf("top = %+v", report.Top)
	}
}
