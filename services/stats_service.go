package services

import (
	"context"
	"fmt"
	"time"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/shared"
)

// MaxTrendDays caps the trend window so the bucket series stays bounded
// regardless of caller input.
const MaxTrendDays = 365

// StatsService is the aggregation layer over the listing store. It reads
// derived data only, never mutates listings.
type StatsService struct {
	store   ListingStore
	metrics *shared.ServiceMetrics
	now     func() time.Time
}

func NewStatsService(store ListingStore) *StatsService {
	return &StatsService{
		store:   store,
		metrics: shared.NewServiceMetrics("stats-service"),
		now:     time.Now,
	}
}

// AggregateBy groups listings by category or city with per-group price
// statistics. Invalid listings are counted but excluded from the stats.
func (s *StatsService) AggregateBy(ctx context.Context, dimension string, filter models.ListingFilter) ([]models.GroupStat, error) {
	start := s.now()
	stats, err := s.store.AggregateBy(ctx, dimension, filter)
	s.metrics.RecordRequest(err == nil, time.Since(start))
	return stats, err
}

// Trend returns exactly `days` day-buckets of average price for a category,
// ending today. Days with no samples still appear with SampleCount = 0 so
// the series length is fixed and the bucket order is chronological. Windows
// outside [1, MaxTrendDays] are rejected.
func (s *StatsService) Trend(ctx context.Context, category models.Category, days int) ([]models.TrendPoint, error) {
	start := s.now()

	if days <= 0 {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeInvalidInput,
			"trend window must be at least one day", "stats-service", "Trend", false, nil)
	}
	if days > MaxTrendDays {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeInvalidInput,
			fmt.Sprintf("trend window exceeds %d days", MaxTrendDays),
			"stats-service", "Trend", false, nil)
	}
	if category != "" && !category.IsValid() {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeInvalidInput,
			"unknown category: "+string(category), "stats-service", "Trend", false, nil)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(days - 1))
	to := today.Add(24*time.Hour - time.Nanosecond)

	sparse, err := s.store.TrendDaily(ctx, category, from, to)
	s.metrics.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	points := make([]models.TrendPoint, 0, days)
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i)
		if point, ok := sparse[trendBucketKey(day)]; ok {
			point.DateBucket = day
			points = append(points, point)
			continue
		}
		points = append(points, models.TrendPoint{DateBucket: day})
	}
	return points, nil
}

// Metrics exposes the stats service metrics.
func (s *StatsService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}
