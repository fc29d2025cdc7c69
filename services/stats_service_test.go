package services

import (
	"context"
	"testing"
	"time"

	"github.com/market-scout/scout-backend/models"
)

func seedStatsStore(t *testing.T) *MemoryListingStore {
	t.Helper()
	store := NewMemoryListingStore()
	ctx := context.Background()

	seed := []struct {
		sourceID string
		category models.Category
		city     string
		price    float64
	}{
		{"1", models.CategoryGPU, "Tel Aviv", 1500},
		{"2", models.CategoryGPU, "Tel Aviv", 2500},
		{"3", models.CategoryGPU, "Haifa", 2000},
		{"4", models.CategoryCPU, "Tel Aviv", 800},
		{"5", models.CategoryCPU, "", 600},
		{"6", models.CategoryGPU, "Jerusalem", 0}, // invalid price
	}
	for _, row := range seed {
		l := testListing(row.sourceID, row.price)
		l.Category = row.category
		l.City = row.city
		if _, err := store.Upsert(ctx, l); err != nil {
			t.Fatalf("seed upsert failed: %v", err)
		}
	}
	return store
}

func TestAggregateByCategory(t *testing.T) {
	store := seedStatsStore(t)
	svc := NewStatsService(store)

	stats, err := svc.AggregateBy(context.Background(), DimensionCategory, models.ListingFilter{})
	if err != nil {
		t.Fatalf("AggregateBy failed: %v", err)
	}

	byKey := make(map[string]models.GroupStat)
	for _, stat := range stats {
		byKey[stat.GroupKey] = stat
	}

	gpu, ok := byKey["gpu"]
	if !ok {
		t.Fatal("missing gpu group")
	}
	if gpu.Count != 3 {
		t.Errorf("gpu valid count = %d, want 3", gpu.Count)
	}
	if gpu.InvalidCount != 1 {
		t.Errorf("gpu invalid count = %d, want 1", gpu.InvalidCount)
	}
	if gpu.AvgPrice != 2000 || gpu.MinPrice != 1500 || gpu.MaxPrice != 2500 {
		t.Errorf("gpu stats = avg %v min %v max %v, want 2000/1500/2500",
			gpu.AvgPrice, gpu.MinPrice, gpu.MaxPrice)
	}

	cpu := byKey["cpu"]
	if cpu.Count != 2 || cpu.AvgPrice != 700 {
		t.Errorf("cpu stats = count %d avg %v, want 2/700", cpu.Count, cpu.AvgPrice)
	}
}

func TestAggregateByCitySkipsUnknown(t *testing.T) {
	store := seedStatsStore(t)
	svc := NewStatsService(store)

	stats, err := svc.AggregateBy(context.Background(), DimensionCity, models.ListingFilter{})
	if err != nil {
		t.Fatalf("AggregateBy failed: %v", err)
	}

	for _, stat := range stats {
		if stat.GroupKey == "" {
			t.Error("city aggregation must skip listings with no canonical city")
		}
	}

	byKey := make(map[string]models.GroupStat)
	for _, stat := range stats {
		byKey[stat.GroupKey] = stat
	}
	if byKey["Tel Aviv"].Count != 3 {
		t.Errorf("Tel Aviv count = %d, want 3", byKey["Tel Aviv"].Count)
	}
}

func TestAggregateByUnknownDimension(t *testing.T) {
	svc := NewStatsService(NewMemoryListingStore())
	if _, err := svc.AggregateBy(context.Background(), "seller", models.ListingFilter{}); err == nil {
		t.Error("unknown dimension must be rejected")
	}
}

func TestTrendFixedLength(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	// Samples on two of the last seven days only.
	now := time.Now().UTC()
	twoDaysAgo := now.AddDate(0, 0, -2)
	fiveDaysAgo := now.AddDate(0, 0, -5)

	a := testListing("1", 1000)
	a.PostedDate = &twoDaysAgo
	b := testListing("2", 2000)
	b.PostedDate = &twoDaysAgo
	c := testListing("3", 3000)
	c.PostedDate = &fiveDaysAgo
	for _, l := range []models.Listing{a, b, c} {
		store.Upsert(ctx, l)
	}

	svc := NewStatsService(store)
	points, err := svc.Trend(ctx, models.CategoryGPU, 7)
	if err != nil {
		t.Fatalf("Trend failed: %v", err)
	}

	if len(points) != 7 {
		t.Fatalf("trend(gpu, 7) must return exactly 7 buckets, got %d", len(points))
	}
	for i := 1; i < len(points); i++ {
		if !points[i].DateBucket.After(points[i-1].DateBucket) {
			t.Fatal("buckets must be in ascending date order")
		}
	}

	withSamples := 0
	for _, p := range points {
		if p.SampleCount > 0 {
			withSamples++
			continue
		}
		if p.AvgPrice != 0 {
			t.Error("zero-sample bucket must have zero avg price")
		}
	}
	if withSamples != 2 {
		t.Errorf("buckets with samples = %d, want 2", withSamples)
	}

	for _, p := range points {
		if p.SampleCount == 2 && p.AvgPrice != 1500 {
			t.Errorf("two-sample bucket avg = %v, want 1500", p.AvgPrice)
		}
	}
}

func TestTrendExcludesInvalidAndOtherCategories(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	now := time.Now().UTC()
	invalid := testListing("1", 0)
	invalid.PostedDate = &now
	otherCat := testListing("2", 500)
	otherCat.Category = models.CategoryRAM
	otherCat.PostedDate = &now
	store.Upsert(ctx, invalid)
	store.Upsert(ctx, otherCat)

	svc := NewStatsService(store)
	points, err := svc.Trend(ctx, models.CategoryGPU, 3)
	if err != nil {
		t.Fatalf("Trend failed: %v", err)
	}
	for _, p := range points {
		if p.SampleCount != 0 {
			t.Error("invalid prices and other categories must not contribute samples")
		}
	}
}

func TestTrendValidatesInput(t *testing.T) {
	svc := NewStatsService(NewMemoryListingStore())
	if _, err := svc.Trend(context.Background(), models.CategoryGPU, 0); err == nil {
		t.Error("zero-day window must be rejected")
	}
	if _, err := svc.Trend(context.Background(), models.Category("bikes"), 7); err == nil {
		t.Error("unknown category must be rejected")
	}
}

func TestTrendCapsWindow(t *testing.T) {
	svc := NewStatsService(NewMemoryListingStore())

	if _, err := svc.Trend(context.Background(), models.CategoryGPU, MaxTrendDays+1); err == nil {
		t.Errorf("window above %d days must be rejected", MaxTrendDays)
	}
	// A request at the documented maximum never allocates beyond it.
	if _, err := svc.Trend(context.Background(), "", 5_000_000); err == nil {
		t.Error("oversized window must not produce a bucket per requested day")
	}

	points, err := svc.Trend(context.Background(), models.CategoryGPU, MaxTrendDays)
	if err != nil {
		t.Fatalf("window of exactly %d days must be accepted: %v", MaxTrendDays, err)
	}
	if len(points) != MaxTrendDays {
		t.Errorf("got %d buckets, want %d", len(points), MaxTrendDays)
	}
}
