package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/market-scout/scout-backend/models"
)

func testListing(sourceID string, price float64) models.Listing {
	return models.Listing{
		Platform:           models.PlatformYad2,
		SourceID:           sourceID,
		Title:              "RTX 3070",
		Category:           models.CategoryGPU,
		Condition:          models.ConditionGood,
		ConditionConfident: true,
		Price:              price,
		Currency:           "ILS",
		IsActive:           true,
	}
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	outcome, err := store.Upsert(ctx, testListing("1", 1500))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if outcome != models.UpsertInserted {
		t.Errorf("first upsert outcome = %q, want inserted", outcome)
	}

	outcome, err = store.Upsert(ctx, testListing("1", 1400))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if outcome != models.UpsertUpdated {
		t.Errorf("second upsert outcome = %q, want updated", outcome)
	}

	stored, err := store.GetByIdentity(ctx, models.PlatformYad2, "1")
	if err != nil {
		t.Fatalf("GetByIdentity failed: %v", err)
	}
	if stored == nil {
		t.Fatal("listing not found after upsert")
	}
	if stored.Price != 1400 {
		t.Errorf("merge should keep latest price, got %v", stored.Price)
	}
}

func TestUpsertFirstSeenImmutable(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	if _, err := store.Upsert(ctx, testListing("1", 1500)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	first, _ := store.GetByIdentity(ctx, models.PlatformYad2, "1")

	// A later observation advances last_seen only.
	store.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := store.Upsert(ctx, testListing("1", 1200)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second, _ := store.GetByIdentity(ctx, models.PlatformYad2, "1")

	if !second.FirstSeenDate.Equal(first.FirstSeenDate) {
		t.Error("first_seen_date must never change on merge")
	}
	if !second.LastSeenDate.After(first.LastSeenDate) {
		t.Error("last_seen_date must advance on merge")
	}
	if second.ID != first.ID {
		t.Error("merge must not change the listing id")
	}
}

func TestUpsertDistinctKeysDistinctListings(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	store.Upsert(ctx, testListing("1", 100))
	store.Upsert(ctx, testListing("2", 200))
	fb := testListing("1", 300)
	fb.Platform = models.PlatformFacebook
	store.Upsert(ctx, fb)

	listings, err := store.Query(ctx, models.ListingFilter{}, models.Page{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(listings) != 3 {
		t.Errorf("got %d listings, want 3 (same source_id on another platform is distinct)", len(listings))
	}
}

func TestUpsertMissingIdentity(t *testing.T) {
	store := NewMemoryListingStore()
	listing := testListing("", 100)
	if _, err := store.Upsert(context.Background(), listing); err == nil {
		t.Error("upsert without source_id must fail")
	}
}

func TestUpsertConcurrentSameKey(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	inserted := make(chan models.UpsertOutcome, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(price float64) {
			defer wg.Done()
			outcome, err := store.Upsert(ctx, testListing("1", price))
			if err != nil {
				t.Errorf("concurrent upsert failed: %v", err)
				return
			}
			inserted <- outcome
		}(float64(100 + i))
	}
	wg.Wait()
	close(inserted)

	insertCount := 0
	for outcome := range inserted {
		if outcome == models.UpsertInserted {
			insertCount++
		}
	}
	if insertCount != 1 {
		t.Errorf("exactly one concurrent upsert should insert, got %d", insertCount)
	}

	listings, _ := store.Query(ctx, models.ListingFilter{}, models.Page{})
	if len(listings) != 1 {
		t.Errorf("got %d listings after concurrent same-key upserts, want 1", len(listings))
	}
}

func TestUpsertIdempotenceProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("repeating an upsert changes nothing but last_seen", prop.ForAll(
		func(sourceID string, price float64, repeats int) bool {
			store := NewMemoryListingStore()
			ctx := context.Background()
			listing := testListing(sourceID, price)

			if _, err := store.Upsert(ctx, listing); err != nil {
				return false
			}
			for i := 0; i < repeats; i++ {
				if _, err := store.Upsert(ctx, listing); err != nil {
					return false
				}
			}

			all, err := store.Query(ctx, models.ListingFilter{}, models.Page{})
			if err != nil || len(all) != 1 {
				return false
			}
			return all[0].Price == price && all[0].SourceID == sourceID
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.Float64Range(1, 10000),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

func TestQueryFiltersAndPagination(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	for i, price := range []float64{100, 200, 300, 400, 500} {
		l := testListing(string(rune('a'+i)), price)
		if i%2 == 0 {
			l.Category = models.CategoryCPU
		}
		l.City = "Tel Aviv"
		store.Upsert(ctx, l)
	}

	cpus, err := store.Query(ctx, models.ListingFilter{Category: models.CategoryCPU}, models.Page{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(cpus) != 3 {
		t.Errorf("category filter: got %d, want 3", len(cpus))
	}

	banded, _ := store.Query(ctx, models.ListingFilter{MinPrice: 150, MaxPrice: 450}, models.Page{})
	if len(banded) != 3 {
		t.Errorf("price band filter: got %d, want 3", len(banded))
	}

	paged, _ := store.Query(ctx, models.ListingFilter{}, models.Page{Offset: 3, Limit: 10})
	if len(paged) != 2 {
		t.Errorf("pagination: got %d, want 2", len(paged))
	}

	city, _ := store.Query(ctx, models.ListingFilter{City: "tel aviv"}, models.Page{})
	if len(city) != 5 {
		t.Errorf("city filter should be case-insensitive, got %d", len(city))
	}
}

func TestQuerySearchText(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	a := testListing("1", 100)
	a.Title = "RTX 3070 Gaming"
	b := testListing("2", 200)
	b.Title = "לוח אם"
	b.Description = "מתאים ל-RTX"
	c := testListing("3", 300)
	c.Title = "PSU"
	store.Upsert(ctx, a)
	store.Upsert(ctx, b)
	store.Upsert(ctx, c)

	got, err := store.Query(ctx, models.ListingFilter{SearchText: "rtx"}, models.Page{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("search over title+description: got %d, want 2", len(got))
	}
}

func TestQueryDefaultOrderAndLimit(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 60; i++ {
		store.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		store.Upsert(ctx, testListing(string(rune('a'+i)), float64(i+1)))
	}

	got, err := store.Query(ctx, models.ListingFilter{}, models.Page{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != DefaultPageLimit {
		t.Errorf("default limit: got %d, want %d", len(got), DefaultPageLimit)
	}
	for i := 1; i < len(got); i++ {
		if got[i].LastSeenDate.After(got[i-1].LastSeenDate) {
			t.Fatal("default order must be last_seen_date descending")
		}
	}

	clamped, _ := store.Query(ctx, models.ListingFilter{}, models.Page{Limit: 10000})
	if len(clamped) > MaxPageLimit {
		t.Errorf("limit must clamp at %d, got %d", MaxPageLimit, len(clamped))
	}
}

func TestMarkStale(t *testing.T) {
	store := NewMemoryListingStore()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base.Add(-20 * 24 * time.Hour) }
	store.Upsert(ctx, testListing("old-gone", 100))
	store.Upsert(ctx, testListing("old-seen", 150))
	store.now = func() time.Time { return base }
	store.Upsert(ctx, testListing("fresh", 200))

	fb := testListing("other-platform", 300)
	fb.Platform = models.PlatformFacebook
	store.now = func() time.Time { return base.Add(-20 * 24 * time.Hour) }
	store.Upsert(ctx, fb)
	store.now = func() time.Time { return base }

	marked, err := store.MarkStale(ctx, models.PlatformYad2,
		map[string]bool{"old-seen": true, "fresh": true}, 14*24*time.Hour)
	if err != nil {
		t.Fatalf("MarkStale failed: %v", err)
	}
	if marked != 1 {
		t.Errorf("marked = %d, want 1", marked)
	}

	gone, _ := store.GetByIdentity(ctx, models.PlatformYad2, "old-gone")
	if gone == nil || gone.IsActive {
		t.Error("old-gone should be inactive but still stored")
	}
	seen, _ := store.GetByIdentity(ctx, models.PlatformYad2, "old-seen")
	if !seen.IsActive {
		t.Error("listings in the seen set must stay active")
	}
	other, _ := store.GetByIdentity(ctx, models.PlatformFacebook, "other-platform")
	if !other.IsActive {
		t.Error("other platforms must be untouched")
	}
}
