package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/market-scout/scout-backend/models"
)

// setupPostgresStore connects to the test database, applies the schema and
// clears the listing tables. Tests are skipped when no database is reachable.
func setupPostgresStore(t *testing.T) (*PostgresListingStore, *sql.DB) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://localhost/scout_backend_test?sslmode=disable"
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Skipf("Skipping postgres store tests - database not available: %v", err)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("Skipping postgres store tests - database ping failed: %v", err)
		return nil, nil
	}

	schema, err := os.ReadFile("../database/schema.sql")
	if err != nil {
		db.Close()
		t.Fatalf("failed to read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("TRUNCATE listings CASCADE"); err != nil {
		db.Close()
		t.Fatalf("failed to truncate listings: %v", err)
	}

	return NewPostgresListingStore(db), db
}

func TestPostgresUpsertInsertThenUpdate(t *testing.T) {
	store, db := setupPostgresStore(t)
	if store == nil {
		return
	}
	defer db.Close()
	ctx := context.Background()

	listing := testListing("pg-1", 1500)
	listing.City = "Tel Aviv"

	outcome, err := store.Upsert(ctx, listing)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if outcome != models.UpsertInserted {
		t.Errorf("first upsert outcome = %v, want inserted", outcome)
	}

	stored, err := store.GetByIdentity(ctx, models.PlatformYad2, "pg-1")
	if err != nil || stored == nil {
		t.Fatalf("GetByIdentity after insert: %v", err)
	}
	firstSeen := stored.FirstSeenDate

	// Fresh observation with a new price but no city mention.
	listing.Price = listing.Price + 500
	listing.City = ""
	outcome, err = store.Upsert(ctx, listing)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if outcome != models.UpsertUpdated {
		t.Errorf("second upsert outcome = %v, want updated", outcome)
	}

	stored, err = store.GetByIdentity(ctx, models.PlatformYad2, "pg-1")
	if err != nil || stored == nil {
		t.Fatalf("GetByIdentity after update: %v", err)
	}
	if stored.Price != listing.Price {
		t.Errorf("price = %v, want %v", stored.Price, listing.Price)
	}
	if stored.City != "Tel Aviv" {
		t.Errorf("city = %q, an empty observation must not erase it", stored.City)
	}
	if !stored.FirstSeenDate.Equal(firstSeen) {
		t.Errorf("first_seen_date moved from %v to %v", firstSeen, stored.FirstSeenDate)
	}
	if !stored.LastSeenDate.After(firstSeen) && !stored.LastSeenDate.Equal(firstSeen) {
		t.Errorf("last_seen_date %v precedes first_seen_date %v", stored.LastSeenDate, firstSeen)
	}
}

func TestPostgresScoreRoundTrip(t *testing.T) {
	store, db := setupPostgresStore(t)
	if store == nil {
		return
	}
	defer db.Close()
	ctx := context.Background()

	listing := testListing("pg-score", 1500)
	if _, err := store.Upsert(ctx, listing); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	stored, _ := store.GetByIdentity(ctx, models.PlatformYad2, "pg-score")

	engine := NewScoringEngine()
	score := engine.Score(*stored, DefaultScoringConfig())
	if err := store.SaveScore(ctx, score); err != nil {
		t.Fatalf("SaveScore failed: %v", err)
	}

	got, err := store.GetScore(ctx, stored.ID)
	if err != nil {
		t.Fatalf("GetScore failed: %v", err)
	}
	if got == nil {
		t.Fatal("saved score not found")
	}
	if got.FinalScore != score.FinalScore || got.Valid != score.Valid {
		t.Errorf("score round trip mismatch: got %+v want %+v", got, score)
	}

	// A rescore replaces the previous row.
	score.FinalScore = score.FinalScore * 2
	if err := store.SaveScore(ctx, score); err != nil {
		t.Fatalf("second SaveScore failed: %v", err)
	}
	got, _ = store.GetScore(ctx, stored.ID)
	if got.FinalScore != score.FinalScore {
		t.Errorf("rescore not applied: got %v want %v", got.FinalScore, score.FinalScore)
	}
}

func TestPostgresQueryAndAggregate(t *testing.T) {
	store, db := setupPostgresStore(t)
	if store == nil {
		return
	}
	defer db.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l := testListing(fmt.Sprintf("pg-gpu-%d", i), float64(1000+i*500))
		l.City = "Haifa"
		if _, err := store.Upsert(ctx, l); err != nil {
			t.Fatalf("seed upsert failed: %v", err)
		}
	}
	cpu := testListing("pg-cpu-1", 700)
	cpu.Platform = models.PlatformFacebook
	cpu.Category = models.CategoryCPU
	if _, err := store.Upsert(ctx, cpu); err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}

	gpus, err := store.Query(ctx, models.ListingFilter{Category: models.CategoryGPU}, models.Page{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(gpus) != 3 {
		t.Errorf("gpu query returned %d listings, want 3", len(gpus))
	}

	cheap, err := store.Query(ctx, models.ListingFilter{MaxPrice: 1000}, models.Page{SortKey: "price_asc"})
	if err != nil {
		t.Fatalf("Query with max price failed: %v", err)
	}
	if len(cheap) != 2 {
		t.Fatalf("max price 1000 returned %d listings, want 2", len(cheap))
	}
	if cheap[0].Price > cheap[1].Price {
		t.Errorf("price_asc out of order: %v > %v", cheap[0].Price, cheap[1].Price)
	}

	stats, err := store.AggregateBy(ctx, DimensionCategory, models.ListingFilter{})
	if err != nil {
		t.Fatalf("AggregateBy failed: %v", err)
	}
	byKey := make(map[string]models.GroupStat)
	for _, s := range stats {
		byKey[s.GroupKey] = s
	}
	gpuStat, ok := byKey[string(models.CategoryGPU)]
	if !ok {
		t.Fatal("gpu group missing from aggregate")
	}
	if gpuStat.Count != 3 || gpuStat.MinPrice != 1000 || gpuStat.MaxPrice != 2000 {
		t.Errorf("gpu stat = %+v", gpuStat)
	}
	if gpuStat.AvgPrice != 1500 {
		t.Errorf("gpu avg = %v, want 1500", gpuStat.AvgPrice)
	}
}

func TestPostgresMarkStale(t *testing.T) {
	store, db := setupPostgresStore(t)
	if store == nil {
		return
	}
	defer db.Close()
	ctx := context.Background()

	for _, id := range []string{"stale-1", "stale-2", "fresh-1"} {
		if _, err := store.Upsert(ctx, testListing(id, 1000)); err != nil {
			t.Fatalf("seed upsert failed: %v", err)
		}
	}
	// Age two listings past the retention window.
	if _, err := db.Exec(
		`UPDATE listings SET last_seen_date = NOW() - INTERVAL '30 days' WHERE source_id IN ('stale-1', 'stale-2')`,
	); err != nil {
		t.Fatalf("failed to age listings: %v", err)
	}

	marked, err := store.MarkStale(ctx, models.PlatformYad2,
		map[string]bool{"stale-2": true, "fresh-1": true}, 14*24*time.Hour)
	if err != nil {
		t.Fatalf("MarkStale failed: %v", err)
	}
	if marked != 1 {
		t.Errorf("marked = %d, want only the aged unseen listing", marked)
	}

	stale, _ := store.GetByIdentity(ctx, models.PlatformYad2, "stale-1")
	if stale.IsActive {
		t.Error("stale-1 should be inactive")
	}
	for _, id := range []string{"stale-2", "fresh-1"} {
		l, _ := store.GetByIdentity(ctx, models.PlatformYad2, id)
		if !l.IsActive {
			t.Errorf("%s should remain active", id)
		}
	}
}
