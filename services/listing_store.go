package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/shared"
)

// ListingStore is the identity and merge store. The (platform, source_id)
// pair is the sole dedup key; Upsert creates on first observation and merges
// afterwards, first_seen_date is immutable, and listings are never deleted.
type ListingStore interface {
	Upsert(ctx context.Context, listing models.Listing) (models.UpsertOutcome, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	GetByIdentity(ctx context.Context, platform models.Platform, sourceID string) (*models.Listing, error)
	Query(ctx context.Context, filter models.ListingFilter, page models.Page) ([]models.Listing, error)
	SaveScore(ctx context.Context, score models.Score) error
	GetScore(ctx context.Context, listingID uuid.UUID) (*models.Score, error)
	AggregateBy(ctx context.Context, dimension string, filter models.ListingFilter) ([]models.GroupStat, error)
	TrendDaily(ctx context.Context, category models.Category, from, to time.Time) (map[string]models.TrendPoint, error)
	MarkStale(ctx context.Context, platform models.Platform, seenSourceIDs map[string]bool, staleAfter time.Duration) (int, error)
}

const (
	// DefaultPageLimit applies when a query gives no limit; MaxPageLimit is
	// a hard clamp.
	DefaultPageLimit = 50
	MaxPageLimit     = 500

	// Aggregation dimensions accepted by AggregateBy.
	DimensionCategory = "category"
	DimensionCity     = "city"
)

// trendBucketKey formats a day bucket key in UTC.
func trendBucketKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MemoryListingStore is an in-process ListingStore. It backs tests and
// single-node deployments without Postgres. Same-key upserts are serialized
// through a keyed mutex so concurrent merges never interleave.
type MemoryListingStore struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*models.Listing
	byKey    map[string]uuid.UUID
	scores   map[uuid.UUID]*models.Score
	keyLocks *shared.KeyedMutex
	now      func() time.Time
}

func NewMemoryListingStore() *MemoryListingStore {
	return &MemoryListingStore{
		byID:     make(map[uuid.UUID]*models.Listing),
		byKey:    make(map[string]uuid.UUID),
		scores:   make(map[uuid.UUID]*models.Score),
		keyLocks: shared.NewKeyedMutex(),
		now:      time.Now,
	}
}

// Upsert inserts a new listing or merges into the existing one sharing its
// identity key. Merge updates price, condition, description, warranty, vram
// and city and advances last_seen_date; first_seen_date never changes.
func (s *MemoryListingStore) Upsert(ctx context.Context, listing models.Listing) (models.UpsertOutcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if listing.Platform == "" || listing.SourceID == "" {
		return "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeMissingIdentity,
			"listing is missing platform or source_id", "listing-store", "Upsert", false, nil)
	}

	key := listing.IdentityKey()

	var outcome models.UpsertOutcome
	s.keyLocks.WithLock(key, func() {
		now := s.now()

		s.mu.Lock()
		defer s.mu.Unlock()

		if existingID, ok := s.byKey[key]; ok {
			existing := s.byID[existingID]
			mergeListing(existing, &listing, now)
			outcome = models.UpsertUpdated
			return
		}

		stored := listing
		if stored.ID == uuid.Nil {
			stored.ID = uuid.New()
		}
		stored.FirstSeenDate = now
		stored.LastSeenDate = now
		stored.IsActive = true
		s.byID[stored.ID] = &stored
		s.byKey[key] = stored.ID
		outcome = models.UpsertInserted
	})

	return outcome, nil
}

// mergeListing folds a fresh observation into the stored listing. Identity,
// id and first_seen_date stay untouched.
func mergeListing(existing, incoming *models.Listing, now time.Time) {
	existing.Title = incoming.Title
	existing.Description = incoming.Description
	existing.Category = incoming.Category
	existing.Condition = incoming.Condition
	existing.ConditionConfident = incoming.ConditionConfident
	existing.Brand = incoming.Brand
	existing.Model = incoming.Model
	existing.Price = incoming.Price
	existing.Currency = incoming.Currency
	existing.WarrantyMonths = incoming.WarrantyMonths
	existing.VRAMGb = incoming.VRAMGb
	if incoming.City != "" {
		existing.City = incoming.City
		existing.Region = incoming.Region
	}
	if incoming.URL != "" {
		existing.URL = incoming.URL
	}
	if incoming.SellerName != "" {
		existing.SellerName = incoming.SellerName
	}
	if incoming.PostedDate != nil {
		existing.PostedDate = incoming.PostedDate
	}
	existing.LastSeenDate = now
	existing.IsActive = true
}

func (s *MemoryListingStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *listing
	return &copied, nil
}

func (s *MemoryListingStore) GetByIdentity(ctx context.Context, platform models.Platform, sourceID string) (*models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[string(platform)+":"+sourceID]
	if !ok {
		return nil, nil
	}
	copied := *s.byID[id]
	return &copied, nil
}

// Query returns listings matching the filter, paginated and ordered by
// last_seen_date descending unless a sort key overrides it. Read-only.
func (s *MemoryListingStore) Query(ctx context.Context, filter models.ListingFilter, page models.Page) ([]models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	matched := make([]models.Listing, 0)
	for _, listing := range s.byID {
		if matchesFilter(listing, filter) {
			matched = append(matched, *listing)
		}
	}
	s.mu.RUnlock()

	sortListings(matched, page.SortKey)

	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []models.Listing{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func matchesFilter(l *models.Listing, f models.ListingFilter) bool {
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.Condition != "" && l.Condition != f.Condition {
		return false
	}
	if f.City != "" && !strings.EqualFold(l.City, f.City) {
		return false
	}
	if f.Platform != "" && l.Platform != f.Platform {
		return false
	}
	if f.MinPrice > 0 && l.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && l.Price > f.MaxPrice {
		return false
	}
	if f.ActiveOnly && !l.IsActive {
		return false
	}
	if f.SearchText != "" {
		needle := strings.ToLower(f.SearchText)
		haystack := strings.ToLower(l.Title + " " + l.Description)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func sortListings(listings []models.Listing, sortKey string) {
	switch sortKey {
	case "price_asc":
		sort.Slice(listings, func(i, j int) bool { return listings[i].Price < listings[j].Price })
	case "price_desc":
		sort.Slice(listings, func(i, j int) bool { return listings[i].Price > listings[j].Price })
	default:
		sort.Slice(listings, func(i, j int) bool {
			return listings[i].LastSeenDate.After(listings[j].LastSeenDate)
		})
	}
}

func (s *MemoryListingStore) SaveScore(ctx context.Context, score models.Score) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := score
	s.scores[score.ListingID] = &copied
	return nil
}

func (s *MemoryListingStore) GetScore(ctx context.Context, listingID uuid.UUID) (*models.Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[listingID]
	if !ok {
		return nil, nil
	}
	copied := *score
	return &copied, nil
}

// AggregateBy groups listings by category or city. Price stats cover only
// valid listings (price > 0); the rest land in InvalidCount. The city
// dimension skips listings with no canonical city.
func (s *MemoryListingStore) AggregateBy(ctx context.Context, dimension string, filter models.ListingFilter) ([]models.GroupStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dimension != DimensionCategory && dimension != DimensionCity {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeInvalidInput,
			"unknown aggregation dimension: "+dimension, "listing-store", "AggregateBy", false, nil)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string]*models.GroupStat)
	for _, listing := range s.byID {
		if !matchesFilter(listing, filter) {
			continue
		}

		var key string
		switch dimension {
		case DimensionCategory:
			key = string(listing.Category)
		case DimensionCity:
			if listing.City == "" {
				continue
			}
			key = listing.City
		}

		stat, ok := groups[key]
		if !ok {
			stat = &models.GroupStat{GroupKey: key}
			groups[key] = stat
		}

		if listing.Price <= 0 {
			stat.InvalidCount++
			continue
		}

		if stat.Count == 0 || listing.Price < stat.MinPrice {
			stat.MinPrice = listing.Price
		}
		if listing.Price > stat.MaxPrice {
			stat.MaxPrice = listing.Price
		}
		stat.AvgPrice += listing.Price
		stat.Count++
	}

	result := make([]models.GroupStat, 0, len(groups))
	for _, stat := range groups {
		if stat.Count > 0 {
			stat.AvgPrice /= float64(stat.Count)
		}
		result = append(result, *stat)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GroupKey < result[j].GroupKey })
	return result, nil
}

// TrendDaily returns sparse day-buckets of average valid price for a
// category between from and to. Bucketing uses posted_date when present,
// last_seen_date otherwise. The stats service fills the gaps.
func (s *MemoryListingStore) TrendDaily(ctx context.Context, category models.Category, from, to time.Time) (map[string]models.TrendPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type sums struct {
		total float64
		count int
	}
	buckets := make(map[string]*sums)

	for _, listing := range s.byID {
		if category != "" && listing.Category != category {
			continue
		}
		if listing.Price <= 0 {
			continue
		}

		when := listing.LastSeenDate
		if listing.PostedDate != nil {
			when = *listing.PostedDate
		}
		if when.Before(from) || when.After(to) {
			continue
		}

		key := trendBucketKey(when)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &sums{}
			buckets[key] = bucket
		}
		bucket.total += listing.Price
		bucket.count++
	}

	points := make(map[string]models.TrendPoint, len(buckets))
	for key, bucket := range buckets {
		day, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		points[key] = models.TrendPoint{
			DateBucket:  day,
			AvgPrice:    bucket.total / float64(bucket.count),
			SampleCount: bucket.count,
		}
	}
	return points, nil
}

// MarkStale flags listings from a platform inactive when they are absent
// from the latest scrape's source-id set and have gone unseen past the
// retention window. Listings are never deleted.
func (s *MemoryListingStore) MarkStale(ctx context.Context, platform models.Platform, seenSourceIDs map[string]bool, staleAfter time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-staleAfter)
	marked := 0
	for _, listing := range s.byID {
		if listing.Platform != platform || !listing.IsActive {
			continue
		}
		if seenSourceIDs[listing.SourceID] {
			continue
		}
		if listing.LastSeenDate.After(cutoff) {
			continue
		}
		listing.IsActive = false
		marked++
	}

	if marked > 0 {
		logrus.WithFields(logrus.Fields{
			"platform": platform,
			"marked":   marked,
		}).Info("Marked stale listings inactive")
	}
	return marked, nil
}
