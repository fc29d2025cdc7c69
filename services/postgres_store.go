package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/market-scout/scout-backend/models"
	"github.com/market-scout/scout-backend/shared"
)

// PostgresListingStore is the durable ListingStore. Same-key upserts are
// serialized by the database itself through the ON CONFLICT unique index on
// (platform, source_id), so no application-level locking is needed.
type PostgresListingStore struct {
	DB      *sql.DB
	metrics *shared.ServiceMetrics
}

func NewPostgresListingStore(db *sql.DB) *PostgresListingStore {
	return &PostgresListingStore{
		DB:      db,
		metrics: shared.NewServiceMetrics("postgres-listing-store"),
	}
}

const listingColumns = `id, platform, source_id, title, description, category, condition,
              condition_confident, brand, model, price, currency, warranty_months, vram_gb,
              city, region, url, seller_name, posted_date, first_seen_date, last_seen_date, is_active`

func scanListing(scanner interface{ Scan(...interface{}) error }) (*models.Listing, error) {
	var l models.Listing
	var postedDate sql.NullTime
	err := scanner.Scan(
		&l.ID, &l.Platform, &l.SourceID, &l.Title, &l.Description, &l.Category, &l.Condition,
		&l.ConditionConfident, &l.Brand, &l.Model, &l.Price, &l.Currency, &l.WarrantyMonths, &l.VRAMGb,
		&l.City, &l.Region, &l.URL, &l.SellerName, &postedDate, &l.FirstSeenDate, &l.LastSeenDate, &l.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if postedDate.Valid {
		l.PostedDate = &postedDate.Time
	}
	return &l, nil
}

// Upsert inserts or merges a listing in a single atomic statement. The xmax
// system column distinguishes a fresh insert from a conflict update so the
// caller learns which branch ran.
func (s *PostgresListingStore) Upsert(ctx context.Context, listing models.Listing) (models.UpsertOutcome, error) {
	start := time.Now()

	if listing.Platform == "" || listing.SourceID == "" {
		return "", shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeMissingIdentity,
			"listing is missing platform or source_id", "postgres-listing-store", "Upsert", false, nil)
	}

	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}

	query := `
		INSERT INTO listings (
			id, platform, source_id, title, description, category, condition,
			condition_confident, brand, model, price, currency, warranty_months,
			vram_gb, city, region, url, seller_name, posted_date,
			first_seen_date, last_seen_date, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19,
			NOW(), NOW(), TRUE
		)
		ON CONFLICT (platform, source_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			condition = EXCLUDED.condition,
			condition_confident = EXCLUDED.condition_confident,
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			warranty_months = EXCLUDED.warranty_months,
			vram_gb = EXCLUDED.vram_gb,
			city = CASE WHEN EXCLUDED.city <> '' THEN EXCLUDED.city ELSE listings.city END,
			region = CASE WHEN EXCLUDED.region <> '' THEN EXCLUDED.region ELSE listings.region END,
			url = CASE WHEN EXCLUDED.url <> '' THEN EXCLUDED.url ELSE listings.url END,
			seller_name = CASE WHEN EXCLUDED.seller_name <> '' THEN EXCLUDED.seller_name ELSE listings.seller_name END,
			posted_date = COALESCE(EXCLUDED.posted_date, listings.posted_date),
			last_seen_date = NOW(),
			is_active = TRUE
		RETURNING (xmax = 0) AS inserted`

	var inserted bool
	err := s.DB.QueryRowContext(ctx, query,
		listing.ID, listing.Platform, listing.SourceID, listing.Title, listing.Description,
		listing.Category, listing.Condition, listing.ConditionConfident, listing.Brand,
		listing.Model, listing.Price, listing.Currency, listing.WarrantyMonths,
		listing.VRAMGb, listing.City, listing.Region, listing.URL, listing.SellerName,
		listing.PostedDate,
	).Scan(&inserted)

	s.metrics.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		return "", shared.WrapError(err, shared.ErrorCategoryDatabase, "UPSERT_FAILED",
			"postgres-listing-store", "Upsert", true)
	}

	if inserted {
		return models.UpsertInserted, nil
	}
	return models.UpsertUpdated, nil
}

func (s *PostgresListingStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	listing, err := scanListing(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan listing: %w", err)
	}
	return listing, nil
}

func (s *PostgresListingStore) GetByIdentity(ctx context.Context, platform models.Platform, sourceID string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE platform = $1 AND source_id = $2`
	listing, err := scanListing(s.DB.QueryRowContext(ctx, query, platform, sourceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan listing: %w", err)
	}
	return listing, nil
}

// Query builds a WHERE clause dynamically from the filter with numbered
// placeholders, then paginates ordered by last_seen_date descending unless a
// sort key overrides it.
func (s *PostgresListingStore) Query(ctx context.Context, filter models.ListingFilter, page models.Page) ([]models.Listing, error) {
	baseQuery := `SELECT ` + listingColumns + ` FROM listings`

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}
	if filter.Condition != "" {
		conditions = append(conditions, fmt.Sprintf("condition = $%d", argIndex))
		args = append(args, filter.Condition)
		argIndex++
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(city) = LOWER($%d)", argIndex))
		args = append(args, filter.City)
		argIndex++
	}
	if filter.Platform != "" {
		conditions = append(conditions, fmt.Sprintf("platform = $%d", argIndex))
		args = append(args, filter.Platform)
		argIndex++
	}
	if filter.MinPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, filter.MinPrice)
		argIndex++
	}
	if filter.MaxPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, filter.MaxPrice)
		argIndex++
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.SearchText != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.SearchText+"%")
		argIndex++
	}

	query := baseQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	switch page.SortKey {
	case "price_asc":
		query += " ORDER BY price ASC"
	case "price_desc":
		query += " ORDER BY price DESC"
	default:
		query += " ORDER BY last_seen_date DESC"
	}

	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, limit)
	argIndex++

	if page.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, page.Offset)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, *listing)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}
	return listings, nil
}

func (s *PostgresListingStore) SaveScore(ctx context.Context, score models.Score) error {
	query := `
		INSERT INTO listing_scores (
			listing_id, rvi, pvr, final_score, vram_penalty_applied,
			low_confidence, valid, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (listing_id) DO UPDATE SET
			rvi = EXCLUDED.rvi,
			pvr = EXCLUDED.pvr,
			final_score = EXCLUDED.final_score,
			vram_penalty_applied = EXCLUDED.vram_penalty_applied,
			low_confidence = EXCLUDED.low_confidence,
			valid = EXCLUDED.valid,
			computed_at = EXCLUDED.computed_at`

	_, err := s.DB.ExecContext(ctx, query,
		score.ListingID, score.RVI, score.PVR, score.FinalScore,
		score.VRAMPenaltyApplied, score.LowConfidence, score.Valid, score.ComputedAt,
	)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "SCORE_SAVE_FAILED",
			"postgres-listing-store", "SaveScore", true)
	}
	return nil
}

func (s *PostgresListingStore) GetScore(ctx context.Context, listingID uuid.UUID) (*models.Score, error) {
	query := `SELECT listing_id, rvi, pvr, final_score, vram_penalty_applied,
              low_confidence, valid, computed_at
              FROM listing_scores WHERE listing_id = $1`

	var score models.Score
	err := s.DB.QueryRowContext(ctx, query, listingID).Scan(
		&score.ListingID, &score.RVI, &score.PVR, &score.FinalScore,
		&score.VRAMPenaltyApplied, &score.LowConfidence, &score.Valid, &score.ComputedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan score: %w", err)
	}
	return &score, nil
}

// AggregateBy groups listings by category or city in one aggregate query.
// FILTER clauses keep invalid (price <= 0) rows out of the price stats while
// still counting them.
func (s *PostgresListingStore) AggregateBy(ctx context.Context, dimension string, filter models.ListingFilter) ([]models.GroupStat, error) {
	var groupColumn string
	switch dimension {
	case DimensionCategory:
		groupColumn = "category"
	case DimensionCity:
		groupColumn = "city"
	default:
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation, shared.CodeInvalidInput,
			"unknown aggregation dimension: "+dimension, "postgres-listing-store", "AggregateBy", false, nil)
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if dimension == DimensionCity {
		conditions = append(conditions, "city <> ''")
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}
	if filter.Platform != "" {
		conditions = append(conditions, fmt.Sprintf("platform = $%d", argIndex))
		args = append(args, filter.Platform)
		argIndex++
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	query := fmt.Sprintf(`
		SELECT %s AS group_key,
		       COUNT(*) FILTER (WHERE price > 0) AS valid_count,
		       COALESCE(AVG(price) FILTER (WHERE price > 0), 0) AS avg_price,
		       COALESCE(MIN(price) FILTER (WHERE price > 0), 0) AS min_price,
		       COALESCE(MAX(price) FILTER (WHERE price > 0), 0) AS max_price,
		       COUNT(*) FILTER (WHERE price <= 0) AS invalid_count
		FROM listings`, groupColumn)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" GROUP BY %s ORDER BY %s", groupColumn, groupColumn)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate listings: %w", err)
	}
	defer rows.Close()

	var stats []models.GroupStat
	for rows.Next() {
		var stat models.GroupStat
		if err := rows.Scan(&stat.GroupKey, &stat.Count, &stat.AvgPrice,
			&stat.MinPrice, &stat.MaxPrice, &stat.InvalidCount); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		stats = append(stats, stat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate rows: %w", err)
	}
	return stats, nil
}

// TrendDaily returns sparse per-day average prices for a category. Bucketing
// prefers posted_date and falls back to last_seen_date.
func (s *PostgresListingStore) TrendDaily(ctx context.Context, category models.Category, from, to time.Time) (map[string]models.TrendPoint, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "price > 0")
	if category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, category)
		argIndex++
	}
	conditions = append(conditions,
		fmt.Sprintf("COALESCE(posted_date, last_seen_date) >= $%d", argIndex),
		fmt.Sprintf("COALESCE(posted_date, last_seen_date) <= $%d", argIndex+1))
	args = append(args, from, to)

	query := `
		SELECT DATE_TRUNC('day', COALESCE(posted_date, last_seen_date) AT TIME ZONE 'UTC') AS bucket,
		       AVG(price) AS avg_price,
		       COUNT(*) AS sample_count
		FROM listings
		WHERE ` + strings.Join(conditions, " AND ") + `
		GROUP BY bucket
		ORDER BY bucket`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trend buckets: %w", err)
	}
	defer rows.Close()

	points := make(map[string]models.TrendPoint)
	for rows.Next() {
		var point models.TrendPoint
		if err := rows.Scan(&point.DateBucket, &point.AvgPrice, &point.SampleCount); err != nil {
			return nil, fmt.Errorf("failed to scan trend row: %w", err)
		}
		points[trendBucketKey(point.DateBucket)] = point
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trend rows: %w", err)
	}
	return points, nil
}

// MarkStale flags a platform's listings inactive when they are missing from
// the latest scrape's source-id set and past the retention window.
func (s *PostgresListingStore) MarkStale(ctx context.Context, platform models.Platform, seenSourceIDs map[string]bool, staleAfter time.Duration) (int, error) {
	seen := make([]string, 0, len(seenSourceIDs))
	for id := range seenSourceIDs {
		seen = append(seen, id)
	}

	query := `
		UPDATE listings
		SET is_active = FALSE
		WHERE platform = $1
		  AND is_active = TRUE
		  AND NOT (source_id = ANY($2))
		  AND last_seen_date < $3`

	cutoff := time.Now().Add(-staleAfter)
	result, err := s.DB.ExecContext(ctx, query, platform, pq.Array(seen), cutoff)
	if err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "MARK_STALE_FAILED",
			"postgres-listing-store", "MarkStale", true)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected > 0 {
		logrus.WithFields(logrus.Fields{
			"platform": platform,
			"marked":   affected,
		}).Info("Marked stale listings inactive")
	}
	return int(affected), nil
}

// Metrics exposes the store's service metrics.
func (s *PostgresListingStore) Metrics() *shared.ServiceMetrics {
	return s.metrics
}
