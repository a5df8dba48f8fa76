package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parkops/pricingservice/internal/metrics"
	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/repository"
)

// Schema creates the coupons table. Codes are stored lower-cased.
const Schema = `
CREATE TABLE IF NOT EXISTS coupons (
	code        TEXT PRIMARY KEY,
	definition  JSONB       NOT NULL,
	usage_limit INTEGER,
	usage_count INTEGER     NOT NULL DEFAULT 0,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	findCouponSQL = `SELECT definition, usage_count FROM coupons WHERE code = $1`

	upsertCouponSQL = `
INSERT INTO coupons (code, definition, usage_limit, usage_count)
VALUES ($1, $2, $3, $4)
ON CONFLICT (code) DO UPDATE SET
	definition  = EXCLUDED.definition,
	usage_limit = EXCLUDED.usage_limit,
	usage_count = GREATEST(coupons.usage_count, EXCLUDED.usage_count),
	updated_at  = now()`

	// The guarded update only fires while the stored count is below the limit, so concurrent
	// settlements cannot push a coupon past its limit.
	consumeCouponSQL = `
INSERT INTO coupons (code, definition, usage_limit, usage_count)
VALUES ($1, $2, $3, $4 + 1)
ON CONFLICT (code) DO UPDATE SET
	usage_count = coupons.usage_count + 1,
	updated_at  = now()
WHERE coupons.usage_count < COALESCE(coupons.usage_limit, EXCLUDED.usage_limit)`
)

// DB is the subset of pgxpool.Pool used by the store
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements repository.CouponRepository and repository.UsageStore on PostgreSQL
type Store struct {
	db DB
}

// NewStore creates a store over an existing pool
func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Name() string { return "postgres" }

// EnsureSchema creates the coupons table if it does not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create coupons table: %w", err)
	}
	return nil
}

func (s *Store) FindByCode(ctx context.Context, code string) (*pricing.Coupon, error) {
	defer recordQuery("find_coupon", time.Now())

	var (
		definition []byte
		usageCount int
	)
	err := s.db.QueryRow(ctx, findCouponSQL, repository.CouponKey(code)).Scan(&definition, &usageCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon by code: %w", err)
	}

	var coupon pricing.Coupon
	if err := json.Unmarshal(definition, &coupon); err != nil {
		return nil, fmt.Errorf("failed to decode coupon %s: %w", code, err)
	}
	if coupon.Usage != nil {
		coupon.Usage.Count = usageCount
	}
	return &coupon, nil
}

func (s *Store) Upsert(ctx context.Context, coupon pricing.Coupon) error {
	defer recordQuery("upsert_coupon", time.Now())

	definition, err := json.Marshal(coupon)
	if err != nil {
		return fmt.Errorf("failed to encode coupon %s: %w", coupon.Code, err)
	}
	count, limit, limited := repository.SeedCount(coupon)

	if _, err := s.db.Exec(ctx, upsertCouponSQL,
		repository.CouponKey(coupon.Code), definition, nullableLimit(limit, limited), count); err != nil {
		return fmt.Errorf("failed to upsert coupon %s: %w", coupon.Code, err)
	}
	return nil
}

func (s *Store) TryConsume(ctx context.Context, coupon pricing.Coupon) (bool, error) {
	count, limit, limited := repository.SeedCount(coupon)
	if !limited {
		return true, nil
	}
	if count >= limit {
		return false, nil
	}
	defer recordQuery("consume_coupon", time.Now())

	definition, err := json.Marshal(coupon)
	if err != nil {
		return false, fmt.Errorf("failed to encode coupon %s: %w", coupon.Code, err)
	}

	tag, err := s.db.Exec(ctx, consumeCouponSQL, repository.CouponKey(coupon.Code), definition, limit, count)
	if err != nil {
		return false, fmt.Errorf("failed to consume coupon %s: %w", coupon.Code, err)
	}
	return tag.RowsAffected() == 1, nil
}

func nullableLimit(limit int, limited bool) *int {
	if !limited {
		return nil
	}
	return &limit
}

func recordQuery(operation string, start time.Time) {
	metrics.RecordDatabaseQuery(operation, time.Since(start))
}
