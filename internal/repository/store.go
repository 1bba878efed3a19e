package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/couponloop/coupon-allocator/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	ExecTx(ctx context.Context, fn func(Querier) error) error
	CreateCoupon(ctx context.Context, arg CreateCouponParams) (domain.Coupon, error)
	UpdateCoupon(ctx context.Context, arg UpdateCouponParams) (domain.Coupon, error)
	DeleteCoupon(ctx context.Context, id string) (int64, error)
	GetCoupon(ctx context.Context, id string) (domain.Coupon, error)
	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
	ListClaimsByUser(ctx context.Context, userID string) ([]domain.ClaimHistory, error)
	ListClaimsByGuest(ctx context.Context, guestID string) ([]domain.ClaimHistory, error)
	ListAllClaims(ctx context.Context) ([]LedgerEntry, error)
	SetClaimUsed(ctx context.Context, id string) (int64, error)
	Counts(ctx context.Context) (CountsRow, error)
	ClaimsPerDay(ctx context.Context, days int) ([]domain.DailyCount, error)
}

// Querier is the slice of the query surface the allocation transaction runs
// against; every call sees the same transaction's snapshot.
type Querier interface {
	GetClaimBySession(ctx context.Context, sessionID string) (domain.Claim, error)
	HasRecentClaimByAddress(ctx context.Context, address string, since time.Time) (bool, error)
	NextEligibleCoupon(ctx context.Context) (domain.Coupon, error)
	IncrementCouponUsage(ctx context.Context, couponID string, now time.Time) (int64, error)
	InsertClaim(ctx context.Context, arg InsertClaimParams) error
}

type store struct {
	pool    *pgxpool.Pool
	queries *Queries
}

func New(pool *pgxpool.Pool) Store {
	return &store{
		pool:    pool,
		queries: NewQueries(pool),
	}
}

func (s *store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	q := s.queries.WithTx(tx)
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *store) CreateCoupon(ctx context.Context, arg CreateCouponParams) (domain.Coupon, error) {
	return s.queries.CreateCoupon(ctx, arg)
}

func (s *store) UpdateCoupon(ctx context.Context, arg UpdateCouponParams) (domain.Coupon, error) {
	return s.queries.UpdateCoupon(ctx, arg)
}

func (s *store) DeleteCoupon(ctx context.Context, id string) (int64, error) {
	return s.queries.DeleteCoupon(ctx, id)
}

func (s *store) GetCoupon(ctx context.Context, id string) (domain.Coupon, error) {
	return s.queries.GetCoupon(ctx, id)
}

func (s *store) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	return s.queries.ListCoupons(ctx)
}

func (s *store) ListClaimsByUser(ctx context.Context, userID string) ([]domain.ClaimHistory, error) {
	return s.queries.ListClaimsByUser(ctx, userID)
}

func (s *store) ListClaimsByGuest(ctx context.Context, guestID string) ([]domain.ClaimHistory, error) {
	return s.queries.ListClaimsByGuest(ctx, guestID)
}

func (s *store) ListAllClaims(ctx context.Context) ([]LedgerEntry, error) {
	return s.queries.ListAllClaims(ctx)
}

func (s *store) SetClaimUsed(ctx context.Context, id string) (int64, error) {
	return s.queries.SetClaimUsed(ctx, id)
}

func (s *store) Counts(ctx context.Context) (CountsRow, error) {
	return s.queries.Counts(ctx)
}

func (s *store) ClaimsPerDay(ctx context.Context, days int) ([]domain.DailyCount, error) {
	return s.queries.ClaimsPerDay(ctx, days)
}
