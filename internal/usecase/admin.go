package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/couponloop/coupon-allocator/internal/domain"
	"github.com/couponloop/coupon-allocator/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const metricsDays = 30

// AdminService is the thin write/read surface for coupon inventory
// management and the claim ledger. It carries none of the allocation
// invariants beyond what the schema enforces.
type AdminService struct {
	store repository.Store
}

func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{store: store}
}

func (s *AdminService) CreateCoupon(ctx context.Context, code string, issuedCap int, status string) (domain.Coupon, error) {
	if status == "" {
		status = domain.StatusActive
	}
	coupon, err := s.store.CreateCoupon(ctx, repository.CreateCouponParams{
		ID:        uuid.New().String(),
		Code:      code,
		IssuedCap: issuedCap,
		Status:    status,
	})
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return domain.Coupon{}, domain.ErrDuplicateCode
		}
		return domain.Coupon{}, err
	}
	return coupon, nil
}

func (s *AdminService) UpdateCoupon(ctx context.Context, id, code string, issuedCap int, status string) (domain.Coupon, error) {
	coupon, err := s.store.UpdateCoupon(ctx, repository.UpdateCouponParams{
		ID:        id,
		Code:      code,
		IssuedCap: issuedCap,
		Status:    status,
	})
	if err == nil {
		return coupon, nil
	}
	if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
		return domain.Coupon{}, domain.ErrDuplicateCode
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Coupon{}, err
	}

	// Zero rows: either the coupon is gone or the cap clause rejected it.
	if _, getErr := s.store.GetCoupon(ctx, id); getErr != nil {
		if errors.Is(getErr, pgx.ErrNoRows) {
			return domain.Coupon{}, domain.ErrCouponNotFound
		}
		return domain.Coupon{}, getErr
	}
	return domain.Coupon{}, domain.ErrCapBelowUsed
}

func (s *AdminService) DeleteCoupon(ctx context.Context, id string) error {
	affected, err := s.store.DeleteCoupon(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

func (s *AdminService) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	return s.store.ListCoupons(ctx)
}

func (s *AdminService) ListClaims(ctx context.Context) ([]repository.LedgerEntry, error) {
	return s.store.ListAllClaims(ctx)
}

func (s *AdminService) RedeemClaim(ctx context.Context, id string) error {
	affected, err := s.store.SetClaimUsed(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrClaimNotFound
	}
	return nil
}

func (s *AdminService) Metrics(ctx context.Context) (domain.Metrics, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return domain.Metrics{}, err
	}
	perDay, err := s.store.ClaimsPerDay(ctx, metricsDays)
	if err != nil {
		return domain.Metrics{}, err
	}
	if perDay == nil {
		perDay = []domain.DailyCount{}
	}

	return domain.Metrics{
		TotalClaims:     counts.TotalClaims,
		UsedClaims:      counts.UsedClaims,
		UnusedClaims:    counts.TotalClaims - counts.UsedClaims,
		TotalCoupons:    counts.TotalCoupons,
		ActiveCoupons:   counts.ActiveCoupons,
		InactiveCoupons: counts.TotalCoupons - counts.ActiveCoupons,
		ClaimsOverTime:  perDay,
	}, nil
}
