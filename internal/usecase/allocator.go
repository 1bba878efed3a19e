package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/couponloop/coupon-allocator/internal/domain"
	"github.com/couponloop/coupon-allocator/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// secretAttempts bounds the retry loop on secret unique-constraint
// collisions before the transaction gives up and rolls back.
const secretAttempts = 5

type AllocationService struct {
	store  repository.Store
	window time.Duration
	now    func() time.Time
}

func NewAllocationService(store repository.Store, window time.Duration) *AllocationService {
	return &AllocationService{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

// Allocate runs the whole claim as one transaction: session check, address
// throttle, round-robin selection, conditional increment, claim insert.
// Either every effect commits or none does.
func (s *AllocationService) Allocate(ctx context.Context, identity domain.Identity) (*domain.Allocation, error) {
	if !identity.Valid() {
		return nil, domain.ErrInvalidSession
	}

	now := s.now()
	var result *domain.Allocation

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		// One claim per session, ever.
		_, err := q.GetClaimBySession(ctx, identity.SessionID)
		if err == nil {
			return domain.ErrSessionAlreadyClaimed
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		throttled, err := q.HasRecentClaimByAddress(ctx, identity.NetworkAddress, now.Add(-s.window))
		if err != nil {
			return err
		}
		if throttled {
			return domain.ErrNetworkThrottled
		}

		coupon, err := s.takeCoupon(ctx, q, now)
		if err != nil {
			return err
		}

		secret, err := s.insertClaim(ctx, q, identity, coupon.ID)
		if err != nil {
			return err
		}

		result = &domain.Allocation{Code: coupon.Code, Secret: secret}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// takeCoupon picks the least-recently-updated eligible coupon and bumps its
// counter. A zero-row update means another transaction exhausted it between
// selection and commit; selection restarts until inventory runs out.
func (s *AllocationService) takeCoupon(ctx context.Context, q repository.Querier, now time.Time) (domain.Coupon, error) {
	for {
		coupon, err := q.NextEligibleCoupon(ctx)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Coupon{}, domain.ErrInventoryExhausted
			}
			return domain.Coupon{}, err
		}

		affected, err := q.IncrementCouponUsage(ctx, coupon.ID, now)
		if err != nil {
			return domain.Coupon{}, err
		}
		if affected > 0 {
			return coupon, nil
		}
	}
}

func (s *AllocationService) insertClaim(ctx context.Context, q repository.Querier, identity domain.Identity, couponID string) (string, error) {
	var lastErr error
	for i := 0; i < secretAttempts; i++ {
		secret := uuid.New().String()
		err := q.InsertClaim(ctx, repository.InsertClaimParams{
			ID:             uuid.New().String(),
			Secret:         secret,
			UserID:         identity.UserID,
			GuestID:        identity.GuestID,
			SessionID:      identity.SessionID,
			NetworkAddress: identity.NetworkAddress,
			CouponID:       couponID,
		})
		if err == nil {
			return secret, nil
		}
		if strings.Contains(err.Error(), "claims_session_id_key") {
			// Lost a same-session race to a concurrent transaction.
			return "", domain.ErrSessionAlreadyClaimed
		}
		if strings.Contains(err.Error(), "claims_secret_key") {
			lastErr = err
			continue
		}
		return "", err
	}
	return "", lastErr
}

// History lists the caller's claims newest first. No claims is an empty
// slice, not an error.
func (s *AllocationService) History(ctx context.Context, identity domain.Identity) ([]domain.ClaimHistory, error) {
	switch {
	case identity.UserID != "":
		return s.store.ListClaimsByUser(ctx, identity.UserID)
	case identity.GuestID != "":
		return s.store.ListClaimsByGuest(ctx, identity.GuestID)
	default:
		return nil, domain.ErrInvalidSession
	}
}
