package usecase

import (
	"context"

	"github.com/couponloop/coupon-allocator/internal/domain"
)

type AllocationGateway interface {
	Allocate(ctx context.Context, identity domain.Identity) (*domain.Allocation, error)
	History(ctx context.Context, identity domain.Identity) ([]domain.ClaimHistory, error)
}
