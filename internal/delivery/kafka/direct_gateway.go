package kafka

import (
	"context"

	"github.com/couponloop/coupon-allocator/internal/domain"
	"github.com/couponloop/coupon-allocator/internal/usecase"
)

// DirectGateway runs allocations in-process when event-driven mode is off.
type DirectGateway struct {
	service *usecase.AllocationService
}

func NewDirectGateway(service *usecase.AllocationService) usecase.AllocationGateway {
	return &DirectGateway{service: service}
}

func (g *DirectGateway) Allocate(ctx context.Context, identity domain.Identity) (*domain.Allocation, error) {
	return g.service.Allocate(ctx, identity)
}

func (g *DirectGateway) History(ctx context.Context, identity domain.Identity) ([]domain.ClaimHistory, error) {
	return g.service.History(ctx, identity)
}
