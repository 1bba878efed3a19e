package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couponloop/coupon-allocator/internal/domain"
)

func TestCreateCoupon_DefaultsToActive(t *testing.T) {
	store := newFakeStore()
	svc := NewAdminService(store)

	coupon, err := svc.CreateCoupon(context.Background(), "WELCOME", 50, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if coupon.Status != domain.StatusActive {
		t.Fatalf("expected Active status, got %s", coupon.Status)
	}
	if coupon.ID == "" {
		t.Fatal("expected a generated id")
	}
}

func TestCreateCoupon_DuplicateCode(t *testing.T) {
	store := newFakeStore()
	svc := NewAdminService(store)

	if _, err := svc.CreateCoupon(context.Background(), "WELCOME", 50, domain.StatusActive); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := svc.CreateCoupon(context.Background(), "WELCOME", 10, domain.StatusActive)
	if !errors.Is(err, domain.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestUpdateCoupon_NotFound(t *testing.T) {
	svc := NewAdminService(newFakeStore())
	_, err := svc.UpdateCoupon(context.Background(), "missing", "X", 5, domain.StatusActive)
	if !errors.Is(err, domain.ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestUpdateCoupon_CapBelowUsed(t *testing.T) {
	store := newFakeStore()
	store.addCoupon(domain.Coupon{ID: "c1", Code: "WELCOME", IssuedCap: 10, UsedCount: 7, Status: domain.StatusActive})

	svc := NewAdminService(store)
	_, err := svc.UpdateCoupon(context.Background(), "c1", "WELCOME", 5, domain.StatusActive)
	if !errors.Is(err, domain.ErrCapBelowUsed) {
		t.Fatalf("expected ErrCapBelowUsed, got %v", err)
	}
}

func TestUpdateCoupon_Success(t *testing.T) {
	store := newFakeStore()
	store.addCoupon(domain.Coupon{ID: "c1", Code: "WELCOME", IssuedCap: 10, UsedCount: 3, Status: domain.StatusActive})

	svc := NewAdminService(store)
	coupon, err := svc.UpdateCoupon(context.Background(), "c1", "WELCOME2", 20, domain.StatusInactive)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if coupon.Code != "WELCOME2" || coupon.IssuedCap != 20 || coupon.Status != domain.StatusInactive {
		t.Fatalf("unexpected coupon after update: %+v", coupon)
	}
}

func TestDeleteCoupon_CascadesClaims(t *testing.T) {
	store := newFakeStore()
	store.addCoupon(domain.Coupon{ID: "c1", Code: "WELCOME", IssuedCap: 10, Status: domain.StatusActive})

	alloc := NewAllocationService(store, 10*time.Minute)
	if _, err := alloc.Allocate(context.Background(), identity(1)); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}

	svc := NewAdminService(store)
	if err := svc.DeleteCoupon(context.Background(), "c1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	claims, err := alloc.History(context.Background(), domain.Identity{GuestID: "guest-1"})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(claims) != 0 {
		t.Fatalf("expected claims to cascade, got %d", len(claims))
	}
}

func TestDeleteCoupon_NotFound(t *testing.T) {
	svc := NewAdminService(newFakeStore())
	err := svc.DeleteCoupon(context.Background(), "missing")
	if !errors.Is(err, domain.ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestRedeemClaim(t *testing.T) {
	store := newFakeStore()
	store.addCoupon(domain.Coupon{ID: "c1", Code: "WELCOME", IssuedCap: 10, Status: domain.StatusActive})

	alloc := NewAllocationService(store, 10*time.Minute)
	if _, err := alloc.Allocate(context.Background(), identity(1)); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}

	entries, err := store.ListAllClaims(context.Background())
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d (err %v)", len(entries), err)
	}

	svc := NewAdminService(store)
	if err := svc.RedeemClaim(context.Background(), entries[0].ID); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	claims, _ := alloc.History(context.Background(), domain.Identity{GuestID: "guest-1"})
	if len(claims) != 1 || !claims[0].Used {
		t.Fatalf("expected claim marked used, got %+v", claims)
	}

	if err := svc.RedeemClaim(context.Background(), "missing"); !errors.Is(err, domain.ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestMetrics(t *testing.T) {
	store := newFakeStore()
	store.addCoupon(domain.Coupon{ID: "c1", Code: "A", IssuedCap: 10, Status: domain.StatusActive})
	store.addCoupon(domain.Coupon{ID: "c2", Code: "B", IssuedCap: 10, Status: domain.StatusInactive})

	alloc := NewAllocationService(store, 0)
	for i := 0; i < 3; i++ {
		if _, err := alloc.Allocate(context.Background(), identity(i)); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
	}

	entries, _ := store.ListAllClaims(context.Background())
	svc := NewAdminService(store)
	if err := svc.RedeemClaim(context.Background(), entries[0].ID); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	metrics, err := svc.Metrics(context.Background())
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}
	if metrics.TotalClaims != 3 || metrics.UsedClaims != 1 || metrics.UnusedClaims != 2 {
		t.Fatalf("unexpected claim counts: %+v", metrics)
	}
	if metrics.TotalCoupons != 2 || metrics.ActiveCoupons != 1 || metrics.InactiveCoupons != 1 {
		t.Fatalf("unexpected coupon counts: %+v", metrics)
	}
	if len(metrics.ClaimsOverTime) == 0 {
		t.Fatal("expected claims over time buckets")
	}
}
