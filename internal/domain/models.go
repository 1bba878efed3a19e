package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidSession        = errors.New("invalid session")
	ErrSessionAlreadyClaimed = errors.New("a coupon has already been claimed in this session")
	ErrNetworkThrottled      = errors.New("this network address has already claimed a coupon recently")
	ErrInventoryExhausted    = errors.New("no available coupons")
	ErrCouponNotFound        = errors.New("coupon not found")
	ErrClaimNotFound         = errors.New("claim not found")
	ErrDuplicateCode         = errors.New("coupon code already exists")
	ErrCapBelowUsed          = errors.New("issued cap cannot drop below used count")
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

type Coupon struct {
	ID        string
	Code      string
	IssuedCap int
	UsedCount int
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is the resolved caller context. Exactly one of UserID/GuestID is
// set; the engine trusts the tuple verbatim.
type Identity struct {
	UserID         string
	GuestID        string
	SessionID      string
	NetworkAddress string
}

func (id Identity) Valid() bool {
	if id.SessionID == "" || id.NetworkAddress == "" {
		return false
	}
	return id.UserID != "" || id.GuestID != ""
}

// Allocation is what a successful claim returns to the caller. The secret is
// shown once here and afterwards only through the identity-scoped history.
type Allocation struct {
	Code   string `json:"code"`
	Secret string `json:"secret"`
}

type Claim struct {
	ID             string
	Secret         string
	UserID         string
	GuestID        string
	SessionID      string
	NetworkAddress string
	CouponID       string
	Used           bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ClaimHistory is the display projection of a claim joined with its coupon.
type ClaimHistory struct {
	ID           string    `json:"id"`
	CouponCode   string    `json:"coupon_code"`
	CouponStatus string    `json:"coupon_status"`
	Secret       string    `json:"secret"`
	Used         bool      `json:"used"`
	CreatedAt    time.Time `json:"created_at"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Metrics struct {
	TotalClaims     int          `json:"total_claims"`
	UsedClaims      int          `json:"used_claims"`
	UnusedClaims    int          `json:"unused_claims"`
	TotalCoupons    int          `json:"total_coupons"`
	ActiveCoupons   int          `json:"active_coupons"`
	InactiveCoupons int          `json:"inactive_coupons"`
	ClaimsOverTime  []DailyCount `json:"claims_over_time"`
}
