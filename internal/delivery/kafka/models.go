package kafka

import "github.com/couponloop/coupon-allocator/internal/domain"

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

const (
	ErrCodeInvalidSession     = "INVALID_SESSION"
	ErrCodeSessionClaimed     = "SESSION_ALREADY_CLAIMED"
	ErrCodeNetworkThrottled   = "NETWORK_THROTTLED"
	ErrCodeInventoryExhausted = "INVENTORY_EXHAUSTED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

type RequestPayload struct {
	SchemaVersion  int    `json:"schema_version"`
	CorrelationID  string `json:"correlation_id"`
	ReplyTo        string `json:"reply_to"`
	UserID         string `json:"user_id,omitempty"`
	GuestID        string `json:"guest_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	NetworkAddress string `json:"network_address,omitempty"`
}

func (p RequestPayload) Identity() domain.Identity {
	return domain.Identity{
		UserID:         p.UserID,
		GuestID:        p.GuestID,
		SessionID:      p.SessionID,
		NetworkAddress: p.NetworkAddress,
	}
}

type ResponsePayload struct {
	SchemaVersion int                   `json:"schema_version"`
	CorrelationID string                `json:"correlation_id"`
	Status        string                `json:"status"`
	ErrorCode     string                `json:"error_code,omitempty"`
	ErrorMessage  string                `json:"error_message,omitempty"`
	Allocation    *domain.Allocation    `json:"allocation,omitempty"`
	Claims        []domain.ClaimHistory `json:"claims,omitempty"`
}
