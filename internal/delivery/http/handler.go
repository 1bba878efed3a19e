package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/couponloop/coupon-allocator/internal/domain"
	"github.com/couponloop/coupon-allocator/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type AllocateResponse struct {
	Code    string `json:"code"`
	Secret  string `json:"secret"`
	Message string `json:"message"`
}

type FailureResponse struct {
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

type CouponRequest struct {
	Code      string `json:"code"`
	IssuedCap int    `json:"issued_cap"`
	Status    string `json:"status"`
}

type CouponResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	IssuedCap int       `json:"issued_cap"`
	UsedCount int       `json:"used_count"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LedgerEntryResponse struct {
	ID             string    `json:"id"`
	CouponCode     string    `json:"coupon_code"`
	Secret         string    `json:"secret"`
	UserID         string    `json:"user_id,omitempty"`
	GuestID        string    `json:"guest_id,omitempty"`
	SessionID      string    `json:"session_id"`
	NetworkAddress string    `json:"network_address"`
	Used           bool      `json:"used"`
	CreatedAt      time.Time `json:"created_at"`
}

type Handler struct {
	gateway usecase.AllocationGateway
	admin   *usecase.AdminService
}

func NewHandler(gateway usecase.AllocationGateway, admin *usecase.AdminService) *Handler {
	return &Handler{gateway: gateway, admin: admin}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/coupon", h.Allocate)
		r.Get("/claims", h.History)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/coupons", h.CreateCoupon)
			r.Get("/coupons", h.ListCoupons)
			r.Put("/coupons/{id}", h.UpdateCoupon)
			r.Delete("/coupons/{id}", h.DeleteCoupon)
			r.Get("/claims", h.ListClaims)
			r.Post("/claims/{id}/redeem", h.RedeemClaim)
			r.Get("/metrics", h.Metrics)
		})
	})
}

func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	identity := resolveIdentity(r)

	allocation, err := h.gateway.Allocate(r.Context(), identity)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AllocateResponse{
		Code:    allocation.Code,
		Secret:  allocation.Secret,
		Message: "Coupon claimed successfully",
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	identity := resolveIdentity(r)
	if identity.UserID == "" && identity.GuestID == "" {
		writeFailure(w, domain.ErrInvalidSession)
		return
	}

	claims, err := h.gateway.History(r.Context(), identity)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if claims == nil {
		claims = []domain.ClaimHistory{}
	}

	writeJSON(w, http.StatusOK, claims)
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" || req.IssuedCap <= 0 {
		http.Error(w, "invalid coupon data", http.StatusBadRequest)
		return
	}

	coupon, err := h.admin.CreateCoupon(r.Context(), req.Code, req.IssuedCap, req.Status)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateCode) {
			http.Error(w, "coupon code already exists", http.StatusConflict)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, couponResponse(coupon))
}

func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" || req.IssuedCap <= 0 {
		http.Error(w, "invalid coupon data", http.StatusBadRequest)
		return
	}

	coupon, err := h.admin.UpdateCoupon(r.Context(), chi.URLParam(r, "id"), req.Code, req.IssuedCap, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCouponNotFound):
			http.Error(w, "coupon not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrCapBelowUsed):
			http.Error(w, "issued cap cannot drop below used count", http.StatusUnprocessableEntity)
		case errors.Is(err, domain.ErrDuplicateCode):
			http.Error(w, "coupon code already exists", http.StatusConflict)
		default:
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, couponResponse(coupon))
}

func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	err := h.admin.DeleteCoupon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrCouponNotFound) {
			http.Error(w, "coupon not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "coupon deleted"})
}

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.admin.ListCoupons(r.Context())
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]CouponResponse, 0, len(coupons))
	for _, c := range coupons {
		resp = append(resp, couponResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	entries, err := h.admin.ListClaims(r.Context())
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, LedgerEntryResponse{
			ID:             e.ID,
			CouponCode:     e.CouponCode,
			Secret:         e.Secret,
			UserID:         e.UserID,
			GuestID:        e.GuestID,
			SessionID:      e.SessionID,
			NetworkAddress: e.NetworkAddress,
			Used:           e.Used,
			CreatedAt:      e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) RedeemClaim(w http.ResponseWriter, r *http.Request) {
	err := h.admin.RedeemClaim(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrClaimNotFound) {
			http.Error(w, "claim not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "claim redeemed"})
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.admin.Metrics(r.Context())
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}

func couponResponse(c domain.Coupon) CouponResponse {
	return CouponResponse{
		ID:        c.ID,
		Code:      c.Code,
		IssuedCap: c.IssuedCap,
		UsedCount: c.UsedCount,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	suggestion := "Please contact support"

	switch {
	case errors.Is(err, domain.ErrInvalidSession):
		status = http.StatusUnauthorized
		suggestion = "Refresh the page"
	case errors.Is(err, domain.ErrSessionAlreadyClaimed):
		status = http.StatusForbidden
		suggestion = "Only one coupon per session allowed"
	case errors.Is(err, domain.ErrNetworkThrottled):
		status = http.StatusTooManyRequests
		suggestion = "Wait 10 minutes before claiming from this network"
	case errors.Is(err, domain.ErrInventoryExhausted):
		status = http.StatusNotFound
		suggestion = "Try again later"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}

	writeJSON(w, status, FailureResponse{Message: message, Suggestion: suggestion})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
