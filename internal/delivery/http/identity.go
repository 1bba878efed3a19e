package http

import (
	"net"
	"net/http"
	"strings"

	"github.com/couponloop/coupon-allocator/internal/domain"
)

const (
	userHeader    = "X-User-ID"
	sessionCookie = "session_id"
	guestCookie   = "guest_id"
)

// resolveIdentity builds the identity tuple the engine trusts: user id from
// the auth proxy header, guest/session ids from cookies, network address
// from the first forwarded hop. Validation happens in the engine, not here.
func resolveIdentity(r *http.Request) domain.Identity {
	identity := domain.Identity{
		UserID:         r.Header.Get(userHeader),
		NetworkAddress: clientAddress(r),
	}

	if c, err := r.Cookie(sessionCookie); err == nil {
		identity.SessionID = c.Value
	}
	if identity.UserID == "" {
		if c, err := r.Cookie(guestCookie); err == nil {
			identity.GuestID = c.Value
		}
	}

	return identity
}

func clientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if addr := strings.TrimSpace(first); addr != "" {
			return addr
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
