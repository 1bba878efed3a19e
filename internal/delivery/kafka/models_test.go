package kafka

import (
	"errors"
	"testing"
	"time"

	"github.com/couponloop/coupon-allocator/internal/domain"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestErrorCodeRoundTrip(t *testing.T) {
	cases := []error{
		domain.ErrInvalidSession,
		domain.ErrSessionAlreadyClaimed,
		domain.ErrNetworkThrottled,
		domain.ErrInventoryExhausted,
	}

	for _, want := range cases {
		code, message := classifyError(want)
		got := mapErrorCode(code, message)
		if !errors.Is(got, want) {
			t.Fatalf("round trip of %v produced %v", want, got)
		}
	}

	code, message := classifyError(errors.New("connection refused"))
	if code != ErrCodeInternalError {
		t.Fatalf("expected INTERNAL_ERROR, got %s", code)
	}
	if got := mapErrorCode(code, message); got.Error() != "connection refused" {
		t.Fatalf("expected message passthrough, got %v", got)
	}
}

func TestRequestPayloadIdentity(t *testing.T) {
	payload := RequestPayload{
		UserID:         "u1",
		SessionID:      "s1",
		NetworkAddress: "10.0.0.1",
	}
	identity := payload.Identity()
	if !identity.Valid() {
		t.Fatalf("expected valid identity, got %+v", identity)
	}
	if identity.UserID != "u1" || identity.SessionID != "s1" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestRetryNextAt(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := &kgo.Record{
		Headers: []kgo.RecordHeader{
			{Key: RetryHeaderNextAt, Value: []byte(at.Format(time.RFC3339))},
		},
	}

	got, ok := retryNextAt(record)
	if !ok || !got.Equal(at) {
		t.Fatalf("expected %v, got %v (ok=%v)", at, got, ok)
	}

	if _, ok := retryNextAt(&kgo.Record{}); ok {
		t.Fatal("expected no next-at on a bare record")
	}

	record.Headers[0].Value = []byte("not a time")
	if _, ok := retryNextAt(record); ok {
		t.Fatal("expected parse failure to report not ok")
	}
}
