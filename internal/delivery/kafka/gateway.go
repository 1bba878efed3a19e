package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/couponloop/coupon-allocator/internal/config"
	"github.com/couponloop/coupon-allocator/internal/domain"
	"github.com/couponloop/coupon-allocator/internal/usecase"
	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Gateway ships allocation requests over kafka and correlates replies back
// to the waiting caller. Requests for the same session key to the same
// partition, so same-session races serialize at the broker too.
type Gateway struct {
	client      *kgo.Client
	cfg         *config.Config
	pendingResp sync.Map
}

func NewGateway(cfg *config.Config, client *kgo.Client) *Gateway {
	return &Gateway{
		client: client,
		cfg:    cfg,
	}
}

func (g *Gateway) Allocate(ctx context.Context, identity domain.Identity) (*domain.Allocation, error) {
	req := g.newRequest(identity)

	resp, err := g.requestReply(ctx, TopicAllocateRequest, []byte(identity.SessionID), req)
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusError {
		return nil, mapErrorCode(resp.ErrorCode, resp.ErrorMessage)
	}
	return resp.Allocation, nil
}

func (g *Gateway) History(ctx context.Context, identity domain.Identity) ([]domain.ClaimHistory, error) {
	req := g.newRequest(identity)

	key := identity.UserID
	if key == "" {
		key = identity.GuestID
	}
	resp, err := g.requestReply(ctx, TopicHistoryRequest, []byte(key), req)
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusError {
		return nil, mapErrorCode(resp.ErrorCode, resp.ErrorMessage)
	}
	return resp.Claims, nil
}

func (g *Gateway) newRequest(identity domain.Identity) RequestPayload {
	return RequestPayload{
		SchemaVersion:  1,
		CorrelationID:  uuid.New().String(),
		ReplyTo:        fmt.Sprintf("%s%s", TopicReplyPrefix, g.cfg.KafkaInstanceID),
		UserID:         identity.UserID,
		GuestID:        identity.GuestID,
		SessionID:      identity.SessionID,
		NetworkAddress: identity.NetworkAddress,
	}
}

func (g *Gateway) requestReply(ctx context.Context, topic string, key []byte, req RequestPayload) (*ResponsePayload, error) {
	respChan := make(chan *ResponsePayload, 1)
	g.pendingResp.Store(req.CorrelationID, respChan)
	defer g.pendingResp.Delete(req.CorrelationID)

	payload, _ := json.Marshal(req)
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: payload,
	}

	if err := g.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return nil, err
	}

	select {
	case resp := <-respChan:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(RequestTimeout):
		return nil, errors.New("timeout waiting for response")
	}
}

func (g *Gateway) HandleResponse(payload []byte) {
	var resp ResponsePayload
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Printf("Failed to decode response payload: %v", err)
		return
	}

	if ch, ok := g.pendingResp.Load(resp.CorrelationID); ok {
		ch.(chan *ResponsePayload) <- &resp
		return
	}

	log.Printf("No pending response for correlation ID %s", resp.CorrelationID)
}

func mapErrorCode(code, message string) error {
	switch code {
	case ErrCodeInvalidSession:
		return domain.ErrInvalidSession
	case ErrCodeSessionClaimed:
		return domain.ErrSessionAlreadyClaimed
	case ErrCodeNetworkThrottled:
		return domain.ErrNetworkThrottled
	case ErrCodeInventoryExhausted:
		return domain.ErrInventoryExhausted
	default:
		return errors.New(message)
	}
}

var _ usecase.AllocationGateway = (*Gateway)(nil)
