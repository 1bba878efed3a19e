package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/couponloop/coupon-allocator/internal/config"
	"github.com/couponloop/coupon-allocator/internal/domain"
	"github.com/couponloop/coupon-allocator/internal/usecase"
	"github.com/twmb/franz-go/pkg/kgo"
)

type Consumer struct {
	client  *kgo.Client
	cfg     *config.Config
	service *usecase.AllocationService
	ready   chan struct{}
}

func NewConsumer(cfg *config.Config, client *kgo.Client, service *usecase.AllocationService) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		service: service,
		ready:   make(chan struct{}),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	close(c.ready)
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			log.Printf("Consumer poll errors: %v", errs)
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			c.processRecord(ctx, record)
		}

		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			log.Printf("Failed to commit records: %v", err)
		}
	}
}

// StartRetry drains the retry topics back onto the main request topics,
// honoring the x-next-at backoff header.
func (c *Consumer) StartRetry(ctx context.Context) {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()

			if nextAt, ok := retryNextAt(record); ok && time.Now().Before(nextAt) {
				time.Sleep(time.Until(nextAt))
			}

			mainTopic := strings.TrimSuffix(record.Topic, TopicRetrySuffix) + TopicRequestSuffix
			newRecord := &kgo.Record{
				Topic:   mainTopic,
				Key:     record.Key,
				Value:   record.Value,
				Headers: record.Headers,
			}
			if err := c.client.ProduceSync(ctx, newRecord).FirstErr(); err != nil {
				log.Printf("Failed to requeue retry record: %v", err)
			}
		}
		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			log.Printf("Failed to commit retry records: %v", err)
		}
	}
}

func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	switch record.Topic {
	case TopicAllocateRequest:
		c.handleAllocate(ctx, record)
	case TopicHistoryRequest:
		c.handleHistory(ctx, record)
	}
}

func (c *Consumer) handleAllocate(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.sendToDLQ(ctx, record, "invalid request payload")
		return
	}

	allocation, err := c.service.Allocate(ctx, req.Identity())
	var finalResp *ResponsePayload
	if err != nil {
		code, message := classifyError(err)
		finalResp = errorResponse(req.CorrelationID, code, message)
	} else {
		finalResp = successResponse(req.CorrelationID)
		finalResp.Allocation = allocation
	}

	c.sendResponse(ctx, req.ReplyTo, finalResp)
}

func (c *Consumer) handleHistory(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.sendToDLQ(ctx, record, "invalid request payload")
		return
	}

	claims, err := c.service.History(ctx, req.Identity())
	var finalResp *ResponsePayload
	if err != nil {
		code, message := classifyError(err)
		finalResp = errorResponse(req.CorrelationID, code, message)
	} else {
		finalResp = successResponse(req.CorrelationID)
		finalResp.Claims = claims
	}

	c.sendResponse(ctx, req.ReplyTo, finalResp)
}

func (c *Consumer) sendResponse(ctx context.Context, topic string, resp *ResponsePayload) {
	payload, _ := json.Marshal(resp)
	record := &kgo.Record{
		Topic: topic,
		Value: payload,
	}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		log.Printf("Failed to send response to %s: %v", topic, err)
	}
}

func (c *Consumer) sendToDLQ(ctx context.Context, record *kgo.Record, message string) {
	var req RequestPayload
	_ = json.Unmarshal(record.Value, &req)

	if req.ReplyTo != "" {
		resp := errorResponse(req.CorrelationID, ErrCodeInvalidRequest, message)
		c.sendResponse(ctx, req.ReplyTo, resp)
	}

	dlqRecord := &kgo.Record{
		Topic: record.Topic + TopicDLQSuffix,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: ErrorHeaderKey, Value: []byte(message)},
		},
	}
	_ = c.client.ProduceSync(ctx, dlqRecord).FirstErr()
}

func retryNextAt(record *kgo.Record) (time.Time, bool) {
	for _, header := range record.Headers {
		if header.Key != RetryHeaderNextAt {
			continue
		}
		nextAt, err := time.Parse(time.RFC3339, string(header.Value))
		if err != nil {
			return time.Time{}, false
		}
		return nextAt, true
	}

	return time.Time{}, false
}

func successResponse(correlationID string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: 1,
		CorrelationID: correlationID,
		Status:        StatusSuccess,
	}
}

func errorResponse(correlationID, code, message string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: 1,
		CorrelationID: correlationID,
		Status:        StatusError,
		ErrorCode:     code,
		ErrorMessage:  message,
	}
}

func classifyError(err error) (string, string) {
	code := ErrCodeInternalError
	switch {
	case errors.Is(err, domain.ErrInvalidSession):
		code = ErrCodeInvalidSession
	case errors.Is(err, domain.ErrSessionAlreadyClaimed):
		code = ErrCodeSessionClaimed
	case errors.Is(err, domain.ErrNetworkThrottled):
		code = ErrCodeNetworkThrottled
	case errors.Is(err, domain.ErrInventoryExhausted):
		code = ErrCodeInventoryExhausted
	}
	return code, err.Error()
}
