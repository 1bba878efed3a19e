package kafka

import "time"

const (
	TopicAllocateRequest = "allocation.claim.req"
	TopicHistoryRequest  = "allocation.history.req"
	TopicAllocateRetry   = "allocation.claim.retry"
	TopicHistoryRetry    = "allocation.history.retry"
	TopicReplyPrefix     = "allocation.reply."
	TopicRequestSuffix   = ".req"
	TopicRetrySuffix     = ".retry"
	TopicDLQSuffix       = ".dlq"

	RequestTimeout = 3 * time.Second

	RetryHeaderNextAt = "x-next-at"
	ErrorHeaderKey    = "x-error"
)
