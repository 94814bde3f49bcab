package enums

import "fmt"

// OutboxAggregateType names the entity an outbox row was written for. Values
// mirror aggregate_type_enum.
type OutboxAggregateType string

const (
	AggregateOrder  OutboxAggregateType = "order"
	AggregateReview OutboxAggregateType = "review"
)

func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateOrder, AggregateReview:
		return true
	}
	return false
}

func (a OutboxAggregateType) String() string { return string(a) }

// ParseOutboxAggregateType rejects anything outside aggregate_type_enum.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	if a := OutboxAggregateType(value); a.IsValid() {
		return a, nil
	}
	return "", fmt.Errorf("unknown outbox aggregate %q", value)
}

// OutboxEventType is the routing key published alongside each envelope.
// Values mirror event_type_enum.
type OutboxEventType string

const (
	EventNotificationRequested OutboxEventType = "notification_requested"
)

func (e OutboxEventType) IsValid() bool {
	return e == EventNotificationRequested
}

func (e OutboxEventType) String() string { return string(e) }

// ParseOutboxEventType rejects anything outside event_type_enum.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("unknown outbox event %q", value)
}

// OutboxDLQErrorReason records why the publisher gave up on a row.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means retries were exhausted.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means the row could never be published,
	// e.g. an unregistered event type or a rejected payload.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
