package enums

// OutboxDLQErrorReason classifies why an outbox event was routed to the DLQ.
type OutboxDLQErrorReason string

const (
	DLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	DLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

func (r OutboxDLQErrorReason) String() string { return string(r) }

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case DLQReasonNonRetryable, DLQReasonMaxAttempts:
		return true
	}
	return false
}
