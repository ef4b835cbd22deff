package retry

import "time"

// Policy is the shared retry schedule: the charge issuer uses a two-attempt
// policy for its single no-split fallback, the escrow orchestrator a
// three-attempt policy with deferred exponential backoff. Deferred retries
// are persisted as next_retry_at timestamps, never slept on in-process.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// NextRetryAt returns when the given failure (1-based count of failures so
// far) should be retried: BaseDelay doubled per prior failure. Nil means the
// policy is exhausted and the operation goes to the manual queue.
func (p Policy) NextRetryAt(failureCount int, now time.Time) *time.Time {
	if failureCount < 1 || p.Exhausted(failureCount) {
		return nil
	}
	delay := p.BaseDelay << uint(failureCount-1)
	at := now.Add(delay)
	return &at
}

// Exhausted reports whether no further automatic attempt should be made
// after failureCount failures.
func (p Policy) Exhausted(failureCount int) bool {
	return failureCount > p.MaxAttempts
}
