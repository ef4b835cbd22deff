package escrow

import "time"

type ErrorType string

const (
	ErrorMissingBankData ErrorType = "missing_bank_data"
	ErrorTransferFailed  ErrorType = "transfer_failed"
)

// ReleaseError is the audit and retry bookkeeping for a failed payout
// attempt. A nil NextRetryAt means automatic retries are exhausted (or were
// never applicable) and the record sits in the manual-intervention queue
// until an operator resolves it.
type ReleaseError struct {
	ID        int64     `gorm:"primaryKey"`
	PaymentID int64     `gorm:"column:payment_id;not null;index"`
	ErrorType ErrorType `gorm:"column:error_type;not null"`
	Message   string    `gorm:"column:message"`

	RetryCount  int        `gorm:"column:retry_count;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at;index"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at"`

	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (ReleaseError) TableName() string {
	return "escrow_release_errors"
}

// Retryable reports whether the scheduler should pick this record up.
func (e *ReleaseError) Retryable() bool {
	return e.ResolvedAt == nil && e.NextRetryAt != nil
}
