package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/escrow"
)

type ReleaseErrorRepository struct {
	db *gorm.DB
}

func NewReleaseErrorRepository(db *gorm.DB) *ReleaseErrorRepository {
	return &ReleaseErrorRepository{db: db}
}

func (r *ReleaseErrorRepository) Append(e *escrow.ReleaseError) error {
	return r.db.Create(e).Error
}

// ListDue returns unresolved failures whose retry window has opened, oldest
// first so starved payments are served before fresh failures.
func (r *ReleaseErrorRepository) ListDue(now time.Time, limit int) ([]*escrow.ReleaseError, error) {
	var out []*escrow.ReleaseError
	err := r.db.
		Where("resolved_at IS NULL AND next_retry_at IS NOT NULL AND next_retry_at <= ?", now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListManualQueue returns unresolved failures with no scheduled retry,
// waiting on operator action.
func (r *ReleaseErrorRepository) ListManualQueue(limit int) ([]*escrow.ReleaseError, error) {
	var out []*escrow.ReleaseError
	err := r.db.
		Where("resolved_at IS NULL AND next_retry_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *ReleaseErrorRepository) MarkResolved(id int64, at time.Time) error {
	return r.db.Model(&escrow.ReleaseError{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", at).Error
}

// ResolveAllForPayment closes every open failure for a payment, called once
// its transfer finally goes out.
func (r *ReleaseErrorRepository) ResolveAllForPayment(paymentID int64, at time.Time) error {
	return r.db.Model(&escrow.ReleaseError{}).
		Where("payment_id = ? AND resolved_at IS NULL", paymentID).
		Update("resolved_at", at).Error
}

// LatestOpenForPayment returns the most recent unresolved failure, or nil
// when the payment has a clean slate.
func (r *ReleaseErrorRepository) LatestOpenForPayment(paymentID int64) (*escrow.ReleaseError, error) {
	var e escrow.ReleaseError
	err := r.db.
		Where("payment_id = ? AND resolved_at IS NULL", paymentID).
		Order("created_at DESC").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
