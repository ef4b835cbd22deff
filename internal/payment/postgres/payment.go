package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *payment.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id int64) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByQuoteID(quoteID int64) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.First(&p, "quote_id = ?", quoteID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByChargeID(chargeID string) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.First(&p, "gateway_charge_id = ?", chargeID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByTransferID(transferID string) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.First(&p, "gateway_transfer_id = ?", transferID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// TransitionStatus writes to→status only when the row still holds from.
// The WHERE clause carries the precondition so two synchronizers racing on
// the same payment cannot double-apply a move.
func (r *PaymentRepository) TransitionStatus(id int64, from, to payment.Status) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if to == payment.StatusInEscrow {
		updates["paid_at"] = time.Now()
	}

	result := r.db.Model(&payment.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkTransferPending claims the payout slot for one outbound transfer.
// Only rows with funds in escrow and no live transfer qualify; a second
// caller racing on the same payment sees zero rows affected.
func (r *PaymentRepository) MarkTransferPending(id int64, transferID string) (bool, error) {
	result := r.db.Model(&payment.Payment{}).
		Where("id = ? AND status IN ? AND transfer_status IN ?",
			id,
			[]payment.Status{payment.StatusInEscrow, payment.StatusCompleted},
			[]payment.TransferStatus{payment.TransferNone, payment.TransferFailed}).
		Updates(map[string]interface{}{
			"gateway_transfer_id": transferID,
			"transfer_status":     payment.TransferPending,
			"status":              payment.StatusTransferPending,
			"failure_reason":      nil,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PaymentRepository) MarkTransferFailed(id int64, reason string) error {
	return r.db.Model(&payment.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"transfer_status": payment.TransferFailed,
			"status":          payment.StatusInEscrow,
			"failure_reason":  reason,
			"updated_at":      time.Now(),
		}).Error
}

// MarkTransferCompleted settles the payout exactly once. Guarding on
// transfer_status makes duplicate webhook deliveries no-ops.
func (r *PaymentRepository) MarkTransferCompleted(id int64) (bool, error) {
	now := time.Now()
	result := r.db.Model(&payment.Payment{}).
		Where("id = ? AND transfer_status = ?", id, payment.TransferPending).
		Updates(map[string]interface{}{
			"transfer_status": payment.TransferCompleted,
			"status":          payment.StatusCompleted,
			"released_at":     now,
			"updated_at":      now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
