package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusProcessing      Status = "processing"
	StatusInEscrow        Status = "in_escrow"
	StatusTransferPending Status = "transfer_pending"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusOverdue         Status = "overdue"
	StatusCancelled       Status = "cancelled"
)

type TransferStatus string

const (
	TransferNone      TransferStatus = "none"
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
)

// Payment is one settlement record per approved quote-supplier pairing.
// The buyer-side charge lifecycle lives in Status; the supplier-side payout
// lifecycle is tracked independently in TransferStatus because a charge can
// be fully paid while its payout is still pending, failed or being retried.
type Payment struct {
	ID         int64 `gorm:"primaryKey"`
	QuoteID    int64 `gorm:"column:quote_id;not null;uniqueIndex"`
	ClientID   int64 `gorm:"column:client_id;not null"`
	SupplierID int64 `gorm:"column:supplier_id;not null"`

	BaseAmount          decimal.Decimal `gorm:"column:base_amount;type:numeric(15,2);not null"`
	GatewayPaymentFee   decimal.Decimal `gorm:"column:gateway_payment_fee;type:numeric(15,2)"`
	GatewayMessagingFee decimal.Decimal `gorm:"column:gateway_messaging_fee;type:numeric(15,2)"`
	PlatformCommission  decimal.Decimal `gorm:"column:platform_commission_amount;type:numeric(15,2)"`
	SupplierNetAmount   decimal.Decimal `gorm:"column:supplier_net_amount;type:numeric(15,2)"`
	CustomerTotal       decimal.Decimal `gorm:"column:customer_total;type:numeric(15,2)"`

	PaymentMethod     string  `gorm:"column:payment_method"`
	GatewayChargeID   *string `gorm:"column:gateway_charge_id;uniqueIndex"`
	GatewayTransferID *string `gorm:"column:gateway_transfer_id"`
	InvoiceURL        *string `gorm:"column:invoice_url"`
	HasSplit          bool    `gorm:"column:has_split;default:false"`

	Status         Status         `gorm:"column:status;default:pending"`
	TransferStatus TransferStatus `gorm:"column:transfer_status;default:none"`
	FailureReason  *string        `gorm:"column:failure_reason"`

	PaidAt     *time.Time `gorm:"column:paid_at"`
	ReleasedAt *time.Time `gorm:"column:released_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;default:now()"`
}

func (Payment) TableName() string {
	return "payments"
}

// transitions is the single source of truth for buyer-side status moves.
// A payment only walks forward; failure and cancellation are the explicit
// exits, and completed is never regressed.
var transitions = map[Status][]Status{
	StatusPending:         {StatusProcessing, StatusInEscrow, StatusOverdue, StatusFailed, StatusCancelled},
	StatusProcessing:      {StatusInEscrow, StatusOverdue, StatusFailed, StatusCancelled},
	StatusOverdue:         {StatusInEscrow, StatusCancelled},
	StatusInEscrow:        {StatusTransferPending, StatusCompleted},
	StatusTransferPending: {StatusCompleted},
	StatusCompleted:       {},
	StatusFailed:          {},
	StatusCancelled:       {},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Releasable reports whether the buyer-side funds are collected and a payout
// may be attempted.
func (p *Payment) Releasable() bool {
	return p.Status == StatusInEscrow || p.Status == StatusCompleted
}
