package quote

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Quote is the thin collaborator that supplies settlement inputs: who pays,
// who gets paid, how much, and with which payment method. The quote wizard
// UI owns the rest of its lifecycle.
type Quote struct {
	ID         int64 `gorm:"primaryKey"`
	ClientID   int64 `gorm:"column:client_id;not null"`
	SupplierID int64 `gorm:"column:supplier_id;not null"`

	Total         decimal.Decimal `gorm:"column:total;type:numeric(15,2);not null"`
	PaymentMethod string          `gorm:"column:payment_method;default:undetermined"`
	Installments  int             `gorm:"column:installments;default:1"`

	Status     Status     `gorm:"column:status;default:pending"`
	ApprovedAt *time.Time `gorm:"column:approved_at"`

	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:now()"`
}

func (Quote) TableName() string {
	return "quotes"
}
