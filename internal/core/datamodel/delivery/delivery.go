package delivery

import "time"

type Status string

const (
	StatusDispatched Status = "dispatched"
	StatusDelivered  Status = "delivered"
)

// Delivery tracks the leg of a quote between dispatch and buyer
// confirmation. Its confirmation code gates escrow release.
type Delivery struct {
	ID      int64  `gorm:"primaryKey"`
	QuoteID int64  `gorm:"column:quote_id;not null;index"`
	Status  Status `gorm:"column:status;default:dispatched"`

	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;default:now()"`
}

func (Delivery) TableName() string {
	return "deliveries"
}

// Confirmation is the single-use code proving the buyer received goods.
// Consumption must be a conditional update on IsUsed; two concurrent
// redemptions may trigger at most one escrow release.
type Confirmation struct {
	ID         int64  `gorm:"primaryKey"`
	DeliveryID int64  `gorm:"column:delivery_id;not null;index"`
	QuoteID    int64  `gorm:"column:quote_id;not null;index"`
	Code       string `gorm:"column:code;not null;uniqueIndex"`

	ExpiresAt   time.Time  `gorm:"column:expires_at;not null"`
	IsUsed      bool       `gorm:"column:is_used;default:false"`
	ConfirmedBy *int64     `gorm:"column:confirmed_by"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`

	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (Confirmation) TableName() string {
	return "delivery_confirmations"
}

// Expired reports whether the code can no longer be redeemed.
func (c *Confirmation) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
