package client

import "time"

// Client is the buyer side of a quote. GatewayCustomerID caches the
// external customer record so charge creation only creates it once.
type Client struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"column:name;not null"`
	Email string `gorm:"column:email"`
	Phone string `gorm:"column:phone"`
	TaxID string `gorm:"column:tax_id;not null;index"`

	GatewayCustomerID *string `gorm:"column:gateway_customer_id"`

	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:now()"`
}

func (Client) TableName() string {
	return "clients"
}
