package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/payment"
)

type PaymentResponse struct {
	ID         int64 `json:"id"`
	QuoteID    int64 `json:"quote_id"`
	ClientID   int64 `json:"client_id"`
	SupplierID int64 `json:"supplier_id"`

	BaseAmount          decimal.Decimal `json:"base_amount"`
	GatewayPaymentFee   decimal.Decimal `json:"gateway_payment_fee"`
	GatewayMessagingFee decimal.Decimal `json:"gateway_messaging_fee"`
	PlatformCommission  decimal.Decimal `json:"platform_commission_amount"`
	SupplierNetAmount   decimal.Decimal `json:"supplier_net_amount"`
	CustomerTotal       decimal.Decimal `json:"customer_total"`

	PaymentMethod     string  `json:"payment_method"`
	GatewayChargeID   *string `json:"gateway_charge_id,omitempty"`
	GatewayTransferID *string `json:"gateway_transfer_id,omitempty"`
	InvoiceURL        *string `json:"invoice_url,omitempty"`
	HasSplit          bool    `json:"has_split"`

	Status         string  `json:"status"`
	TransferStatus string  `json:"transfer_status"`
	FailureReason  *string `json:"failure_reason,omitempty"`

	PaidAt     *time.Time `json:"paid_at,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func ToPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                  p.ID,
		QuoteID:             p.QuoteID,
		ClientID:            p.ClientID,
		SupplierID:          p.SupplierID,
		BaseAmount:          p.BaseAmount,
		GatewayPaymentFee:   p.GatewayPaymentFee,
		GatewayMessagingFee: p.GatewayMessagingFee,
		PlatformCommission:  p.PlatformCommission,
		SupplierNetAmount:   p.SupplierNetAmount,
		CustomerTotal:       p.CustomerTotal,
		PaymentMethod:       p.PaymentMethod,
		GatewayChargeID:     p.GatewayChargeID,
		GatewayTransferID:   p.GatewayTransferID,
		InvoiceURL:          p.InvoiceURL,
		HasSplit:            p.HasSplit,
		Status:              string(p.Status),
		TransferStatus:      string(p.TransferStatus),
		FailureReason:       p.FailureReason,
		PaidAt:              p.PaidAt,
		ReleasedAt:          p.ReleasedAt,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
