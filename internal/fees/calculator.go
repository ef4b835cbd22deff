package fees

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
)

type Method string

const (
	MethodPix          Method = "pix"
	MethodBoleto       Method = "boleto"
	MethodCreditCard   Method = "credit_card"
	MethodUndetermined Method = "undetermined"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodPix, MethodBoleto, MethodCreditCard, MethodUndetermined:
		return Method(s), nil
	case "":
		return MethodUndetermined, nil
	}
	return "", internal.NewValidationError("unknown payment method: "+s, internal.ErrCodeInvalidMethod)
}

// Breakdown is the complete fee split for one charge. The commission is
// borne by the supplier and deducted from the net; gateway fees are borne
// by the buyer and added to the customer total.
type Breakdown struct {
	BaseAmount         decimal.Decimal `json:"base_amount"`
	PaymentFee         decimal.Decimal `json:"payment_fee"`
	MessagingFee       decimal.Decimal `json:"messaging_fee"`
	TotalFees          decimal.Decimal `json:"total_fees"`
	CustomerTotal      decimal.Decimal `json:"customer_total"`
	PlatformCommission decimal.Decimal `json:"platform_commission"`
	SupplierNet        decimal.Decimal `json:"supplier_net"`
	Method             Method          `json:"method"`
	Installments       int             `json:"installments"`
}

// Calculator prices charges from the configured fee schedule. Pure and
// side-effect free; all monetary rounding is to centavos.
type Calculator struct {
	commissionRate      decimal.Decimal
	messagingFee        decimal.Decimal
	pixFee              decimal.Decimal
	boletoFee           decimal.Decimal
	cardRate            decimal.Decimal
	cardFlatFee         decimal.Decimal
	cardInstallmentRate decimal.Decimal
	maxInstallments     int
	logger              *slog.Logger
}

func NewCalculator(cfg internal.FeesConfig, logger *slog.Logger) *Calculator {
	return &Calculator{
		commissionRate:      decimal.NewFromFloat(cfg.CommissionRate),
		messagingFee:        decimal.NewFromFloat(cfg.MessagingFee),
		pixFee:              decimal.NewFromFloat(cfg.PixFee),
		boletoFee:           decimal.NewFromFloat(cfg.BoletoFee),
		cardRate:            decimal.NewFromFloat(cfg.CardRate),
		cardFlatFee:         decimal.NewFromFloat(cfg.CardFlatFee),
		cardInstallmentRate: decimal.NewFromFloat(cfg.CardInstallmentRate),
		maxInstallments:     cfg.MaxInstallments,
		logger:              logger,
	}
}

// Calculate prices a base amount for the given payment method. When the
// buyer has not picked a method yet the worst case (credit card at the
// maximum installment count) is assumed so displayed totals never
// under-quote.
func (c *Calculator) Calculate(base decimal.Decimal, method Method, installments int) (*Breakdown, error) {
	if !base.IsPositive() {
		return nil, internal.NewValidationError("base amount must be positive", internal.ErrCodeInvalidAmount)
	}

	effective := method
	if method == MethodUndetermined {
		effective = MethodCreditCard
		installments = c.maxInstallments
	}
	if installments < 1 {
		installments = 1
	}
	if installments > c.maxInstallments {
		return nil, internal.NewValidationError("installment count exceeds the maximum", internal.ErrCodeValidationFailed)
	}

	var paymentFee decimal.Decimal
	switch effective {
	case MethodPix:
		paymentFee = c.pixFee
	case MethodBoleto:
		paymentFee = c.boletoFee
	case MethodCreditCard:
		rate := c.cardRate.Add(c.cardInstallmentRate.Mul(decimal.NewFromInt(int64(installments - 1))))
		paymentFee = base.Mul(rate).Add(c.cardFlatFee).Round(2)
	default:
		return nil, internal.NewValidationError("unknown payment method: "+string(method), internal.ErrCodeInvalidMethod)
	}

	messagingFee := c.messagingFee
	totalFees := paymentFee.Add(messagingFee)
	customerTotal := base.Add(totalFees)

	commission := base.Mul(c.commissionRate).Round(2)
	supplierNet := base.Sub(commission)

	b := &Breakdown{
		BaseAmount:         base,
		PaymentFee:         paymentFee,
		MessagingFee:       messagingFee,
		TotalFees:          totalFees,
		CustomerTotal:      customerTotal,
		PlatformCommission: commission,
		SupplierNet:        supplierNet,
		Method:             method,
		Installments:       installments,
	}

	if c.logger != nil {
		c.logger.Debug("fee breakdown computed",
			"base_amount", base.String(),
			"method", string(method),
			"payment_fee", paymentFee.String(),
			"customer_total", customerTotal.String(),
			"supplier_net", supplierNet.String())
	}

	return b, nil
}
