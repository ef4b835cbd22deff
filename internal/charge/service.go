package charge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/client"
	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/payment"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/quote"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/fees"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/payout"
)

type QuoteRepository interface {
	GetByID(id int64) (*quote.Quote, error)
}

type ClientRepository interface {
	GetByID(id int64) (*client.Client, error)
	UpdateGatewayCustomerID(id int64, customerID string) error
}

type PaymentRepository interface {
	Create(p *payment.Payment) error
	GetByQuoteID(quoteID int64) (*payment.Payment, error)
}

// GatewayAPI is the gateway surface charge issuance depends on.
type GatewayAPI interface {
	CreateCustomer(ctx context.Context, req *gwtypes.CustomerRequest) (*gwtypes.Customer, error)
	FindCustomerByTaxID(ctx context.Context, taxID string) (*gwtypes.Customer, error)
	CreateCharge(ctx context.Context, req *gwtypes.ChargeRequest) (*gwtypes.Charge, error)
}

// DestinationValidator checks the supplier's payout wallet before a split
// is attached.
type DestinationValidator interface {
	Validate(ctx context.Context, supplierID int64) (*payout.Result, error)
}

// Service issues charges for approved quotes. The split to the supplier's
// wallet is best effort: when the wallet cannot be validated, or the
// gateway rejects the split, the charge goes out without one and the payout
// is settled later through escrow release.
type Service struct {
	quotes     QuoteRepository
	clients    ClientRepository
	payments   PaymentRepository
	gateway    GatewayAPI
	validator  DestinationValidator
	calculator *fees.Calculator
	auditor    audit.Recorder
	dueDays    int
	logger     *slog.Logger
}

func NewService(
	quotes QuoteRepository,
	clients ClientRepository,
	payments PaymentRepository,
	gw GatewayAPI,
	validator DestinationValidator,
	calculator *fees.Calculator,
	auditor audit.Recorder,
	dueDays int,
	logger *slog.Logger,
) *Service {
	if dueDays < 1 {
		dueDays = 3
	}
	return &Service{
		quotes:     quotes,
		clients:    clients,
		payments:   payments,
		gateway:    gw,
		validator:  validator,
		calculator: calculator,
		auditor:    auditor,
		dueDays:    dueDays,
		logger:     logger,
	}
}

// CreateCharge issues the gateway charge for an approved quote and persists
// the settlement record. One payment per quote: a second call for the same
// quote is rejected as a duplicate.
func (s *Service) CreateCharge(ctx context.Context, quoteID int64) (*payment.Payment, error) {
	q, err := s.quotes.GetByID(quoteID)
	if err != nil {
		return nil, internal.ErrQuoteNotFound.WithCause(err)
	}
	if q.Status != quote.StatusApproved {
		return nil, internal.ErrQuoteNotApproved
	}

	if existing, err := s.payments.GetByQuoteID(quoteID); err == nil && existing != nil {
		return nil, internal.ErrDuplicateCharge.WithDetails(map[string]interface{}{
			"payment_id": existing.ID,
		})
	}

	method, err := fees.ParseMethod(q.PaymentMethod)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.calculator.Calculate(q.Total, method, q.Installments)
	if err != nil {
		return nil, err
	}

	buyer, err := s.clients.GetByID(q.ClientID)
	if err != nil {
		return nil, internal.ErrClientNotFound.WithCause(err)
	}

	customerID, err := s.ensureCustomer(ctx, buyer)
	if err != nil {
		return nil, err
	}

	req := &gwtypes.ChargeRequest{
		Customer:          customerID,
		BillingType:       billingTypeFor(method),
		Value:             breakdown.CustomerTotal,
		DueDate:           time.Now().AddDate(0, 0, s.dueDays).Format("2006-01-02"),
		Description:       fmt.Sprintf("Pagamento da cotação #%d", q.ID),
		ExternalReference: fmt.Sprintf("quote:%d", q.ID),
	}
	if method == fees.MethodCreditCard && breakdown.Installments > 1 {
		req.InstallmentCount = breakdown.Installments
	}

	// The split is only attached when the destination validates and the
	// supplier has complete payout details on file. Anything less and the
	// full amount stays with the platform account until escrow release.
	dest, err := s.validator.Validate(ctx, q.SupplierID)
	if err != nil {
		return nil, err
	}
	if dest.Valid {
		req.Split = []gwtypes.SplitInstruction{{
			WalletID:   dest.WalletID,
			FixedValue: breakdown.SupplierNet,
		}}
	} else {
		s.logger.Warn("issuing charge without split",
			"quote_id", q.ID,
			"supplier_id", q.SupplierID)
	}

	charge, hasSplit, err := s.submitCharge(ctx, req, q)
	if err != nil {
		return nil, err
	}

	p := &payment.Payment{
		QuoteID:             q.ID,
		ClientID:            q.ClientID,
		SupplierID:          q.SupplierID,
		BaseAmount:          breakdown.BaseAmount,
		GatewayPaymentFee:   breakdown.PaymentFee,
		GatewayMessagingFee: breakdown.MessagingFee,
		PlatformCommission:  breakdown.PlatformCommission,
		SupplierNetAmount:   breakdown.SupplierNet,
		CustomerTotal:       breakdown.CustomerTotal,
		PaymentMethod:       string(method),
		GatewayChargeID:     &charge.ID,
		HasSplit:            hasSplit,
		Status:              payment.StatusProcessing,
		TransferStatus:      payment.TransferNone,
	}
	if charge.InvoiceURL != "" {
		p.InvoiceURL = &charge.InvoiceURL
	}

	if err := s.payments.Create(p); err != nil {
		// The charge exists at the gateway but our record failed. Surface
		// loudly; the sync endpoint can adopt the orphan by charge id.
		s.logger.Error("charge created but payment persistence failed",
			"quote_id", q.ID,
			"charge_id", charge.ID,
			"error", err)
		return nil, internal.NewInternalError("failed to persist payment record", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:   "charge_created",
		Entity:   "payment",
		EntityID: p.ID,
		Details: map[string]interface{}{
			"quote_id":       q.ID,
			"charge_id":      charge.ID,
			"customer_total": breakdown.CustomerTotal.String(),
			"has_split":      hasSplit,
		},
	})

	s.logger.Info("charge created",
		"quote_id", q.ID,
		"payment_id", p.ID,
		"charge_id", charge.ID,
		"customer_total", breakdown.CustomerTotal.String(),
		"has_split", hasSplit)

	return p, nil
}

// submitCharge sends the charge, falling back exactly once to a no-split
// request when the gateway rejects the wallet. Any other rejection is
// final.
func (s *Service) submitCharge(ctx context.Context, req *gwtypes.ChargeRequest, q *quote.Quote) (*gwtypes.Charge, bool, error) {
	charge, err := s.gateway.CreateCharge(ctx, req)
	if err == nil {
		return charge, len(req.Split) > 0, nil
	}

	var gwErr *gateway.Error
	if len(req.Split) > 0 && errors.As(err, &gwErr) && gwErr.IsInvalidWallet() {
		s.logger.Warn("gateway rejected split, retrying without it",
			"quote_id", q.ID,
			"wallet_id", req.Split[0].WalletID,
			"error", gwErr.Error())

		s.auditor.Record(ctx, audit.Entry{
			Action:   "charge_split_dropped",
			Entity:   "quote",
			EntityID: q.ID,
			Details: map[string]interface{}{
				"wallet_id": req.Split[0].WalletID,
				"reason":    gwErr.Error(),
			},
		})

		retried := *req
		retried.Split = nil
		charge, err = s.gateway.CreateCharge(ctx, &retried)
		if err == nil {
			return charge, false, nil
		}
	}

	return nil, false, internal.NewGatewayError("gateway rejected charge creation", internal.ErrCodeGatewayRejected, err)
}

// ensureCustomer resolves the buyer's gateway customer id, creating and
// caching it on first use. A cached id is trusted; a missing one is first
// looked up by tax id so re-onboarded buyers do not get duplicated.
func (s *Service) ensureCustomer(ctx context.Context, buyer *client.Client) (string, error) {
	if buyer.GatewayCustomerID != nil && *buyer.GatewayCustomerID != "" {
		return *buyer.GatewayCustomerID, nil
	}

	if buyer.TaxID == "" {
		return "", internal.NewValidationError("client has no tax id for gateway registration", internal.ErrCodeMissingCustomer)
	}

	customer, err := s.gateway.FindCustomerByTaxID(ctx, buyer.TaxID)
	if err != nil {
		return "", internal.NewGatewayError("customer lookup failed", internal.ErrCodeGatewayRejected, err)
	}

	if customer == nil {
		customer, err = s.gateway.CreateCustomer(ctx, &gwtypes.CustomerRequest{
			Name:        buyer.Name,
			CpfCnpj:     buyer.TaxID,
			Email:       buyer.Email,
			MobilePhone: buyer.Phone,
		})
		if err != nil {
			return "", internal.NewGatewayError("customer creation failed", internal.ErrCodeGatewayRejected, err)
		}
	}

	if err := s.clients.UpdateGatewayCustomerID(buyer.ID, customer.ID); err != nil {
		// Cache miss next time; the charge can still proceed.
		s.logger.Warn("failed to cache gateway customer id",
			"client_id", buyer.ID,
			"customer_id", customer.ID,
			"error", err)
	}
	buyer.GatewayCustomerID = &customer.ID

	return customer.ID, nil
}

func billingTypeFor(method fees.Method) gwtypes.BillingType {
	switch method {
	case fees.MethodPix:
		return gwtypes.BillingPix
	case fees.MethodBoleto:
		return gwtypes.BillingBoleto
	case fees.MethodCreditCard:
		return gwtypes.BillingCreditCard
	default:
		return gwtypes.BillingUndefined
	}
}
