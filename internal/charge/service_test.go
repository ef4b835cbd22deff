package charge_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/charge"
	clientmodel "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/client"
	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	paymentmodel "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/payment"
	quotemodel "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/quote"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/fees"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/payout"
)

func TestCharge(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Charge Service Suite")
}

type fakeQuoteRepo struct {
	quotes map[int64]*quotemodel.Quote
}

func (f *fakeQuoteRepo) GetByID(id int64) (*quotemodel.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

type fakeClientRepo struct {
	clients map[int64]*clientmodel.Client
	cached  map[int64]string
}

func (f *fakeClientRepo) GetByID(id int64) (*clientmodel.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeClientRepo) UpdateGatewayCustomerID(id int64, customerID string) error {
	f.cached[id] = customerID
	return nil
}

type fakePaymentRepo struct {
	created []*paymentmodel.Payment
}

func (f *fakePaymentRepo) Create(p *paymentmodel.Payment) error {
	p.ID = int64(len(f.created) + 1)
	f.created = append(f.created, p)
	return nil
}

func (f *fakePaymentRepo) GetByQuoteID(quoteID int64) (*paymentmodel.Payment, error) {
	for _, p := range f.created {
		if p.QuoteID == quoteID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeGateway struct {
	customers     map[string]*gwtypes.Customer
	chargeErr     error
	splitErr      error
	chargeReqs    []*gwtypes.ChargeRequest
	createdCharge *gwtypes.Charge
}

func (f *fakeGateway) CreateCustomer(ctx context.Context, req *gwtypes.CustomerRequest) (*gwtypes.Customer, error) {
	c := &gwtypes.Customer{ID: "cus_new", Name: req.Name, CpfCnpj: req.CpfCnpj}
	f.customers[req.CpfCnpj] = c
	return c, nil
}

func (f *fakeGateway) FindCustomerByTaxID(ctx context.Context, taxID string) (*gwtypes.Customer, error) {
	if c, ok := f.customers[taxID]; ok {
		return c, nil
	}
	return nil, nil
}

func (f *fakeGateway) CreateCharge(ctx context.Context, req *gwtypes.ChargeRequest) (*gwtypes.Charge, error) {
	f.chargeReqs = append(f.chargeReqs, req)
	if len(req.Split) > 0 && f.splitErr != nil {
		return nil, f.splitErr
	}
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return f.createdCharge, nil
}

type fakeValidator struct {
	result *payout.Result
}

func (f *fakeValidator) Validate(ctx context.Context, supplierID int64) (*payout.Result, error) {
	return f.result, nil
}

type noopRecorder struct{}

func (noopRecorder) Record(ctx context.Context, entry audit.Entry) {}

var _ = Describe("Service", func() {
	var (
		quotes    *fakeQuoteRepo
		clients   *fakeClientRepo
		payments  *fakePaymentRepo
		gw        *fakeGateway
		validator *fakeValidator
		service   *charge.Service
		ctx       context.Context
	)

	approvedAt := time.Now()

	BeforeEach(func() {
		ctx = context.Background()
		quotes = &fakeQuoteRepo{quotes: map[int64]*quotemodel.Quote{
			10: {
				ID:            10,
				ClientID:      1,
				SupplierID:    2,
				Total:         decimal.NewFromInt(1000),
				PaymentMethod: "pix",
				Installments:  1,
				Status:        quotemodel.StatusApproved,
				ApprovedAt:    &approvedAt,
			},
			11: {
				ID:       11,
				ClientID: 1,
				Status:   quotemodel.StatusPending,
			},
		}}
		clients = &fakeClientRepo{
			clients: map[int64]*clientmodel.Client{
				1: {ID: 1, Name: "Acme Compras", TaxID: "12345678000190"},
			},
			cached: map[int64]string{},
		}
		payments = &fakePaymentRepo{}
		gw = &fakeGateway{
			customers:     map[string]*gwtypes.Customer{},
			createdCharge: &gwtypes.Charge{ID: "pay_123", Status: gwtypes.ChargeStatusPending, InvoiceURL: "https://invoice.example/pay_123"},
		}
		validator = &fakeValidator{result: &payout.Result{Valid: true, WalletID: "wal_abc"}}

		calc := fees.NewCalculator(internal.DefaultFees(), nil)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = charge.NewService(quotes, clients, payments, gw, validator, calc, noopRecorder{}, 3, logger)
	})

	Describe("CreateCharge", func() {
		It("should issue a charge with the supplier split", func() {
			p, err := service.CreateCharge(ctx, 10)
			Expect(err).ToNot(HaveOccurred())

			Expect(gw.chargeReqs).To(HaveLen(1))
			req := gw.chargeReqs[0]
			Expect(req.BillingType).To(Equal(gwtypes.BillingPix))
			Expect(req.Value.String()).To(Equal("1001.98"))
			Expect(req.Split).To(HaveLen(1))
			Expect(req.Split[0].WalletID).To(Equal("wal_abc"))
			Expect(req.Split[0].FixedValue.String()).To(Equal("950"))

			Expect(p.Status).To(Equal(paymentmodel.StatusProcessing))
			Expect(p.HasSplit).To(BeTrue())
			Expect(*p.GatewayChargeID).To(Equal("pay_123"))
			Expect(p.SupplierNetAmount.String()).To(Equal("950"))
		})

		It("should create and cache the gateway customer on first use", func() {
			_, err := service.CreateCharge(ctx, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(clients.cached[1]).To(Equal("cus_new"))
		})

		It("should reuse a cached gateway customer id", func() {
			cached := "cus_cached"
			clients.clients[1].GatewayCustomerID = &cached

			_, err := service.CreateCharge(ctx, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(gw.chargeReqs[0].Customer).To(Equal("cus_cached"))
		})

		It("should issue without a split when the destination is invalid", func() {
			validator.result = &payout.Result{Valid: false}

			p, err := service.CreateCharge(ctx, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(gw.chargeReqs[0].Split).To(BeEmpty())
			Expect(p.HasSplit).To(BeFalse())
		})

		It("should fall back to a no-split charge when the gateway rejects the wallet", func() {
			gw.splitErr = &gateway.Error{
				StatusCode: 400,
				Errors:     []gwtypes.APIError{{Code: "invalid_wallet", Description: "walletId does not exist"}},
			}

			p, err := service.CreateCharge(ctx, 10)
			Expect(err).ToNot(HaveOccurred())

			Expect(gw.chargeReqs).To(HaveLen(2))
			Expect(gw.chargeReqs[0].Split).To(HaveLen(1))
			Expect(gw.chargeReqs[1].Split).To(BeEmpty())
			Expect(p.HasSplit).To(BeFalse())
		})

		It("should not retry when the rejection is unrelated to the wallet", func() {
			gw.splitErr = &gateway.Error{
				StatusCode: 400,
				Errors:     []gwtypes.APIError{{Code: "invalid_value", Description: "value is too low"}},
			}

			_, err := service.CreateCharge(ctx, 10)
			Expect(err).To(HaveOccurred())
			Expect(gw.chargeReqs).To(HaveLen(1))

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeGatewayRejected))
		})

		It("should reject a quote that is not approved", func() {
			_, err := service.CreateCharge(ctx, 11)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeQuoteNotApproved))
		})

		It("should reject a second charge for the same quote", func() {
			_, err := service.CreateCharge(ctx, 10)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.CreateCharge(ctx, 10)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateCharge))
		})

		It("should price an undetermined method as credit card at max installments", func() {
			quotes.quotes[10].PaymentMethod = ""

			p, err := service.CreateCharge(ctx, 10)
			Expect(err).ToNot(HaveOccurred())

			Expect(gw.chargeReqs[0].BillingType).To(Equal(gwtypes.BillingUndefined))
			// 1000 * (0.0299 + 0.0049*11) + 0.49 = 84.29, plus 0.99 messaging
			Expect(p.GatewayPaymentFee.String()).To(Equal("84.29"))
			Expect(p.CustomerTotal.String()).To(Equal("1085.28"))
		})
	})
})
