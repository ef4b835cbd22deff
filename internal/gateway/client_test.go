package gateway_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/gateway"
)

func TestGatewayClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Gateway Client Suite")
}

const baseURL = "https://sandbox.gateway.test/api"

var _ = Describe("Client", func() {
	var (
		client *gateway.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		httpmock.Activate()
		client = gateway.NewClient(gateway.Config{
			BaseURL: baseURL,
			APIKey:  "test-key",
		}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
		ctx = context.Background()
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	Describe("CreateCharge", func() {
		It("should send the bearer credential and decode the charge", func() {
			httpmock.RegisterResponder(http.MethodPost, baseURL+"/v3/payments",
				func(req *http.Request) (*http.Response, error) {
					Expect(req.Header.Get("access_token")).To(Equal("test-key"))
					return httpmock.NewJsonResponse(200, map[string]interface{}{
						"id":         "pay_123",
						"status":     "PENDING",
						"value":      1001.98,
						"invoiceUrl": "https://gateway.test/i/pay_123",
					})
				})

			charge, err := client.CreateCharge(ctx, &gwtypes.ChargeRequest{
				Customer:    "cus_1",
				BillingType: gwtypes.BillingPix,
				Value:       decimal.RequireFromString("1001.98"),
				DueDate:     "2026-09-05",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(charge.ID).To(Equal("pay_123"))
			Expect(charge.Status).To(Equal(gwtypes.ChargeStatusPending))
			Expect(charge.InvoiceURL).To(Equal("https://gateway.test/i/pay_123"))
		})

		It("should surface a typed gateway error with the decoded envelope", func() {
			httpmock.RegisterResponder(http.MethodPost, baseURL+"/v3/payments",
				httpmock.NewStringResponder(400, `{"errors":[{"code":"invalid_wallet","description":"Wallet not found"}]}`))

			_, err := client.CreateCharge(ctx, &gwtypes.ChargeRequest{
				Customer:    "cus_1",
				BillingType: gwtypes.BillingPix,
				Value:       decimal.NewFromInt(10),
				DueDate:     "2026-09-05",
				Split: []gwtypes.SplitInstruction{
					{WalletID: "stale-wallet", FixedValue: decimal.NewFromInt(9)},
				},
			})
			Expect(err).To(HaveOccurred())

			var gwErr *gateway.Error
			Expect(errors.As(err, &gwErr)).To(BeTrue())
			Expect(gwErr.StatusCode).To(Equal(400))
			Expect(gwErr.IsInvalidWallet()).To(BeTrue())
		})

		It("should reject an invalid request before calling the gateway", func() {
			_, err := client.CreateCharge(ctx, &gwtypes.ChargeRequest{
				Customer: "cus_1",
				Value:    decimal.Zero,
				DueDate:  "2026-09-05",
			})
			Expect(err).To(HaveOccurred())
			Expect(httpmock.GetTotalCallCount()).To(Equal(0))
		})
	})

	Describe("FindCustomerByTaxID", func() {
		It("should return the first match from the list envelope", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/v3/customers",
				httpmock.NewStringResponder(200, `{"data":[{"id":"cus_9","name":"Acme","cpfCnpj":"12345678000190"}]}`))

			customer, err := client.FindCustomerByTaxID(ctx, "12345678000190")
			Expect(err).ToNot(HaveOccurred())
			Expect(customer).ToNot(BeNil())
			Expect(customer.ID).To(Equal("cus_9"))
		})

		It("should return nil when no customer matches", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/v3/customers",
				httpmock.NewStringResponder(200, `{"data":[]}`))

			customer, err := client.FindCustomerByTaxID(ctx, "00000000000191")
			Expect(err).ToNot(HaveOccurred())
			Expect(customer).To(BeNil())
		})
	})

	Describe("WalletExists", func() {
		It("should report true when the wallet is live", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/v3/accounts",
				httpmock.NewStringResponder(200, `{"data":[{"id":"acc_1","walletId":"w-1"}]}`))

			ok, err := client.WalletExists(ctx, "w-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should report false on an empty list", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/v3/accounts",
				httpmock.NewStringResponder(200, `{"data":[]}`))

			ok, err := client.WalletExists(ctx, "w-stale")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should treat a 404 as a dead wallet, not an error", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/v3/accounts",
				httpmock.NewStringResponder(404, `{"errors":[{"code":"not_found","description":"not found"}]}`))

			ok, err := client.WalletExists(ctx, "w-gone")
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("CreateTransfer", func() {
		It("should create a PIX transfer", func() {
			httpmock.RegisterResponder(http.MethodPost, baseURL+"/v3/transfers",
				httpmock.NewStringResponder(200, `{"id":"tra_7","status":"PENDING","value":950.00}`))

			transfer, err := client.CreateTransfer(ctx, &gwtypes.TransferRequest{
				Value:             decimal.NewFromInt(950),
				PixAddressKey:     "supplier@example.com",
				PixAddressKeyType: "EMAIL",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(transfer.ID).To(Equal("tra_7"))
			Expect(transfer.Status).To(Equal(gwtypes.TransferStatusPending))
		})

		It("should require a destination", func() {
			_, err := client.CreateTransfer(ctx, &gwtypes.TransferRequest{
				Value: decimal.NewFromInt(950),
			})
			Expect(err).To(HaveOccurred())
		})
	})
})
