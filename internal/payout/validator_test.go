package payout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	suppliermodel "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/supplier"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/payout"
)

func TestPayout(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payout Suite")
}

type fakeSupplierRepo struct {
	suppliers map[int64]*suppliermodel.Supplier
	updated   map[int64]string
}

func (f *fakeSupplierRepo) GetByID(id int64) (*suppliermodel.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s
	return &clone, nil
}

func (f *fakeSupplierRepo) UpdateWalletID(id int64, walletID string) error {
	if f.updated == nil {
		f.updated = make(map[int64]string)
	}
	f.updated[id] = walletID
	if s, ok := f.suppliers[id]; ok {
		s.WalletID = &walletID
	}
	return nil
}

type fakeGateway struct {
	wallets        map[string]bool
	walletCheckErr error
	accountByTaxID *gwtypes.Account
	lookupErr      error
	createdAccount *gwtypes.Account
	createErr      error
	createRequests []*gwtypes.AccountRequest
}

func (f *fakeGateway) WalletExists(ctx context.Context, walletID string) (bool, error) {
	if f.walletCheckErr != nil {
		return false, f.walletCheckErr
	}
	return f.wallets[walletID], nil
}

func (f *fakeGateway) FindAccountByTaxID(ctx context.Context, taxID string) (*gwtypes.Account, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.accountByTaxID, nil
}

func (f *fakeGateway) CreateAccount(ctx context.Context, req *gwtypes.AccountRequest) (*gwtypes.Account, error) {
	f.createRequests = append(f.createRequests, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createdAccount, nil
}

type noopRecorder struct{}

func (noopRecorder) Record(ctx context.Context, entry audit.Entry) {}

var _ = Describe("Validator", func() {
	var (
		repo      *fakeSupplierRepo
		gw        *fakeGateway
		validator *payout.Validator
		ctx       context.Context
	)

	walletID := "wal_live"
	pixKey := "financeiro@fornecedor.com"

	BeforeEach(func() {
		ctx = context.Background()
		repo = &fakeSupplierRepo{suppliers: map[int64]*suppliermodel.Supplier{
			2: {
				ID: 2, Name: "Fornecedor Ltda", Email: "contato@fornecedor.com",
				TaxID: "12345678000190", WalletID: &walletID, PixKey: &pixKey,
			},
		}}
		gw = &fakeGateway{wallets: map[string]bool{walletID: true}}

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		validator = payout.NewValidator(repo, gw, noopRecorder{}, decimal.NewFromInt(5000), logger)
	})

	It("should accept a live wallet", func() {
		result, err := validator.Validate(ctx, 2)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Valid).To(BeTrue())
		Expect(result.WalletID).To(Equal(walletID))
		Expect(result.Healed).To(BeFalse())
	})

	It("should heal a stale wallet from an existing sub-account", func() {
		gw.wallets[walletID] = false
		gw.accountByTaxID = &gwtypes.Account{ID: "acc_1", WalletID: "wal_recovered"}

		result, err := validator.Validate(ctx, 2)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Valid).To(BeTrue())
		Expect(result.Healed).To(BeTrue())
		Expect(result.WalletID).To(Equal("wal_recovered"))
		Expect(repo.updated[2]).To(Equal("wal_recovered"))
		Expect(gw.createRequests).To(BeEmpty())
	})

	It("should report invalid when the supplier has no wallet id", func() {
		repo.suppliers[2].WalletID = nil

		result, err := validator.Validate(ctx, 2)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Valid).To(BeFalse())
		Expect(gw.createRequests).To(BeEmpty())
		Expect(repo.updated).To(BeEmpty())
	})

	It("should report invalid when the supplier has no payee details", func() {
		// A live wallet alone does not make a split payable.
		repo.suppliers[2].PixKey = nil

		result, err := validator.Validate(ctx, 2)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Valid).To(BeFalse())
	})

	It("should re-create a sub-account when healing finds none", func() {
		gw.wallets[walletID] = false
		gw.createdAccount = &gwtypes.Account{ID: "acc_new", WalletID: "wal_new"}

		result, err := validator.Validate(ctx, 2)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Valid).To(BeTrue())
		Expect(result.Healed).To(BeTrue())
		Expect(result.WalletID).To(Equal("wal_new"))

		Expect(gw.createRequests).To(HaveLen(1))
		req := gw.createRequests[0]
		Expect(req.CpfCnpj).To(Equal("12345678000190"))
		Expect(req.IncomeValue.String()).To(Equal("5000")) // fallback income
	})

	It("should declare the supplier's revenue when known", func() {
		gw.wallets[walletID] = false
		revenue := decimal.NewFromInt(120000)
		repo.suppliers[2].MonthlyRevenue = &revenue
		gw.createdAccount = &gwtypes.Account{ID: "acc_new", WalletID: "wal_new"}

		_, err := validator.Validate(ctx, 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(gw.createRequests[0].IncomeValue.String()).To(Equal("120000"))
	})

	It("should report invalid, not error, when the gateway is down", func() {
		gw.walletCheckErr = errors.New("connection refused")

		result, err := validator.Validate(ctx, 2)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Valid).To(BeFalse())
	})

	It("should report invalid when healing fails", func() {
		gw.wallets[walletID] = false
		gw.lookupErr = errors.New("gateway timeout")

		result, err := validator.Validate(ctx, 2)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Valid).To(BeFalse())
		Expect(repo.updated).To(BeEmpty())
	})

	It("should error for an unknown supplier", func() {
		_, err := validator.Validate(ctx, 99)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ClassifyPixKey", func() {
	DescribeTable("key classification",
		func(key string, want payout.PixKeyType) {
			Expect(payout.ClassifyPixKey(key)).To(Equal(want))
		},
		Entry("cpf", "12345678901", payout.PixKeyCPF),
		Entry("cnpj", "12345678000190", payout.PixKeyCNPJ),
		Entry("email", "financeiro@fornecedor.com", payout.PixKeyEmail),
		Entry("phone", "+5511987654321", payout.PixKeyPhone),
		Entry("random key", "3f2b8a90-1c2d-4e5f-9a8b-7c6d5e4f3a2b", payout.PixKeyRandom),
	)
})

var _ = Describe("ResolveDestination", func() {
	It("should prefer the PIX key over bank data", func() {
		key := "financeiro@fornecedor.com"
		code, agency, account, digit, owner := "341", "1234", "56789", "0", "Fornecedor Ltda"
		sup := &suppliermodel.Supplier{
			ID: 2, TaxID: "12345678000190", PixKey: &key,
			BankCode: &code, BankAgency: &agency, BankAccount: &account,
			BankAccountDigit: &digit, BankOwnerName: &owner,
		}

		dest, err := payout.ResolveDestination(sup)
		Expect(err).ToNot(HaveOccurred())

		var req gwtypes.TransferRequest
		dest.ApplyTo(&req)
		Expect(req.PixAddressKey).To(Equal(key))
		Expect(req.PixAddressKeyType).To(Equal("EMAIL"))
		Expect(req.BankAccount).To(BeNil())
	})

	It("should honor an explicit PIX key type", func() {
		key := "3f2b8a90-1c2d-4e5f-9a8b-7c6d5e4f3a2b"
		keyType := "evp"
		sup := &suppliermodel.Supplier{ID: 2, TaxID: "12345678000190", PixKey: &key, PixKeyType: &keyType}

		dest, err := payout.ResolveDestination(sup)
		Expect(err).ToNot(HaveOccurred())

		var req gwtypes.TransferRequest
		dest.ApplyTo(&req)
		Expect(req.PixAddressKeyType).To(Equal("EVP"))
	})

	It("should build the full bank-account tuple", func() {
		code, agency, account, digit, owner := "341", "1234", "56789", "0", "Fornecedor Ltda"
		sup := &suppliermodel.Supplier{
			ID: 2, TaxID: "12345678000190",
			BankCode: &code, BankAgency: &agency, BankAccount: &account,
			BankAccountDigit: &digit, BankOwnerName: &owner,
		}

		dest, err := payout.ResolveDestination(sup)
		Expect(err).ToNot(HaveOccurred())

		var req gwtypes.TransferRequest
		dest.ApplyTo(&req)
		Expect(req.BankAccount).ToNot(BeNil())
		Expect(req.BankAccount.CpfCnpj).To(Equal("12345678000190"))
		Expect(req.BankAccount.AccountType).To(Equal("CONTA_CORRENTE"))
	})

	It("should fail when no destination data exists", func() {
		sup := &suppliermodel.Supplier{ID: 2, TaxID: "12345678000190"}

		_, err := payout.ResolveDestination(sup)
		Expect(err).To(HaveOccurred())
	})

	It("should treat a partial bank tuple as missing", func() {
		code := "341"
		sup := &suppliermodel.Supplier{ID: 2, TaxID: "12345678000190", BankCode: &code}

		_, err := payout.ResolveDestination(sup)
		Expect(err).To(HaveOccurred())
	})
})
