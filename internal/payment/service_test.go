package payment_test

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

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	paymentmodel "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/payment"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/events"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/payment"
)

func TestPayment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Service Suite")
}

type fakeRepo struct {
	payments    map[int64]*paymentmodel.Payment
	transitions []string
}

func (f *fakeRepo) Create(p *paymentmodel.Payment) error {
	f.payments[p.ID] = p
	return nil
}

func (f *fakeRepo) GetByID(id int64) (*paymentmodel.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeRepo) GetByQuoteID(quoteID int64) (*paymentmodel.Payment, error) {
	for _, p := range f.payments {
		if p.QuoteID == quoteID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetByChargeID(chargeID string) (*paymentmodel.Payment, error) {
	for _, p := range f.payments {
		if p.GatewayChargeID != nil && *p.GatewayChargeID == chargeID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetByTransferID(transferID string) (*paymentmodel.Payment, error) {
	for _, p := range f.payments {
		if p.GatewayTransferID != nil && *p.GatewayTransferID == transferID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) TransitionStatus(id int64, from, to paymentmodel.Status) (bool, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	f.transitions = append(f.transitions, string(from)+"->"+string(to))
	return true, nil
}

func (f *fakeRepo) MarkTransferPending(id int64, transferID string) (bool, error) {
	p, ok := f.payments[id]
	if !ok || !p.Releasable() {
		return false, nil
	}
	if p.TransferStatus == paymentmodel.TransferPending || p.TransferStatus == paymentmodel.TransferCompleted {
		return false, nil
	}
	p.GatewayTransferID = &transferID
	p.TransferStatus = paymentmodel.TransferPending
	p.Status = paymentmodel.StatusTransferPending
	return true, nil
}

func (f *fakeRepo) MarkTransferFailed(id int64, reason string) error {
	p, ok := f.payments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.TransferStatus = paymentmodel.TransferFailed
	p.Status = paymentmodel.StatusInEscrow
	p.FailureReason = &reason
	return nil
}

func (f *fakeRepo) MarkTransferCompleted(id int64) (bool, error) {
	p, ok := f.payments[id]
	if !ok || p.TransferStatus != paymentmodel.TransferPending {
		return false, nil
	}
	p.TransferStatus = paymentmodel.TransferCompleted
	p.Status = paymentmodel.StatusCompleted
	return true, nil
}

type fakeChargeReader struct {
	charge *gwtypes.Charge
	err    error
}

func (f *fakeChargeReader) GetCharge(ctx context.Context, chargeID string) (*gwtypes.Charge, error) {
	return f.charge, f.err
}

type recordingAuditor struct {
	entries []audit.Entry
}

func (r *recordingAuditor) Record(ctx context.Context, entry audit.Entry) {
	r.entries = append(r.entries, entry)
}

var _ = Describe("MapChargeStatus", func() {
	DescribeTable("mapping gateway statuses onto the state machine",
		func(gs gwtypes.ChargeStatus, current paymentmodel.Status, want paymentmodel.Status, changed bool) {
			got, ok := payment.MapChargeStatus(gs, current)
			Expect(ok).To(Equal(changed))
			Expect(got).To(Equal(want))
		},
		Entry("received while processing lands in escrow",
			gwtypes.ChargeStatusReceived, paymentmodel.StatusProcessing, paymentmodel.StatusInEscrow, true),
		Entry("confirmed while processing lands in escrow",
			gwtypes.ChargeStatusConfirmed, paymentmodel.StatusProcessing, paymentmodel.StatusInEscrow, true),
		Entry("received while overdue recovers into escrow",
			gwtypes.ChargeStatusReceived, paymentmodel.StatusOverdue, paymentmodel.StatusInEscrow, true),
		Entry("overdue while processing marks overdue",
			gwtypes.ChargeStatusOverdue, paymentmodel.StatusProcessing, paymentmodel.StatusOverdue, true),
		Entry("refunded while processing cancels",
			gwtypes.ChargeStatusRefunded, paymentmodel.StatusProcessing, paymentmodel.StatusCancelled, true),
		Entry("refunded after escrow cannot cancel a releasable payment",
			gwtypes.ChargeStatusRefunded, paymentmodel.StatusInEscrow, paymentmodel.StatusInEscrow, false),
		Entry("pending never moves anything",
			gwtypes.ChargeStatusPending, paymentmodel.StatusProcessing, paymentmodel.StatusProcessing, false),
		Entry("received on an already escrowed payment is a no-op",
			gwtypes.ChargeStatusReceived, paymentmodel.StatusInEscrow, paymentmodel.StatusInEscrow, false),
		Entry("a completed payment is never regressed",
			gwtypes.ChargeStatusOverdue, paymentmodel.StatusCompleted, paymentmodel.StatusCompleted, false),
	)
})

var _ = Describe("Service", func() {
	var (
		repo    *fakeRepo
		reader  *fakeChargeReader
		auditor *recordingAuditor
		service *payment.Service
		ctx     context.Context
	)

	chargeID := "pay_123"
	transferID := "tra_456"

	BeforeEach(func() {
		ctx = context.Background()
		repo = &fakeRepo{payments: map[int64]*paymentmodel.Payment{
			1: {
				ID:                1,
				QuoteID:           10,
				Status:            paymentmodel.StatusProcessing,
				TransferStatus:    paymentmodel.TransferNone,
				GatewayChargeID:   &chargeID,
				BaseAmount:        decimal.NewFromInt(1000),
				SupplierNetAmount: decimal.NewFromInt(950),
			},
		}}
		reader = &fakeChargeReader{charge: &gwtypes.Charge{ID: chargeID, Status: gwtypes.ChargeStatusReceived}}
		auditor = &recordingAuditor{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		bus := events.NewEventBus(logger)
		service = payment.NewService(repo, reader, auditor, bus, logger)
	})

	Describe("Sync", func() {
		It("should move a paid charge into escrow", func() {
			p, err := service.Sync(ctx, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(p.Status).To(Equal(paymentmodel.StatusInEscrow))
			Expect(repo.transitions).To(ConsistOf("processing->in_escrow"))
		})

		It("should be idempotent: a second sync writes nothing", func() {
			_, err := service.Sync(ctx, 1)
			Expect(err).ToNot(HaveOccurred())

			auditsAfterFirst := len(auditor.entries)
			_, err = service.Sync(ctx, 1)
			Expect(err).ToNot(HaveOccurred())

			Expect(repo.transitions).To(HaveLen(1))
			Expect(auditor.entries).To(HaveLen(auditsAfterFirst))
		})

		It("should surface a gateway outage as a gateway error", func() {
			reader.err = errors.New("connection refused")

			_, err := service.Sync(ctx, 1)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeGateway))
		})

		It("should reject a payment without a charge", func() {
			repo.payments[1].GatewayChargeID = nil

			_, err := service.Sync(ctx, 1)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("CompleteTransfer", func() {
		BeforeEach(func() {
			p := repo.payments[1]
			p.Status = paymentmodel.StatusTransferPending
			p.TransferStatus = paymentmodel.TransferPending
			p.GatewayTransferID = &transferID
		})

		It("should settle the payout exactly once", func() {
			p, err := service.CompleteTransfer(ctx, transferID)
			Expect(err).ToNot(HaveOccurred())
			Expect(p.Status).To(Equal(paymentmodel.StatusCompleted))
			Expect(p.TransferStatus).To(Equal(paymentmodel.TransferCompleted))
		})

		It("should treat a duplicate webhook delivery as a no-op", func() {
			_, err := service.CompleteTransfer(ctx, transferID)
			Expect(err).ToNot(HaveOccurred())

			auditsAfterFirst := len(auditor.entries)
			p, err := service.CompleteTransfer(ctx, transferID)
			Expect(err).ToNot(HaveOccurred())
			Expect(p.Status).To(Equal(paymentmodel.StatusCompleted))
			Expect(auditor.entries).To(HaveLen(auditsAfterFirst))
		})
	})
})
