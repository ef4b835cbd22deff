package fees_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/fees"
)

func TestFees(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Fee Calculator Suite")
}

var _ = Describe("Calculator", func() {
	var calc *fees.Calculator

	BeforeEach(func() {
		calc = fees.NewCalculator(internal.DefaultFees(), nil)
	})

	Describe("Calculate", func() {
		Context("with the pix method", func() {
			It("should match the standard schedule for 1000.00", func() {
				b, err := calc.Calculate(decimal.NewFromInt(1000), fees.MethodPix, 1)
				Expect(err).ToNot(HaveOccurred())

				Expect(b.PaymentFee.String()).To(Equal("0.99"))
				Expect(b.MessagingFee.String()).To(Equal("0.99"))
				Expect(b.CustomerTotal.String()).To(Equal("1001.98"))
				Expect(b.PlatformCommission.String()).To(Equal("50"))
				Expect(b.SupplierNet.String()).To(Equal("950"))
			})
		})

		Context("with the boleto method", func() {
			It("should apply the flat boleto fee", func() {
				b, err := calc.Calculate(decimal.NewFromInt(200), fees.MethodBoleto, 1)
				Expect(err).ToNot(HaveOccurred())

				Expect(b.PaymentFee.String()).To(Equal("1.99"))
				Expect(b.CustomerTotal.Equal(decimal.RequireFromString("202.98"))).To(BeTrue())
			})
		})

		Context("with the credit card method", func() {
			It("should charge percentage plus flat fee for a single installment", func() {
				b, err := calc.Calculate(decimal.NewFromInt(1000), fees.MethodCreditCard, 1)
				Expect(err).ToNot(HaveOccurred())

				// 1000 * 0.0299 + 0.49
				Expect(b.PaymentFee.Equal(decimal.RequireFromString("30.39"))).To(BeTrue())
			})

			It("should surcharge additional installments", func() {
				one, err := calc.Calculate(decimal.NewFromInt(1000), fees.MethodCreditCard, 1)
				Expect(err).ToNot(HaveOccurred())
				six, err := calc.Calculate(decimal.NewFromInt(1000), fees.MethodCreditCard, 6)
				Expect(err).ToNot(HaveOccurred())

				Expect(six.PaymentFee.GreaterThan(one.PaymentFee)).To(BeTrue())
			})

			It("should reject installment counts above the maximum", func() {
				_, err := calc.Calculate(decimal.NewFromInt(1000), fees.MethodCreditCard, 13)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with an undetermined method", func() {
			It("should never under-quote any concrete method", func() {
				base := decimal.NewFromInt(500)
				undetermined, err := calc.Calculate(base, fees.MethodUndetermined, 1)
				Expect(err).ToNot(HaveOccurred())

				for _, m := range []fees.Method{fees.MethodPix, fees.MethodBoleto, fees.MethodCreditCard} {
					concrete, err := calc.Calculate(base, m, 1)
					Expect(err).ToNot(HaveOccurred())
					Expect(undetermined.CustomerTotal.GreaterThanOrEqual(concrete.CustomerTotal)).To(BeTrue(),
						"undetermined quote must cover method %s", m)
				}
			})
		})

		Context("invariants", func() {
			It("should keep supplier_net <= base <= customer_total across methods and amounts", func() {
				amounts := []string{"0.01", "1", "99.90", "1000", "49999.99", "123456.78"}
				methods := []fees.Method{fees.MethodPix, fees.MethodBoleto, fees.MethodCreditCard, fees.MethodUndetermined}

				for _, a := range amounts {
					base := decimal.RequireFromString(a)
					for _, m := range methods {
						b, err := calc.Calculate(base, m, 1)
						Expect(err).ToNot(HaveOccurred())

						Expect(b.SupplierNet.LessThanOrEqual(b.BaseAmount)).To(BeTrue())
						Expect(b.BaseAmount.LessThanOrEqual(b.CustomerTotal)).To(BeTrue())
						Expect(b.CustomerTotal.Sub(b.BaseAmount).Equal(b.PaymentFee.Add(b.MessagingFee))).To(BeTrue())
					}
				}
			})
		})

		Context("with invalid input", func() {
			It("should reject a zero base amount", func() {
				_, err := calc.Calculate(decimal.Zero, fees.MethodPix, 1)
				Expect(err).To(HaveOccurred())

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidAmount))
			})

			It("should reject a negative base amount", func() {
				_, err := calc.Calculate(decimal.NewFromInt(-5), fees.MethodPix, 1)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("ParseMethod", func() {
		It("should default an empty method to undetermined", func() {
			m, err := fees.ParseMethod("")
			Expect(err).ToNot(HaveOccurred())
			Expect(m).To(Equal(fees.MethodUndetermined))
		})

		It("should reject unknown methods", func() {
			_, err := fees.ParseMethod("barter")
			Expect(err).To(HaveOccurred())
		})
	})
})
