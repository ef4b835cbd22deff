package charge_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/charge"
)

var _ = Describe("CreateChargeRequest", func() {
	It("should accept a valid quote id", func() {
		req := charge.CreateChargeRequest{QuoteID: 10}
		Expect(req.Validate()).To(Succeed())
	})

	It("should collect field errors for a missing quote id", func() {
		req := charge.CreateChargeRequest{}

		err := req.Validate()
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))

		details, ok := appErr.Details.(internal.ValidationErrors)
		Expect(ok).To(BeTrue())
		Expect(details.Errors).ToNot(BeEmpty())
		Expect(details.Errors[0].Field).To(Equal("quote_id"))
	})
})
