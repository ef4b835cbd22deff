package delivery_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	deliverysvc "github.com/danilocontato-coder/quotemasterpro-sub002/internal/delivery"
)

var _ = Describe("request validation", func() {
	Describe("ConfirmRequest", func() {
		It("should accept a well-formed redemption", func() {
			req := deliverysvc.ConfirmRequest{Code: "ABCD2345", ConfirmedBy: 99}
			Expect(req.Validate()).To(Succeed())
		})

		It("should reject a short code with field details", func() {
			req := deliverysvc.ConfirmRequest{Code: "ABC", ConfirmedBy: 99}

			err := req.Validate()
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))

			details, ok := appErr.Details.(internal.ValidationErrors)
			Expect(ok).To(BeTrue())
			Expect(details.Errors[0].Field).To(Equal("code"))
		})

		It("should reject a missing confirmer", func() {
			req := deliverysvc.ConfirmRequest{Code: "ABCD2345"}
			Expect(req.Validate()).To(HaveOccurred())
		})
	})

	Describe("DispatchRequest", func() {
		It("should reject a missing quote id", func() {
			req := deliverysvc.DispatchRequest{}
			Expect(req.Validate()).To(HaveOccurred())
		})

		It("should accept a valid quote id", func() {
			req := deliverysvc.DispatchRequest{QuoteID: 10}
			Expect(req.Validate()).To(Succeed())
		})
	})
})
