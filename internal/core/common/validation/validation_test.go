package validation_test

import (
	"regexp"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/gym-storefront/internal"
	"github.com/frahmantamala/gym-storefront/internal/core/common/validation"
)

func TestValidation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validation Suite")
}

func fieldsOf(err *internal.AppError) []string {
	details := err.Details.(internal.ValidationErrors)
	fields := make([]string, 0, len(details.Errors))
	for _, e := range details.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

var _ = Describe("ValidationBuilder", func() {
	It("collects every failing field", func() {
		v := validation.NewValidator()
		v.Field("first_name", "").Required()
		v.Field("email", "not-an-email").Required().Email()
		v.Field("amount", int64(0)).Required().MinInt(1, internal.ErrCodeInvalidAmount)
		v.Field("plan_code", "MONTHLY").Required().MaxLength(32)

		err := v.Validate()
		Expect(err).NotTo(BeNil())
		Expect(err.Type).To(Equal(internal.ErrorTypeValidation))
		Expect(fieldsOf(err)).To(Equal([]string{"first_name", "email", "amount", "amount"}))
	})

	It("passes valid input", func() {
		v := validation.NewValidator()
		v.Field("email", "ana@example.com").Required().Email()
		v.Field("code", "abc").Matches(regexp.MustCompile(`^[a-z]+$`), "lowercase only", internal.ErrCodeValidationFailed)
		Expect(v.Validate()).To(BeNil())
	})

	It("leaves empty values to Required", func() {
		v := validation.NewValidator()
		v.Field("email", "").Email()
		Expect(v.Validate()).To(BeNil())
	})
})

var _ = Describe("field helpers", func() {
	It("validates document ids", func() {
		Expect(validation.ValidateDocumentID("12345678")).To(BeNil())
		err := validation.ValidateDocumentID("12-34")
		Expect(err).NotTo(BeNil())
		Expect(err.Details.(internal.ValidationErrors).Errors[0].Code).To(Equal(string(internal.ErrCodeInvalidDocument)))
	})

	It("validates amounts", func() {
		Expect(validation.ValidateAmount(49900)).To(BeNil())
		Expect(validation.ValidateAmount(-5)).NotTo(BeNil())
	})

	It("recognises card tokens and currencies", func() {
		Expect(validation.CardToken("tok_kdx205scoizh93upqbte")).To(BeTrue())
		Expect(validation.CardToken("4111 1111")).To(BeFalse())
		Expect(validation.Currency("MXN")).To(BeTrue())
		Expect(validation.Currency("mxn")).To(BeFalse())
	})
})
