package rest_test

import (
	"encoding/json"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/gym-storefront/internal"
	"github.com/frahmantamala/gym-storefront/internal/checkout"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/session"
)

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Validate(loader.Context)).To(Succeed())
	})

	// conforms round-trips v through JSON, as a client would see it.
	conforms := func(name string, v any) error {
		raw, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		var decoded any
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		return doc.Components.Schemas[name].Value.VisitJSON(decoded)
	}

	It("declares every served route", func() {
		Expect(doc.Paths.Find("/ping")).NotTo(BeNil())
		Expect(doc.Paths.Find("/health")).NotTo(BeNil())
		Expect(doc.Paths.Find("/checkout/subscriptions").Post).NotTo(BeNil())
		Expect(doc.Paths.Find("/checkout/sessions/{token}").Get).NotTo(BeNil())
	})

	It("describes the checkout request", func() {
		req := checkout.CheckoutRequest{
			DocumentID:      "12345678",
			FirstName:       "Ana",
			Email:           "ana@example.com",
			PlanCode:        "MONTHLY",
			Amount:          49900,
			CardToken:       "tok_kdx205scoizh93upqbte",
			DeviceSessionID: "kR1MiQhz2otdIuUlQkbEyitIqVMiI16f",
		}
		Expect(conforms("CheckoutRequest", req)).To(Succeed())

		req.DocumentID = "12-34"
		Expect(conforms("CheckoutRequest", req)).NotTo(Succeed())
	})

	It("describes success and failure results", func() {
		Expect(conforms("CheckoutResult", checkout.Result{
			Success: true, Message: "membership activated", SessionID: 1, SessionToken: "t",
			BuyerID: 2, CustomerID: 3, CardID: 4, SubscriptionID: 5, TransactionID: 6, SaleID: 7, MembershipID: 8,
		})).To(Succeed())

		Expect(conforms("CheckoutResult", checkout.Result{
			Message: "card declined", SessionID: 1, FailedPhase: checkout.PhaseCard, ErrorKind: "rejected", ErrorCode: "3001", LogID: 9,
		})).To(Succeed())
	})

	It("describes the session view", func() {
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		view := checkout.NewSessionView(&session.PaymentSession{
			Token: "t", State: session.StateActive, Amount: 49900, Currency: "MXN",
			StartedAt: now, ExpiresAt: now.Add(time.Hour),
		}, []session.HistoryEntry{{Action: "INICIO", Detail: "checkout started", CreatedAt: now}})

		Expect(conforms("SessionView", view)).To(Succeed())
	})

	It("describes error bodies", func() {
		_, body := internal.ErrSessionNotFound.ToHTTPResponse()
		Expect(conforms("ErrorResponse", body)).To(Succeed())
	})
})
