package checkout_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/gym-storefront/internal"
	checkoutpkg "github.com/frahmantamala/gym-storefront/internal/checkout"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/session"
	"github.com/frahmantamala/gym-storefront/pkg/logger"
)

type stubProcessor struct {
	got    checkoutpkg.PurchaseRequest
	actor  string
	result *checkoutpkg.Result
	err    error
}

func (p *stubProcessor) Process(ctx context.Context, req checkoutpkg.PurchaseRequest) (*checkoutpkg.Result, error) {
	p.got = req
	p.actor = internal.ActorFromContext(ctx)
	return p.result, p.err
}

type stubSessions struct {
	session *session.PaymentSession
	history []session.HistoryEntry
}

func (s *stubSessions) GetByToken(_ context.Context, token string) (*session.PaymentSession, error) {
	if s.session == nil || s.session.Token != token {
		return nil, internal.ErrSessionNotFound
	}
	return s.session, nil
}

func (s *stubSessions) History(context.Context, int64) ([]session.HistoryEntry, error) {
	return s.history, nil
}

var _ = Describe("Handler", func() {
	var (
		processor *stubProcessor
		sessions  *stubSessions
		router    chi.Router
	)

	BeforeEach(func() {
		processor = &stubProcessor{}
		sessions = &stubSessions{}
		handler := checkoutpkg.NewHandler(processor, sessions, logger.Nop())
		router = chi.NewRouter()
		router.Post("/api/v1/checkout/subscriptions", handler.CreateSubscription)
		router.Get("/api/v1/checkout/sessions/{token}", handler.GetSession)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/subscriptions", bytes.NewBufferString(body))
		req.RemoteAddr = "10.1.2.3:5555"
		req.Header.Set("User-Agent", "ginkgo")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	Describe("CreateSubscription", func() {
		It("returns 201 with the result on success", func() {
			processor.result = &checkoutpkg.Result{Success: true, SessionID: 7, MembershipID: 9}

			rec := post(`{"document_id":"12345678","first_name":"Ana","email":"ana@example.com","plan_code":"MONTHLY","amount":49900,"card_token":"tok_abcdefgh","device_session_id":"dev"}`)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			var body checkoutpkg.Result
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.MembershipID).To(Equal(int64(9)))

			Expect(processor.got.ClientIP).To(Equal("10.1.2.3"))
			Expect(processor.got.UserAgent).To(Equal("ginkgo"))
			Expect(processor.got.Amount).To(Equal(int64(49900)))
			Expect(processor.actor).To(Equal(checkoutpkg.Actor))
		})

		It("returns the failure result with the status of the error", func() {
			processor.result = &checkoutpkg.Result{SessionID: 7, FailedPhase: checkoutpkg.PhaseCard, ErrorKind: "rejected"}
			processor.err = internal.NewGatewayRejectedError("declined", nil)

			rec := post(`{}`)

			Expect(rec.Code).To(Equal(http.StatusPaymentRequired))
			Expect(rec.Body.String()).To(ContainSubstring(`"session_id":7`))
			Expect(rec.Body.String()).To(ContainSubstring(`"failed_phase":"card"`))
		})

		It("renders validation errors", func() {
			processor.err = internal.NewValidationFieldError("email", "email is required", internal.ErrCodeValidationFailed)

			rec := post(`{}`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("email is required"))
		})

		It("rejects a malformed body", func() {
			rec := post(`{not json`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GetSession", func() {
		It("returns the session with its history", func() {
			started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			sessions.session = &session.PaymentSession{ID: 3, Token: "abc", State: session.StateCompleted, Amount: 49900, Currency: "MXN", StartedAt: started, ExpiresAt: started.Add(time.Hour)}
			sessions.history = []session.HistoryEntry{{Action: "INICIO", Detail: "checkout started", CreatedAt: started}}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/sessions/abc", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var view checkoutpkg.SessionView
			Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(Succeed())
			Expect(view.State).To(Equal("completed"))
			Expect(view.History).To(HaveLen(1))
			Expect(view.History[0].Action).To(Equal("INICIO"))
		})

		It("returns 404 for unknown tokens", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/sessions/missing", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})
})
