package paymentgateway_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/frahmantamala/gym-storefront/internal/idempotency"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
	"github.com/frahmantamala/gym-storefront/internal/ratelimit"
	"github.com/frahmantamala/gym-storefront/pkg/logger"
)

func TestPaymentGateway(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PaymentGateway Suite")
}

func sandboxSettings() *paymentgateway.Settings {
	return &paymentgateway.Settings{
		GatewayID:       1,
		MerchantID:      "mzdtln0bmtms6o3kck8f",
		PrivateKey:      "sk_e568c42a6c384b7ab02cd47d2e407cab",
		DefaultCurrency: "MXN",
	}
}

type countingProvider struct {
	calls    int32
	settings *paymentgateway.Settings
	release  chan struct{}
}

func (p *countingProvider) Load(context.Context) (*paymentgateway.Settings, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.release != nil {
		<-p.release
	}
	copied := *p.settings
	return &copied, nil
}

type fakeGateway struct {
	server   *httptest.Server
	hits     int32
	mu       sync.Mutex
	statuses []int
	bodies   []string
	lastReq  *http.Request
	lastBody string
}

// newFakeGateway answers with statuses[i] and bodies[i] for the i-th hit and
// repeats the last pair once the script runs out.
func newFakeGateway(statuses []int, bodies []string) *fakeGateway {
	g := &fakeGateway{statuses: statuses, bodies: bodies}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&g.hits, 1)) - 1
		raw, _ := io.ReadAll(r.Body)

		g.mu.Lock()
		g.lastReq = r
		g.lastBody = string(raw)
		g.mu.Unlock()

		i := n
		if i >= len(g.statuses) {
			i = len(g.statuses) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(g.statuses[i])
		_, _ = io.WriteString(w, g.bodies[i])
	}))
	DeferCleanup(g.server.Close)
	return g
}

func (g *fakeGateway) Hits() int {
	return int(atomic.LoadInt32(&g.hits))
}

func newClient(g *fakeGateway, provider paymentgateway.SettingsProvider, opts ...paymentgateway.Option) *paymentgateway.Client {
	cfg := paymentgateway.Config{
		SandboxURL:     g.server.URL + "/v1",
		ProductionURL:  "https://api.example.invalid/v1",
		RequestTimeout: 2 * time.Second,
		MaxAttempts:    3,
		BackoffBase:    20 * time.Millisecond,
	}
	return paymentgateway.NewClient(cfg, provider, nil, nil, logger.Nop(), opts...)
}

var _ = Describe("Client.Execute", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("retries transient failures with exponential backoff and returns the success", func() {
		g := newFakeGateway(
			[]int{500, 500, 200},
			[]string{`{"description":"boom"}`, `{"description":"boom"}`, `{"id":"cus_1","status":"active"}`},
		)
		client := newClient(g, paymentgateway.StaticSettings{Settings: sandboxSettings()})
		req, err := paymentgateway.NewGetCustomerRequest("cus_1")
		Expect(err).NotTo(HaveOccurred())

		start := time.Now()
		resp, err := client.Execute(ctx, req)
		elapsed := time.Since(start)

		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Attempts).To(Equal(3))
		Expect(g.Hits()).To(Equal(3))
		Expect(elapsed).To(BeNumerically(">=", 60*time.Millisecond))

		customer, err := paymentgateway.DecodeCustomer(resp)
		Expect(err).NotTo(HaveOccurred())
		Expect(customer.ID).To(Equal("cus_1"))
	})

	It("surfaces the last transient error once attempts are exhausted", func() {
		g := newFakeGateway([]int{503}, []string{`{"description":"maintenance","error_code":1000}`})
		client := newClient(g, paymentgateway.StaticSettings{Settings: sandboxSettings()})
		req, _ := paymentgateway.NewGetCustomerRequest("cus_1")

		_, err := client.Execute(ctx, req)

		gwErr, ok := paymentgateway.AsError(err)
		Expect(ok).To(BeTrue())
		Expect(gwErr.Kind).To(Equal(paymentgateway.KindTransient))
		Expect(gwErr.StatusCode).To(Equal(503))
		Expect(g.Hits()).To(Equal(3))
	})

	It("never retries a 401", func() {
		g := newFakeGateway([]int{401}, []string{`{"category":"request","description":"bad credentials","error_code":1002,"request_id":"r-1"}`})
		client := newClient(g, paymentgateway.StaticSettings{Settings: sandboxSettings()})
		req, _ := paymentgateway.NewGetCustomerRequest("cus_1")

		_, err := client.Execute(ctx, req)

		gwErr, ok := paymentgateway.AsError(err)
		Expect(ok).To(BeTrue())
		Expect(gwErr.Kind).To(Equal(paymentgateway.KindRejected))
		Expect(gwErr.Code).To(Equal("1002"))
		Expect(gwErr.Description).To(Equal("bad credentials"))
		Expect(gwErr.RequestID).To(Equal("r-1"))
		Expect(g.Hits()).To(Equal(1))
	})

	It("treats 429 as transient", func() {
		g := newFakeGateway([]int{429, 200}, []string{`{}`, `{"id":"cus_1"}`})
		client := newClient(g, paymentgateway.StaticSettings{Settings: sandboxSettings()})
		req, _ := paymentgateway.NewGetCustomerRequest("cus_1")

		resp, err := client.Execute(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Attempts).To(Equal(2))
	})

	It("authenticates with the private key and prefixes the merchant id", func() {
		g := newFakeGateway([]int{200}, []string{`{"id":"cus_1"}`})
		client := newClient(g, paymentgateway.StaticSettings{Settings: sandboxSettings()})
		req, _ := paymentgateway.NewGetCustomerRequest("cus_1")

		_, err := client.Execute(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		g.mu.Lock()
		defer g.mu.Unlock()
		user, pass, ok := g.lastReq.BasicAuth()
		Expect(ok).To(BeTrue())
		Expect(user).To(Equal("sk_e568c42a6c384b7ab02cd47d2e407cab"))
		Expect(pass).To(BeEmpty())
		Expect(g.lastReq.URL.Path).To(Equal("/v1/mzdtln0bmtms6o3kck8f/customers/cus_1"))
	})

	It("answers a repeated idempotent call from the cache", func() {
		g := newFakeGateway([]int{200}, []string{`{"id":"cus_9","email":"ana@example.com"}`})
		client := newClient(g, paymentgateway.StaticSettings{Settings: sandboxSettings()})
		in := paymentgateway.CustomerInput{Name: "Ana", LastName: "Diaz", Email: "ana@example.com"}

		first, _ := paymentgateway.NewCreateCustomerRequest(in)
		resp1, err := client.Execute(ctx, first)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp1.FromCache).To(BeFalse())

		second, _ := paymentgateway.NewCreateCustomerRequest(in)
		resp2, err := client.Execute(ctx, second)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp2.FromCache).To(BeTrue())
		Expect(resp2.Attempts).To(Equal(0))
		Expect(string(resp2.Body)).To(MatchJSON(string(resp1.Body)))
		Expect(g.Hits()).To(Equal(1))
	})

	It("does not cache failures", func() {
		g := newFakeGateway([]int{422, 200}, []string{`{"description":"invalid email","error_code":1001}`, `{"id":"cus_9"}`})
		client := newClient(g, paymentgateway.StaticSettings{Settings: sandboxSettings()})
		in := paymentgateway.CustomerInput{Name: "Ana", Email: "ana@example.com"}

		req, _ := paymentgateway.NewCreateCustomerRequest(in)
		_, err := client.Execute(ctx, req)
		Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindRejected))

		req, _ = paymentgateway.NewCreateCustomerRequest(in)
		resp, err := client.Execute(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.FromCache).To(BeFalse())
		Expect(g.Hits()).To(Equal(2))
	})

	It("rate limits before anything leaves the process", func() {
		g := newFakeGateway([]int{200}, []string{`{"id":"cus_1"}`})
		cfg := paymentgateway.Config{SandboxURL: g.server.URL, BackoffBase: time.Millisecond}
		client := paymentgateway.NewClient(cfg, paymentgateway.StaticSettings{Settings: sandboxSettings()},
			ratelimit.NewFixedWindow(1, time.Hour), nil, logger.Nop())

		req, _ := paymentgateway.NewGetCustomerRequest("cus_1")
		_, err := client.Execute(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		_, err = client.Execute(ctx, req)
		Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindRateLimited))
		Expect(errors.Is(err, ratelimit.ErrRateLimited)).To(BeTrue())
		Expect(g.Hits()).To(Equal(1))
	})

	It("rejects an invalid request without loading settings", func() {
		provider := &countingProvider{settings: sandboxSettings()}
		g := newFakeGateway([]int{200}, []string{`{}`})
		client := newClient(g, provider)

		_, err := client.Execute(ctx, &paymentgateway.Request{Operation: "x", Method: "PATCH", Path: "/x"})

		Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindValidation))
		Expect(atomic.LoadInt32(&provider.calls)).To(BeZero())
		Expect(g.Hits()).To(BeZero())
	})

	It("fails with a configuration error when settings are incomplete", func() {
		g := newFakeGateway([]int{200}, []string{`{}`})
		incomplete := sandboxSettings()
		incomplete.PrivateKey = ""
		client := newClient(g, paymentgateway.StaticSettings{Settings: incomplete})
		req, _ := paymentgateway.NewGetCustomerRequest("cus_1")

		_, err := client.Execute(ctx, req)

		Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindConfiguration))
		Expect(errors.Is(err, paymentgateway.ErrSettingsIncomplete)).To(BeTrue())
		Expect(g.Hits()).To(BeZero())
	})

	It("fails with a configuration error when settings are missing", func() {
		g := newFakeGateway([]int{200}, []string{`{}`})
		client := newClient(g, paymentgateway.StaticSettings{})

		_, err := client.Settings(ctx)

		Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindConfiguration))
		Expect(errors.Is(err, paymentgateway.ErrSettingsNotFound)).To(BeTrue())
	})

	It("opens the circuit after consecutive transient failures", func() {
		g := newFakeGateway([]int{500}, []string{`{}`})
		cfg := paymentgateway.Config{
			SandboxURL:         g.server.URL,
			MaxAttempts:        1,
			BreakerMaxFailures: 2,
			BreakerOpenTimeout: time.Hour,
		}
		client := paymentgateway.NewClient(cfg, paymentgateway.StaticSettings{Settings: sandboxSettings()}, nil, nil, logger.Nop())
		req, _ := paymentgateway.NewGetCustomerRequest("cus_1")

		_, _ = client.Execute(ctx, req)
		_, _ = client.Execute(ctx, req)
		_, err := client.Execute(ctx, req)

		gwErr, ok := paymentgateway.AsError(err)
		Expect(ok).To(BeTrue())
		Expect(gwErr.Code).To(Equal("circuit_open"))
		Expect(g.Hits()).To(Equal(2))
	})

	It("keeps the circuit closed on rejections", func() {
		g := newFakeGateway([]int{404}, []string{`{"description":"not found"}`})
		cfg := paymentgateway.Config{SandboxURL: g.server.URL, MaxAttempts: 1, BreakerMaxFailures: 1}
		client := paymentgateway.NewClient(cfg, paymentgateway.StaticSettings{Settings: sandboxSettings()}, nil, nil, logger.Nop())
		req, _ := paymentgateway.NewGetCustomerRequest("cus_1")

		for i := 0; i < 3; i++ {
			_, err := client.Execute(ctx, req)
			Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindRejected))
		}
		Expect(g.Hits()).To(Equal(3))
	})

	It("records call outcomes in prometheus collectors", func() {
		g := newFakeGateway([]int{200}, []string{`{"id":"cus_1"}`})
		metrics := paymentgateway.NewMetrics(prometheus.NewRegistry())
		client := newClient(g, paymentgateway.StaticSettings{Settings: sandboxSettings()}, paymentgateway.WithMetrics(metrics))
		req, _ := paymentgateway.NewGetCustomerRequest("cus_1")

		_, err := client.Execute(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		Expect(testutil.ToFloat64(metrics.Calls.WithLabelValues(paymentgateway.OpGetCustomer, "success"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.Attempts.WithLabelValues(paymentgateway.OpGetCustomer))).To(Equal(1.0))
	})
})

var _ = Describe("Client settings cache", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("reloads settings once the ttl has elapsed", func() {
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		provider := &countingProvider{settings: sandboxSettings()}
		g := newFakeGateway([]int{200}, []string{`{}`})
		cfg := paymentgateway.Config{SandboxURL: g.server.URL, SettingsTTL: time.Hour}
		client := paymentgateway.NewClient(cfg, provider, nil, nil, logger.Nop(),
			paymentgateway.WithClock(func() time.Time { return now }))

		_, err := client.Settings(ctx)
		Expect(err).NotTo(HaveOccurred())
		now = now.Add(59 * time.Minute)
		_, err = client.Settings(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(atomic.LoadInt32(&provider.calls)).To(Equal(int32(1)))

		now = now.Add(2 * time.Minute)
		_, err = client.Settings(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(atomic.LoadInt32(&provider.calls)).To(Equal(int32(2)))
	})

	It("reloads after Invalidate", func() {
		provider := &countingProvider{settings: sandboxSettings()}
		g := newFakeGateway([]int{200}, []string{`{}`})
		client := newClient(g, provider)

		_, _ = client.Settings(ctx)
		client.Invalidate()
		_, _ = client.Settings(ctx)

		Expect(atomic.LoadInt32(&provider.calls)).To(Equal(int32(2)))
	})

	It("coalesces concurrent initializations", func() {
		provider := &countingProvider{settings: sandboxSettings(), release: make(chan struct{})}
		g := newFakeGateway([]int{200}, []string{`{}`})
		client := newClient(g, provider)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := client.Settings(ctx)
				Expect(err).NotTo(HaveOccurred())
			}()
		}

		Eventually(func() int32 { return atomic.LoadInt32(&provider.calls) }).Should(Equal(int32(1)))
		time.Sleep(20 * time.Millisecond)
		close(provider.release)
		wg.Wait()

		Expect(atomic.LoadInt32(&provider.calls)).To(Equal(int32(1)))
	})

	It("requires a production url for production settings", func() {
		prod := sandboxSettings()
		prod.IsProduction = true
		client := paymentgateway.NewClient(paymentgateway.Config{}, paymentgateway.StaticSettings{Settings: prod}, nil, nil, logger.Nop())

		_, err := client.Settings(ctx)

		Expect(errors.Is(err, paymentgateway.ErrSettingsIncomplete)).To(BeTrue())
	})
})

var _ = Describe("request constructors", func() {
	It("validates customer input", func() {
		_, err := paymentgateway.NewCreateCustomerRequest(paymentgateway.CustomerInput{Name: "Ana", Email: "not-an-email"})

		Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindValidation))
		Expect(err.Error()).To(ContainSubstring("email"))
	})

	It("normalizes customer input", func() {
		req, err := paymentgateway.NewCreateCustomerRequest(paymentgateway.CustomerInput{Name: " Ana ", Email: " ANA@Example.com "})
		Expect(err).NotTo(HaveOccurred())

		body := req.Body.(paymentgateway.CustomerInput)
		Expect(body.Name).To(Equal("Ana"))
		Expect(body.Email).To(Equal("ana@example.com"))
		Expect(req.Idempotent).To(BeTrue())
	})

	It("requires a device session for cards", func() {
		_, err := paymentgateway.NewAttachCardRequest("cus_1", paymentgateway.CardInput{TokenID: "tok_1"})

		Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindValidation))
	})

	It("builds subscription paths under the customer", func() {
		req, err := paymentgateway.NewCreateSubscriptionRequest("cus_1", paymentgateway.SubscriptionInput{PlanID: "plan_1", SourceID: "card_1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Path).To(Equal("/customers/cus_1/subscriptions"))

		cancel, err := paymentgateway.NewCancelSubscriptionRequest("cus_1", "sub_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(cancel.Method).To(Equal(http.MethodDelete))
		Expect(cancel.Path).To(Equal("/customers/cus_1/subscriptions/sub_1"))
	})

	It("rejects non-positive charge amounts", func() {
		_, err := paymentgateway.NewCreateChargeRequest(paymentgateway.ChargeInput{SourceID: "card_1", Amount: 0, Currency: "mxn", Description: "x"})

		Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindValidation))
	})

	It("requires ids for lookups", func() {
		_, err := paymentgateway.NewGetChargeRequest(" ")

		Expect(paymentgateway.KindOf(err)).To(Equal(paymentgateway.KindValidation))
	})
})

var _ = Describe("Subscription", func() {
	It("counts active and trial subscriptions as settled", func() {
		Expect((&paymentgateway.Subscription{Status: "active"}).Settled()).To(BeTrue())
		Expect((&paymentgateway.Subscription{Status: "trial"}).Settled()).To(BeTrue())
		Expect((&paymentgateway.Subscription{Status: "past_due"}).Settled()).To(BeFalse())
	})
})

var _ = Describe("idempotency wiring", func() {
	It("shares a cache passed in by the caller", func() {
		g := newFakeGateway([]int{200}, []string{`{"id":"card_1"}`})
		cache := idempotency.NewCache(idempotency.NewMemoryStore(), time.Minute, logger.Nop())
		cfg := paymentgateway.Config{SandboxURL: g.server.URL}
		a := paymentgateway.NewClient(cfg, paymentgateway.StaticSettings{Settings: sandboxSettings()}, nil, cache, logger.Nop())
		b := paymentgateway.NewClient(cfg, paymentgateway.StaticSettings{Settings: sandboxSettings()}, nil, cache, logger.Nop())
		in := paymentgateway.CardInput{TokenID: "tok_1", DeviceSessionID: "dev_1"}

		req, _ := paymentgateway.NewAttachCardRequest("cus_1", in)
		_, err := a.Execute(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())

		req, _ = paymentgateway.NewAttachCardRequest("cus_1", in)
		resp, err := b.Execute(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.FromCache).To(BeTrue())
		Expect(g.Hits()).To(Equal(1))
	})
})
