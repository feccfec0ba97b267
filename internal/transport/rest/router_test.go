package rest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/frahmantamala/gym-storefront/internal/testutil"
	"github.com/frahmantamala/gym-storefront/internal/transport/rest"
	"github.com/frahmantamala/gym-storefront/pkg/logger"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rest Suite")
}

var _ = Describe("RegisterAllRoutes", func() {
	serve := func(redis rest.Pinger, path string) *httptest.ResponseRecorder {
		sqlDB, err := testutil.MustOpenSQLite().DB()
		Expect(err).NotTo(HaveOccurred())

		extra := map[string]rest.Pinger{}
		if redis != nil {
			extra["redis"] = redis
		}

		reg := prometheus.NewRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gym_test_total", Help: "test"})
		reg.MustRegister(counter)
		counter.Inc()

		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.RouteOptions{
			Health:          rest.NewHealthHandler(sqlDB, extra),
			MetricsPath:     "/metrics",
			MetricsGatherer: reg,
			Logger:          logger.Nop(),
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	It("answers ping", func() {
		rec := serve(nil, "/api/v1/ping")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("OK"))
	})

	It("reports healthy components", func() {
		rec := serve(func(context.Context) error { return nil }, "/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"postgres"`))
		Expect(rec.Body.String()).To(ContainSubstring(`"redis"`))
	})

	It("turns unhealthy when any component fails", func() {
		rec := serve(func(context.Context) error { return errors.New("connection refused") }, "/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(rec.Body.String()).To(ContainSubstring("connection refused"))
	})

	It("exposes prometheus metrics", func() {
		rec := serve(nil, "/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("gym_test_total 1"))
	})
})
