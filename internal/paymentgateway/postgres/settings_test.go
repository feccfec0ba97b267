package postgres_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
	gatewayPostgres "github.com/frahmantamala/gym-storefront/internal/paymentgateway/postgres"
	"github.com/frahmantamala/gym-storefront/internal/testutil"
)

func TestGatewayPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Gateway Postgres Suite")
}

var _ = Describe("SettingsRepository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *gatewayPostgres.SettingsRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = testutil.MustOpenSQLite()
		repo = gatewayPostgres.NewSettingsRepository(db, 7)
	})

	It("reports missing settings", func() {
		_, err := repo.Load(ctx)

		Expect(err).To(MatchError(paymentgateway.ErrSettingsNotFound))
	})

	It("maps the stored row", func() {
		Expect(repo.Upsert(ctx, &gateway.Settings{
			GatewayID:       7,
			Name:            "openpay",
			MerchantID:      "m123",
			PrivateKey:      "sk_test",
			DefaultCurrency: "MXN",
			FeeBasisPoints:  290,
			FixedFee:        250,
			TaxBasisPoints:  1600,
			IsActive:        true,
		})).To(Succeed())

		settings, err := repo.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(settings.MerchantID).To(Equal("m123"))
		Expect(settings.FeeBasisPoints).To(Equal(int64(290)))
		Expect(settings.Validate()).To(Succeed())
	})

	It("updates an existing row in place", func() {
		row := &gateway.Settings{GatewayID: 7, Name: "openpay", MerchantID: "m1", PrivateKey: "sk", DefaultCurrency: "MXN", IsActive: true}
		Expect(repo.Upsert(ctx, row)).To(Succeed())

		Expect(repo.Upsert(ctx, &gateway.Settings{GatewayID: 7, Name: "openpay", MerchantID: "m2", PrivateKey: "sk", DefaultCurrency: "MXN", IsActive: true})).To(Succeed())

		var count int64
		db.Model(&gateway.Settings{}).Count(&count)
		Expect(count).To(Equal(int64(1)))

		settings, err := repo.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(settings.MerchantID).To(Equal("m2"))
	})
})
