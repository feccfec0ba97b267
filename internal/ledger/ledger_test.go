package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/ledger"
	ledgerpkg "github.com/frahmantamala/gym-storefront/internal/ledger"
	ledgerPostgres "github.com/frahmantamala/gym-storefront/internal/ledger/postgres"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
	"github.com/frahmantamala/gym-storefront/internal/testutil"
	"github.com/frahmantamala/gym-storefront/pkg/logger"
)

func TestLedger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ledger Suite")
}

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		now     time.Time
		service *ledgerpkg.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = testutil.MustOpenSQLite()
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		service = ledgerpkg.NewService(ledgerPostgres.NewLedgerRepository(db), time.UTC, logger.Nop()).
			WithClock(func() time.Time { return now })
	})

	Describe("ObtainOrOpen", func() {
		It("opens one register per gateway and day", func() {
			first, err := service.ObtainOrOpen(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			again, err := service.ObtainOrOpen(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			other, err := service.ObtainOrOpen(ctx, 2)
			Expect(err).NotTo(HaveOccurred())

			Expect(first.ID).To(Equal(again.ID))
			Expect(other.ID).NotTo(Equal(first.ID))
			Expect(first.BusinessDate).To(Equal("2026-03-01"))
			Expect(first.State).To(Equal(ledger.RegisterOpen))
		})

		It("closes registers left open on earlier days", func() {
			yesterday, err := service.ObtainOrOpen(ctx, 1)
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(24 * time.Hour)
			today, err := service.ObtainOrOpen(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(today.ID).NotTo(Equal(yesterday.ID))
			Expect(today.BusinessDate).To(Equal("2026-03-02"))

			stale, err := service.Get(ctx, yesterday.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stale.State).To(Equal(ledger.RegisterClosed))
			Expect(stale.ClosedAt).NotTo(BeNil())
		})

		It("refuses to reopen a register closed for today", func() {
			reg, err := service.ObtainOrOpen(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Model(&ledger.CashRegister{}).Where("id = ?", reg.ID).Update("state", ledger.RegisterClosed).Error).To(Succeed())

			_, err = service.ObtainOrOpen(ctx, 1)
			Expect(err).To(MatchError(ledgerpkg.ErrRegisterClosed))
		})
	})

	Describe("Apply", func() {
		It("accumulates totals and keeps net consistent", func() {
			reg, err := service.ObtainOrOpen(ctx, 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Apply(ctx, reg.ID, 10, 100, 5, 2)).To(Succeed())
			Expect(service.Apply(ctx, reg.ID, 11, 200, 10, 4)).To(Succeed())

			stored, err := service.Get(ctx, reg.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.TransactionCount).To(Equal(int64(2)))
			Expect(stored.GrossTotal).To(Equal(int64(300)))
			Expect(stored.FeeTotal).To(Equal(int64(15)))
			Expect(stored.TaxTotal).To(Equal(int64(6)))
			Expect(stored.NetTotal).To(Equal(int64(279)))

			movements, err := service.Movements(ctx, reg.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(movements).To(HaveLen(2))
			Expect(movements[0].Net).To(Equal(int64(93)))
			Expect(movements[1].Net).To(Equal(int64(186)))
		})

		It("applies a transaction only once", func() {
			reg, _ := service.ObtainOrOpen(ctx, 1)

			Expect(service.Apply(ctx, reg.ID, 10, 100, 5, 2)).To(Succeed())
			Expect(service.Apply(ctx, reg.ID, 10, 100, 5, 2)).NotTo(Succeed())

			stored, _ := service.Get(ctx, reg.ID)
			Expect(stored.TransactionCount).To(Equal(int64(1)))
			Expect(stored.GrossTotal).To(Equal(int64(100)))
		})

		It("loses no update under concurrent applies", func() {
			reg, _ := service.ObtainOrOpen(ctx, 1)

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(txID int64) {
					defer GinkgoRecover()
					defer wg.Done()
					Expect(service.Apply(ctx, reg.ID, txID, 50, 3, 1)).To(Succeed())
				}(int64(100 + i))
			}
			wg.Wait()

			stored, _ := service.Get(ctx, reg.ID)
			Expect(stored.TransactionCount).To(Equal(int64(20)))
			Expect(stored.GrossTotal).To(Equal(int64(1000)))
			Expect(stored.NetTotal).To(Equal(int64(920)))
		})

		It("rejects inconsistent amounts", func() {
			reg, _ := service.ObtainOrOpen(ctx, 1)
			Expect(service.Apply(ctx, reg.ID, 1, 10, 8, 5)).To(MatchError(ledgerpkg.ErrInvalidAmounts))
			Expect(service.Apply(ctx, reg.ID, 1, -1, 0, 0)).To(MatchError(ledgerpkg.ErrInvalidAmounts))
		})

		It("reports a missing register", func() {
			err := service.Apply(ctx, 999, 1, 100, 0, 0)
			Expect(err).To(MatchError(ledgerpkg.ErrRegisterNotFound))
		})

		It("adds nothing to a closed register", func() {
			reg, _ := service.ObtainOrOpen(ctx, 1)
			Expect(db.Model(&ledger.CashRegister{}).Where("id = ?", reg.ID).Update("state", ledger.RegisterClosed).Error).To(Succeed())

			Expect(service.Apply(ctx, reg.ID, 10, 100, 5, 2)).To(MatchError(ledgerpkg.ErrRegisterNotOpen))

			stored, _ := service.Get(ctx, reg.ID)
			Expect(stored.TransactionCount).To(BeZero())
			Expect(stored.GrossTotal).To(BeZero())
		})
	})

	Describe("ApplyToday", func() {
		It("moves a settlement that crossed midnight to the new register", func() {
			yesterday, err := service.ObtainOrOpen(ctx, 1)
			Expect(err).NotTo(HaveOccurred())

			txn := gateway.NewTransaction(100, 5, 2, "MXN")
			txn.SessionID, txn.SubscriptionID, txn.CardID, txn.CashRegisterID = 1, 1, 1, yesterday.ID
			txn.State = gateway.TransactionSettled
			Expect(db.Create(txn).Error).To(Succeed())

			now = now.Add(24 * time.Hour)
			_, err = service.ObtainOrOpen(ctx, 1)
			Expect(err).NotTo(HaveOccurred())

			registerID, err := service.ApplyToday(ctx, 1, yesterday.ID, txn.ID, 100, 5, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(registerID).NotTo(Equal(yesterday.ID))

			closed, _ := service.Get(ctx, yesterday.ID)
			Expect(closed.State).To(Equal(ledger.RegisterClosed))
			Expect(closed.TransactionCount).To(BeZero())

			today, _ := service.Get(ctx, registerID)
			Expect(today.BusinessDate).To(Equal("2026-03-02"))
			Expect(today.TransactionCount).To(Equal(int64(1)))
			Expect(today.NetTotal).To(Equal(int64(93)))

			var stored gateway.Transaction
			Expect(db.First(&stored, txn.ID).Error).To(Succeed())
			Expect(stored.CashRegisterID).To(Equal(registerID))
		})

		It("keeps an open register", func() {
			reg, _ := service.ObtainOrOpen(ctx, 1)

			registerID, err := service.ApplyToday(ctx, 1, reg.ID, 10, 100, 5, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(registerID).To(Equal(reg.ID))
		})
	})
})

var _ = Describe("Fees", func() {
	settings := &paymentgateway.Settings{FeeBasisPoints: 290, FixedFee: 250, TaxBasisPoints: 1600}

	It("charges the percentage plus the fixed fee and taxes the fee", func() {
		fee, tax := ledgerpkg.Fees(settings, 49900)
		Expect(fee).To(Equal(int64(1447 + 250)))
		Expect(tax).To(Equal(int64(272)))
	})

	It("never exceeds the gross amount", func() {
		fee, tax := ledgerpkg.Fees(settings, 100)
		Expect(fee + tax).To(BeNumerically("<=", 100))
	})

	It("is zero without settings", func() {
		fee, tax := ledgerpkg.Fees(nil, 1000)
		Expect(fee).To(BeZero())
		Expect(tax).To(BeZero())
	})
})

var _ = Describe("ReportRepository", func() {
	It("summarises registers in the date range", func() {
		ctx := context.Background()
		db := testutil.MustOpenSQLite()
		now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		service := ledgerpkg.NewService(ledgerPostgres.NewLedgerRepository(db), nil, logger.Nop()).
			WithClock(func() time.Time { return now })

		first, _ := service.ObtainOrOpen(ctx, 1)
		Expect(service.Apply(ctx, first.ID, 1, 100, 5, 2)).To(Succeed())
		Expect(service.Apply(ctx, first.ID, 2, 200, 10, 4)).To(Succeed())
		now = now.Add(24 * time.Hour)
		second, _ := service.ObtainOrOpen(ctx, 1)
		Expect(service.Apply(ctx, second.ID, 3, 300, 0, 0)).To(Succeed())
		now = now.Add(24 * time.Hour)
		_, _ = service.ObtainOrOpen(ctx, 1)

		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		report := ledgerPostgres.NewReportRepository(sqlx.NewDb(sqlDB, "sqlite3"))

		rows, err := report.Daily(ctx, 1, "2026-03-01", "2026-03-02")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].BusinessDate).To(Equal("2026-03-01"))
		Expect(rows[0].State).To(Equal("closed"))
		Expect(rows[0].Movements).To(Equal(int64(2)))
		Expect(rows[0].NetTotal).To(Equal(int64(279)))
		Expect(rows[1].GrossTotal).To(Equal(int64(300)))
		Expect(rows[1].State).To(Equal("closed"))
	})
})
