// Package testutil opens throwaway databases for repository and service tests.
package testutil

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/audit"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/ledger"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/membership"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/session"
)

// Models lists every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&gateway.Settings{},
		&audit.APICall{},
		&audit.Entry{},
		&session.PaymentSession{},
		&session.HistoryEntry{},
		&membership.Buyer{},
		&membership.Plan{},
		&membership.Sale{},
		&membership.SaleLine{},
		&membership.Membership{},
		&gateway.Customer{},
		&gateway.Card{},
		&gateway.Subscription{},
		&gateway.Transaction{},
		&ledger.CashRegister{},
		&ledger.Movement{},
	}
}

// OpenSQLite returns a migrated in-memory database private to the caller.
// Every connection of the pool sees the same data through the shared cache.
func OpenSQLite() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

// MustOpenSQLite panics on failure; meant for BeforeEach blocks.
func MustOpenSQLite() *gorm.DB {
	db, err := OpenSQLite()
	if err != nil {
		panic(err)
	}
	return db
}
