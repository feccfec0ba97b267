// Package ledger keeps one virtual cash register per gateway and business
// day and folds settled transactions into it.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/ledger"
)

var (
	ErrRegisterNotFound = errors.New("cash register not found")
	ErrRegisterClosed   = errors.New("cash register for today is already closed")
	ErrRegisterNotOpen  = errors.New("cash register is no longer open")
	ErrInvalidAmounts   = errors.New("ledger amounts must be non-negative and fee plus tax cannot exceed gross")
)

// RepositoryAPI returns (nil, nil) from lookups that find nothing.
type RepositoryAPI interface {
	FindOpen(ctx context.Context, gatewayID int64, businessDate string) (*ledger.CashRegister, error)
	Find(ctx context.Context, gatewayID int64, businessDate string) (*ledger.CashRegister, error)
	GetByID(ctx context.Context, id int64) (*ledger.CashRegister, error)
	// CloseStale closes every open register of the gateway dated before businessDate.
	CloseStale(ctx context.Context, gatewayID int64, businessDate string, at time.Time) (int64, error)
	// CreateIfAbsent inserts reg unless a register for the same gateway and day exists.
	CreateIfAbsent(ctx context.Context, reg *ledger.CashRegister) error
	// Apply adds the amounts to the open register in one atomic statement,
	// records the movement and points the gateway transaction at the
	// register, all in the same database transaction.
	Apply(ctx context.Context, m *ledger.Movement) error
	Movements(ctx context.Context, registerID int64) ([]ledger.Movement, error)
}

// DailyTotal is one row of the ledger report.
type DailyTotal struct {
	GatewayID        int64  `db:"gateway_id" json:"gateway_id"`
	BusinessDate     string `db:"business_date" json:"business_date"`
	State            string `db:"state" json:"state"`
	TransactionCount int64  `db:"transaction_count" json:"transaction_count"`
	GrossTotal       int64  `db:"gross_total" json:"gross_total"`
	FeeTotal         int64  `db:"fee_total" json:"fee_total"`
	TaxTotal         int64  `db:"tax_total" json:"tax_total"`
	NetTotal         int64  `db:"net_total" json:"net_total"`
	Movements        int64  `db:"movements" json:"movements"`
}

type ReportRepositoryAPI interface {
	Daily(ctx context.Context, gatewayID int64, from, to string) ([]DailyTotal, error)
}
