package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	ledgerpkg "github.com/frahmantamala/gym-storefront/internal/ledger"
)

// ReportRepository reads ledger aggregates with plain SQL.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) ledgerpkg.ReportRepositoryAPI {
	return &ReportRepository{db: db}
}

const dailyTotalsQuery = `
SELECT r.gateway_id, r.business_date, r.state, r.transaction_count,
       r.gross_total, r.fee_total, r.tax_total, r.net_total,
       COUNT(m.id) AS movements
FROM cash_registers r
LEFT JOIN cash_register_movements m ON m.register_id = r.id
WHERE r.gateway_id = ? AND r.business_date >= ? AND r.business_date <= ?
GROUP BY r.id, r.gateway_id, r.business_date, r.state, r.transaction_count,
         r.gross_total, r.fee_total, r.tax_total, r.net_total
ORDER BY r.business_date ASC`

func (r *ReportRepository) Daily(ctx context.Context, gatewayID int64, from, to string) ([]ledgerpkg.DailyTotal, error) {
	var rows []ledgerpkg.DailyTotal
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(dailyTotalsQuery), gatewayID, from, to)
	return rows, err
}
