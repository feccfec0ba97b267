package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/ledger"
	ledgerpkg "github.com/frahmantamala/gym-storefront/internal/ledger"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) ledgerpkg.RepositoryAPI {
	return &LedgerRepository{
		db: db,
	}
}

func (r *LedgerRepository) FindOpen(ctx context.Context, gatewayID int64, businessDate string) (*ledger.CashRegister, error) {
	var reg ledger.CashRegister
	err := r.db.WithContext(ctx).
		Where("gateway_id = ? AND business_date = ? AND state = ?", gatewayID, businessDate, ledger.RegisterOpen).
		First(&reg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

func (r *LedgerRepository) Find(ctx context.Context, gatewayID int64, businessDate string) (*ledger.CashRegister, error) {
	var reg ledger.CashRegister
	err := r.db.WithContext(ctx).
		Where("gateway_id = ? AND business_date = ?", gatewayID, businessDate).
		First(&reg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

func (r *LedgerRepository) GetByID(ctx context.Context, id int64) (*ledger.CashRegister, error) {
	var reg ledger.CashRegister
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

func (r *LedgerRepository) CloseStale(ctx context.Context, gatewayID int64, businessDate string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&ledger.CashRegister{}).
		Where("gateway_id = ? AND state = ? AND business_date < ?", gatewayID, ledger.RegisterOpen, businessDate).
		Updates(map[string]interface{}{
			"state":     ledger.RegisterClosed,
			"closed_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *LedgerRepository) CreateIfAbsent(ctx context.Context, reg *ledger.CashRegister) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gateway_id"}, {Name: "business_date"}},
			DoNothing: true,
		}).
		Create(reg).Error
}

func (r *LedgerRepository) Apply(ctx context.Context, m *ledger.Movement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ledger.CashRegister{}).
			Where("id = ? AND state = ?", m.RegisterID, ledger.RegisterOpen).
			Updates(map[string]interface{}{
				"transaction_count": gorm.Expr("transaction_count + 1"),
				"gross_total":       gorm.Expr("gross_total + ?", m.Gross),
				"fee_total":         gorm.Expr("fee_total + ?", m.Fee),
				"tax_total":         gorm.Expr("tax_total + ?", m.Tax),
				"net_total":         gorm.Expr("(gross_total + ?) - (fee_total + ?) - (tax_total + ?)", m.Gross, m.Fee, m.Tax),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&ledger.CashRegister{}).Where("id = ?", m.RegisterID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ledgerpkg.ErrRegisterNotFound
			}
			return ledgerpkg.ErrRegisterNotOpen
		}
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&gateway.Transaction{}).
			Where("id = ?", m.TransactionID).
			Update("cash_register_id", m.RegisterID).Error
	})
}

func (r *LedgerRepository) Movements(ctx context.Context, registerID int64) ([]ledger.Movement, error) {
	var movements []ledger.Movement
	err := r.db.WithContext(ctx).Where("register_id = ?", registerID).Order("id ASC").Find(&movements).Error
	return movements, err
}
