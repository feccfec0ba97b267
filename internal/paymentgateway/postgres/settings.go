package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
)

// SettingsRepository loads the active gateway_settings row of one gateway.
type SettingsRepository struct {
	db        *gorm.DB
	gatewayID int64
}

func NewSettingsRepository(db *gorm.DB, gatewayID int64) *SettingsRepository {
	return &SettingsRepository{db: db, gatewayID: gatewayID}
}

func (r *SettingsRepository) Load(ctx context.Context) (*paymentgateway.Settings, error) {
	var row gateway.Settings
	err := r.db.WithContext(ctx).
		Where("gateway_id = ? AND is_active = ?", r.gatewayID, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: gateway %d", paymentgateway.ErrSettingsNotFound, r.gatewayID)
	}
	if err != nil {
		return nil, fmt.Errorf("load gateway settings: %w", err)
	}

	return &paymentgateway.Settings{
		GatewayID:       row.GatewayID,
		MerchantID:      row.MerchantID,
		PublicKey:       row.PublicKey,
		PrivateKey:      row.PrivateKey,
		IsProduction:    row.IsProduction,
		DefaultCurrency: row.DefaultCurrency,
		FeeBasisPoints:  row.FeeBasisPoints,
		FixedFee:        row.FixedFee,
		TaxBasisPoints:  row.TaxBasisPoints,
	}, nil
}

// Upsert writes settings for the seeder and admin tooling.
func (r *SettingsRepository) Upsert(ctx context.Context, row *gateway.Settings) error {
	var existing gateway.Settings
	err := r.db.WithContext(ctx).Where("gateway_id = ?", row.GatewayID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(row).Error
	}
	if err != nil {
		return err
	}
	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(row).Error
}
