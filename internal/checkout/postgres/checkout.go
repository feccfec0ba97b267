package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	checkoutpkg "github.com/frahmantamala/gym-storefront/internal/checkout"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
)

type CheckoutRepository struct {
	db *gorm.DB
}

func NewCheckoutRepository(db *gorm.DB) checkoutpkg.RepositoryAPI {
	return &CheckoutRepository{
		db: db,
	}
}

func (r *CheckoutRepository) ActiveCustomer(ctx context.Context, userID, gatewayID int64) (*gateway.Customer, error) {
	var customer gateway.Customer
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND gateway_id = ? AND is_active = ?", userID, gatewayID, true).
		First(&customer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *CheckoutRepository) CreateCustomer(ctx context.Context, c *gateway.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CheckoutRepository) DeactivateCustomer(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&gateway.Customer{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":      false,
			"deactivated_at": at,
		}).Error
}

func (r *CheckoutRepository) FindCard(ctx context.Context, customerID int64, externalID string) (*gateway.Card, error) {
	var card gateway.Card
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND external_id = ? AND is_active = ?", customerID, externalID, true).
		First(&card).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *CheckoutRepository) CreateCard(ctx context.Context, c *gateway.Card) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CheckoutRepository) CreateSubscription(ctx context.Context, s *gateway.Subscription) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *CheckoutRepository) CreateTransaction(ctx context.Context, t *gateway.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// SettledTransaction returns the settled booking of a gateway charge.
func (r *CheckoutRepository) SettledTransaction(ctx context.Context, externalID string) (*gateway.Transaction, error) {
	var t gateway.Transaction
	err := r.db.WithContext(ctx).
		Where("external_id = ? AND state = ?", externalID, gateway.TransactionSettled).
		First(&t).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
