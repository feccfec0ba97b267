package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/membership"
	membershippkg "github.com/frahmantamala/gym-storefront/internal/membership"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) membershippkg.RepositoryAPI {
	return &MembershipRepository{
		db: db,
	}
}

func (r *MembershipRepository) GetBuyerByDocument(ctx context.Context, documentID string) (*membership.Buyer, error) {
	var buyer membership.Buyer
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&buyer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &buyer, nil
}

func (r *MembershipRepository) CreateBuyer(ctx context.Context, buyer *membership.Buyer) error {
	return r.db.WithContext(ctx).Create(buyer).Error
}

func (r *MembershipRepository) UpdateBuyer(ctx context.Context, buyer *membership.Buyer) error {
	return r.db.WithContext(ctx).Model(buyer).Updates(map[string]interface{}{
		"email": buyer.Email,
		"phone": buyer.Phone,
	}).Error
}

func (r *MembershipRepository) GetPlanByCode(ctx context.Context, code string) (*membership.Plan, error) {
	var plan membership.Plan
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *MembershipRepository) ListActivePlans(ctx context.Context) ([]membership.Plan, error) {
	var plans []membership.Plan
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("price ASC").Find(&plans).Error
	return plans, err
}

func (r *MembershipRepository) UpsertPlan(ctx context.Context, plan *membership.Plan) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "price", "currency", "duration_days", "gateway_plan_id", "is_active", "updated_at"}),
		}).
		Create(plan).Error
}

func (r *MembershipRepository) Materialize(ctx context.Context, bundle *membershippkg.Bundle) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bundle.Sale).Error; err != nil {
			return err
		}
		for _, line := range bundle.Lines {
			line.SaleID = bundle.Sale.ID
			if err := tx.Create(line).Error; err != nil {
				return err
			}
		}

		bundle.Membership.SaleID = bundle.Sale.ID
		if err := tx.Create(bundle.Membership).Error; err != nil {
			return err
		}

		if err := tx.Model(&gateway.Transaction{}).
			Where("id = ?", bundle.TransactionID).
			Update("sale_id", bundle.Sale.ID).Error; err != nil {
			return err
		}
		return tx.Model(&gateway.Subscription{}).
			Where("id = ?", bundle.SubscriptionID).
			Update("membership_id", bundle.Membership.ID).Error
	})
}

func (r *MembershipRepository) GetSaleBySession(ctx context.Context, sessionID int64) (*membership.Sale, error) {
	var sale membership.Sale
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&sale).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

func (r *MembershipRepository) GetMembership(ctx context.Context, id int64) (*membership.Membership, error) {
	var m membership.Membership
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) GetMembershipBySale(ctx context.Context, saleID int64) (*membership.Membership, error) {
	var m membership.Membership
	err := r.db.WithContext(ctx).Where("sale_id = ?", saleID).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&membership.Membership{}).
		Where("state = ? AND ends_at < ?", membership.StateActive, now).
		Update("state", membership.StateExpired)
	return res.RowsAffected, res.Error
}
