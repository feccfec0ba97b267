// Package membership owns buyers, the plan catalog and the commercial
// records (sale, lines, membership) produced by a settled checkout.
package membership

import (
	"context"
	"time"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/membership"
)

// RepositoryAPI returns (nil, nil) from lookups that find nothing.
type RepositoryAPI interface {
	GetBuyerByDocument(ctx context.Context, documentID string) (*membership.Buyer, error)
	CreateBuyer(ctx context.Context, buyer *membership.Buyer) error
	UpdateBuyer(ctx context.Context, buyer *membership.Buyer) error

	GetPlanByCode(ctx context.Context, code string) (*membership.Plan, error)
	ListActivePlans(ctx context.Context) ([]membership.Plan, error)
	UpsertPlan(ctx context.Context, plan *membership.Plan) error

	// Materialize stores the bundle in one database transaction and
	// back-links the gateway transaction and subscription to it.
	Materialize(ctx context.Context, bundle *Bundle) error
	GetSaleBySession(ctx context.Context, sessionID int64) (*membership.Sale, error)
	GetMembership(ctx context.Context, id int64) (*membership.Membership, error)
	GetMembershipBySale(ctx context.Context, saleID int64) (*membership.Membership, error)
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

type BuyerInput struct {
	DocumentID string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
}

// SaleInput describes a settled purchase of one plan.
type SaleInput struct {
	BuyerID        int64
	SessionID      int64
	TransactionID  int64
	SubscriptionID int64
	Plan           *membership.Plan
	Quantity       int
}

// Bundle is everything written when a sale is materialized.
type Bundle struct {
	Sale           *membership.Sale
	Lines          []*membership.SaleLine
	Membership     *membership.Membership
	TransactionID  int64
	SubscriptionID int64
}
