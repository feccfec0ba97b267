// Package checkout runs the subscription purchase: session, gateway
// customer, card, subscription, settlement and the resulting membership.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/gym-storefront/internal/audit"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
	"github.com/frahmantamala/gym-storefront/internal/core/events"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
)

// Phases of a purchase, in execution order.
const (
	PhaseValidation   = "validation"
	PhaseSession      = "session"
	PhaseCustomer     = "customer"
	PhaseCard         = "card"
	PhaseSubscription = "subscription"
	PhaseSettlement   = "settlement"
)

// ErrNotSettled means the gateway created the subscription without
// accepting its first charge.
var ErrNotSettled = errors.New("subscription was created but the first charge was not accepted")

// ErrChargePending means the gateway charge is already booked by another
// checkout whose sale is not recorded yet.
var ErrChargePending = errors.New("the charge is already booked by another checkout")

// RepositoryAPI persists the local mirror of gateway resources. Lookups
// return (nil, nil) when nothing matches.
type RepositoryAPI interface {
	ActiveCustomer(ctx context.Context, userID, gatewayID int64) (*gateway.Customer, error)
	CreateCustomer(ctx context.Context, c *gateway.Customer) error
	DeactivateCustomer(ctx context.Context, id int64, at time.Time) error
	FindCard(ctx context.Context, customerID int64, externalID string) (*gateway.Card, error)
	CreateCard(ctx context.Context, c *gateway.Card) error
	CreateSubscription(ctx context.Context, s *gateway.Subscription) error
	CreateTransaction(ctx context.Context, t *gateway.Transaction) error
	SettledTransaction(ctx context.Context, externalID string) (*gateway.Transaction, error)
}

// GatewayCaller runs one audited gateway call.
type GatewayCaller interface {
	Execute(ctx context.Context, call audit.Call) (*paymentgateway.Response, error)
}

type SettingsSource interface {
	Settings(ctx context.Context) (*paymentgateway.Settings, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// PurchaseRequest is one buyer's attempt to buy a plan with a tokenized card.
type PurchaseRequest struct {
	DocumentID      string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	PlanCode        string
	Amount          int64
	CardToken       string
	DeviceSessionID string
	ClientIP        string
	UserAgent       string
}

// Result is returned for every purchase that got past validation. Ids are
// zero for the steps that did not run.
type Result struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	SessionID      int64  `json:"session_id,omitempty"`
	SessionToken   string `json:"session_token,omitempty"`
	BuyerID        int64  `json:"buyer_id,omitempty"`
	CustomerID     int64  `json:"customer_id,omitempty"`
	CardID         int64  `json:"card_id,omitempty"`
	SubscriptionID int64  `json:"subscription_id,omitempty"`
	TransactionID  int64  `json:"transaction_id,omitempty"`
	SaleID         int64  `json:"sale_id,omitempty"`
	MembershipID   int64  `json:"membership_id,omitempty"`
	FailedPhase    string `json:"failed_phase,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
	LogID          int64  `json:"log_id,omitempty"`
}
