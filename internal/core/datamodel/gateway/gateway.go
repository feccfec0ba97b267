package gateway

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Settings is the persisted gateway configuration. The private key never
// leaves the process except as the basic-auth username.
type Settings struct {
	ID              int64     `gorm:"primaryKey"`
	GatewayID       int64     `gorm:"column:gateway_id;not null;uniqueIndex"`
	Name            string    `gorm:"column:name;size:64;not null"`
	MerchantID      string    `gorm:"column:merchant_id;not null"`
	PublicKey       string    `gorm:"column:public_key"`
	PrivateKey      string    `gorm:"column:private_key;not null"`
	IsProduction    bool      `gorm:"column:is_production;not null;default:false"`
	DefaultCurrency string    `gorm:"column:default_currency;size:3;not null"`
	FeeBasisPoints  int64     `gorm:"column:fee_basis_points;not null;default:0"`
	FixedFee        int64     `gorm:"column:fixed_fee;not null;default:0"`
	TaxBasisPoints  int64     `gorm:"column:tax_basis_points;not null;default:0"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Settings) TableName() string {
	return "gateway_settings"
}

type Customer struct {
	ID            int64      `gorm:"primaryKey"`
	UserID        int64      `gorm:"column:user_id;not null;index:idx_gateway_customers_active,unique,where:is_active = true"`
	GatewayID     int64      `gorm:"column:gateway_id;not null;index:idx_gateway_customers_active,unique,where:is_active = true"`
	ExternalID    string     `gorm:"column:external_id;not null;index"`
	Email         string     `gorm:"column:email"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true"`
	APICallID     *int64     `gorm:"column:api_call_id"`
	DeactivatedAt *time.Time `gorm:"column:deactivated_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Customer) TableName() string {
	return "gateway_customers"
}

type Card struct {
	ID              int64     `gorm:"primaryKey"`
	CustomerID      int64     `gorm:"column:customer_id;not null;index"`
	ExternalID      string    `gorm:"column:external_id;not null"`
	Token           string    `gorm:"column:token;not null"`
	Last4           string    `gorm:"column:last4;size:4"`
	Brand           string    `gorm:"column:brand;size:32"`
	ExpirationMonth string    `gorm:"column:expiration_month;size:2"`
	ExpirationYear  string    `gorm:"column:expiration_year;size:4"`
	HolderName      string    `gorm:"column:holder_name"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	APICallID       *int64    `gorm:"column:api_call_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Card) TableName() string {
	return "gateway_cards"
}

type SubscriptionState string

const (
	SubscriptionActive    SubscriptionState = "active"
	SubscriptionPaused    SubscriptionState = "paused"
	SubscriptionCancelled SubscriptionState = "cancelled"
	SubscriptionExpired   SubscriptionState = "expired"
)

type Subscription struct {
	ID             int64             `gorm:"primaryKey"`
	CustomerID     int64             `gorm:"column:customer_id;not null;index"`
	CardID         int64             `gorm:"column:card_id;not null"`
	PlanID         int64             `gorm:"column:plan_id;not null"`
	ExternalID     string            `gorm:"column:external_id;not null;index"`
	ExternalPlanID string            `gorm:"column:external_plan_id;not null"`
	State          SubscriptionState `gorm:"column:state;size:16;not null"`
	ExternalStatus string            `gorm:"column:external_status;size:32"`
	NextChargeDate *time.Time        `gorm:"column:next_charge_date"`
	PeriodEndDate  *time.Time        `gorm:"column:period_end_date"`
	MembershipID   *int64            `gorm:"column:membership_id"`
	IsActive       bool              `gorm:"column:is_active;not null;default:true"`
	APICallID      *int64            `gorm:"column:api_call_id"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Subscription) TableName() string {
	return "gateway_subscriptions"
}

type TransactionState string

const (
	TransactionSettled TransactionState = "settled"
	TransactionFailed  TransactionState = "failed"
)

type Transaction struct {
	ID              int64            `gorm:"primaryKey"`
	SessionID       int64            `gorm:"column:session_id;not null;index"`
	SubscriptionID  int64            `gorm:"column:subscription_id;not null;index"`
	CardID          int64            `gorm:"column:card_id;not null"`
	CashRegisterID  int64            `gorm:"column:cash_register_id;not null;index"`
	SaleID          *int64           `gorm:"column:sale_id"`
	// A gateway charge is settled at most once.
	ExternalID      string           `gorm:"column:external_id;uniqueIndex:idx_gateway_transactions_settled_external,where:state = 'settled'"`
	GrossAmount     int64            `gorm:"column:gross_amount;not null"`
	FeeAmount       int64            `gorm:"column:fee_amount;not null"`
	TaxAmount       int64            `gorm:"column:tax_amount;not null"`
	NetAmount       int64            `gorm:"column:net_amount;not null"`
	Currency        string           `gorm:"column:currency;size:3;not null"`
	State           TransactionState `gorm:"column:state;size:16;not null"`
	ResponsePayload datatypes.JSON   `gorm:"column:response_payload;type:jsonb"`
	APICallID       *int64           `gorm:"column:api_call_id"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "gateway_transactions"
}

// NewTransaction derives the net amount from its components.
func NewTransaction(gross, fee, tax int64, currency string) *Transaction {
	return &Transaction{
		GrossAmount: gross,
		FeeAmount:   fee,
		TaxAmount:   tax,
		NetAmount:   gross - fee - tax,
		Currency:    currency,
	}
}

// BeforeSave keeps net_amount in step with gross, fee and tax.
func (t *Transaction) BeforeSave(*gorm.DB) error {
	t.NetAmount = t.GrossAmount - t.FeeAmount - t.TaxAmount
	return nil
}
