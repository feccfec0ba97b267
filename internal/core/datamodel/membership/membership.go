package membership

import "time"

type Buyer struct {
	ID         int64     `gorm:"primaryKey"`
	DocumentID string    `gorm:"column:document_id;size:32;not null;uniqueIndex"`
	FirstName  string    `gorm:"column:first_name;not null"`
	LastName   string    `gorm:"column:last_name"`
	Email      string    `gorm:"column:email;not null"`
	Phone      string    `gorm:"column:phone"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Buyer) TableName() string {
	return "buyers"
}

type Plan struct {
	ID            int64     `gorm:"primaryKey"`
	Code          string    `gorm:"column:code;size:32;not null;uniqueIndex"`
	Name          string    `gorm:"column:name;not null"`
	Price         int64     `gorm:"column:price;not null"`
	Currency      string    `gorm:"column:currency;size:3;not null"`
	DurationDays  int       `gorm:"column:duration_days;not null"`
	GatewayPlanID string    `gorm:"column:gateway_plan_id;not null"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Plan) TableName() string {
	return "membership_plans"
}

type Sale struct {
	ID            int64     `gorm:"primaryKey"`
	BuyerID       int64     `gorm:"column:buyer_id;not null;index"`
	SessionID     int64     `gorm:"column:session_id;not null;uniqueIndex"`
	TransactionID int64     `gorm:"column:transaction_id;not null"`
	Total         int64     `gorm:"column:total;not null"`
	Currency      string    `gorm:"column:currency;size:3;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Sale) TableName() string {
	return "sales"
}

type SaleLine struct {
	ID          int64     `gorm:"primaryKey"`
	SaleID      int64     `gorm:"column:sale_id;not null;index"`
	PlanID      int64     `gorm:"column:plan_id;not null"`
	Description string    `gorm:"column:description;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	UnitPrice   int64     `gorm:"column:unit_price;not null"`
	LineTotal   int64     `gorm:"column:line_total;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (SaleLine) TableName() string {
	return "sale_lines"
}

type State string

const (
	StateActive    State = "active"
	StateExpired   State = "expired"
	StateCancelled State = "cancelled"
)

type Membership struct {
	ID             int64     `gorm:"primaryKey"`
	BuyerID        int64     `gorm:"column:buyer_id;not null;index"`
	PlanID         int64     `gorm:"column:plan_id;not null"`
	SaleID         int64     `gorm:"column:sale_id;not null;index"`
	SubscriptionID int64     `gorm:"column:subscription_id;not null"`
	State          State     `gorm:"column:state;size:16;not null"`
	StartsAt       time.Time `gorm:"column:starts_at;not null"`
	EndsAt         time.Time `gorm:"column:ends_at;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Membership) TableName() string {
	return "memberships"
}
