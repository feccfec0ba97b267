package ledger

import "time"

type RegisterState string

const (
	RegisterOpen   RegisterState = "open"
	RegisterClosed RegisterState = "closed"
)

// BusinessDateLayout formats the calendar day a register covers.
const BusinessDateLayout = "2006-01-02"

type CashRegister struct {
	ID               int64         `gorm:"primaryKey"`
	GatewayID        int64         `gorm:"column:gateway_id;not null;uniqueIndex:idx_cash_registers_gateway_day"`
	BusinessDate     string        `gorm:"column:business_date;size:10;not null;uniqueIndex:idx_cash_registers_gateway_day"`
	State            RegisterState `gorm:"column:state;size:16;not null;index"`
	TransactionCount int64         `gorm:"column:transaction_count;not null;default:0"`
	GrossTotal       int64         `gorm:"column:gross_total;not null;default:0"`
	FeeTotal         int64         `gorm:"column:fee_total;not null;default:0"`
	TaxTotal         int64         `gorm:"column:tax_total;not null;default:0"`
	NetTotal         int64         `gorm:"column:net_total;not null;default:0"`
	OpenedAt         time.Time     `gorm:"column:opened_at;not null"`
	ClosedAt         *time.Time    `gorm:"column:closed_at"`
	UpdatedAt        time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (CashRegister) TableName() string {
	return "cash_registers"
}

type Movement struct {
	ID            int64     `gorm:"primaryKey"`
	RegisterID    int64     `gorm:"column:register_id;not null;index"`
	TransactionID int64     `gorm:"column:transaction_id;not null;uniqueIndex"`
	Gross         int64     `gorm:"column:gross;not null"`
	Fee           int64     `gorm:"column:fee;not null"`
	Tax           int64     `gorm:"column:tax;not null"`
	Net           int64     `gorm:"column:net;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Movement) TableName() string {
	return "cash_register_movements"
}
