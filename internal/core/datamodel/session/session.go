package session

import (
	"time"

	"gorm.io/datatypes"
)

type State string

const (
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateExpired   State = "expired"
)

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateExpired
}

type PaymentSession struct {
	ID                int64      `gorm:"primaryKey"`
	UserID            *int64     `gorm:"column:user_id;index"`
	DocumentID        string     `gorm:"column:document_id;not null;index"`
	Token             string     `gorm:"column:token;size:36;not null;uniqueIndex"`
	DeviceFingerprint string     `gorm:"column:device_fingerprint"`
	ClientIP          string     `gorm:"column:client_ip"`
	UserAgent         string     `gorm:"column:user_agent"`
	Amount            int64      `gorm:"column:amount;not null"`
	Currency          string     `gorm:"column:currency;size:3;not null"`
	PlanID            *int64     `gorm:"column:plan_id"`
	State             State      `gorm:"column:state;size:16;not null;index"`
	Attempts          int        `gorm:"column:attempts;not null;default:0"`
	TransactionID     *int64     `gorm:"column:transaction_id"`
	FailureReason     *string    `gorm:"column:failure_reason"`
	StartedAt         time.Time  `gorm:"column:started_at;not null"`
	LastActivityAt    time.Time  `gorm:"column:last_activity_at;not null"`
	ExpiresAt         time.Time  `gorm:"column:expires_at;not null;index"`
	EndedAt           *time.Time `gorm:"column:ended_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentSession) TableName() string {
	return "payment_sessions"
}

// HistoryEntry rows are append-only.
type HistoryEntry struct {
	ID        int64          `gorm:"primaryKey"`
	SessionID int64          `gorm:"column:session_id;not null;index"`
	Action    string         `gorm:"column:action;size:32;not null"`
	Detail    string         `gorm:"column:detail"`
	ClientIP  string         `gorm:"column:client_ip"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
}

func (HistoryEntry) TableName() string {
	return "payment_session_history"
}
