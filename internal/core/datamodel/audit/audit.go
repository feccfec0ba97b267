package audit

import (
	"time"

	"gorm.io/datatypes"
)

type CallStatus string

const (
	CallStatusPending CallStatus = "pending"
	CallStatusSuccess CallStatus = "success"
	CallStatusError   CallStatus = "error"
)

// APICall is one outbound gateway call. It is inserted as pending before the
// call leaves the process and completed exactly once afterwards.
type APICall struct {
	ID             int64          `gorm:"primaryKey"`
	GatewayID      int64          `gorm:"column:gateway_id;not null;index"`
	Operation      string         `gorm:"column:operation;size:64;not null"`
	Method         string         `gorm:"column:method;size:8;not null"`
	Endpoint       string         `gorm:"column:endpoint;not null"`
	RequestBody    datatypes.JSON `gorm:"column:request_body;type:jsonb"`
	ResponseBody   datatypes.JSON `gorm:"column:response_body;type:jsonb"`
	Status         CallStatus     `gorm:"column:status;size:16;not null;index"`
	Success        bool           `gorm:"column:success;not null;default:false"`
	StatusCode     *int           `gorm:"column:status_code"`
	ErrorCode      *string        `gorm:"column:error_code"`
	ErrorMessage   *string        `gorm:"column:error_message"`
	Attempts       int            `gorm:"column:attempts;not null;default:0"`
	Cached         bool           `gorm:"column:cached;not null;default:false"`
	CorrelationID  string         `gorm:"column:correlation_id;size:64;index"`
	StartedAt      time.Time      `gorm:"column:started_at;not null"`
	FinishedAt     *time.Time     `gorm:"column:finished_at"`
	ResponseTimeMS *int64         `gorm:"column:response_time_ms"`
}

func (APICall) TableName() string {
	return "gateway_api_calls"
}

// Entry is write-once.
type Entry struct {
	ID            int64          `gorm:"primaryKey"`
	Table         string         `gorm:"column:table_name;size:64;not null"`
	RecordID      string         `gorm:"column:record_id;size:64;not null"`
	Action        string         `gorm:"column:action;size:64;not null"`
	ChangedFields datatypes.JSON `gorm:"column:changed_fields;type:jsonb"`
	Actor         string         `gorm:"column:actor;size:128;not null"`
	CorrelationID string         `gorm:"column:correlation_id;size:64"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (Entry) TableName() string {
	return "audit_entries"
}
