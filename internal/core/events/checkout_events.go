package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeMembershipActivated = "membership.activated"
	EventTypePaymentFailed       = "payment.failed"
	EventTypeSessionExpired      = "session.expired"
)

type MembershipActivatedEvent struct {
	BaseEvent
	SessionID     int64     `json:"session_id"`
	BuyerID       int64     `json:"buyer_id"`
	MembershipID  int64     `json:"membership_id"`
	SaleID        int64     `json:"sale_id"`
	TransactionID int64     `json:"transaction_id"`
	PlanCode      string    `json:"plan_code"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	EndsAt        time.Time `json:"ends_at"`
}

func NewMembershipActivatedEvent(sessionID, buyerID, membershipID, saleID, transactionID int64, planCode string, amount int64, currency string, endsAt time.Time) *MembershipActivatedEvent {
	return &MembershipActivatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeMembershipActivated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"session_id":     sessionID,
				"buyer_id":       buyerID,
				"membership_id":  membershipID,
				"sale_id":        saleID,
				"transaction_id": transactionID,
				"plan_code":      planCode,
				"amount":         amount,
				"currency":       currency,
				"ends_at":        endsAt,
			},
		},
		SessionID:     sessionID,
		BuyerID:       buyerID,
		MembershipID:  membershipID,
		SaleID:        saleID,
		TransactionID: transactionID,
		PlanCode:      planCode,
		Amount:        amount,
		Currency:      currency,
		EndsAt:        endsAt,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	SessionID     int64  `json:"session_id"`
	SessionToken  string `json:"session_token"`
	Phase         string `json:"phase"`
	Amount        int64  `json:"amount"`
	ErrorKind     string `json:"error_kind"`
	ErrorCode     string `json:"error_code"`
	FailureReason string `json:"failure_reason"`
}

func NewPaymentFailedEvent(sessionID int64, sessionToken, phase string, amount int64, errorKind, errorCode, failureReason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"session_id":     sessionID,
				"session_token":  sessionToken,
				"phase":          phase,
				"amount":         amount,
				"error_kind":     errorKind,
				"error_code":     errorCode,
				"failure_reason": failureReason,
			},
		},
		SessionID:     sessionID,
		SessionToken:  sessionToken,
		Phase:         phase,
		Amount:        amount,
		ErrorKind:     errorKind,
		ErrorCode:     errorCode,
		FailureReason: failureReason,
	}
}

type SessionExpiredEvent struct {
	BaseEvent
	Count int `json:"count"`
}

func NewSessionExpiredEvent(count int) *SessionExpiredEvent {
	return &SessionExpiredEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionExpired,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"count": count,
			},
		},
		Count: count,
	}
}
