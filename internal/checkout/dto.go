package checkout

import (
	"time"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/session"
)

// CheckoutRequest is the body of POST /api/v1/checkout/subscriptions.
type CheckoutRequest struct {
	DocumentID      string `json:"document_id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	PlanCode        string `json:"plan_code"`
	Amount          int64  `json:"amount"`
	CardToken       string `json:"card_token"`
	DeviceSessionID string `json:"device_session_id"`
}

func (r *CheckoutRequest) ToPurchase(clientIP, userAgent string) PurchaseRequest {
	return PurchaseRequest{
		DocumentID:      r.DocumentID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Phone:           r.Phone,
		PlanCode:        r.PlanCode,
		Amount:          r.Amount,
		CardToken:       r.CardToken,
		DeviceSessionID: r.DeviceSessionID,
		ClientIP:        clientIP,
		UserAgent:       userAgent,
	}
}

type HistoryItem struct {
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionView is the public state of a payment session.
type SessionView struct {
	Token         string        `json:"token"`
	State         string        `json:"state"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Attempts      int           `json:"attempts"`
	TransactionID *int64        `json:"transaction_id,omitempty"`
	FailureReason *string       `json:"failure_reason,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	History       []HistoryItem `json:"history"`
}

func NewSessionView(ps *session.PaymentSession, history []session.HistoryEntry) SessionView {
	items := make([]HistoryItem, 0, len(history))
	for _, h := range history {
		items = append(items, HistoryItem{
			Action:    h.Action,
			Detail:    h.Detail,
			CreatedAt: h.CreatedAt,
		})
	}
	return SessionView{
		Token:         ps.Token,
		State:         string(ps.State),
		Amount:        ps.Amount,
		Currency:      ps.Currency,
		Attempts:      ps.Attempts,
		TransactionID: ps.TransactionID,
		FailureReason: ps.FailureReason,
		StartedAt:     ps.StartedAt,
		ExpiresAt:     ps.ExpiresAt,
		EndedAt:       ps.EndedAt,
		History:       items,
	}
}
