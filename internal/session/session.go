// Package session tracks one checkout attempt from its start to a single
// terminal state, together with its append-only history.
package session

import (
	"context"
	"time"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/session"
)

const DefaultTTL = time.Hour

// History actions.
const (
	ActionStarted             = "INICIO"
	ActionCustomerResolved    = "CLIENTE_RESUELTO"
	ActionCardAttached        = "TARJETA_ASOCIADA"
	ActionSubscriptionCreated = "SUSCRIPCION_CREADA"
	ActionPaymentSucceeded    = "PAGO_EXITOSO"
	ActionPaymentFailed       = "PAGO_FALLIDO"
	ActionExpired             = "EXPIRADA"
)

// RepositoryAPI returns (nil, nil) from lookups that find nothing.
type RepositoryAPI interface {
	Create(ctx context.Context, s *session.PaymentSession) error
	GetByID(ctx context.Context, id int64) (*session.PaymentSession, error)
	GetByToken(ctx context.Context, token string) (*session.PaymentSession, error)
	Touch(ctx context.Context, id int64, at time.Time, userID *int64) error
	IncrementAttempts(ctx context.Context, id int64, at time.Time) error
	LinkTransaction(ctx context.Context, id, transactionID int64, at time.Time) error
	// Close moves an active session to state and reports whether it did.
	Close(ctx context.Context, id int64, state session.State, reason *string, at time.Time) (bool, error)
	AppendHistory(ctx context.Context, entry *session.HistoryEntry) error
	History(ctx context.Context, sessionID int64) ([]session.HistoryEntry, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]session.PaymentSession, error)
}

type OpenParams struct {
	UserID            *int64
	PlanID            *int64
	DocumentID        string
	DeviceFingerprint string
	ClientIP          string
	UserAgent         string
	Amount            int64
	Currency          string
}

// Event is one history entry. UserID, when set, links the session to the
// buyer it has just resolved.
type Event struct {
	Action   string
	Detail   string
	ClientIP string
	Payload  any
	UserID   *int64
}
