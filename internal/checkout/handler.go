package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/gym-storefront/internal"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/session"
	"github.com/frahmantamala/gym-storefront/internal/transport"
)

type ProcessorAPI interface {
	Process(ctx context.Context, req PurchaseRequest) (*Result, error)
}

type SessionReaderAPI interface {
	GetByToken(ctx context.Context, token string) (*session.PaymentSession, error)
	History(ctx context.Context, sessionID int64) ([]session.HistoryEntry, error)
}

type Handler struct {
	transport.BaseHandler
	Processor ProcessorAPI
	Sessions  SessionReaderAPI
}

func NewHandler(processor ProcessorAPI, sessions SessionReaderAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: *transport.NewBaseHandler(logger),
		Processor:   processor,
		Sessions:    sessions,
	}
}

// Actor is recorded on audit entries written for storefront purchases.
const Actor = "storefront"

// CreateSubscription handles POST /api/v1/checkout/subscriptions
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("CreateSubscription: failed to parse request body", "error", err)
		h.HandleError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	ctx := internal.ContextWithActor(r.Context(), Actor)
	result, err := h.Processor.Process(ctx, req.ToPurchase(transport.ClientIP(r), r.UserAgent()))
	if err != nil {
		if result == nil {
			h.HandleError(w, err)
			return
		}
		status := http.StatusInternalServerError
		var appErr *internal.AppError
		if errors.As(err, &appErr) {
			status = appErr.StatusCode
		}
		h.Logger.Info("CreateSubscription: purchase failed",
			"session_id", result.SessionID,
			"phase", result.FailedPhase,
			"error_kind", result.ErrorKind)
		h.WriteJSON(w, status, result)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}

// GetSession handles GET /api/v1/checkout/sessions/{token}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		h.HandleError(w, internal.NewValidationError("session token is required", internal.ErrCodeValidationFailed))
		return
	}

	ps, err := h.Sessions.GetByToken(r.Context(), token)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	history, err := h.Sessions.History(r.Context(), ps.ID)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewSessionView(ps, history))
}
