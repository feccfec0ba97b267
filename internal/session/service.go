package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/gym-storefront/internal"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/session"
	"github.com/frahmantamala/gym-storefront/internal/masking"
)

type Service struct {
	repo   RepositoryAPI
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock swaps the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Open(ctx context.Context, p OpenParams) (*session.PaymentSession, error) {
	now := s.now()
	ps := &session.PaymentSession{
		UserID:            p.UserID,
		PlanID:            p.PlanID,
		DocumentID:        p.DocumentID,
		Token:             uuid.NewString(),
		DeviceFingerprint: p.DeviceFingerprint,
		ClientIP:          p.ClientIP,
		UserAgent:         p.UserAgent,
		Amount:            p.Amount,
		Currency:          p.Currency,
		State:             session.StateActive,
		StartedAt:         now,
		LastActivityAt:    now,
		ExpiresAt:         now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, ps); err != nil {
		s.logger.Error("failed to open payment session", "error", err)
		return nil, fmt.Errorf("open payment session: %w", err)
	}

	s.logger.Info("payment session opened", "session_id", ps.ID, "expires_at", ps.ExpiresAt)
	return ps, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*session.PaymentSession, error) {
	ps, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, internal.ErrSessionNotFound
	}
	return ps, nil
}

func (s *Service) GetByToken(ctx context.Context, token string) (*session.PaymentSession, error) {
	ps, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, internal.ErrSessionNotFound
	}
	return ps, nil
}

// Record appends a history entry and bumps the session's last activity.
func (s *Service) Record(ctx context.Context, sessionID int64, ev Event) error {
	now := s.now()
	entry := &session.HistoryEntry{
		SessionID: sessionID,
		Action:    ev.Action,
		Detail:    masking.MaskString("", ev.Detail),
		ClientIP:  ev.ClientIP,
		CreatedAt: now,
	}
	if ev.Payload != nil {
		raw, err := json.Marshal(masking.MaskValue(ev.Payload))
		if err != nil {
			return fmt.Errorf("encode history payload: %w", err)
		}
		entry.Payload = raw
	}

	if err := s.repo.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("append session history: %w", err)
	}
	if err := s.repo.Touch(ctx, sessionID, now, ev.UserID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	s.logger.Debug("payment session event", "session_id", sessionID, "action", ev.Action)
	return nil
}

func (s *Service) IncrementAttempts(ctx context.Context, id int64) error {
	return s.repo.IncrementAttempts(ctx, id, s.now())
}

func (s *Service) LinkTransaction(ctx context.Context, id, transactionID int64) error {
	return s.repo.LinkTransaction(ctx, id, transactionID, s.now())
}

func (s *Service) Complete(ctx context.Context, id int64) error {
	return s.close(ctx, id, session.StateCompleted, nil)
}

func (s *Service) Fail(ctx context.Context, id int64, reason string) error {
	masked := masking.MaskString("", reason)
	return s.close(ctx, id, session.StateFailed, &masked)
}

func (s *Service) close(ctx context.Context, id int64, state session.State, reason *string) error {
	closed, err := s.repo.Close(ctx, id, state, reason, s.now())
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if !closed {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return internal.ErrSessionClosed
	}

	s.logger.Info("payment session closed", "session_id", id, "state", state)
	return nil
}

func (s *Service) History(ctx context.Context, sessionID int64) ([]session.HistoryEntry, error) {
	return s.repo.History(ctx, sessionID)
}

// ExpireStale moves up to limit active sessions whose expiry is not after
// now to expired. It is a housekeeping task; checkout never calls it.
func (s *Service) ExpireStale(ctx context.Context, now time.Time, limit int) (int, error) {
	stale, err := s.repo.FindExpired(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("find expired sessions: %w", err)
	}

	expired := 0
	for _, ps := range stale {
		reason := "session expired"
		closed, err := s.repo.Close(ctx, ps.ID, session.StateExpired, &reason, now)
		if err != nil {
			s.logger.Error("failed to expire session", "session_id", ps.ID, "error", err)
			continue
		}
		if !closed {
			continue
		}
		expired++

		entry := &session.HistoryEntry{
			SessionID: ps.ID,
			Action:    ActionExpired,
			Detail:    fmt.Sprintf("expired at %s", ps.ExpiresAt.UTC().Format(time.RFC3339)),
			CreatedAt: now,
		}
		if err := s.repo.AppendHistory(ctx, entry); err != nil {
			s.logger.Warn("failed to record session expiry", "session_id", ps.ID, "error", err)
		}
	}

	if expired > 0 {
		s.logger.Info("expired stale payment sessions", "count", expired)
	}
	return expired, nil
}
