package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/session"
	sessionpkg "github.com/frahmantamala/gym-storefront/internal/session"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) sessionpkg.RepositoryAPI {
	return &SessionRepository{
		db: db,
	}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.PaymentSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*session.PaymentSession, error) {
	var s session.PaymentSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*session.PaymentSession, error) {
	var s session.PaymentSession
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Touch(ctx context.Context, id int64, at time.Time, userID *int64) error {
	updates := map[string]interface{}{"last_activity_at": at}
	if userID != nil {
		updates["user_id"] = *userID
	}
	return r.db.WithContext(ctx).Model(&session.PaymentSession{}).Where("id = ?", id).Updates(updates).Error
}

func (r *SessionRepository) IncrementAttempts(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&session.PaymentSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":         gorm.Expr("attempts + 1"),
			"last_activity_at": at,
		}).Error
}

func (r *SessionRepository) LinkTransaction(ctx context.Context, id, transactionID int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&session.PaymentSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"transaction_id":   transactionID,
			"last_activity_at": at,
		}).Error
}

func (r *SessionRepository) Close(ctx context.Context, id int64, state session.State, reason *string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"state":            state,
		"ended_at":         at,
		"last_activity_at": at,
	}
	if reason != nil {
		updates["failure_reason"] = *reason
	}

	res := r.db.WithContext(ctx).Model(&session.PaymentSession{}).
		Where("id = ? AND state = ?", id, session.StateActive).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *SessionRepository) AppendHistory(ctx context.Context, entry *session.HistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *SessionRepository) History(ctx context.Context, sessionID int64) ([]session.HistoryEntry, error) {
	var entries []session.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *SessionRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]session.PaymentSession, error) {
	if limit <= 0 {
		limit = 100
	}
	var sessions []session.PaymentSession
	err := r.db.WithContext(ctx).
		Where("state = ? AND expires_at <= ?", session.StateActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
