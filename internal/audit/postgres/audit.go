package postgres

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditpkg "github.com/frahmantamala/gym-storefront/internal/audit"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/audit"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) auditpkg.RepositoryAPI {
	return &AuditRepository{
		db: db,
	}
}

func (r *AuditRepository) CreateCall(ctx context.Context, call *audit.APICall) error {
	return r.db.WithContext(ctx).Create(call).Error
}

// CompleteCall only touches rows still pending, so a log row is completed
// exactly once.
func (r *AuditRepository) CompleteCall(ctx context.Context, id int64, result auditpkg.CallResult) error {
	updates := map[string]interface{}{
		"status":           result.Status,
		"success":          result.Success,
		"status_code":      result.StatusCode,
		"error_code":       result.ErrorCode,
		"error_message":    result.ErrorMessage,
		"attempts":         result.Attempts,
		"cached":           result.Cached,
		"finished_at":      result.FinishedAt,
		"response_time_ms": result.ResponseTimeMS,
	}
	if len(result.ResponseBody) > 0 {
		updates["response_body"] = datatypes.JSON(result.ResponseBody)
	}

	res := r.db.WithContext(ctx).
		Model(&audit.APICall{}).
		Where("id = ? AND status = ?", id, audit.CallStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return auditpkg.ErrCallAlreadyCompleted
	}
	return nil
}

func (r *AuditRepository) GetCall(ctx context.Context, id int64) (*audit.APICall, error) {
	var call audit.APICall
	err := r.db.WithContext(ctx).First(&call, id).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *AuditRepository) CreateEntry(ctx context.Context, entry *audit.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
