package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/gym-storefront/internal"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/audit"
	"github.com/frahmantamala/gym-storefront/internal/masking"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
)

type Executor struct {
	repo      RepositoryAPI
	gateway   Gateway
	gatewayID int64
	logger    *slog.Logger
	now       func() time.Time
}

func NewExecutor(repo RepositoryAPI, gateway Gateway, gatewayID int64, logger *slog.Logger) *Executor {
	return &Executor{
		repo:      repo,
		gateway:   gateway,
		gatewayID: gatewayID,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute logs the call as pending, runs it, completes the log and writes an
// audit entry. Failures of the log or audit writes never change the outcome
// returned to the caller.
func (e *Executor) Execute(ctx context.Context, call Call) (*paymentgateway.Response, error) {
	correlationID := internal.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
		ctx = internal.ContextWithCorrelationID(ctx, correlationID)
	}

	started := e.now()
	logID := e.begin(ctx, call, correlationID, started)

	resp, err := e.gateway.Execute(ctx, call.Request)

	finished := e.now()
	e.complete(ctx, logID, resp, err, started, finished)
	e.recordAudit(ctx, call, logID, correlationID, resp, err)

	if err != nil {
		return nil, &CallError{LogID: logID, Err: err}
	}
	resp.LogID = logID
	return resp, nil
}

func (e *Executor) begin(ctx context.Context, call Call, correlationID string, started time.Time) int64 {
	row := &audit.APICall{
		GatewayID:     e.gatewayID,
		Status:        audit.CallStatusPending,
		CorrelationID: correlationID,
		StartedAt:     started,
	}
	if call.Request != nil {
		row.Operation = call.Request.Operation
		row.Method = call.Request.Method
		row.Endpoint = call.Request.Path
		if call.Request.Body != nil {
			row.RequestBody = maskedJSON(call.Request.Body)
		}
	}

	if err := e.repo.CreateCall(ctx, row); err != nil {
		e.logger.Error("failed to create api call log", "operation", row.Operation, "error", err)
		return 0
	}
	return row.ID
}

func (e *Executor) complete(ctx context.Context, logID int64, resp *paymentgateway.Response, callErr error, started, finished time.Time) {
	if logID == 0 {
		return
	}

	result := CallResult{
		FinishedAt:     finished,
		ResponseTimeMS: finished.Sub(started).Milliseconds(),
	}

	if callErr == nil {
		result.Status = audit.CallStatusSuccess
		result.Success = true
		status := resp.StatusCode
		result.StatusCode = &status
		result.ResponseBody = masking.MaskJSON(resp.Body)
		result.Attempts = resp.Attempts
		result.Cached = resp.FromCache
	} else {
		result.Status = audit.CallStatusError
		code, message := "internal", callErr.Error()
		if gwErr, ok := paymentgateway.AsError(callErr); ok {
			code = gwErr.Code
			result.Attempts = gwErr.Attempts
			if gwErr.Description != "" {
				message = gwErr.Description
			}
			if gwErr.StatusCode > 0 {
				status := gwErr.StatusCode
				result.StatusCode = &status
			}
			result.ResponseBody = maskedJSON(map[string]any{
				"kind":        gwErr.Kind,
				"error_code":  gwErr.Code,
				"description": gwErr.Description,
				"request_id":  gwErr.RequestID,
			})
		}
		message = masking.MaskString("", message)
		result.ErrorCode = &code
		result.ErrorMessage = &message
	}

	if err := e.repo.CompleteCall(ctx, logID, result); err != nil {
		e.logger.Error("failed to complete api call log", "log_id", logID, "error", err)
	}
}

// recordAudit is best effort: errors are logged and dropped.
func (e *Executor) recordAudit(ctx context.Context, call Call, logID int64, correlationID string, resp *paymentgateway.Response, callErr error) {
	operation := ""
	if call.Request != nil {
		operation = call.Request.Operation
	}

	table := call.Table
	if table == "" {
		table = audit.APICall{}.TableName()
	}
	recordID := call.RecordID
	if recordID == "" {
		recordID = strconv.FormatInt(logID, 10)
	}

	outcome := "success"
	changes := map[string]any{
		"operation": operation,
		"log_id":    logID,
	}
	if callErr != nil {
		outcome = "error"
		changes["error"] = callErr.Error()
		if kind := paymentgateway.KindOf(callErr); kind != "" {
			changes["kind"] = kind
		}
	} else {
		changes["status_code"] = resp.StatusCode
		changes["cached"] = resp.FromCache
		if call.Request != nil && call.Request.Method != http.MethodGet {
			changes["response"] = json.RawMessage(masking.MaskJSON(resp.Body))
		}
	}

	action := call.Action
	if action == "" {
		action = operation
	}

	entry := &audit.Entry{
		Table:         table,
		RecordID:      recordID,
		Action:        action + "." + outcome,
		ChangedFields: maskedJSON(changes),
		Actor:         internal.ActorFromContext(ctx),
		CorrelationID: correlationID,
	}

	if err := e.repo.CreateEntry(ctx, entry); err != nil {
		e.logger.Warn("failed to write audit entry", "action", entry.Action, "log_id", logID, "error", err)
	}
}

func maskedJSON(v any) []byte {
	raw, err := json.Marshal(masking.MaskValue(v))
	if err != nil {
		return []byte(`"` + masking.Filtered + `"`)
	}
	return raw
}
