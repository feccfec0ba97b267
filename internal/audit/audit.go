// Package audit wraps gateway calls with a persisted call log and a
// best-effort audit trail.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/audit"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
)

var ErrCallAlreadyCompleted = errors.New("api call log already completed")

type RepositoryAPI interface {
	CreateCall(ctx context.Context, call *audit.APICall) error
	CompleteCall(ctx context.Context, id int64, result CallResult) error
	GetCall(ctx context.Context, id int64) (*audit.APICall, error)
	CreateEntry(ctx context.Context, entry *audit.Entry) error
}

// Gateway is satisfied by *paymentgateway.Client.
type Gateway interface {
	Execute(ctx context.Context, req *paymentgateway.Request) (*paymentgateway.Response, error)
}

// CallResult is the single post-call update of an api call log row.
type CallResult struct {
	Status         audit.CallStatus
	Success        bool
	StatusCode     *int
	ResponseBody   []byte
	ErrorCode      *string
	ErrorMessage   *string
	Attempts       int
	Cached         bool
	FinishedAt     time.Time
	ResponseTimeMS int64
}

// Call describes one audited gateway call. Table and RecordID name what the
// call changes for the audit trail; both may be left empty.
type Call struct {
	Request  *paymentgateway.Request
	Table    string
	RecordID string
	Action   string
}

// CallError carries the api call log id of a failed call. It unwraps to the
// gateway error.
type CallError struct {
	LogID int64
	Err   error
}

func (e *CallError) Error() string {
	return e.Err.Error()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// LogIDOf returns the api call log id attached to err, or 0.
func LogIDOf(err error) int64 {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.LogID
	}
	return 0
}
