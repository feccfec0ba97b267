package paymentgateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindRejected      Kind = "rejected"
	KindTransient     Kind = "transient"
	KindRateLimited   Kind = "rate_limited"
	KindConfiguration Kind = "configuration"
)

var (
	ErrSettingsNotFound   = errors.New("gateway settings not found")
	ErrSettingsIncomplete = errors.New("gateway settings incomplete")
)

// Error is returned by every gateway operation. Callers branch on Kind
// rather than on the message.
type Error struct {
	Kind        Kind
	Operation   string
	StatusCode  int
	Code        string
	Description string
	RequestID   string
	// Attempts is the number of HTTP attempts made before giving up.
	Attempts    int
	Err         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway %s %s", e.Operation, e.Kind)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Description != "" {
		msg += ": " + e.Description
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

// KindOf reports the Kind of a gateway error anywhere in err's chain, or ""
// when err did not come from this package.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}

func AsError(err error) (*Error, bool) {
	var gwErr *Error
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}

// retryableStatus reports whether an HTTP status is worth another attempt:
// server errors, request timeouts and throttling. Every other 4xx is final.
func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError ||
		code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests
}

// errorBody is the gateway's error document.
type errorBody struct {
	Category    string      `json:"category"`
	Description string      `json:"description"`
	HTTPCode    int         `json:"http_code"`
	ErrorCode   json.Number `json:"error_code"`
	RequestID   string      `json:"request_id"`
}

func statusError(operation string, status int, body []byte) *Error {
	kind := KindRejected
	if retryableStatus(status) {
		kind = KindTransient
	}

	e := &Error{
		Kind:       kind,
		Operation:  operation,
		StatusCode: status,
		Code:       fmt.Sprintf("http_%d", status),
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.ErrorCode != "" {
			e.Code = parsed.ErrorCode.String()
		}
		e.Description = parsed.Description
		e.RequestID = parsed.RequestID
	}
	if e.Description == "" {
		e.Description = http.StatusText(status)
	}
	return e
}
