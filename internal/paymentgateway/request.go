package paymentgateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Request is one call against the gateway REST API. Path is relative to the
// merchant root, e.g. "/customers".
type Request struct {
	Operation  string
	Method     string
	Path       string
	Body       any
	Idempotent bool
}

func (r *Request) Validate() error {
	if r == nil {
		return errors.New("request is nil")
	}
	if r.Operation == "" {
		return errors.New("operation is required")
	}
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("path %q must start with /", r.Path)
	}
	if r.Body != nil && r.Method == http.MethodGet {
		return errors.New("GET requests carry no body")
	}
	return nil
}

func (r *Request) encodeBody() ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return json.Marshal(r.Body)
}

// fingerprintInput is what makes two requests "the same" for idempotency.
func (r *Request) fingerprintInput(gatewayID int64) map[string]any {
	return map[string]any{
		"gateway_id": gatewayID,
		"method":     r.Method,
		"path":       r.Path,
		"body":       r.Body,
	}
}

type Response struct {
	Operation  string
	StatusCode int
	Body       json.RawMessage
	Duration   time.Duration
	Attempts   int
	FromCache  bool
	// LogID is the api call log row recording this call, when audited.
	LogID int64
}

func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", r.Operation, err)
	}
	return nil
}

// cachedResponse is the idempotency cache payload.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}
