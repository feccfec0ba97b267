package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/frahmantamala/gym-storefront/internal"
	"github.com/frahmantamala/gym-storefront/internal/idempotency"
	"github.com/frahmantamala/gym-storefront/internal/masking"
	"github.com/frahmantamala/gym-storefront/internal/ratelimit"
)

const maxBodyBytes = 1 << 20

type Config struct {
	SandboxURL         string
	ProductionURL      string
	SettingsTTL        time.Duration
	RequestTimeout     time.Duration
	MaxAttempts        int
	BackoffBase        time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.SettingsTTL <= 0 {
		c.SettingsTTL = time.Hour
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BreakerMaxFailures == 0 {
		c.BreakerMaxFailures = 5
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = 30 * time.Second
	}
	return c
}

type clientState struct {
	settings *Settings
	baseURL  string
	loadedAt time.Time
}

// Client is the only way out to the payment gateway. Settings are loaded
// lazily from the provider and reloaded after SettingsTTL.
type Client struct {
	cfg        Config
	provider   SettingsProvider
	limiter    ratelimit.Limiter
	idem       *idempotency.Cache
	breaker    *gobreaker.CircuitBreaker
	httpClient *http.Client
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.RWMutex
	state     *clientState
	initGroup singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(cfg Config, provider SettingsProvider, limiter ratelimit.Limiter, idem *idempotency.Cache, logger *slog.Logger, opts ...Option) *Client {
	cfg = cfg.withDefaults()

	if limiter == nil {
		limiter = ratelimit.NewFixedWindow(ratelimit.DefaultMax, ratelimit.DefaultWindow)
	}
	if idem == nil {
		idem = idempotency.NewCache(idempotency.NewMemoryStore(), idempotency.DefaultTTL, logger)
	}

	c := &Client{
		cfg:        cfg,
		provider:   provider,
		limiter:    limiter,
		idem:       idem,
		httpClient: &http.Client{},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		IsSuccessful: func(err error) bool {
			// a refusal proves the gateway is up
			kind := KindOf(err)
			return err == nil || kind == KindRejected || kind == KindValidation
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("gateway circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return c
}

// Settings returns the cached gateway settings, loading them if needed.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	st, err := c.ready(ctx)
	if err != nil {
		return nil, err
	}
	copied := *st.settings
	return &copied, nil
}

// Invalidate drops the cached settings; the next call reloads them.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.state = nil
	c.mu.Unlock()
}

func (c *Client) fresh(st *clientState) bool {
	return st != nil && c.now().Sub(st.loadedAt) < c.cfg.SettingsTTL
}

func (c *Client) ready(ctx context.Context) (*clientState, error) {
	c.mu.RLock()
	st := c.state
	c.mu.RUnlock()
	if c.fresh(st) {
		return st, nil
	}

	v, err, _ := c.initGroup.Do("init", func() (interface{}, error) {
		c.mu.RLock()
		st := c.state
		c.mu.RUnlock()
		if c.fresh(st) {
			return st, nil
		}
		return c.initialize(ctx)
	})
	if err != nil {
		c.logger.Error("payment gateway initialization failed", "error", err)
		return nil, &Error{Kind: KindConfiguration, Operation: "initialize", Code: "not_configured", Description: err.Error(), Err: err}
	}
	return v.(*clientState), nil
}

func (c *Client) initialize(ctx context.Context) (*clientState, error) {
	if c.provider == nil {
		return nil, ErrSettingsNotFound
	}
	settings, err := c.provider.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	base := c.cfg.SandboxURL
	if settings.IsProduction {
		base = c.cfg.ProductionURL
	}
	if base == "" {
		return nil, fmt.Errorf("%w: no %s base url", ErrSettingsIncomplete, settings.Environment())
	}

	st := &clientState{
		settings: settings,
		baseURL:  strings.TrimRight(base, "/") + "/" + url.PathEscape(settings.MerchantID),
		loadedAt: c.now(),
	}

	c.mu.Lock()
	c.state = st
	c.mu.Unlock()

	c.logger.Info("payment gateway initialized",
		"gateway_id", settings.GatewayID,
		"environment", settings.Environment(),
		"merchant_id", settings.MerchantID)

	return st, nil
}

// Execute runs req through validation, rate limiting, the idempotency cache,
// the circuit breaker and the retry loop, in that order.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := c.execute(ctx, req)

	op := "unknown"
	if req != nil && req.Operation != "" {
		op = req.Operation
	}
	c.metrics.Calls.WithLabelValues(op, outcomeOf(err, resp != nil && resp.FromCache)).Inc()
	c.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	return resp, err
}

func (c *Client) execute(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		op := ""
		if req != nil {
			op = req.Operation
		}
		return nil, &Error{Kind: KindValidation, Operation: op, Code: "invalid_request", Description: err.Error(), Err: err}
	}

	st, err := c.ready(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Allow(ctx); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			c.logger.Warn("gateway call rate limited", "operation", req.Operation)
			return nil, &Error{Kind: KindRateLimited, Operation: req.Operation, Code: "rate_limited", Description: "too many gateway calls, try again later", Err: err}
		}
		return nil, &Error{Kind: KindTransient, Operation: req.Operation, Code: "rate_limiter", Description: err.Error(), Err: err}
	}

	body, err := req.encodeBody()
	if err != nil {
		return nil, &Error{Kind: KindValidation, Operation: req.Operation, Code: "invalid_request", Description: err.Error(), Err: err}
	}

	c.logger.Debug("gateway request",
		"operation", req.Operation,
		"method", req.Method,
		"path", req.Path,
		"body", string(masking.MaskJSON(body)))

	start := time.Now()
	attempts := 0
	call := func(ctx context.Context) ([]byte, error) {
		res, err := c.send(ctx, st, req, body, &attempts)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	}

	var (
		raw    []byte
		cached bool
	)
	if req.Idempotent {
		key, ferr := idempotency.Fingerprint(req.fingerprintInput(st.settings.GatewayID))
		if ferr != nil {
			return nil, &Error{Kind: KindValidation, Operation: req.Operation, Code: "invalid_request", Description: ferr.Error(), Err: ferr}
		}
		raw, cached, err = c.idem.Do(ctx, key, call)
	} else {
		raw, err = call(ctx)
	}
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("gateway call failed",
			"operation", req.Operation,
			"attempts", attempts,
			"duration_ms", duration.Milliseconds(),
			"error", masking.MaskString("", err.Error()))
		if gwErr, ok := AsError(err); ok && gwErr.Attempts == 0 {
			gwErr.Attempts = attempts
		}
		return nil, err
	}

	var res cachedResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &Error{Kind: KindTransient, Operation: req.Operation, Code: "decode_error", Description: err.Error(), Err: err}
	}

	c.logger.Info("gateway call succeeded",
		"operation", req.Operation,
		"status", res.StatusCode,
		"attempts", attempts,
		"cached", cached,
		"duration_ms", duration.Milliseconds())
	c.logger.Debug("gateway response", "operation", req.Operation, "body", string(masking.MaskJSON(res.Body)))

	return &Response{
		Operation:  req.Operation,
		StatusCode: res.StatusCode,
		Body:       res.Body,
		Duration:   duration,
		Attempts:   attempts,
		FromCache:  cached,
	}, nil
}

func (c *Client) send(ctx context.Context, st *clientState, req *Request, body []byte, attempts *int) (*cachedResponse, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var result *cachedResponse
		backoff := retry.WithMaxRetries(uint64(c.cfg.MaxAttempts-1), retry.NewExponential(c.cfg.BackoffBase))

		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			*attempts++
			c.metrics.Attempts.WithLabelValues(req.Operation).Inc()

			res, err := c.doHTTP(ctx, st, req, body)
			if err == nil {
				result = res
				return nil
			}
			if gwErr, ok := AsError(err); ok && gwErr.Retryable() && ctx.Err() == nil {
				c.logger.Warn("gateway attempt failed",
					"operation", req.Operation,
					"attempt", *attempts,
					"status", gwErr.StatusCode,
					"code", gwErr.Code)
				return retry.RetryableError(err)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &Error{Kind: KindTransient, Operation: req.Operation, Code: "circuit_open", Description: "gateway temporarily unavailable", Err: err}
	}
	if err != nil {
		if _, ok := AsError(err); !ok {
			err = &Error{Kind: KindTransient, Operation: req.Operation, Code: "cancelled", Description: err.Error(), Err: err}
		}
		return nil, err
	}
	return out.(*cachedResponse), nil
}

func (c *Client) doHTTP(ctx context.Context, st *clientState, req *Request, body []byte) (*cachedResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, st.baseURL+req.Path, reader)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Operation: req.Operation, Code: "invalid_request", Description: err.Error(), Err: err}
	}
	httpReq.SetBasicAuth(st.settings.PrivateKey, "")
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if id := internal.CorrelationIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		code := "network_error"
		if errors.Is(err, context.DeadlineExceeded) {
			code = "timeout"
		}
		return nil, &Error{Kind: KindTransient, Operation: req.Operation, Code: code, Description: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindTransient, Operation: req.Operation, StatusCode: resp.StatusCode, Code: "read_error", Description: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(req.Operation, resp.StatusCode, raw)
	}

	if len(raw) == 0 {
		raw = []byte("{}")
	} else if !json.Valid(raw) {
		raw, _ = json.Marshal(string(raw))
	}
	return &cachedResponse{StatusCode: resp.StatusCode, Body: raw}, nil
}
