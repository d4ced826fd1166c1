// Package httpclient is the orchestrator's and every service's outbound
// RPC client: a thin wrapper around http.Client carrying the teacher's
// shared/grpc client shape (ClientConfig, CallWithRetry, CircuitBreaker)
// retargeted from grpc.Dial to JSON-over-HTTP, since this module's
// service boundary is gin-routed JSON rather than generated protobuf
// stubs (see SPEC_FULL.md's transport note). Every downstream call is
// classified back into the shared/errors taxonomy so callers — chiefly
// the workflow orchestrator's retry loop — decide retry vs. compensate
// from the error class, never from a raw HTTP status code.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/logger"
)

// ClientConfig mirrors the teacher's grpc.ClientConfig shape minus the
// fields that only make sense for a long-lived multiplexed connection
// (keepalive, message size limits). spec.md §4.6 requires fixed backoff,
// not exponential, so unlike the teacher's RetryableClient this carries
// a single Backoff duration rather than a multiplier/ceiling pair.
type ClientConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxRetryAttempts int
	Backoff          time.Duration
}

// DefaultClientConfig returns the spec's reference defaults: a 2-second
// per-call timeout and up to 3 attempts, per spec.md §4.6 and §5.
func DefaultClientConfig(baseURL string) *ClientConfig {
	return &ClientConfig{
		BaseURL:          baseURL,
		Timeout:          2 * time.Second,
		MaxRetryAttempts: 3,
		Backoff:          200 * time.Millisecond,
	}
}

// Client issues JSON requests against one downstream service.
type Client struct {
	http   *http.Client
	config *ClientConfig
	logger *logger.Logger
}

// NewClient creates a Client bound to config.BaseURL.
func NewClient(config *ClientConfig, log *logger.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: config.Timeout},
		config: config,
		logger: log,
	}
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Do issues one request and decodes a 2xx JSON body into out (if out is
// non-nil). Failures — transport errors, deadline exceeded, and non-2xx
// responses — are translated into shared/errors sentinels so the caller
// never has to inspect an http.Response.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		if c.logger != nil {
			c.logger.LogGRPCRequest(ctx, method+" "+path, duration, err)
		}
		if ctx.Err() != nil {
			return apperrors.New(apperrors.ErrTimeout, "httpclient", err.Error())
		}
		return apperrors.New(apperrors.ErrUnavailable, "httpclient", err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if c.logger != nil {
		c.logger.LogGRPCRequest(ctx, method+" "+path, duration, nil)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	var env errorEnvelope
	_ = json.Unmarshal(raw, &env)
	return classifyStatus(resp.StatusCode, env)
}

// classifyStatus maps an HTTP response back onto the closed set of
// domain sentinels, the inverse of shared/errors.HTTPStatus.
func classifyStatus(status int, env errorEnvelope) error {
	entity := env.Error
	if entity == "" {
		entity = "httpclient"
	}
	switch status {
	case http.StatusNotFound:
		return apperrors.New(apperrors.ErrNotFound, entity, env.Message)
	case http.StatusConflict:
		return apperrors.New(apperrors.ErrVersionConflict, entity, env.Message)
	case http.StatusUnprocessableEntity:
		switch env.Error {
		case "economic_guardrail":
			return apperrors.New(apperrors.ErrEconomicGuardrail, entity, env.Message)
		case "pricing_rejected", "calculation_failed":
			return apperrors.New(apperrors.ErrPricingRejected, entity, env.Message)
		case "no_drivers_available":
			return apperrors.New(apperrors.ErrNoDriversAvailable, entity, env.Message)
		default:
			return apperrors.New(apperrors.ErrIllegalTransition, entity, env.Message)
		}
	case http.StatusBadRequest:
		return apperrors.New(apperrors.ErrValidation, entity, env.Message)
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return apperrors.New(apperrors.ErrUnavailable, entity, env.Message)
	case http.StatusInternalServerError:
		return apperrors.New(apperrors.ErrConfigUnavailable, entity, env.Message)
	default:
		// An unrecognized status from a downstream service is treated as
		// a transient infrastructure condition rather than permanent,
		// since the orchestrator has no taxonomy entry to classify it
		// as a business-rule rejection.
		return apperrors.New(apperrors.ErrUnavailable, entity, env.Message)
	}
}

// CallWithRetry executes fn, making at most MaxRetryAttempts attempts in
// all, with fixed backoff between them, while fn's error classifies as
// transient. Permanent,
// concurrency, and configuration errors are returned immediately — the
// orchestrator relies on this to short-circuit straight to compensation,
// per spec.md §7's propagation policy.
func (c *Client) CallWithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.Backoff):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !apperrors.IsRetryable(err) {
			return err
		}
		if c.logger != nil {
			c.logger.WithContext(ctx).WithError(err).WithFields(logger.Fields{
				"attempt": attempt + 1,
			}).Warn("transient RPC failure, retrying")
		}
	}
	return lastErr
}

// CircuitBreaker wraps a Client the way the teacher's
// shared/grpc.CircuitBreaker wraps a gRPC connection: after
// failureThreshold consecutive failures it short-circuits further calls
// as unavailable until resetTimeout has elapsed, instead of letting a
// downed dependency pile up retry-exhausted requests.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	failures         int
	lastFailureTime  time.Time
	state            string // "closed", "open", "half-open"
	logger           *logger.Logger
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, log *logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            "closed",
		logger:           log,
	}
}

// Call executes fn through the breaker.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if cb.state == "open" {
		if time.Since(cb.lastFailureTime) > cb.resetTimeout {
			cb.state = "half-open"
		} else {
			return apperrors.New(apperrors.ErrUnavailable, "circuit_breaker", "circuit open")
		}
	}

	err := fn(ctx)
	if err != nil {
		cb.failures++
		cb.lastFailureTime = time.Now()
		if cb.failures >= cb.failureThreshold {
			cb.state = "open"
			if cb.logger != nil {
				cb.logger.WithContext(ctx).WithFields(logger.Fields{"failures": cb.failures}).Warn("circuit breaker opened")
			}
		}
		return err
	}

	if cb.state == "half-open" {
		cb.state = "closed"
	}
	cb.failures = 0
	return nil
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() string {
	return cb.state
}
