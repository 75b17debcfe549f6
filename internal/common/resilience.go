package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// delay returns the wait before retry number attempt (0-based).
func (b BackoffConfig) delay(attempt int) time.Duration {
	d := b.InitialInterval << attempt
	if d <= 0 || (b.MaxInterval > 0 && d > b.MaxInterval) {
		d = b.MaxInterval
	}
	return d
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	ErrRateLimited   = errors.New("rate limited")
	ErrServerError   = errors.New("server error")
	ErrClientError   = errors.New("request rejected")
	ErrCircuitOpen   = errors.New("circuit breaker open")
	ErrNoHTTPClient  = errors.New("http client not configured")
	ErrInvalidConfig = errors.New("invalid backoff configuration")
)

// maxReasonBytes bounds how much of an error body is read for its reason.
const maxReasonBytes = 4 << 10

// StatusError is a non-2xx upstream response. It unwraps to ErrRateLimited,
// ErrServerError or ErrClientError.
type StatusError struct {
	StatusCode int
	Reason     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: %d", e.class().Error(), e.StatusCode)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return e.class()
}

func (e *StatusError) class() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServerError
	default:
		return ErrClientError
	}
}

// upstreamFault reports whether the status says the upstream is unhealthy.
// Only those responses trip breakers and get retried.
func (e *StatusError) upstreamFault() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewBreaker returns the circuit breaker settings shared by outbound clients.
// Give every upstream endpoint its own breaker.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// DoRequestWithResilience sends the request built by buildRequest through cb,
// retrying transport failures, 429 and 5xx responses with exponential backoff.
// Other non-2xx responses fail immediately with a *StatusError and count as
// healthy answers for the breaker. MaxRetries of 0 means a single attempt.
func DoRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, ErrNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, ErrInvalidConfig
	}

	for attempt := 0; ; attempt++ {
		resp, err := send(ctx, cfg.Client, cb, buildRequest)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) || attempt >= cfg.Backoff.MaxRetries {
			return nil, err
		}

		timer := time.NewTimer(cfg.Backoff.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// send performs one attempt. The breaker sees transport errors and upstream
// faults as failures; client errors are classified after it has recorded a
// success.
func send(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := buildRequest()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := readStatusError(resp)
			if statusErr.upstreamFault() {
				return nil, statusErr
			}
			return statusErr, nil
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, cb.Name(), err)
	}
	if err != nil {
		return nil, err
	}

	switch r := result.(type) {
	case *http.Response:
		return r, nil
	case *StatusError:
		return nil, r
	default:
		return nil, fmt.Errorf("unexpected result type %T from circuit breaker", result)
	}
}

func retryable(err error) bool {
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.upstreamFault()
	}
	return true
}

// readStatusError consumes and closes resp's body, keeping the upstream's
// reason. JSON bodies contribute their "reason", "message" or "error" string.
func readStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxReasonBytes))
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return &StatusError{StatusCode: resp.StatusCode, Reason: reasonFrom(body)}
}

func reasonFrom(body []byte) string {
	var payload map[string]any
	if json.Unmarshal(body, &payload) == nil {
		for _, key := range []string{"reason", "message", "error"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}
	reason := strings.TrimSpace(string(body))
	if len(reason) > 256 {
		reason = reason[:256] + "..."
	}
	return reason
}
