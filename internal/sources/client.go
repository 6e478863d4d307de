package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	apperrors "rcnpulse/internal/errors"
	"rcnpulse/internal/infrastructure"
)

// maxBodyBytes caps how much of a response body is read
const maxBodyBytes = 16 << 20

// httpClient is the transport shared by the adapters: bounded timeout,
// optional outbound rate limit and bounded retry with jittered backoff
type httpClient struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *infrastructure.PipelineMetrics

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures an adapter client
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client. Its Timeout is overwritten by
// the configured adapter timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		timeout := c.httpClient.Timeout
		c.httpClient = hc
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *httpClient) {
		c.logger = logger
	}
}

// WithMetrics records call outcomes on m
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(c *httpClient) {
		c.metrics = m
	}
}

// WithRateLimit throttles outbound calls to rps with the given burst.
// rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func newHTTPClient(name string, timeout time.Duration, maxRetries int, backoff time.Duration, opts ...Option) *httpClient {
	c := &httpClient{
		name:         name,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       infrastructure.GetLogger(),
		maxRetries:   maxRetries,
		retryBackoff: backoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = infrastructure.WithComponent(c.logger, name)
	return c
}

// statusError is a non-2xx response
type statusError struct {
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (e *statusError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// doRequest performs one GET and returns the body of a 2xx response
func (c *httpClient) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, which carries the access token
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, apperrors.NewNetworkError(c.name+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &statusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewNetworkError(c.name+" read response", err)
	}
	return body, nil
}

// get performs a GET with exponential backoff retry on transport errors,
// 5xx and 429. With maxRetries 0 it is a single attempt.
func (c *httpClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff
			if backoff > 0 {
				// backoff * (0.5 to 1.5)
				wait = backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			}
			c.logger.DebugContext(ctx, "retrying request",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
		}

		body, err := c.doRequest(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.IsRetryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// failureReason maps a transport error to a Result reason
func failureReason(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		return ReasonHTTPStatus
	}
	return ReasonTransport
}

// observe records outcome metrics for one adapter call
func (c *httpClient) observe(ctx context.Context, status Status, start time.Time) {
	c.metrics.RecordSource(ctx, c.name, status.String(), time.Since(start))
}
