package retry

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts       int           // Total attempts, 1 disables retries
	Multiplier        int           // Exponential backoff multiplier
	MaxWaitPerAttempt time.Duration // Maximum wait time per attempt
	MaxTotalWait      time.Duration // Maximum total wait time
}

// DefaultConfig returns a single-attempt configuration
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:       1,
		Multiplier:        1,
		MaxWaitPerAttempt: 30 * time.Second,
		MaxTotalWait:      120 * time.Second,
	}
}

// Client wraps http.Client with retry logic for 429 and 5xx responses
type Client struct {
	client *http.Client
	config *Config
	sleep  func(context.Context, time.Duration) error
}

// NewClient creates a retry client with the given timeout
func NewClient(timeout time.Duration, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	return &Client{
		client: &http.Client{Timeout: timeout},
		config: config,
		sleep:  sleepContext,
	}
}

// Do executes an HTTP request with retry logic.
//
// When every attempt ends in a retryable status the last response is
// returned unchanged, so callers always see the real status code. Transport
// errors are returned only when no response was ever received.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	var resp *http.Response
	var err error

	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		attemptReq, cloneErr := cloneRequest(ctx, req, attempt)
		if cloneErr != nil {
			return nil, cloneErr
		}

		resp, err = c.client.Do(attemptReq)
		if err == nil && !retryable(resp.StatusCode) {
			return resp, nil
		}

		if attempt == c.config.MaxAttempts-1 {
			break
		}

		wait := c.waitTime(attempt)
		if time.Since(start)+wait > c.config.MaxTotalWait {
			break
		}

		// Drop the intermediate response before retrying
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			resp = nil
		}

		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return nil, sleepErr
		}
	}

	if resp != nil {
		return resp, nil
	}
	return nil, fmt.Errorf("request failed after %d attempt(s): %w", c.config.MaxAttempts, err)
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration {
	return c.client.Timeout
}

// HTTPClient exposes the underlying client, for SDKs that take their own
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// waitTime calculates wait time using exponential backoff: 2^attempt * multiplier seconds
func (c *Client) waitTime(attempt int) time.Duration {
	wait := time.Duration(math.Pow(2, float64(attempt))) * time.Duration(c.config.Multiplier) * time.Second
	if c.config.MaxWaitPerAttempt > 0 && wait > c.config.MaxWaitPerAttempt {
		wait = c.config.MaxWaitPerAttempt
	}
	return wait
}

// cloneRequest rewinds the body for every attempt after the first
func cloneRequest(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	clone := req.Clone(ctx)
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
