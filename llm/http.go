package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// StatusError is a non-200 response from a provider API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Delay:    200 * time.Millisecond,
		MaxDelay: 2 * time.Second,
	}
}

// Do runs fn until it succeeds, fails permanently or attempts run out.
// Only rate limits, server errors and transport failures are retried.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.MaxDelay(p.MaxDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
	)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	var reqErr *requestError
	return errors.As(err, &reqErr)
}

// requestError wraps transport level failures.
type requestError struct{ err error }

func (e *requestError) Error() string { return fmt.Sprintf("error making request: %v", e.err) }
func (e *requestError) Unwrap() error { return e.err }

// postJSON sends body to url and returns the response body of a 200 reply.
func postJSON(ctx context.Context, client *http.Client, policy RetryPolicy, url string, headers map[string]string, body []byte) ([]byte, error) {
	var out []byte

	err := policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("error creating request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return &requestError{err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &requestError{err: fmt.Errorf("error reading response: %w", err)}
		}

		if resp.StatusCode != http.StatusOK {
			return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
		}

		out = data
		return nil
	})

	return out, err
}
