package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// StatusError is a non-2xx answer that is not a rate limit.
type StatusError struct {
	Provider string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s error (status %d)", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Status, e.Message)
}

// call is one HTTP request to a provider API.
type call struct {
	provider string
	method   string
	url      string
	header   http.Header
	body     []byte

	// message extracts a readable error from a failed response body.
	message func(body []byte) string
}

type response struct {
	body   []byte
	header http.Header
}

// send performs c. Network errors, 429 and 5xx answers are retried up to
// retries extra times with jittered backoff starting at delay; other
// failures return at once.
func send(ctx context.Context, client *http.Client, c call, retries int, delay time.Duration) (*response, error) {
	if retries < 0 {
		retries = 0
	}
	if delay <= 0 {
		delay = time.Second
	}

	var out *response
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, c.method, c.url, bytes.NewReader(c.body))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}
			for k, v := range c.header {
				req.Header[k] = v
			}

			resp, err := client.Do(req)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(ctx.Err())
				}
				return fmt.Errorf("%s request failed: %w", c.provider, err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("%s: failed to read response: %w", c.provider, err)
			}

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				out = &response{body: body, header: resp.Header}
				return nil
			}

			msg := string(body)
			if c.message != nil {
				if m := c.message(body); m != "" {
					msg = m
				}
			}
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return &RateLimitError{
					Message:    fmt.Sprintf("%s rate limited: %s", c.provider, msg),
					RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
					StatusCode: resp.StatusCode,
				}
			case resp.StatusCode >= 500:
				return &StatusError{Provider: c.provider, Status: resp.StatusCode, Message: msg}
			default:
				return retry.Unrecoverable(&StatusError{Provider: c.provider, Status: resp.StatusCode, Message: msg})
			}
		},
		retry.Context(ctx),
		retry.Attempts(uint(retries)+1),
		retry.Delay(delay),
		retry.MaxDelay(10*time.Second),
		retry.MaxJitter(delay/2),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}
