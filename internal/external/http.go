// Package external holds the HTTP clients for the exchange-rate and payment
// providers.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultRetryBase   = 200 * time.Millisecond
	defaultRetryCap    = 1200 * time.Millisecond
)

// APIError is returned when a provider responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Endpoint, e.Status, e.Body)
}

// transport performs JSON requests with bounded retries on 429/5xx and
// network errors.
type transport struct {
	httpClient  *http.Client
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
}

func newTransport(c *http.Client, timeout time.Duration) transport {
	if c == nil {
		c = &http.Client{Timeout: timeout}
	}
	return transport{
		httpClient:  c,
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		retryCap:    defaultRetryCap,
	}
}

// request describes one call. Body is JSON-encoded unless Form is set.
type request struct {
	Method   string
	Endpoint string
	Header   http.Header
	Body     any
	Form     string
	// Idempotent requests are retried. POSTs without an idempotency key are not.
	Idempotent bool
}

func (t transport) do(ctx context.Context, r request, out any) error {
	var payload []byte
	contentType := ""
	switch {
	case r.Form != "":
		payload = []byte(r.Form)
		contentType = "application/x-www-form-urlencoded"
	case r.Body != nil:
		b, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
		contentType = "application/json"
	}

	attempts := t.maxAttempts
	if attempts < 1 || !r.Idempotent {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, r.Method, r.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		for k, vs := range r.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		res, err := t.httpClient.Do(req)
		if err != nil {
			if retryableNetErr(err) && attempt < attempts {
				if werr := t.wait(ctx, attempt); werr != nil {
					return werr
				}
				continue
			}
			return fmt.Errorf("request %s: %w", r.Endpoint, err)
		}

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
			_ = res.Body.Close()
			apiErr := &APIError{
				StatusCode: res.StatusCode,
				Status:     res.Status,
				Endpoint:   r.Endpoint,
				Body:       strings.TrimSpace(string(snippet)),
			}
			if retryableStatus(res.StatusCode) && attempt < attempts {
				if werr := t.wait(ctx, attempt); werr != nil {
					return werr
				}
				continue
			}
			return apiErr
		}

		err = json.NewDecoder(res.Body).Decode(out)
		_ = res.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response from %s: %w", r.Endpoint, err)
		}
		return nil
	}
	return errors.New("request failed after retries")
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func retryableNetErr(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (t transport) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(t.delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t transport) delay(attempt int) time.Duration {
	d := t.retryBase
	for i := 1; i < attempt; i++ {
		if d >= t.retryCap/2 {
			return t.retryCap
		}
		d *= 2
	}
	if d > t.retryCap {
		return t.retryCap
	}
	return d
}
