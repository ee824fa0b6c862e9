package client

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// leveledSlog adapts slog to retryablehttp's LeveledLogger. Intermediate
// request failures are logged at WARN since they will be retried.
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...any) { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Warn(msg string, keysAndValues ...any)  { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Info(msg string, keysAndValues ...any)  { l.inner.Debug(msg, keysAndValues...) }
func (l leveledSlog) Debug(msg string, keysAndValues ...any) { l.inner.Debug(msg, keysAndValues...) }

func newTransport(insecure bool) *http.Transport {
	t := cleanhttp.DefaultPooledTransport()
	if insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return t
}

// newReadClient returns a client that retries connection errors and 5xx
// responses. Only idempotent listing calls go through it.
func newReadClient(transport http.RoundTripper, retryMax int, timeout time.Duration, logger *slog.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Transport = transport
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: logger})
	rc.CheckRetry = readRetryPolicy

	c := rc.StandardClient()
	c.Timeout = timeout
	return c
}

// readRetryPolicy does not retry 429 so the caller sees rate limiting.
func readRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// newWriteClient returns a single-shot client for delete calls.
func newWriteClient(transport http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{Transport: transport, Timeout: timeout}
}
