package client

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
	"time"

	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// Default timeouts. Bulk deletes can take a while on a loaded instance.
const (
	DefaultReadTimeout  = 5 * time.Minute
	DefaultWriteTimeout = 60 * time.Second
	DefaultRetryMax     = 3
)

// HTTPClient implements MISPClient against the MISP REST API.
type HTTPClient struct {
	baseURL string
	key     string
	reads   *http.Client
	writes  *http.Client
}

// Options configures NewHTTPClient. Zero values select the defaults.
type Options struct {
	// SkipVerify disables TLS certificate verification.
	SkipVerify   bool
	RetryMax     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
	// Transport overrides the pooled transport (tests).
	Transport http.RoundTripper
}

// Compile-time check that HTTPClient implements MISPClient.
var _ MISPClient = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the MISP instance at baseURL
// (e.g. "https://misp.example.org"). key is sent verbatim in the
// Authorization header.
func NewHTTPClient(baseURL, key string, opts Options) *HTTPClient {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	transport := opts.Transport
	if transport == nil {
		transport = newTransport(opts.SkipVerify)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		reads:   newReadClient(transport, opts.RetryMax, opts.ReadTimeout, opts.Logger.With("subsystem", "misp-http")),
		writes:  newWriteClient(transport, opts.WriteTimeout),
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Selection ---

func (c *HTTPClient) SearchEvents(ctx context.Context, q model.EventQuery) ([]model.EventRef, error) {
	var events []model.EventRef
	if err := c.doJSON(ctx, c.reads, http.MethodPost, "/events/index", q, &events); err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return events, nil
}

func (c *HTTPClient) ListFeeds(ctx context.Context) ([]model.Feed, error) {
	var feeds []model.Feed
	if err := c.doJSON(ctx, c.reads, http.MethodGet, "/feeds", nil, &feeds); err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	return feeds, nil
}

func (c *HTTPClient) ListBlocklist(ctx context.Context) ([]model.BlocklistEntry, error) {
	var entries []model.BlocklistEntry
	if err := c.doJSON(ctx, c.reads, http.MethodGet, "/event_blocklists", nil, &entries); err != nil {
		return nil, fmt.Errorf("list event blocklist: %w", err)
	}
	return entries, nil
}

// --- Deletion ---

// DeleteBlocklistEntry removes the blocklist entry for eventUUID. A response
// with success=false is reported as OutcomeRejected.
func (c *HTTPClient) DeleteBlocklistEntry(ctx context.Context, eventUUID string) DeleteResult {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Errors  string `json:"errors"`
	}
	path := "/event_blocklists/delete/" + url.PathEscape(eventUUID)
	if err := c.doJSON(ctx, c.writes, http.MethodPost, path, nil, &resp); err != nil {
		return resultFromError(err)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = resp.Errors
		}
		if msg == "" {
			msg = "success=false"
		}
		return DeleteResult{Outcome: OutcomeRejected, StatusCode: http.StatusOK, Message: msg}
	}
	return DeleteResult{Outcome: OutcomeOK, StatusCode: http.StatusOK, Message: resp.Message}
}

// DeleteEvents issues one bulk delete for ids. The response body is not
// parsed for per-ID outcomes.
func (c *HTTPClient) DeleteEvents(ctx context.Context, ids []model.ID) DeleteResult {
	body := struct {
		ID []model.ID `json:"id"`
	}{ID: ids}
	if err := c.doJSON(ctx, c.writes, http.MethodPost, "/events/delete", body, nil); err != nil {
		return resultFromError(err)
	}
	return DeleteResult{Outcome: OutcomeOK, StatusCode: http.StatusOK}
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func resultFromError(err error) DeleteResult {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return DeleteResult{Outcome: OutcomeRejected, StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
	}
	return DeleteResult{Outcome: OutcomeTransport, Message: err.Error(), Err: err}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, hc *http.Client, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", c.key)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
			Name    string `json:"name"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
