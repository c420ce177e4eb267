package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/sirupsen/logrus"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// maxBodySize caps how much of an upstream response is read.
const maxBodySize = 4 << 20

// errMalformed marks a response body that could not be decoded.
var errMalformed = errors.New("malformed response")

// httpClient is the JSON-over-HTTP transport shared by the provider adapters.
type httpClient struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	headers     map[string]string
}

// ClientOption configures a provider client.
type ClientOption func(*httpClient)

// WithTimeout sets HTTP client timeout. The configured client is copied, never modified.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *httpClient) {
		client := *c.client
		client.Timeout = d
		c.client = &client
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *httpClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *httpClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *httpClient) {
		c.client = client
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(c *httpClient) {
		if value != "" {
			c.headers[key] = value
		}
	}
}

func newHTTPClient(baseURL string, opts ...ClientOption) *httpClient {
	c := &httpClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		headers:     map[string]string{"Accept": "application/json"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statusError is returned for unexpected HTTP statuses.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// getJSON performs a GET with retries and exponential backoff and decodes the body into out.
// 404 maps to ErrNotFound and 429 to ErrRateLimited; neither is retried.
func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return classifyContextErr(ctx.Err())
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		err := c.doGet(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  attempt + 1,
		}).WithError(err).Debug("Retrying upstream request")
	}

	return lastErr
}

func (c *httpClient) doGet(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return classifyContextErr(ctxErr)
		}
		return fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", models.ErrSourceUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %w", models.ErrSourceUnavailable, &statusError{Code: resp.StatusCode, Body: truncate(string(body), 200)})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w: %v", models.ErrSourceUnavailable, errMalformed, err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrRateLimited) ||
		errors.Is(err, models.ErrTimeout) || errors.Is(err, context.Canceled) ||
		errors.Is(err, errMalformed) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return errors.Is(err, models.ErrSourceUnavailable)
}

func classifyContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
