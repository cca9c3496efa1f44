package cloud

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dlkinney/particle-go/internal/logging"
)

const (
	// DefaultBaseURL is the production cloud API endpoint
	DefaultBaseURL = "https://api.particle.io"

	// DefaultTimeout is the default HTTP request timeout for API calls
	DefaultTimeout = 30 * time.Second

	// DefaultCompileTimeout is the timeout for compile and flash requests,
	// which block while the cloud toolchain runs
	DefaultCompileTimeout = 5 * time.Minute

	// DefaultMaxRetries is the default number of retry attempts for failed
	// idempotent requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second
)

// Client is an HTTP client for the cloud device and firmware API.
//
// Every request carries a bearer token obtained from the configured
// TokenSource. Idempotent reads are retried on transport-level failures
// with exponential backoff; compile and flash submissions are attempted
// exactly once.
type Client struct {
	// BaseURL is the API root (e.g. "https://api.particle.io")
	BaseURL string

	// Tokens supplies the bearer token attached to every request
	Tokens TokenSource

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for retryable errors
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool
}

// NewClient creates a client for the production cloud API.
func NewClient(tokens TokenSource) *Client {
	return NewClientWithURL(DefaultBaseURL, tokens)
}

// NewClientWithURL creates a client against a custom API root. Used for
// staging endpoints and tests.
func NewClientWithURL(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		Tokens:                tokens,
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// newRequest builds a request against the API root with the bearer token
// attached. A failure to obtain a token propagates as an auth error and is
// never retried here.
func (c *Client) newRequest(method, path string, body io.Reader, contentType string) (*http.Request, error) {
	token, err := c.Tokens.AccessToken()
	if err != nil {
		return nil, err
	}

	url := path
	if strings.HasPrefix(path, "/") {
		url = c.BaseURL + path
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to create %s request", method), err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// do sends the request and returns the response body. Status codes outside
// 2xx are mapped onto the error taxonomy; the body of an error response is
// folded into the message because the cloud reports failure details there.
func (c *Client) do(req *http.Request) ([]byte, error) {
	logging.LogHTTPRequest(req.URL.Host, req.Method, req.URL.Path, nil)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("%s %s failed", req.Method, req.URL.Path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	logging.LogHTTPResponse(req.URL.Host, resp.StatusCode, nil)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewAuthError("access token rejected")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, trimBody(body)))
	}

	return body, nil
}

// get performs a retried GET request against an API path.
func (c *Client) get(path string) ([]byte, error) {
	var body []byte
	err := c.withRetry(func() error {
		req, err := c.newRequest(http.MethodGet, path, nil, "")
		if err != nil {
			return err
		}
		body, err = c.do(req)
		return err
	})
	return body, err
}

// withRetry runs attempt until it succeeds, returns a non-retryable error,
// or the retry budget is spent.
func (c *Client) withRetry(attempt func() error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for try := 0; try <= c.MaxRetries; try++ {
		if try > 0 {
			logging.Debug("retrying request",
				zap.Int("attempt", try),
				zap.Duration("delay", currentDelay),
			)
			time.Sleep(currentDelay)

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

// trimBody clips an error response body for inclusion in an error message.
func trimBody(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
