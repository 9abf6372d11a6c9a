package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	http      *http.Client
	auth      Authenticator
	apiKey    string
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxRateLimitRetries sets how many times a 429 response is retried.
func WithMaxRateLimitRetries(n int) Option {
	return func(c *Client) {
		if rt, ok := c.http.Transport.(*RateLimitTransport); ok {
			rt.MaxRetries = n
		}
	}
}

// WithRoundTripper replaces the transport underneath the rate limiter.
func WithRoundTripper(base http.RoundTripper) Option {
	return func(c *Client) {
		if rt, ok := c.http.Transport.(*RateLimitTransport); ok {
			rt.Base = base
		}
	}
}

// WithSleep replaces the function used to wait between rate-limit retries.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if rt, ok := c.http.Transport.(*RateLimitTransport); ok {
			rt.Sleep = fn
		}
	}
}

// New creates a new transport client that authenticates every request with
// apiKey through auth.
func New(auth Authenticator, apiKey string, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http: &http.Client{
			Timeout:   DefaultHTTPTimeout,
			Transport: NewRateLimitTransport(nil, constants.MaxRateLimitRetries),
		},
		auth:      auth,
		apiKey:    apiKey,
		userAgent: "rbxproducts",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoWithContext performs an HTTP request with authentication applied.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	c.auth.Apply(req, c.apiKey)

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.Send(ctx, http.MethodGet, url, "", nil)
}

// Send builds and performs a request with an optional body.
func (c *Client) Send(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.WrapResource("create", "request", method+" "+url, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.DoWithContext(ctx, req)
}
