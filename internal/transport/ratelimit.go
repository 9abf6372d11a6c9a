package transport

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/logging"
)

// RateLimitTransport retries requests rejected with 429 Too Many Requests.
// The wait is taken from Retry-After, then X-RateLimit-Reset, falling back
// to one second, and is padded with a small cushion.
type RateLimitTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	Cushion    time.Duration

	// Sleep waits for d or until ctx is done. Nil means a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimitTransport wraps base with the default retry policy.
func NewRateLimitTransport(base http.RoundTripper, maxRetries int) *RateLimitTransport {
	return &RateLimitTransport{
		Base:       base,
		MaxRetries: maxRetries,
		Cushion:    constants.RateLimitCushion,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	for attempt := 0; ; attempt++ {
		resp, err := base.RoundTrip(req)
		if err != nil || resp.StatusCode != http.StatusTooManyRequests || attempt >= t.MaxRetries {
			return resp, err
		}
		// A body that cannot be replayed cannot be retried.
		if req.Body != nil && req.GetBody == nil {
			return resp, nil
		}

		wait := RetryWait(resp.Header) + t.Cushion
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		logging.FromContext(req.Context()).Warn().
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Str("url", req.URL.Path).
			Msg("Rate limited, retrying")

		if err := t.sleep(req.Context(), wait); err != nil {
			return nil, err
		}

		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			next.Body = body
		}
		req = next
	}
}

func (t *RateLimitTransport) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryWait returns how long the server asked the client to back off.
func RetryWait(h http.Header) time.Duration {
	for _, name := range []string{"Retry-After", "X-RateLimit-Reset"} {
		v := strings.TrimSpace(h.Get(name))
		if v == "" {
			continue
		}
		if secs, err := strconv.ParseUint(v, 10, 32); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return constants.RateLimitRetryDelay
}
