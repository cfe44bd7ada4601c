package clubflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout = 10 * time.Second
	// refreshSkew is how early a JWT access token is refreshed before it expires.
	refreshSkew = 30 * time.Second
	maxBodyLog  = 512
)

// TokenSource supplies a viewer's tokens and accepts rotated ones.
type TokenSource interface {
	Tokens() (access, refresh string)
	RefreshAccess(ctx context.Context, access, refresh string) error
}

// CallObserver records the outcome of every ClubFlow call.
type CallObserver interface {
	ObserveClubFlowCall(endpoint string, status int, d time.Duration)
}

// Client talks to one ClubFlow deployment.
type Client struct {
	baseURL  string
	http     *http.Client
	observer CallObserver
	now      func() time.Time

	// refreshes is keyed by refresh token. ClubFlow consumes a refresh token
	// on use, so one viewer's concurrent requests must share one exchange.
	refreshes singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default traced HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every call, refreshes included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTracerProvider records client spans with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.http.Transport = otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithTracerProvider(tp))
	}
}

// WithObserver attaches a call observer.
func WithObserver(o CallObserver) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client for baseURL.
// PRE: baseURL is an absolute http(s) URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one request and decodes a 2xx JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any, credentials bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(path, 0, start)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("clubflow_event", "event", "request_failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	c.observe(path, resp.StatusCode, start)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := errorDetail(respBody)
		slog.Info("clubflow_event", "event", "error_response", "method", method, "path", path, "status", resp.StatusCode)
		return newAPIError(resp.StatusCode, detail, credentials)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// doAuthed performs a call on behalf of a signed-in viewer. JWT access tokens
// close to expiry are refreshed first; a 401 triggers one refresh and one retry.
func (c *Client) doAuthed(ctx context.Context, ts TokenSource, method, path string, body, out any) error {
	access, refresh := ts.Tokens()
	if access == "" {
		return ErrUnauthorized
	}

	if refresh != "" && expiresWithin(access, c.now(), refreshSkew) {
		if next, err := c.refreshInto(ctx, ts, refresh); err == nil {
			access = next
		} else if errors.Is(err, ErrUnauthorized) {
			return err
		}
	}

	err := c.do(ctx, method, path, access, body, out, false)
	if !errors.Is(err, ErrUnauthorized) || refresh == "" {
		return err
	}

	next, rerr := c.refreshInto(ctx, ts, refresh)
	if rerr != nil {
		return rerr
	}
	return c.do(ctx, method, path, next, body, out, false)
}

// refreshInto exchanges the refresh token and hands the result to ts.
// Concurrent callers holding the same refresh token share one exchange. A
// caller whose token was already rotated gets the current access token.
// INVARIANT: a refresh token is sent to ClubFlow at most once
func (c *Client) refreshInto(ctx context.Context, ts TokenSource, refresh string) (string, error) {
	ch := c.refreshes.DoChan(refresh, func() (any, error) {
		if access, current := ts.Tokens(); current != refresh {
			if access == "" {
				return "", ErrUnauthorized
			}
			return access, nil
		}
		// Other requests may be waiting on this exchange.
		shared := context.WithoutCancel(ctx)
		pair, err := c.Refresh(shared, refresh)
		if err != nil {
			return "", err
		}
		if err := ts.RefreshAccess(shared, pair.Access, pair.Refresh); err != nil {
			return "", fmt.Errorf("store refreshed token: %w", err)
		}
		return pair.Access, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) observe(path string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveClubFlowCall(path, status, c.now().Sub(start))
	}
}

// errorDetail extracts a DRF-style {"detail": "..."} message, falling back to the raw body.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyLog {
		s = s[:maxBodyLog]
	}
	return s
}
