// Package api is the access layer for the SockMatch backend: a single
// configured HTTP client, the error taxonomy, and the Auth, Socks and
// Matches modules built on it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/existflow/sockmatch/internal/logger"
)

// DefaultTimeout is applied when no *http.Client is supplied
const DefaultTimeout = 30 * time.Second

// TokenSource yields the current bearer token, "" when logged out
type TokenSource interface {
	Get(ctx context.Context) (string, error)
}

// SyncTokenSource is a TokenSource that may also answer synchronously.
// GetSync fails with ErrPlatformUnsupported where storage is async-only.
type SyncTokenSource interface {
	TokenSource
	GetSync() (string, error)
}

// Interceptor mutates an outgoing request before it is sent. Returning an
// error aborts the request.
type Interceptor func(ctx context.Context, req *http.Request) error

// BearerInterceptor attaches "Authorization: Bearer <token>" when src holds
// a token. Requests without a token are still sent and left for the server
// to reject. A storage read failure is logged and treated as no token.
func BearerInterceptor(src TokenSource) Interceptor {
	return func(ctx context.Context, req *http.Request) error {
		token, err := src.Get(ctx)
		if err != nil {
			logger.Warn("Token lookup failed, sending unauthenticated", logger.F("error", err))
			return nil
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

// Client is the shared HTTP client. It is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	interceptors []Interceptor
	userAgent    string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithInterceptor appends a request interceptor
func WithInterceptor(i Interceptor) Option {
	return func(c *Client) { c.interceptors = append(c.interceptors, i) }
}

// WithTokenSource installs the bearer token interceptor for src
func WithTokenSource(src TokenSource) Option {
	return WithInterceptor(BearerInterceptor(src))
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for baseURL, which is resolved once by the
// caller and never changes for the lifetime of the client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "sockmatch-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the resolved base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins path and query onto the base URL
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// request describes a single call
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	// overrides maps specific statuses to a Kind for this operation
	overrides map[int]Kind
	// failKind, when set, is used for every non-2xx status except those in overrides
	failKind Kind
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// do sends r and decodes a 2xx JSON response into out (when non-nil)
func (c *Client) do(ctx context.Context, r request, out any) error {
	target := c.URL(r.path, r.query)

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		r.closeBody()
		return &Error{Kind: KindNetwork, Op: r.op, Err: err}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	for _, intercept := range c.interceptors {
		if err := intercept(ctx, req); err != nil {
			r.closeBody()
			return &Error{Kind: KindNetwork, Op: r.op, Err: err}
		}
	}

	logger.Debug("HTTP Request",
		logger.F("op", r.op),
		logger.F("method", r.method),
		logger.F("url", logger.RedactURL(target)))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("HTTP request failed", logger.F("op", r.op), logger.F("error", err))
		if r.failKind == KindUpload {
			return &Error{Kind: KindUpload, Op: r.op, Err: err}
		}
		return &Error{Kind: KindNetwork, Op: r.op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	logger.Debug("HTTP Response",
		logger.F("op", r.op),
		logger.F("status", resp.StatusCode),
		logger.F("duration", time.Since(start).String()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &Error{
			Kind:   r.kindFor(resp.StatusCode),
			Op:     r.op,
			Status: resp.StatusCode,
			Detail: parseDetail(body),
		}
		logger.Warn("API call failed",
			logger.F("op", r.op),
			logger.F("status", resp.StatusCode),
			logger.F("kind", apiErr.Kind.String()),
			logger.F("detail", apiErr.Detail))
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{Kind: KindServer, Op: r.op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// closeBody releases a body that will never reach the transport
func (r request) closeBody() {
	if closer, ok := r.body.(io.Closer); ok {
		_ = closer.Close()
	}
}

func (r request) kindFor(status int) Kind {
	if k, ok := r.overrides[status]; ok {
		return k
	}
	if r.failKind != KindUnknown {
		return r.failKind
	}
	return statusKind(status)
}
