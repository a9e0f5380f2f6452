package applemusic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify2apple/internal/metrics"
	"github.com/desertthunder/spotify2apple/internal/shared"
	"golang.org/x/time/rate"
)

// Client signs developer tokens and performs authenticated catalog requests.
//
// A Client owns its connection pool unless one was injected with [WithHTTPClient].
// Release it with [Client.Close] once done; calls after Close fail with [ErrClientClosed].
type Client struct {
	keyID  string
	teamID string
	signer *signer

	opts    Options
	root    *url.URL
	http    *http.Client
	pool    *http.Client // nil when the transport is caller-owned
	limiter *rate.Limiter
	logger  *log.Logger
	now     func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	closed atomic.Bool
}

// New builds a client from credentials and functional options applied over [DefaultOptions].
//
// It fails fast when the key cannot be parsed into a supported signing key.
func New(creds Credentials, opts ...Option) (*Client, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return NewWithOptions(creds, o)
}

// NewWithOptions builds a client from an explicit [Options] value.
func NewWithOptions(creds Credentials, opts Options) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	s, err := creds.signer()
	if err != nil {
		return nil, err
	}

	root, err := parseRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "applemusic")

	c := &Client{
		keyID:  creds.KeyID,
		teamID: creds.TeamID,
		signer: s,
		opts:   opts,
		root:   root,
		logger: logger,
		now:    time.Now,
	}

	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	c.http, c.pool, err = newHTTPClient(opts, c.TokenSource(), logger)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Use opens a client, hands it to fn and closes it on every exit path.
func Use(creds Credentials, opts Options, fn func(*Client) error) (err error) {
	c, err := NewWithOptions(creds, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

// Close releases the idle connections of a pool the client built. It is safe to
// call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.pool != nil {
		c.pool.CloseIdleConnections()
	}
	c.logger.Debug("client closed")
	return nil
}

// Root returns the catalog root URL requests resolve against.
func (c *Client) Root() string {
	return c.root.String()
}

// Request performs a catalog call and returns the decoded JSON object.
//
// target is either a path relative to the root (e.g. "catalog/us/songs/1") or an
// absolute URL such as a pagination "next" link. body, when non-nil, is sent as JSON.
func (c *Client) Request(ctx context.Context, method, target string, query url.Values, body any) (map[string]any, error) {
	out := map[string]any{}
	if err := c.Do(ctx, method, target, query, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Do performs a catalog call and decodes a 2xx JSON body into out, which may be nil.
func (c *Client) Do(ctx context.Context, method, target string, query url.Values, body, out any) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	u, err := c.resolve(target, query)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request body: %v", ErrInvalidInput, err)
		}
		reader = bytes.NewReader(data)
	}

	// Surface signing failures directly rather than through the transport.
	if _, err := c.Token(); err != nil {
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInvalidInput, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.CatalogRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.CatalogRequests.WithLabelValues(method, metrics.OutcomeCanceled).Inc()
			return ctxErr
		}
		metrics.CatalogRequests.WithLabelValues(method, metrics.OutcomeError).Inc()
		c.logger.Warn("request failed", "method", method, "url", u.Redacted(), "error", err)
		return fmt.Errorf("%w: %s %s: %w", ErrConnection, method, u.Redacted(), err)
	}
	defer resp.Body.Close()

	metrics.CatalogRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", ErrConnection, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("catalog returned error status", "method", method, "url", u.Redacted(), "status", resp.StatusCode)
		return &HTTPError{
			Method:     method,
			URL:        u.Redacted(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       data,
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// resolve joins a relative target onto the root and merges query parameters.
func (c *Client) resolve(target string, query url.Values) (*url.URL, error) {
	var u *url.URL
	if strings.HasPrefix(target, "http") {
		parsed, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		u = parsed
	} else {
		ref, err := url.Parse(strings.TrimPrefix(target, "/"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		u = c.root.ResolveReference(ref)
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// IsNotFound reports whether err is a catalog 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
