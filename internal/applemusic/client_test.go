package applemusic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spotify2apple/internal/shared"
	tu "github.com/desertthunder/spotify2apple/internal/testing"
)

// newTestClient returns a client rooted at srv's /v1/ with fast retry waits.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	_, keyPEM := tu.ECKeyPEM(t)
	base := []Option{
		quietLogger(),
		WithRoot(srv.URL + "/v1/"),
		WithRetryWait(time.Millisecond, 2*time.Millisecond),
	}
	c, err := New(KeyFromPEM(keyPEM, testKeyID, testTeamID), append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientRequest(t *testing.T) {
	t.Run("GET relative path returns parsed JSON", func(t *testing.T) {
		var gotPath, gotAuth, gotAccept, gotContentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			gotAccept = r.Header.Get("Accept")
			gotContentType = r.Header.Get("Content-Type")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[{"id":"123","type":"songs"}]}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv)
		got, err := c.Request(context.Background(), http.MethodGet, "catalog/us/songs/123", nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := map[string]any{"data": []any{map[string]any{"id": "123", "type": "songs"}}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if gotPath != "/v1/catalog/us/songs/123" {
			t.Errorf("expected path /v1/catalog/us/songs/123, got %s", gotPath)
		}

		tok, _ := c.Token()
		if gotAuth != "Bearer "+tok {
			t.Errorf("expected bearer token header, got %q", gotAuth)
		}
		if gotAccept != "application/json" || gotContentType != "application/json" {
			t.Errorf("expected JSON headers, got accept=%q content-type=%q", gotAccept, gotContentType)
		}
	})

	t.Run("leading slash still resolves under root", func(t *testing.T) {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv)
		if _, err := c.Request(context.Background(), http.MethodGet, "/catalog/us/songs/1", nil, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotPath != "/v1/catalog/us/songs/1" {
			t.Errorf("expected path under root, got %s", gotPath)
		}
	})

	t.Run("absolute URL is used as is", func(t *testing.T) {
		var gotURI string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotURI = r.URL.RequestURI()
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv)
		if _, err := c.Request(context.Background(), http.MethodGet, srv.URL+"/elsewhere?offset=5", nil, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotURI != "/elsewhere?offset=5" {
			t.Errorf("expected /elsewhere?offset=5, got %s", gotURI)
		}
	})

	t.Run("POST sends JSON body", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv)
		out, err := c.Request(context.Background(), http.MethodPost, "me/library", nil, map[string]any{"ids": []string{"1"}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out["ok"] != true {
			t.Errorf("expected ok response, got %v", out)
		}
		if _, ok := got["ids"]; !ok {
			t.Errorf("expected body to be forwarded, got %v", got)
		}
	})

	t.Run("empty 2xx body yields empty map", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c := newTestClient(t, srv)
		out, err := c.Request(context.Background(), http.MethodDelete, "me/library/songs/1", nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out == nil || len(out) != 0 {
			t.Errorf("expected empty map, got %v", out)
		}
	})

	t.Run("undecodable body is a malformed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>not json</html>`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv)
		_, err := c.Request(context.Background(), http.MethodGet, "catalog/us/songs/1", nil, nil)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})
}

func TestClientErrors(t *testing.T) {
	t.Run("unreadable body is a connection error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		mock := tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       &tu.FCloser{},
		}, nil)
		c := newTestClient(t, srv, WithMaxRetries(0), WithHTTPClient(&http.Client{Transport: mock}))

		_, err := c.Request(context.Background(), http.MethodGet, "catalog/us/songs/1", nil, nil)
		if !errors.Is(err, ErrConnection) {
			t.Errorf("expected ErrConnection, got %v", err)
		}
		if mock.Calls() != 1 {
			t.Errorf("expected one round trip, got %d", mock.Calls())
		}
	})

	t.Run("non-2xx status is returned once and never retried", func(t *testing.T) {
		for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
			t.Run(http.StatusText(status), func(t *testing.T) {
				var hits atomic.Int64
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					hits.Add(1)
					w.WriteHeader(status)
					w.Write([]byte(`{"errors":[{"status":"` + http.StatusText(status) + `"}]}`))
				}))
				defer srv.Close()

				c := newTestClient(t, srv, WithMaxRetries(3))
				_, err := c.Request(context.Background(), http.MethodGet, "catalog/us/songs/missing", nil, nil)

				var httpErr *HTTPError
				if !errors.As(err, &httpErr) {
					t.Fatalf("expected *HTTPError, got %v", err)
				}
				if httpErr.StatusCode != status {
					t.Errorf("expected status %d, got %d", status, httpErr.StatusCode)
				}
				if !errors.Is(err, ErrHTTPStatus) {
					t.Error("expected error to match ErrHTTPStatus")
				}
				if !strings.Contains(string(httpErr.Body), "errors") {
					t.Errorf("expected response body to be kept, got %s", httpErr.Body)
				}
				if hits.Load() != 1 {
					t.Errorf("expected exactly one attempt, got %d", hits.Load())
				}
				if status == http.StatusNotFound && !IsNotFound(err) {
					t.Error("expected IsNotFound to report true")
				}
			})
		}
	})

	t.Run("transport errors are retried then succeed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		flaky := &tu.FlakyRoundTripper{Failures: 2, Next: srv.Client().Transport}
		c := newTestClient(t, srv, WithMaxRetries(3), WithHTTPClient(&http.Client{Transport: flaky}))

		out, err := c.Request(context.Background(), http.MethodGet, "catalog/us/songs/1", nil, nil)
		if err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if out["ok"] != true {
			t.Errorf("unexpected response %v", out)
		}
		if flaky.Calls() != 3 {
			t.Errorf("expected 3 attempts, got %d", flaky.Calls())
		}
	})

	t.Run("exhausted retries surface as connection error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		flaky := &tu.FlakyRoundTripper{Failures: 100}
		c := newTestClient(t, srv, WithMaxRetries(2), WithHTTPClient(&http.Client{Transport: flaky}))

		_, err := c.Request(context.Background(), http.MethodGet, "catalog/us/songs/1", nil, nil)
		if !errors.Is(err, ErrConnection) {
			t.Fatalf("expected ErrConnection, got %v", err)
		}
		if flaky.Calls() != 3 {
			t.Errorf("expected 1 attempt plus 2 retries, got %d", flaky.Calls())
		}
	})

	t.Run("zero retries attempts once", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		flaky := &tu.FlakyRoundTripper{Failures: 100}
		c := newTestClient(t, srv, WithMaxRetries(0), WithHTTPClient(&http.Client{Transport: flaky}))

		if _, err := c.Request(context.Background(), http.MethodGet, "catalog/us/songs/1", nil, nil); !errors.Is(err, ErrConnection) {
			t.Fatalf("expected ErrConnection, got %v", err)
		}
		if flaky.Calls() != 1 {
			t.Errorf("expected a single attempt, got %d", flaky.Calls())
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Request(ctx, http.MethodGet, "catalog/us/songs/1", nil, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("closed client", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv)
		if err := c.Close(); err != nil {
			t.Fatalf("expected clean close, got %v", err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("expected second close to be a no-op, got %v", err)
		}

		_, err := c.Request(context.Background(), http.MethodGet, "catalog/us/songs/1", nil, nil)
		if !errors.Is(err, ErrClientClosed) {
			t.Errorf("expected ErrClientClosed, got %v", err)
		}
		if _, err := c.Search(context.Background(), "x"); !errors.Is(err, ErrClientClosed) {
			t.Errorf("expected ErrClientClosed from accessor, got %v", err)
		}
	})
}

// idleTracker records whether the client asked it to drop idle connections.
type idleTracker struct {
	http.RoundTripper
	closed atomic.Bool
}

func (i *idleTracker) CloseIdleConnections() {
	i.closed.Store(true)
}

func TestClientClose(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	t.Run("leaves an injected transport open", func(t *testing.T) {
		tracker := &idleTracker{RoundTripper: http.DefaultTransport}
		c := newTestClient(t, srv, WithHTTPClient(&http.Client{Transport: tracker}))

		if err := c.Close(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tracker.closed.Load() {
			t.Error("expected injected transport to keep its idle connections")
		}
		if c.pool != nil {
			t.Error("expected no owned pool for an injected client")
		}
	})

	t.Run("owns the pool it builds", func(t *testing.T) {
		c := newTestClient(t, srv)
		if c.pool == nil {
			t.Fatal("expected an owned pool")
		}
		if err := c.Close(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := c.Close(); err != nil {
			t.Errorf("expected second Close to be a no-op, got %v", err)
		}
	})
}

func TestUse(t *testing.T) {
	_, keyPEM := tu.ECKeyPEM(t)
	creds := KeyFromPEM(keyPEM, testKeyID, testTeamID)
	opts := DefaultOptions()
	opts.Logger = shared.NewLogger(io.Discard)

	t.Run("closes after fn returns", func(t *testing.T) {
		var kept *Client
		err := Use(creds, opts, func(c *Client) error {
			kept = c
			return nil
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !kept.closed.Load() {
			t.Error("expected client to be closed")
		}
	})

	t.Run("closes and propagates fn error", func(t *testing.T) {
		boom := errors.New("boom")
		var kept *Client
		err := Use(creds, opts, func(c *Client) error {
			kept = c
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected fn error, got %v", err)
		}
		if !kept.closed.Load() {
			t.Error("expected client to be closed")
		}
	})

	t.Run("closes on panic", func(t *testing.T) {
		var kept *Client
		func() {
			defer func() { recover() }()
			Use(creds, opts, func(c *Client) error {
				kept = c
				panic("boom")
			})
		}()
		if kept == nil || !kept.closed.Load() {
			t.Error("expected client to be closed after panic")
		}
	})
}

func TestOptions(t *testing.T) {
	_, keyPEM := tu.ECKeyPEM(t)
	creds := KeyFromPEM(keyPEM, testKeyID, testTeamID)

	tc := []struct {
		name string
		opt  Option
	}{
		{"negative retries", WithMaxRetries(-1)},
		{"negative timeout", WithTimeout(-time.Second)},
		{"zero session length", WithSessionLength(0)},
		{"negative rate limit", WithRateLimit(-1)},
		{"inverted retry wait", WithRetryWait(time.Second, time.Millisecond)},
		{"relative root", WithRoot("/v1/")},
		{"non-http root", WithRoot("ftp://example.com/v1/")},
		{"relative proxy", WithTransport(TransportOptions{ProxyURL: "proxy.local:8080"})},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(creds, quietLogger(), tt.opt)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("root gains a trailing slash", func(t *testing.T) {
		c, err := New(creds, quietLogger(), WithRoot("https://example.com/v1"))
		if err != nil {
			t.Fatalf("expected client, got %v", err)
		}
		defer c.Close()
		if c.Root() != "https://example.com/v1/" {
			t.Errorf("expected trailing slash, got %s", c.Root())
		}
	})

	t.Run("transport limits are applied", func(t *testing.T) {
		tr, err := TransportOptions{
			ProxyURL:        "http://127.0.0.1:3128",
			MaxIdleConns:    7,
			MaxConnsPerHost: 3,
			IdleConnTimeout: time.Minute,
		}.build()
		if err != nil {
			t.Fatalf("expected transport, got %v", err)
		}
		if tr.MaxIdleConns != 7 || tr.MaxConnsPerHost != 3 || tr.IdleConnTimeout != time.Minute {
			t.Errorf("unexpected transport settings: %+v", tr)
		}
		if tr.Proxy == nil {
			t.Error("expected proxy to be set")
		}
	})

	t.Run("rate limiter paces requests", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv, WithRateLimit(20))
		if c.limiter == nil {
			t.Fatal("expected limiter to be configured")
		}

		start := time.Now()
		for range 22 {
			if _, err := c.Request(context.Background(), http.MethodGet, "x", nil, nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("expected limiter to delay requests, took %v", elapsed)
		}
	})
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c := newTestClient(t, srv)

	u, err := c.resolve("catalog/us/search?term=a", map[string][]string{"limit": {"5"}})
	if err != nil {
		t.Fatalf("expected url, got %v", err)
	}
	if u.Path != "/v1/catalog/us/search" {
		t.Errorf("unexpected path %s", u.Path)
	}
	if u.Query().Get("term") != "a" || u.Query().Get("limit") != "5" {
		t.Errorf("expected merged query, got %s", u.RawQuery)
	}
}
