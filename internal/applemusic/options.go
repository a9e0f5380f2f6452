package applemusic

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-cleanhttp"
)

const (
	DefaultRoot          = "https://api.music.apple.com/v1/"
	DefaultStorefront    = "us"
	DefaultMaxRetries    = 10
	DefaultTimeout       = 10 * time.Second
	DefaultSessionLength = 12 * time.Hour
	DefaultSearchLimit   = 5
)

// Options configures a [Client]. Start from [DefaultOptions] and override fields,
// or pass [Option] values to [New].
type Options struct {
	MaxRetries    int           // transport-level retries per request
	Timeout       time.Duration // per-attempt timeout; zero disables it
	SessionLength time.Duration // validity of each minted token
	Root          string        // catalog root URL

	// RateLimit caps outbound requests per second. Zero means unlimited.
	RateLimit float64

	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	Transport TransportOptions

	Logger *log.Logger

	// HTTPClient, when set, supplies the round tripper used for each attempt
	// instead of one built from Transport.
	HTTPClient *http.Client
}

// TransportOptions is the enumerated set of connection settings a client may tune.
type TransportOptions struct {
	ProxyURL            string
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
}

// Option mutates [Options].
type Option func(*Options)

// DefaultOptions returns the defaults: 10 retries, 10s timeout, 12h sessions and the v1 catalog root.
func DefaultOptions() Options {
	return Options{
		MaxRetries:    DefaultMaxRetries,
		Timeout:       DefaultTimeout,
		SessionLength: DefaultSessionLength,
		Root:          DefaultRoot,
		RetryWaitMin:  500 * time.Millisecond,
		RetryWaitMax:  8 * time.Second,
	}
}

func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

func WithSessionLength(d time.Duration) Option {
	return func(o *Options) { o.SessionLength = d }
}

func WithRoot(root string) Option {
	return func(o *Options) { o.Root = root }
}

func WithRateLimit(rps float64) Option {
	return func(o *Options) { o.RateLimit = rps }
}

// WithRetryWait bounds the exponential backoff between transport retries.
func WithRetryWait(min, max time.Duration) Option {
	return func(o *Options) {
		o.RetryWaitMin = min
		o.RetryWaitMax = max
	}
}

func WithTransport(t TransportOptions) Option {
	return func(o *Options) { o.Transport = t }
}

func WithLogger(l *log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithHTTPClient sends requests through c's transport instead of a dedicated pool.
// The caller keeps ownership of that transport; [Client.Close] leaves it open.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

func (o Options) validate() error {
	if o.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	if o.SessionLength <= 0 {
		return fmt.Errorf("%w: session length must be positive", ErrInvalidConfig)
	}
	if o.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	if o.RetryWaitMax < o.RetryWaitMin {
		return fmt.Errorf("%w: retry wait max is below min", ErrInvalidConfig)
	}
	return nil
}

// parseRoot validates the root URL and guarantees a trailing slash so relative
// paths resolve beneath it.
func parseRoot(root string) (*url.URL, error) {
	if root == "" {
		root = DefaultRoot
	}
	u, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("%w: root url: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: root url must be absolute http(s): %q", ErrInvalidConfig, root)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// build returns a dedicated pooled transport; clients never share connection pools.
func (t TransportOptions) build() (*http.Transport, error) {
	tr := cleanhttp.DefaultPooledTransport()

	if t.ProxyURL != "" {
		proxy, err := url.Parse(t.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("%w: proxy url: %v", ErrInvalidConfig, err)
		}
		if proxy.Scheme == "" || proxy.Host == "" {
			return nil, fmt.Errorf("%w: proxy url must be absolute: %q", ErrInvalidConfig, t.ProxyURL)
		}
		tr.Proxy = http.ProxyURL(proxy)
	}
	if t.MaxIdleConns > 0 {
		tr.MaxIdleConns = t.MaxIdleConns
	}
	if t.MaxIdleConnsPerHost > 0 {
		tr.MaxIdleConnsPerHost = t.MaxIdleConnsPerHost
	}
	if t.MaxConnsPerHost > 0 {
		tr.MaxConnsPerHost = t.MaxConnsPerHost
	}
	if t.IdleConnTimeout > 0 {
		tr.IdleConnTimeout = t.IdleConnTimeout
	}

	return tr, nil
}
