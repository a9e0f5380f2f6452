package applemusic

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

// newHTTPClient layers the request pipeline: bearer token attachment, then
// transport-level retries, then a pooled transport with a per-attempt timeout.
//
// It returns the outer client used for requests and, when the transport was built
// here rather than injected through Options.HTTPClient, the inner client owning
// the connection pool. An injected transport is never returned.
func newHTTPClient(opts Options, source oauth2.TokenSource, logger *log.Logger) (*http.Client, *http.Client, error) {
	var base, owned *http.Client
	if opts.HTTPClient != nil {
		base = &http.Client{
			Transport:     opts.HTTPClient.Transport,
			CheckRedirect: opts.HTTPClient.CheckRedirect,
			Jar:           opts.HTTPClient.Jar,
			Timeout:       opts.Timeout,
		}
	} else {
		tr, err := opts.Transport.build()
		if err != nil {
			return nil, nil, err
		}
		base = &http.Client{Transport: tr, Timeout: opts.Timeout}
		owned = base
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = base
	rc.RetryMax = opts.MaxRetries
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.CheckRetry = retryTransportErrors
	rc.Logger = retryLogger{logger}

	outer := &http.Client{
		Transport: &oauth2.Transport{
			Source: source,
			Base:   &retryablehttp.RoundTripper{Client: rc},
		},
	}
	return outer, owned, nil
}

// retryTransportErrors retries failed round trips (connection refused, resets,
// timeouts) and never retries on a response, whatever its status.
func retryTransportErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// retryLogger routes retryablehttp's leveled logging into the client logger.
// Per-attempt failures are expected noise and log at warn.
type retryLogger struct {
	l *log.Logger
}

func (r retryLogger) Error(msg string, kv ...any) { r.l.Warn(msg, kv...) }
func (r retryLogger) Warn(msg string, kv ...any)  { r.l.Warn(msg, kv...) }
func (r retryLogger) Info(msg string, kv ...any)  { r.l.Debug(msg, kv...) }
func (r retryLogger) Debug(msg string, kv ...any) { r.l.Debug(msg, kv...) }
