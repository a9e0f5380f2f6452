package applemusic

import (
	"fmt"
	"strings"
)

var (
	// Configuration errors, returned by [New] and never retried.
	ErrInvalidKey         = fmt.Errorf("invalid private key")
	ErrUnsupportedKey     = fmt.Errorf("unsupported private key type")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidConfig      = fmt.Errorf("invalid client configuration")

	// Request errors
	ErrHTTPStatus        = fmt.Errorf("unexpected HTTP status")
	ErrConnection        = fmt.Errorf("connection failed")
	ErrMalformedResponse = fmt.Errorf("malformed response")
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrClientClosed      = fmt.Errorf("client closed")
)

// HTTPError is returned for any non-2xx response from the catalog.
//
// It matches [ErrHTTPStatus] with [errors.Is].
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	if body == "" {
		return fmt.Sprintf("apple music: %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("apple music: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, body)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTPStatus
}
