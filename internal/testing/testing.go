// package testing contains shared testing utilities
package testing

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cloudflare/circl/sign/ed448"
)

// ECKey generates an ECDSA key on the given curve.
func ECKey(t *testing.T, curve elliptic.Curve) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate EC key: %v", err)
	}
	return key
}

// ECKeyPEM returns a P-256 key encoded as a PKCS#8 "PRIVATE KEY" block, the
// format Apple hands out as .p8 files.
func ECKeyPEM(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key := ECKey(t, elliptic.P256())
	return key, MustPKCS8PEM(t, key)
}

// RSAKeyPEM returns a 2048-bit RSA key encoded as a PKCS#1 "RSA PRIVATE KEY" block.
func RSAKeyPEM(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return key, string(pem.EncodeToMemory(block))
}

// Ed25519KeyPEM returns an Ed25519 key encoded as PKCS#8.
func Ed25519KeyPEM(t *testing.T) (ed25519.PrivateKey, string) {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate Ed25519 key: %v", err)
	}
	return key, MustPKCS8PEM(t, key)
}

// Ed448KeyPEM returns an Ed448 key encoded as PKCS#8. crypto/x509 cannot marshal
// Ed448, so the envelope is built by hand.
func Ed448KeyPEM(t *testing.T) (ed448.PrivateKey, string) {
	t.Helper()
	_, key, err := ed448.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate Ed448 key: %v", err)
	}
	return key, Ed448SeedPEM(t, key.Seed())
}

// Ed448SeedPEM wraps seed in a PKCS#8 Ed448 envelope without checking its length.
func Ed448SeedPEM(t *testing.T, seed []byte) string {
	t.Helper()
	inner, err := asn1.Marshal(seed)
	if err != nil {
		t.Fatalf("Failed to marshal seed: %v", err)
	}
	der, err := asn1.Marshal(struct {
		Version    int
		Algo       pkix.AlgorithmIdentifier
		PrivateKey []byte
	}{
		Algo:       pkix.AlgorithmIdentifier{Algorithm: asn1.ObjectIdentifier{1, 3, 101, 113}},
		PrivateKey: inner,
	})
	if err != nil {
		t.Fatalf("Failed to marshal Ed448 envelope: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func MustPKCS8PEM(t *testing.T, key any) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal PKCS#8 key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// WriteKeyFile writes PEM text to AuthKey_<kid>.p8 in a temp dir and returns the path.
func WriteKeyFile(t *testing.T, kid, pemText string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AuthKey_"+kid+".p8")
	if err := os.WriteFile(path, []byte(pemText), 0600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	return path
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	calls    atomic.Int64
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.calls.Add(1)
	return m.response, m.err
}

// Calls reports how many round trips were attempted.
func (m *MockRoundTripper) Calls() int {
	return int(m.calls.Load())
}

// FlakyRoundTripper fails the first Failures round trips with a connection
// error, then delegates to Next (or [http.DefaultTransport]).
type FlakyRoundTripper struct {
	Failures int
	Next     http.RoundTripper
	calls    atomic.Int64
}

// ErrFlaky is the transport error returned by [FlakyRoundTripper].
var ErrFlaky = errors.New("connection reset by peer")

func (f *FlakyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	n := f.calls.Add(1)
	if int(n) <= f.Failures {
		return nil, ErrFlaky
	}
	next := f.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

func (f *FlakyRoundTripper) Calls() int {
	return int(f.calls.Load())
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
