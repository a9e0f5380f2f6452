package applemusic

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/golang-jwt/jwt/v5"
)

var oidEd448 = asn1.ObjectIdentifier{1, 3, 101, 113}

// Credentials identify the developer account used to sign catalog tokens.
//
// The private key may be given in any one of three forms: parsed key material,
// PEM bytes, or a path to a PEM file (Apple hands these out as AuthKey_<kid>.p8).
// When more than one is set the first non-empty form in that order wins.
type Credentials struct {
	PrivateKey     crypto.PrivateKey
	PrivateKeyPEM  []byte
	PrivateKeyPath string
	KeyID          string
	TeamID         string
}

// KeyFromPEM returns Credentials carrying PEM text.
func KeyFromPEM(pemText, keyID, teamID string) Credentials {
	return Credentials{PrivateKeyPEM: []byte(pemText), KeyID: keyID, TeamID: teamID}
}

// KeyFromFile returns Credentials that load the key from a PEM file.
func KeyFromFile(path, keyID, teamID string) Credentials {
	return Credentials{PrivateKeyPath: path, KeyID: keyID, TeamID: teamID}
}

// signer pairs parsed key material with the JWS algorithm it signs with.
type signer struct {
	key    crypto.PrivateKey
	method jwt.SigningMethod
}

func (c Credentials) signer() (*signer, error) {
	if c.KeyID == "" {
		return nil, fmt.Errorf("%w: key id is required", ErrMissingCredentials)
	}
	if c.TeamID == "" {
		return nil, fmt.Errorf("%w: team id is required", ErrMissingCredentials)
	}

	key, err := c.loadKey()
	if err != nil {
		return nil, err
	}

	method, err := signingMethodFor(key)
	if err != nil {
		return nil, err
	}
	return &signer{key: key, method: method}, nil
}

func (c Credentials) loadKey() (crypto.PrivateKey, error) {
	switch {
	case c.PrivateKey != nil:
		return c.PrivateKey, nil
	case len(c.PrivateKeyPEM) > 0:
		return ParsePrivateKey(c.PrivateKeyPEM)
	case c.PrivateKeyPath != "":
		data, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read key file: %v", ErrInvalidKey, err)
		}
		return ParsePrivateKey(data)
	default:
		return nil, fmt.Errorf("%w: no private key provided", ErrMissingCredentials)
	}
}

// ParsePrivateKey decodes the first PEM block in data as an unencrypted
// PKCS#8, SEC 1 (EC) or PKCS#1 (RSA) private key.
func ParsePrivateKey(data []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}

	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		return nil, fmt.Errorf("%w: encrypted keys are not supported", ErrInvalidKey)
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		if inner, ok := ed448Envelope(block.Bytes); ok {
			return parseEd448(inner)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// ed448Envelope returns the private key bytes of a PKCS#8 Ed448 envelope, which
// crypto/x509 refuses with an opaque "unknown algorithm" error.
func ed448Envelope(der []byte) ([]byte, bool) {
	var envelope struct {
		Version    int
		Algo       pkix.AlgorithmIdentifier
		PrivateKey []byte
	}
	if _, err := asn1.Unmarshal(der, &envelope); err != nil {
		return nil, false
	}
	if !envelope.Algo.Algorithm.Equal(oidEd448) {
		return nil, false
	}
	return envelope.PrivateKey, true
}

// signingMethodFor picks the JWS algorithm for a key. Apple Music keys are
// P-256 and sign with ES256; the other kinds use the algorithm their key requires.
// Ed25519 and Ed448 both sign as "EdDSA".
func signingMethodFor(key crypto.PrivateKey) (jwt.SigningMethod, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		switch k.Curve.Params().BitSize {
		case 256:
			return jwt.SigningMethodES256, nil
		case 384:
			return jwt.SigningMethodES384, nil
		case 521:
			return jwt.SigningMethodES512, nil
		}
		return nil, fmt.Errorf("%w: EC curve %s", ErrUnsupportedKey, k.Curve.Params().Name)
	case *rsa.PrivateKey:
		return jwt.SigningMethodRS256, nil
	case ed25519.PrivateKey:
		return jwt.SigningMethodEdDSA, nil
	case *ed25519.PrivateKey:
		return jwt.SigningMethodEdDSA, nil
	case ed448.PrivateKey:
		return signingMethodEd448, nil
	case nil:
		return nil, fmt.Errorf("%w: nil key", ErrInvalidKey)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
}
