package applemusic

import (
	"encoding/asn1"
	"fmt"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/golang-jwt/jwt/v5"
)

// signingMethodEd448 signs pure Ed448 (empty context) under the "EdDSA" JWS name.
//
// It is not registered with jwt so "EdDSA" keeps resolving to Ed25519 when parsing.
var signingMethodEd448 jwt.SigningMethod = ed448Method{}

type ed448Method struct{}

func (ed448Method) Alg() string { return "EdDSA" }

func (ed448Method) Sign(signingString string, key any) ([]byte, error) {
	priv, ok := key.(ed448.PrivateKey)
	if !ok || len(priv) != ed448.PrivateKeySize {
		return nil, jwt.ErrInvalidKeyType
	}
	return ed448.Sign(priv, []byte(signingString), ""), nil
}

func (ed448Method) Verify(signingString string, sig []byte, key any) error {
	pub, ok := key.(ed448.PublicKey)
	if !ok || len(pub) != ed448.PublicKeySize {
		return jwt.ErrInvalidKeyType
	}
	if !ed448.Verify(pub, []byte(signingString), sig, "") {
		return jwt.ErrSignatureInvalid
	}
	return nil
}

// parseEd448 unwraps the CurvePrivateKey octet string of a PKCS#8 Ed448 key (RFC 8410).
func parseEd448(privateKey []byte) (ed448.PrivateKey, error) {
	var seed []byte
	if _, err := asn1.Unmarshal(privateKey, &seed); err != nil {
		return nil, fmt.Errorf("%w: Ed448: %v", ErrInvalidKey, err)
	}
	if len(seed) != ed448.SeedSize {
		return nil, fmt.Errorf("%w: Ed448 seed is %d bytes, want %d", ErrInvalidKey, len(seed), ed448.SeedSize)
	}
	return ed448.NewKeyFromSeed(seed), nil
}
