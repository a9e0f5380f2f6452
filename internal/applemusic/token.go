package applemusic

import (
	"fmt"
	"time"

	"github.com/desertthunder/spotify2apple/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Token returns the cached developer token, minting a new one when none is
// cached or the cached one has reached its expiry. A token whose expiry equals
// the current instant counts as expired.
//
// Tokens already handed out are never revoked; they stay valid until their own exp claim.
func (c *Client) Token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.expiresAt) {
		return c.token, nil
	}
	return c.mint(now)
}

// TokenExpiry returns the expiry of the cached token, or the zero time when none has been minted.
func (c *Client) TokenExpiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

// mint signs a fresh token and caches it. Callers hold c.mu.
func (c *Client) mint(now time.Time) (string, error) {
	expiresAt := now.Add(c.opts.SessionLength)

	claims := jwt.RegisteredClaims{
		Issuer:    c.teamID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(c.signer.method, claims)
	token.Header["kid"] = c.keyID

	signed, err := token.SignedString(c.signer.key)
	if err != nil {
		return "", fmt.Errorf("%w: signing failed: %v", ErrInvalidKey, err)
	}

	c.token = signed
	c.expiresAt = expiresAt
	metrics.TokensMinted.Inc()
	c.logger.Debug("minted developer token", "kid", c.keyID, "alg", c.signer.method.Alg(), "expires_at", expiresAt)

	return signed, nil
}

// TokenSource adapts the client's token lifecycle to [oauth2.TokenSource].
func (c *Client) TokenSource() oauth2.TokenSource {
	return developerTokenSource{c}
}

type developerTokenSource struct {
	c *Client
}

func (s developerTokenSource) Token() (*oauth2.Token, error) {
	signed, err := s.c.Token()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      s.c.TokenExpiry(),
	}, nil
}
