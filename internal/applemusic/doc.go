// Package applemusic is a signed client for the Apple Music catalog API.
//
// A [Client] holds a developer signing key, mints short-lived developer tokens
// (JWTs carrying the team id as issuer and the key id in the header) and caches
// each one until it expires. Requests go through a pooled transport that retries
// connection failures but never HTTP error statuses.
//
// The header alg follows the key: P-256 signs ES256, P-384 ES384, P-521 ES512,
// RSA RS256, and Ed25519 or Ed448 EdDSA. Apple only accepts ES256, so only P-256
// keys (the .p8 files Apple issues) produce tokens the catalog will honour.
//
//	c, err := applemusic.New(applemusic.KeyFromFile("AuthKey_ABC123.p8", "ABC123", "TEAM123"))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	res, err := c.Search(ctx, "nevermind", applemusic.WithTypes("albums"))
package applemusic
