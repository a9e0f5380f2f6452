package main

import (
	"context"
	"time"

	"github.com/desertthunder/spotify2apple/internal/applemusic"
	"github.com/urfave/cli/v3"
)

// tokenOutput is the --json shape of [Runner.Token].
type tokenOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token mints a developer token from the configured signing key and prints it.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	return r.withCatalog(func(c *applemusic.Client) error {
		token, err := c.Token()
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(tokenOutput{Token: token, ExpiresAt: c.TokenExpiry()}, cmd.Bool("pretty"))
		}

		r.logger.Info("developer token minted", "expires_at", c.TokenExpiry().Format(time.RFC3339))
		return r.writePlain("%s\n", token)
	})
}
