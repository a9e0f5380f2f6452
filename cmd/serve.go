package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/desertthunder/spotify2apple/internal/applemusic"
	"github.com/desertthunder/spotify2apple/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the local catalog API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	port := cmd.Int("port")
	if port == 0 {
		port = r.config.Server.Port
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return r.withCatalog(func(c *applemusic.Client) error {
		router := server.NewRouter(c, r.logger)
		r.logger.Debug("routes registered", "patterns", router.Patterns(), "catalog", c.Root())
		srv := server.NewServer(addr, router, r.logger)

		r.writePlain("Serving catalog API on http://%s\n", addr)
		r.writePlain("Press Ctrl+C to stop\n")

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
}
