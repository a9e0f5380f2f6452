package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify2apple/internal/applemusic"
	"github.com/desertthunder/spotify2apple/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	lookupEnv  func(string) (string, bool)
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// HTTPClient replaces the transport built from the [apple_music.transport] section.
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	LookupEnv  func(string) (string, bool)
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		lookupEnv:  opts.LookupEnv,
	}
}

// loadConfig reads path when it exists, keeping the current config otherwise,
// then overlays APPLE_MUSIC_* environment variables.
func (r *Runner) loadConfig(path string) error {
	r.configPath = path
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	r.config.ApplyEnv(r.lookupEnv)
	return nil
}

// credentials builds client credentials from config. Inline PEM wins over the key path.
func (r *Runner) credentials() applemusic.Credentials {
	creds := r.config.Credentials.AppleMusic
	if creds.PrivateKey != "" {
		return applemusic.KeyFromPEM(creds.PrivateKey, creds.KeyID, creds.TeamID)
	}
	return applemusic.KeyFromFile(creds.PrivateKeyPath, creds.KeyID, creds.TeamID)
}

// clientOptions translates the [apple_music] section into [applemusic.Options].
func (r *Runner) clientOptions() applemusic.Options {
	am := r.config.AppleMusic
	opts := applemusic.DefaultOptions()

	opts.MaxRetries = am.MaxRetries
	opts.Timeout = time.Duration(am.TimeoutSeconds * float64(time.Second))
	opts.SessionLength = time.Duration(am.SessionLengthHours) * time.Hour
	opts.RateLimit = am.RateLimit
	if am.RootURL != "" {
		opts.Root = am.RootURL
	}
	opts.Transport = applemusic.TransportOptions{
		ProxyURL:            am.Transport.ProxyURL,
		MaxIdleConns:        am.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: am.Transport.MaxIdleConnsPerHost,
		MaxConnsPerHost:     am.Transport.MaxConnsPerHost,
		IdleConnTimeout:     time.Duration(am.Transport.IdleConnTimeoutSeconds) * time.Second,
	}
	opts.Logger = r.logger
	opts.HTTPClient = r.httpClient

	return opts
}

// withCatalog validates the config, opens a catalog client for fn and closes it afterwards.
func (r *Runner) withCatalog(fn func(*applemusic.Client) error) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	return applemusic.Use(r.credentials(), r.clientOptions(), fn)
}

// storefront returns the flag value, falling back to the configured default storefront.
func (r *Runner) storefront(flag string) string {
	if flag != "" {
		return flag
	}
	if r.config.AppleMusic.Storefront != "" {
		return r.config.AppleMusic.Storefront
	}
	return applemusic.DefaultStorefront
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
