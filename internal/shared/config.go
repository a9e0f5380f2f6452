package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix namespaces the environment variables read by [Config.ApplyEnv].
const EnvPrefix = "APPLE_MUSIC_"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	AppleMusic  AppleMusicConfig  `toml:"apple_music"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	AppleMusic AppleMusicCredentials `toml:"apple_music"`
}

// AppleMusicCredentials identify the developer signing key.
//
// PrivateKey holds inline PEM text and takes precedence over PrivateKeyPath.
type AppleMusicCredentials struct {
	KeyID          string `toml:"key_id"`
	TeamID         string `toml:"team_id"`
	PrivateKey     string `toml:"private_key"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// AppleMusicConfig contains catalog client settings.
type AppleMusicConfig struct {
	MaxRetries         int             `toml:"max_retries"`
	TimeoutSeconds     float64         `toml:"timeout_seconds"`
	SessionLengthHours int             `toml:"session_length_hours"`
	RootURL            string          `toml:"root_url"`
	Storefront         string          `toml:"storefront"`
	RateLimit          float64         `toml:"rate_limit"`
	Transport          TransportConfig `toml:"transport"`
}

// TransportConfig contains connection pool and proxy settings for the catalog client.
type TransportConfig struct {
	ProxyURL               string `toml:"proxy_url"`
	MaxIdleConns           int    `toml:"max_idle_conns"`
	MaxIdleConnsPerHost    int    `toml:"max_idle_conns_per_host"`
	MaxConnsPerHost        int    `toml:"max_conns_per_host"`
	IdleConnTimeoutSeconds int    `toml:"idle_conn_timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays APPLE_MUSIC_* variables onto the credentials section.
// Unset or empty variables leave the file values untouched.
//
// lookup is usually [os.LookupEnv].
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	overlay := []struct {
		key string
		dst *string
	}{
		{"KEY_ID", &c.Credentials.AppleMusic.KeyID},
		{"TEAM_ID", &c.Credentials.AppleMusic.TeamID},
		{"PRIVATE_KEY", &c.Credentials.AppleMusic.PrivateKey},
		{"PRIVATE_KEY_PATH", &c.Credentials.AppleMusic.PrivateKeyPath},
	}

	for _, o := range overlay {
		if v, ok := lookup(EnvPrefix + o.key); ok && strings.TrimSpace(v) != "" {
			*o.dst = v
		}
	}
}

// Validate checks that the Apple Music credentials and client settings are usable.
func (c *Config) Validate() error {
	creds := c.Credentials.AppleMusic
	switch {
	case creds.KeyID == "":
		return fmt.Errorf("%w: credentials.apple_music.key_id", ErrMissingCredentials)
	case creds.TeamID == "":
		return fmt.Errorf("%w: credentials.apple_music.team_id", ErrMissingCredentials)
	case creds.PrivateKey == "" && creds.PrivateKeyPath == "":
		return fmt.Errorf("%w: credentials.apple_music.private_key or private_key_path", ErrMissingCredentials)
	}

	am := c.AppleMusic
	switch {
	case am.MaxRetries < 0:
		return fmt.Errorf("%w: apple_music.max_retries must not be negative", ErrInvalidConfig)
	case am.TimeoutSeconds < 0:
		return fmt.Errorf("%w: apple_music.timeout_seconds must not be negative", ErrInvalidConfig)
	case am.SessionLengthHours <= 0:
		return fmt.Errorf("%w: apple_music.session_length_hours must be positive", ErrInvalidConfig)
	case am.RateLimit < 0:
		return fmt.Errorf("%w: apple_music.rate_limit must not be negative", ErrInvalidConfig)
	}

	return nil
}
