// Package file loads the TOML configuration file and watches it for
// changes.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// Config is the full configuration of a Lectern instance.
type Config struct {
	Harvest HarvestConfig `toml:"harvest"`
	Sync    SyncConfig    `toml:"sync"`
	Storage StorageConfig `toml:"storage"`
	Auth    AuthConfig    `toml:"auth"`
	HTTP    HTTPConfig    `toml:"http"`
}

// HarvestConfig configures the connection to the external video system.
type HarvestConfig struct {
	// URL is the base URL of the external system's API.
	URL string `toml:"url"`

	// Timeout is the per-request HTTP timeout.
	Timeout duration `toml:"timeout"`

	// PreferredAmount is the requested harvest page size.
	PreferredAmount int `toml:"preferred_amount"`

	// RequestsPerSecond throttles consecutive harvest fetches.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SyncConfig configures the sync daemon.
type SyncConfig struct {
	// PollInterval is the wait between sync cycles when the source has
	// no backlog. Changes to this value are hot reloaded.
	PollInterval duration `toml:"poll_interval"`

	// BackoffMin and BackoffMax bound the retry delay after transient
	// harvest failures.
	BackoffMin duration `toml:"backoff_min"`
	BackoffMax duration `toml:"backoff_max"`
}

// StorageConfig configures where local state lives.
type StorageConfig struct {
	// DataDir holds the metadata database and the search index.
	DataDir string `toml:"data_dir"`
}

// AuthConfig configures access control.
type AuthConfig struct {
	// ModeratorRole grants the ability to edit the page tree.
	ModeratorRole string `toml:"moderator_role"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`

	// AllowedOrigins configures CORS. Empty means same-origin only.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// duration wraps time.Duration for TOML strings like "30s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration defaults applied underneath the
// loaded file.
func Default() Config {
	return Config{
		Harvest: HarvestConfig{
			Timeout:           duration(30 * time.Second),
			PreferredAmount:   500,
			RequestsPerSecond: 2,
		},
		Sync: SyncConfig{
			PollInterval: duration(30 * time.Second),
			BackoffMin:   duration(time.Second),
			BackoffMax:   duration(5 * time.Minute),
		},
		Auth: AuthConfig{
			ModeratorRole: domain.DefaultModeratorRole,
		},
		HTTP: HTTPConfig{
			Addr: ":3080",
		},
	}
}

// Load reads and validates the configuration file. A missing path falls
// back to ~/.lectern/config.toml; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	config := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrValidation, path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// resolvePath falls back to ~/.lectern/config.toml for an empty path.
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".lectern", "config.toml"), nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Sync.PollInterval.Std() <= 0 {
		return fmt.Errorf("%w: sync.poll_interval must be positive", domain.ErrValidation)
	}
	if c.Sync.BackoffMin.Std() <= 0 || c.Sync.BackoffMax.Std() < c.Sync.BackoffMin.Std() {
		return fmt.Errorf("%w: sync backoff bounds are inverted", domain.ErrValidation)
	}
	if c.Harvest.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: harvest.requests_per_second must not be negative", domain.ErrValidation)
	}
	return nil
}

// Backoff converts the configured bounds into the daemon's backoff.
func (c *Config) Backoff() domain.Backoff {
	backoff := domain.DefaultBackoff
	backoff.Min = c.Sync.BackoffMin.Std()
	backoff.Max = c.Sync.BackoffMax.Std()
	return backoff
}
