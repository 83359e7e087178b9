// Package config holds the runtime configuration for the enrichment tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	zoteroenhancer "github.com/bzuer/zoteroEhancer"
	"github.com/bzuer/zoteroEhancer/fetch"
)

// Configuration validation errors.
var (
	ErrInvalidBatchSize  = errors.New("batch_size must be at least 1")
	ErrInvalidMaxRetries = errors.New("max_retries must be non-negative")
	ErrInvalidTimeout    = errors.New("timeout_sec must be at least 1")
)

// Config for the enrichment tools.
type Config struct {
	// APIKey is optional and appended to Google Books requests.
	APIKey string `yaml:"api_key"`
	// ContactEmail is sent as mailto with OpenAlex requests, which routes
	// them into the polite pool.
	ContactEmail string `yaml:"contact_email"`
	// BatchSize is the number of items processed concurrently before the
	// next group starts.
	BatchSize int `yaml:"batch_size"`
	// MaxRetries is passed to the HTTP client.
	MaxRetries int `yaml:"max_retries"`
	// TimeoutSec is the per-request timeout in seconds.
	TimeoutSec int `yaml:"timeout_sec"`
	// GoogleBooksEndpoint and OpenAlexEndpoint override the public APIs,
	// mostly useful for testing.
	GoogleBooksEndpoint string `yaml:"google_books_endpoint"`
	OpenAlexEndpoint    string `yaml:"openalex_endpoint"`
	// SnapshotDir is where raw payload slices are written.
	SnapshotDir string `yaml:"snapshot_dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		BatchSize:           12,
		MaxRetries:          3,
		TimeoutSec:          30,
		GoogleBooksEndpoint: fetch.DefaultGoogleBooksEndpoint,
		OpenAlexEndpoint:    fetch.DefaultOpenAlexEndpoint,
		SnapshotDir:         filepath.Join(xdg.DataHome, zoteroenhancer.AppName, "snapshots"),
	}
}

// Path returns the default config file location.
func Path() string {
	return filepath.Join(xdg.ConfigHome, zoteroenhancer.AppName, "config.yaml")
}

// Load reads a YAML config file and applies it over the defaults. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}
	return nil
}

// HTTPTimeout returns the request timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
