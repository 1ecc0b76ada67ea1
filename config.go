package pdfdesk

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/pdfdesk/layout"
	"github.com/brunobiangulo/pdfdesk/ratelimit"
)

// Config holds all configuration for the pdfdesk engine and server.
type Config struct {
	// DBPath is the full path to the SQLite conversion log.
	// If empty, defaults to ~/.pdfdesk/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. "home" (default) uses ~/.pdfdesk/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// DisableStore runs without a conversion log.
	DisableStore bool `json:"disable_store" yaml:"disable_store"`

	// RetentionDays deletes log rows older than this many days; 0 keeps them.
	RetentionDays int `json:"retention_days" yaml:"retention_days"`

	// MaxUploadBytes caps the total size of one request body.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// PageConcurrency is the number of pages converted in parallel.
	PageConcurrency int `json:"page_concurrency" yaml:"page_concurrency"`

	// SkipHeadings disables heading detection by default.
	SkipHeadings bool `json:"skip_headings" yaml:"skip_headings"`

	// Layout holds the text reconstruction thresholds.
	Layout layout.Config `json:"layout" yaml:"layout"`

	RateLimit ratelimit.Config `json:"rate_limit" yaml:"rate_limit"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`

	Server ServerConfig `json:"server" yaml:"server"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	APIKey      string `json:"api_key" yaml:"api_key"`
	CORSOrigins string `json:"cors_origins" yaml:"cors_origins"` // comma-separated
}

// DefaultConfig returns a Config with sensible defaults.
// The conversion log is stored in ~/.pdfdesk/pdfdesk.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:          "pdfdesk",
		StorageDir:      "home",
		RetentionDays:   30,
		MaxUploadBytes:  50 << 20,
		PageConcurrency: 4,
		Layout:          layout.DefaultConfig(),
		RateLimit:       ratelimit.DefaultConfig(),
		LogLevel:        "info",
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// LoadConfig reads a YAML or JSON file over DefaultConfig, applies
// PDFDESK_* environment overrides and validates the result. An empty path
// skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from PDFDESK_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PDFDESK_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := getenv("PDFDESK_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("PDFDESK_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
	if v := getenv("PDFDESK_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = v
	}
	if v := getenv("PDFDESK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("PDFDESK_TRUSTED_PROXIES"); v != "" {
		c.RateLimit.TrustedProxies = strings.Split(v, ",")
	}
	if v := getenv("PDFDESK_DISABLE_STORE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: PDFDESK_DISABLE_STORE=%q", ErrInvalidConfig, v)
		}
		c.DisableStore = b
	}

	ints := []struct {
		name string
		dest *int
	}{
		{"PDFDESK_PAGE_CONCURRENCY", &c.PageConcurrency},
		{"PDFDESK_RETENTION_DAYS", &c.RetentionDays},
		{"PDFDESK_RATE_LIMIT", &c.RateLimit.MaxRequests},
	}
	for _, e := range ints {
		v := getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, e.name, v)
		}
		*e.dest = n
	}

	if v := getenv("PDFDESK_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: PDFDESK_MAX_UPLOAD_BYTES=%q", ErrInvalidConfig, v)
		}
		c.MaxUploadBytes = n
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.PageConcurrency < 0:
		return fmt.Errorf("%w: page_concurrency must not be negative", ErrInvalidConfig)
	case c.RetentionDays < 0:
		return fmt.Errorf("%w: retention_days must not be negative", ErrInvalidConfig)
	case c.RateLimit.MaxRequests < 0:
		return fmt.Errorf("%w: rate_limit.max_requests must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch c.StorageDir {
	case "", "home", "local", "cwd":
	default:
		return fmt.Errorf("%w: unknown storage_dir %q", ErrInvalidConfig, c.StorageDir)
	}
	if _, err := ratelimit.ParsePrefixes(c.RateLimit.TrustedProxies); err != nil {
		return fmt.Errorf("%w: rate_limit.trusted_proxies: %w", ErrInvalidConfig, err)
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "pdfdesk"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".pdfdesk", name+".db")
	}
}
