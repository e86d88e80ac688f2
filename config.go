package blogd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a blogd server.
type Config struct {
	Name        string `yaml:"name"`        // Site name (default "Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Feed description

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/blog.db")
	MediaDir     string `yaml:"media_dir"`     // Upload root (default "data/media")

	SessionSecret string        `yaml:"session_secret"` // Required: session encryption secret
	TokenSecret   string        `yaml:"token_secret"`   // JWT signing secret (default SessionSecret)
	TokenTTL      time.Duration `yaml:"token_ttl"`      // Bearer token lifetime (default 24h)
	CookieSecure  bool          `yaml:"cookie_secure"`  // Set true for HTTPS

	PostCacheTTL   time.Duration `yaml:"post_cache_ttl"`  // Post list cache TTL (default 1min)
	MaxUploadSize  int64         `yaml:"max_upload_size"` // Per-file limit in bytes (default 10MB)
	MaxImageWidth  int           `yaml:"max_image_width"` // Wider images are downscaled (default 1600)
	RateLimit      float64       `yaml:"rate_limit"`      // Requests per second per IP (default 20, negative disables)
	RequestTimeout time.Duration `yaml:"request_timeout"` // Per-request deadline (default 30s)
	LogLevel       string        `yaml:"log_level"`       // debug, info, warn, error (default info)
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.MediaDir == "" {
		c.MediaDir = "data/media"
	}
	if c.TokenSecret == "" {
		c.TokenSecret = c.SessionSecret
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = time.Minute
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 10 << 20
	}
	if c.MaxImageWidth == 0 {
		c.MaxImageWidth = 1600
	}
	if c.RateLimit == 0 {
		c.RateLimit = 20
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("blogd: SessionSecret is required")
	}
	if len(c.TokenSecret) < 16 {
		return errors.New("blogd: TokenSecret must be at least 16 bytes")
	}
	return nil
}

// LoadConfig reads the YAML file at path (skipped when path is empty),
// applies BLOGD_* environment overrides and fills in defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func applyEnv(c *Config) error {
	strs := map[string]*string{
		"BLOGD_NAME":           &c.Name,
		"BLOGD_URL":            &c.URL,
		"BLOGD_DESCRIPTION":    &c.Description,
		"BLOGD_ADDR":           &c.Addr,
		"BLOGD_DATABASE_PATH":  &c.DatabasePath,
		"BLOGD_MEDIA_DIR":      &c.MediaDir,
		"BLOGD_SESSION_SECRET": &c.SessionSecret,
		"BLOGD_TOKEN_SECRET":   &c.TokenSecret,
		"BLOGD_LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"BLOGD_TOKEN_TTL":       &c.TokenTTL,
		"BLOGD_POST_CACHE_TTL":  &c.PostCacheTTL,
		"BLOGD_REQUEST_TIMEOUT": &c.RequestTimeout,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("BLOGD_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BLOGD_COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v := os.Getenv("BLOGD_MAX_UPLOAD_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BLOGD_MAX_UPLOAD_SIZE: %w", err)
		}
		c.MaxUploadSize = n
	}
	if v := os.Getenv("BLOGD_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BLOGD_RATE_LIMIT: %w", err)
		}
		c.RateLimit = f
	}
	return nil
}

func parseLogLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
