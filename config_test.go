package blogd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "Blog", cfg.Name)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "data/blog.db", cfg.DatabasePath)
	assert.Equal(t, "data/media", cfg.MediaDir)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Minute, cfg.PostCacheTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, 20.0, cfg.RateLimit)
}

func TestLoadConfigYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blogd.yaml")
	yaml := `
name: Field Notes
addr: ":8080"
session_secret: from-file-secret-value
token_ttl: 2h
post_cache_ttl: 30s
max_image_width: 800
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("BLOGD_ADDR", ":9090")
	t.Setenv("BLOGD_COOKIE_SECURE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Field Notes", cfg.Name)
	assert.Equal(t, ":9090", cfg.Addr, "env overrides file")
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.PostCacheTTL)
	assert.Equal(t, 800, cfg.MaxImageWidth)
	assert.Equal(t, "from-file-secret-value", cfg.TokenSecret, "token secret falls back to session secret")
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("BLOGD_TOKEN_TTL", "forever")
	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.setDefaults()
	assert.Error(t, cfg.validate(), "session secret required")

	cfg = Config{SessionSecret: "short"}
	cfg.setDefaults()
	assert.Error(t, cfg.validate(), "token secret too short")

	cfg = Config{SessionSecret: "a-long-enough-session-secret"}
	cfg.setDefaults()
	assert.NoError(t, cfg.validate())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, log.DEBUG, parseLogLevel("DEBUG"))
	assert.Equal(t, log.WARN, parseLogLevel("warning"))
	assert.Equal(t, log.INFO, parseLogLevel("nonsense"))
}
