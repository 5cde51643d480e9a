package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tekkin/internal/model"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "Europe/Rome", cfg.Timezone)
	assert.Equal(t, 20, cfg.News.ItemsPerSource)
	assert.Equal(t, 350, cfg.News.SummaryLength)
	assert.Equal(t, 20*time.Second, cfg.News.Timeout)
	assert.Len(t, cfg.News.Sources, 6)
	assert.Len(t, cfg.Events.Artists, 5)
	assert.Len(t, cfg.Manual.Events, 5)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
listen: ":9000"
news:
  sources:
    - name: Feed
      url: https://example.com/rss
      category: events
calendars:
  - url: https://example.com/club.ics
    name: club
`))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "Europe/Rome", cfg.Timezone)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 12, cfg.Events.MaxScanDepth)
	assert.Equal(t, "*/30 * * * *", cfg.Schedule.News)
	assert.Equal(t, "club", cfg.Calendars[0].ID)
	assert.Nil(t, cfg.BasicAuth)
	assert.Empty(t, cfg.Events.Artists)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/tekkin")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("ADMIN_USER", "admin")
	t.Setenv("ADMIN_PASSWORD", "secret")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "postgres://u:p@localhost/tekkin", cfg.Database.URL)
	assert.Equal(t, "sk_test", cfg.Stripe.SecretKey)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
	assert.False(t, cfg.CheckoutReady())
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env.local")
	require.NoError(t, os.WriteFile(envFile, []byte("IG_ACCESS_TOKEN=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("IG_ACCESS_TOKEN") })

	cfg, err := Load(filepath.Join(dir, "config.yaml"), envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Instagram.AccessToken)

	_, err = Load(filepath.Join(dir, "config.yaml"), filepath.Join(dir, "missing.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.Validate(PurposeHarvest)
		require.Error(t, err)
		assert.True(t, model.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})

	t.Run("memory driver needs no url", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Database.Driver = "memory"
		assert.NoError(t, cfg.Validate(PurposeServe))
		assert.Error(t, cfg.Validate(PurposeMigrate))
	})

	t.Run("bad fields", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Database.Driver = "memory"
		cfg.Timezone = "Mars/Olympus"
		cfg.News.Sources = append(cfg.News.Sources, NewsSource{Name: "x", URL: "not a url", Category: "gossip"})
		err := cfg.Validate(PurposeServe)
		require.Error(t, err)
		msg := err.Error()
		assert.Contains(t, msg, "timezone")
		assert.Contains(t, msg, "news.sources[6].url")
		assert.Contains(t, msg, "news.sources[6].category")
	})
}
