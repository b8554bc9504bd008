package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUTCOffset(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"+01:00", time.Hour},
		{"-05:30", -(5*time.Hour + 30*time.Minute)},
		{"+0930", 9*time.Hour + 30*time.Minute},
		{"2", 2 * time.Hour},
		{"Z", 0},
		{"UTC", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUTCOffset(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		for _, in := range []string{"+ab:00", "+01:75", "+15:00", "+"} {
			_, err := ParseUTCOffset(in)
			assert.Error(t, err, in)
		}
	})
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Instagram.ClientID = "client"
	cfg.Instagram.ClientSecret = "secret"
	cfg.Session.Secret = "0123456789abcdef0123"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Run("defaults with credentials are valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("missing client id", func(t *testing.T) {
		cfg := validConfig()
		cfg.Instagram.ClientID = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ClientID")
	})

	t.Run("short session secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.Session.Secret = "short"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad offset", func(t *testing.T) {
		cfg := validConfig()
		cfg.Calendar.UTCOffset = "+99:00"
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive drain timeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Feed.DrainTimeout = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	path := filepath.Join(dir, "config.yaml")
	yamlData := `
server_address: ":8080"
instagram:
  client_id: from-file
  client_secret: file-secret
calendar:
  utc_offset: "+02:00"
feed:
  drain_timeout: 45s
  request_timeout: 10s
session:
  secret: file-session-secret-value
  duration_hours: 12
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("THREESIXTYFIVE_CLIENT_ID", "from-env")
	t.Setenv("FEED_DRAIN_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "from-env", cfg.Instagram.ClientID)
	assert.Equal(t, "file-secret", cfg.Instagram.ClientSecret)
	assert.Equal(t, 90*time.Second, cfg.Feed.DrainTimeout)
	assert.Equal(t, 10*time.Second, cfg.Feed.RequestTimeout)
	assert.Equal(t, 12, cfg.Session.DurationHours)
	assert.Equal(t, "https://api.instagram.com/v1", cfg.Instagram.APIBaseURL)

	offset, err := cfg.Offset()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, offset)
	assert.False(t, cfg.UsePostgres())
}

func TestLoadInvalidDrainTimeout(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("FEED_DRAIN_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
