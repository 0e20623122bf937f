package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validArgs() []string {
	return []string{
		"--feed-url", "https://feed.example.com",
		"--groups", "1, 2,2",
		"--webhook-url", "https://chat.example.com/hook",
		"--use-memory",
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(validArgs())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []int64{1, 2}, cfg.Groups)
	assert.Equal(t, DefaultPollLimit, cfg.PollLimit)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultAggregateInterval, cfg.AggregateInterval)
	assert.Equal(t, time.Duration(0), cfg.ReportInterval)
	assert.Equal(t, "daily", cfg.ReportKind)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "memory", cfg.Backend())
}

func TestParse_EnvironmentDefaults(t *testing.T) {
	t.Setenv("FEED_BASE_URL", "https://env.example.com")
	t.Setenv("GROUP_IDS", "42")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("ALERT_THRESHOLD", "500")
	t.Setenv("ENABLE_ANOMALY", "true")
	t.Setenv("TIMEZONE", "Europe/Berlin")

	cfg, err := Parse([]string{"--poll-interval", "2m"})
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.FeedBaseURL)
	assert.Equal(t, []int64{42}, cfg.Groups)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval, "flag overrides env")
	assert.Equal(t, int64(500), cfg.AlertThreshold)
	assert.True(t, cfg.EnableAnomaly)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
}

func TestParse_InvalidGroup(t *testing.T) {
	_, err := Parse([]string{"--groups", "1,abc"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Parse([]string{"--groups", "0"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing feed", func(c *Config) { c.FeedBaseURL = "" }, "--feed-url"},
		{"no groups", func(c *Config) { c.Groups = nil }, "--groups"},
		{"limit too large", func(c *Config) { c.PollLimit = MaxPollLimit + 1 }, "--poll-limit"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "--poll-interval"},
		{"bad report kind", func(c *Config) { c.ReportKind = "monthly" }, "--report-kind"},
		{"negative threshold", func(c *Config) { c.AlertThreshold = -1 }, "--threshold"},
		{"missing webhook", func(c *Config) { c.WebhookURL = "" }, "--webhook-url"},
		{"no store", func(c *Config) { c.UseMemory = false }, "--use-memory"},
		{"two stores", func(c *Config) {
			c.UseMemory = false
			c.PostgresDSN = "postgres://x"
			c.MySQLDSN = "root@tcp(x)/db"
		}, "mutually exclusive"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "--timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(validArgs())
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBackend(t *testing.T) {
	assert.Equal(t, "postgres", (&Config{PostgresDSN: "postgres://x"}).Backend())
	assert.Equal(t, "mysql", (&Config{MySQLDSN: "root@tcp(x)/db"}).Backend())
	assert.Equal(t, "memory", (&Config{UseMemory: true, PostgresDSN: "postgres://x"}).Backend())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SALESBOT_TEST_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SALESBOT_TEST_KEY") })

	LoadDotEnv(path)
	assert.Equal(t, "from-file", os.Getenv("SALESBOT_TEST_KEY"))

	// Missing files are ignored.
	LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
}
