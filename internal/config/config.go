// Package config loads salesbot settings from flags, environment variables
// and an optional .env file. Flags override the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"salesbot/internal/reporting"
)

// Defaults.
const (
	DefaultPollLimit         = 10
	DefaultPollInterval      = 60 * time.Second
	DefaultAggregateInterval = time.Hour
	DefaultHTTPAddr          = ":8080"
	DefaultTimezone          = "UTC"
	MaxPollLimit             = 100
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all salesbot settings.
type Config struct {
	// Feed
	FeedBaseURL string
	FeedToken   string
	Groups      []int64
	PollLimit   int

	// Schedules
	PollInterval      time.Duration
	AggregateInterval time.Duration
	ReportInterval    time.Duration // 0 disables scheduled reports
	ReportKind        string

	// Alerts
	AlertThreshold int64
	WebhookURL     string
	RecipientID    string
	EnableAnomaly  bool

	// Storage
	PostgresDSN   string
	MySQLDSN      string
	ClickhouseDSN string // optional snapshot/anomaly mirror
	UseMemory     bool

	// HTTP
	HTTPAddr string
	Timezone string

	// Location is resolved from Timezone by Validate.
	Location *time.Location
}

// LoadDotEnv loads the given .env files (default ".env") into the environment.
// A missing file is not an error.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] Failed to load .env: %v", err)
	}
}

// Load reads .env, then parses args with environment-backed defaults.
func Load(args []string) (*Config, error) {
	LoadDotEnv()
	return Parse(args)
}

// Parse parses args into a Config. Environment variables provide flag defaults.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("salesbot", flag.ContinueOnError)
	cfg := &Config{}

	fs.StringVar(&cfg.FeedBaseURL, "feed-url", envString("FEED_BASE_URL", ""), "Transactions feed base URL")
	fs.StringVar(&cfg.FeedToken, "feed-token", envString("FEED_TOKEN", ""), "Transactions feed bearer token")
	groups := fs.String("groups", envString("GROUP_IDS", ""), "Comma-separated group ids to poll")
	fs.IntVar(&cfg.PollLimit, "poll-limit", envInt("POLL_LIMIT", DefaultPollLimit), "Transactions fetched per group per cycle")

	fs.DurationVar(&cfg.PollInterval, "poll-interval", envDuration("POLL_INTERVAL", DefaultPollInterval), "Feed poll interval")
	fs.DurationVar(&cfg.AggregateInterval, "aggregate-interval", envDuration("AGGREGATE_INTERVAL", DefaultAggregateInterval), "Snapshot aggregation interval")
	fs.DurationVar(&cfg.ReportInterval, "report-interval", envDuration("REPORT_INTERVAL", 0), "Scheduled report interval (0 disables)")
	fs.StringVar(&cfg.ReportKind, "report-kind", envString("REPORT_KIND", string(reporting.KindDaily)), "Scheduled report window: daily or weekly")

	fs.Int64Var(&cfg.AlertThreshold, "threshold", envInt64("ALERT_THRESHOLD", 0), "Minimum sale amount that triggers an alert")
	fs.StringVar(&cfg.WebhookURL, "webhook-url", envString("WEBHOOK_URL", ""), "Chat webhook URL for alerts")
	fs.StringVar(&cfg.RecipientID, "recipient", envString("ALERT_RECIPIENT_ID", ""), "User id mentioned in alerts")
	fs.BoolVar(&cfg.EnableAnomaly, "anomaly", envBool("ENABLE_ANOMALY", false), "Flag daily totals above MA7 + 2 sigma")

	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", envString("POSTGRES_DSN", ""), "PostgreSQL connection string")
	fs.StringVar(&cfg.MySQLDSN, "mysql-dsn", envString("MYSQL_DSN", ""), "MySQL connection string")
	fs.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", envString("CLICKHOUSE_DSN", ""), "ClickHouse connection string for the snapshot mirror")
	fs.BoolVar(&cfg.UseMemory, "use-memory", envBool("USE_MEMORY", false), "Use in-memory storage")

	fs.StringVar(&cfg.HTTPAddr, "http-addr", envString("HTTP_ADDR", DefaultHTTPAddr), "Dashboard and API listen address")
	fs.StringVar(&cfg.Timezone, "timezone", envString("TIMEZONE", DefaultTimezone), "IANA time zone for calendar days")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	ids, err := ParseGroups(*groups)
	if err != nil {
		return nil, err
	}
	cfg.Groups = ids
	return cfg, nil
}

// Validate checks required settings and resolves Location.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.FeedBaseURL == "" {
		add("--feed-url is required")
	}
	if len(c.Groups) == 0 {
		add("--groups is required")
	}
	if c.PollLimit < 1 || c.PollLimit > MaxPollLimit {
		add("--poll-limit must be between 1 and %d", MaxPollLimit)
	}
	if c.PollInterval <= 0 {
		add("--poll-interval must be positive")
	}
	if c.AggregateInterval <= 0 {
		add("--aggregate-interval must be positive")
	}
	if c.ReportInterval < 0 {
		add("--report-interval must not be negative")
	}
	if _, err := reporting.ParseKind(c.ReportKind); err != nil {
		add("--report-kind: %v", err)
	}
	if c.AlertThreshold < 0 {
		add("--threshold must not be negative")
	}
	if c.WebhookURL == "" {
		add("--webhook-url is required")
	}

	switch {
	case c.UseMemory:
	case c.PostgresDSN != "" && c.MySQLDSN != "":
		add("--postgres-dsn and --mysql-dsn are mutually exclusive")
	case c.PostgresDSN == "" && c.MySQLDSN == "":
		add("--postgres-dsn or --mysql-dsn is required (use --use-memory for in-memory storage)")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		add("--timezone %q: %v", c.Timezone, err)
	} else {
		c.Location = loc
	}

	return errors.Join(errs...)
}

// Backend names the selected record store: memory, postgres or mysql.
func (c *Config) Backend() string {
	switch {
	case c.UseMemory:
		return "memory"
	case c.MySQLDSN != "":
		return "mysql"
	default:
		return "postgres"
	}
}

// ParseGroups parses a comma-separated list of positive group ids.
func ParseGroups(s string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: group id %q", ErrInvalidConfig, part)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
