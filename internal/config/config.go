// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultFileStatePath   = "commit_timestamps.json"
	defaultSQLiteStatePath = "commit_timestamps.db"
	actionsRequestPause    = time.Second
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	GithubToken string `mapstructure:"GITHUB_TOKEN"`

	RepoLimit          int           `mapstructure:"REPO_LIMIT"`
	EarlyStopThreshold int           `mapstructure:"EARLY_STOP_THRESHOLD"`
	CacheRetention     time.Duration `mapstructure:"CACHE_RETENTION"`
	DefaultLookback    time.Duration `mapstructure:"DEFAULT_LOOKBACK"`
	RateLimitPolicy    string        `mapstructure:"RATE_LIMIT_POLICY"`
	ExcludeBots        bool          `mapstructure:"EXCLUDE_BOTS"`
	RepoSort           string        `mapstructure:"REPO_SORT"`
	RepoDirection      string        `mapstructure:"REPO_DIRECTION"`
	RequestPauseRaw    string        `mapstructure:"REQUEST_PAUSE"`
	RequestPause       time.Duration `mapstructure:"-"`
	SyncInterval       time.Duration `mapstructure:"SYNC_INTERVAL"`

	StateBackend  string `mapstructure:"STATE_BACKEND"`
	StatePath     string `mapstructure:"STATE_PATH"`
	DBURL         string `mapstructure:"DB_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	ReportsDir string `mapstructure:"REPORTS_DIR"`
	NoiseTopic string `mapstructure:"NOISE_TOPIC"`

	SummaryProvider    string `mapstructure:"SUMMARY_PROVIDER"`
	SummaryConcurrency int    `mapstructure:"SUMMARY_CONCURRENCY"`
	VertexProject      string `mapstructure:"VERTEX_PROJECT"`
	VertexLocation     string `mapstructure:"VERTEX_LOCATION"`
	VertexModel        string `mapstructure:"VERTEX_MODEL"`

	HTTPAddr  string `mapstructure:"HTTP_ADDR"`
	FeedDays  int    `mapstructure:"FEED_DAYS"`
	FeedTitle string `mapstructure:"FEED_TITLE"`
	FeedLink  string `mapstructure:"FEED_LINK"`

	GithubActions bool   `mapstructure:"GITHUB_ACTIONS"`
	GithubOutput  string `mapstructure:"GITHUB_OUTPUT"`
}

// flagKeys maps command-line flags to their configuration keys.
var flagKeys = map[string]string{
	"log-level":         "LOG_LEVEL",
	"repo-limit":        "REPO_LIMIT",
	"early-stop":        "EARLY_STOP_THRESHOLD",
	"rate-limit-policy": "RATE_LIMIT_POLICY",
	"state-backend":     "STATE_BACKEND",
	"state-path":        "STATE_PATH",
	"reports-dir":       "REPORTS_DIR",
	"summary-provider":  "SUMMARY_PROVIDER",
	"sync-interval":     "SYNC_INTERVAL",
	"http-addr":         "HTTP_ADDR",
}

// NewFlagSet declares the command-line flags that override configuration keys.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("env-file", ".env", "dotenv file to load before reading the environment")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Int("repo-limit", 0, "maximum number of starred repositories to check")
	fs.Int("early-stop", 0, "stop after this many consecutive repositories without new commits (<= 0 disables)")
	fs.String("rate-limit-policy", "", "what to do when rate limited (raise, wait)")
	fs.String("state-backend", "", "sync marker backend (file, sqlite, postgres, redis)")
	fs.String("state-path", "", "sync marker file for the file and sqlite backends")
	fs.String("reports-dir", "", "directory of the daily reports")
	fs.String("summary-provider", "", "summary provider (none, vertex)")
	fs.Duration("sync-interval", 0, "repeat runs at this interval (0 runs once)")
	fs.String("http-addr", "", "listen address of the read API")
	return fs
}

// LoadConfig reads configuration from the dotenv file, environment variables and the
// already parsed flags of fs, in increasing order of precedence. fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("REPO_LIMIT", 10)
	v.SetDefault("EARLY_STOP_THRESHOLD", 10)
	v.SetDefault("CACHE_RETENTION", "72h")
	v.SetDefault("DEFAULT_LOOKBACK", "72h")
	v.SetDefault("RATE_LIMIT_POLICY", "raise")
	v.SetDefault("EXCLUDE_BOTS", true)
	v.SetDefault("REPO_SORT", "updated")
	v.SetDefault("REPO_DIRECTION", "desc")
	v.SetDefault("REQUEST_PAUSE", "")
	v.SetDefault("SYNC_INTERVAL", "0s")
	v.SetDefault("STATE_BACKEND", "file")
	v.SetDefault("STATE_PATH", "")
	v.SetDefault("DB_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "starred-digest:")
	v.SetDefault("REPORTS_DIR", "reports")
	v.SetDefault("NOISE_TOPIC", "hacktoberfest")
	v.SetDefault("SUMMARY_PROVIDER", "none")
	v.SetDefault("SUMMARY_CONCURRENCY", 4)
	v.SetDefault("VERTEX_PROJECT", "")
	v.SetDefault("VERTEX_LOCATION", "us-central1")
	v.SetDefault("VERTEX_MODEL", "")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("FEED_DAYS", 7)
	v.SetDefault("FEED_TITLE", "")
	v.SetDefault("FEED_LINK", "")
	v.SetDefault("GITHUB_ACTIONS", false)
	v.SetDefault("GITHUB_OUTPUT", "")

	envFile := ".env"
	if fs != nil {
		if f := fs.Lookup("env-file"); f != nil && f.Value.String() != "" {
			envFile = f.Value.String()
		}
	}

	// Export the dotenv file so libraries reading the process environment see it too.
	// A missing file is not an error.
	_ = godotenv.Load(envFile)

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve fills the values derived from other keys.
func (c *Config) resolve() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.RateLimitPolicy = strings.ToLower(strings.TrimSpace(c.RateLimitPolicy))
	c.StateBackend = strings.ToLower(strings.TrimSpace(c.StateBackend))
	c.SummaryProvider = strings.ToLower(strings.TrimSpace(c.SummaryProvider))

	switch {
	case c.RequestPauseRaw != "":
		d, err := time.ParseDuration(c.RequestPauseRaw)
		if err != nil {
			return errors.New("REQUEST_PAUSE must be a duration (e.g. 1s)")
		}
		c.RequestPause = d
	case c.GithubActions:
		c.RequestPause = actionsRequestPause
	}

	if c.StatePath == "" {
		switch c.StateBackend {
		case "file":
			c.StatePath = defaultFileStatePath
		case "sqlite":
			c.StatePath = defaultSQLiteStatePath
		}
	}
	return nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(key, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value))
		}
	}

	oneOf("LOG_LEVEL", c.LogLevel, "debug", "info", "warn", "error")
	oneOf("RATE_LIMIT_POLICY", c.RateLimitPolicy, "raise", "wait")
	oneOf("REPO_SORT", c.RepoSort, "created", "updated")
	oneOf("REPO_DIRECTION", c.RepoDirection, "asc", "desc")
	oneOf("STATE_BACKEND", c.StateBackend, "file", "sqlite", "postgres", "redis")
	oneOf("SUMMARY_PROVIDER", c.SummaryProvider, "none", "vertex")

	if c.RepoLimit <= 0 {
		errs = append(errs, errors.New("REPO_LIMIT must be positive"))
	}
	if c.CacheRetention < 0 {
		errs = append(errs, errors.New("CACHE_RETENTION must not be negative"))
	}
	if c.DefaultLookback <= 0 {
		errs = append(errs, errors.New("DEFAULT_LOOKBACK must be positive"))
	}
	if c.RequestPause < 0 || c.SyncInterval < 0 {
		errs = append(errs, errors.New("REQUEST_PAUSE and SYNC_INTERVAL must not be negative"))
	}
	if c.StateBackend == "postgres" && c.DBURL == "" {
		errs = append(errs, errors.New("DB_URL is required by the postgres state backend"))
	}
	if c.StateBackend == "redis" && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required by the redis state backend"))
	}
	if c.SummaryProvider == "vertex" && (c.VertexProject == "" || c.VertexLocation == "") {
		errs = append(errs, errors.New("VERTEX_PROJECT and VERTEX_LOCATION are required by the vertex summary provider"))
	}
	if c.SummaryConcurrency <= 0 {
		errs = append(errs, errors.New("SUMMARY_CONCURRENCY must be positive"))
	}
	if c.FeedDays <= 0 {
		errs = append(errs, errors.New("FEED_DAYS must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateRun additionally requires what a sync run needs.
func (c *Config) ValidateRun() error {
	if c.GithubToken == "" {
		return errors.Join(errors.New("GITHUB_TOKEN is a required configuration field"), c.Validate())
	}
	return c.Validate()
}
