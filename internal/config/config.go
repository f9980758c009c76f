// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Runs      RunsConfig      `mapstructure:"runs"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// RunsConfig sets the defaults applied when a start request leaves a
// knob unset.
type RunsConfig struct {
	SlotCount    int    `mapstructure:"slot_count"`
	Mode         string `mapstructure:"mode"`
	Reuse        string `mapstructure:"reuse"`
	Rerun        bool   `mapstructure:"rerun"`
	RerunDelayMs int    `mapstructure:"rerun_delay_ms"`
	Shuffle      bool   `mapstructure:"shuffle"`
}

// FetchConfig configures the direct HTTP delivery client.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// HeadlessConfig configures the headless browser subsystem.
type HeadlessConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	MaxParallel   int    `mapstructure:"max_parallel"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	SentinelTitle string `mapstructure:"sentinel_title"`
	UserAgent     string `mapstructure:"user_agent"`
}

// TemplatesConfig points at the remote template collections.
type TemplatesConfig struct {
	GeneralURL     string `mapstructure:"general_url"`
	VideoURL       string `mapstructure:"video_url"`
	ProxyURL       string `mapstructure:"proxy_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StorageConfig selects and configures the blob backend used for exports.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	LocalDir    string `mapstructure:"local_dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// DBConfig controls access to the relational database. An empty DSN
// disables persistence.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	OutcomeTable string `mapstructure:"outcome_table"`
	RunTable     string `mapstructure:"run_table"`
}

// PubSubConfig holds metadata for run-summary notifications. An empty
// project disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ScheduleConfig defines cron-driven runs. Each entry starts a run with
// the given URL on the given cron expression.
type ScheduleConfig struct {
	Entries []ScheduleEntry `mapstructure:"entries"`
}

// ScheduleEntry is one cron-driven run definition.
type ScheduleEntry struct {
	Cron string `mapstructure:"cron"`
	URL  string `mapstructure:"url"`
	Mode string `mapstructure:"mode"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LINKFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("runs.slot_count", 5)
	v.SetDefault("runs.mode", "frame")
	v.SetDefault("runs.reuse", "fresh")
	v.SetDefault("runs.rerun", false)
	v.SetDefault("runs.rerun_delay_ms", 500)
	v.SetDefault("runs.shuffle", true)
	v.SetDefault("fetch.timeout_seconds", 5)
	v.SetDefault("fetch.user_agent", "linkforge/0.1")
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.max_parallel", 5)
	v.SetDefault("headless.nav_timeout_seconds", 8)
	v.SetDefault("headless.sentinel_title", "welcome to nginx")
	v.SetDefault("templates.timeout_seconds", 10)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "exports")
	v.SetDefault("storage.prefix", "exports")
	v.SetDefault("storage.content_type", "text/plain; charset=utf-8")
	v.SetDefault("db.max_open_conns", 4)
	v.SetDefault("db.outcome_table", "delivery_outcomes")
	v.SetDefault("db.run_table", "runs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Runs.SlotCount <= 0 {
		return fmt.Errorf("runs.slot_count must be > 0")
	}
	if c.Runs.RerunDelayMs < 0 {
		return fmt.Errorf("runs.rerun_delay_ms must be >= 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Backend {
	case "local", "gcs", "memory":
	default:
		return fmt.Errorf("storage.backend must be one of local, gcs, memory")
	}
	if c.Storage.Backend == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
	}
	for i, e := range c.Schedule.Entries {
		if e.Cron == "" || e.URL == "" {
			return fmt.Errorf("schedule.entries[%d]: cron and url are required", i)
		}
	}
	return nil
}

// RerunDelay converts the configured rerun delay into a duration.
func (c Config) RerunDelay() time.Duration {
	return time.Duration(c.Runs.RerunDelayMs) * time.Millisecond
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// NavTimeout converts the headless navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}
