// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Browser BrowserConfig `mapstructure:"browser"`
	Explore ExploreConfig `mapstructure:"explore"`
	Hashtag HashtagConfig `mapstructure:"hashtag"`
	Workers WorkerConfig  `mapstructure:"workers"`
	DB      DBConfig      `mapstructure:"db"`
	Ops     OpsConfig     `mapstructure:"ops"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BrowserConfig controls the underlying chromedp sessions.
type BrowserConfig struct {
	Headless          bool   `mapstructure:"headless"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	NetworkLogDepth   int    `mapstructure:"network_log_depth"`
}

// ExploreConfig tunes the explore-feed collection phase.
type ExploreConfig struct {
	CheckBudget         int     `mapstructure:"check_budget"`
	PollIntervalSeconds float64 `mapstructure:"poll_interval_seconds"`
	ScrollCount         int     `mapstructure:"scroll_count"`
	ScrollWaitSeconds   float64 `mapstructure:"scroll_wait_seconds"`
	CategoryWaitSeconds float64 `mapstructure:"category_wait_seconds"`
	NoDataPenalty       int     `mapstructure:"no_data_penalty"`
}

// HashtagConfig tunes the per-hashtag detail phase.
type HashtagConfig struct {
	CheckBudget         int     `mapstructure:"check_budget"`
	PollIntervalSeconds float64 `mapstructure:"poll_interval_seconds"`
}

// WorkerConfig governs the session pool and its lifecycle policy.
type WorkerConfig struct {
	PoolSize              int     `mapstructure:"pool_size"`
	QueueDepth            int     `mapstructure:"queue_depth"`
	MaxRequestsPerSession int     `mapstructure:"max_requests_per_session"`
	RestartDelaySeconds   float64 `mapstructure:"restart_delay_seconds"`
	SleepMinSeconds       float64 `mapstructure:"sleep_min_seconds"`
	SleepMaxSeconds       float64 `mapstructure:"sleep_max_seconds"`
	NavRPS                float64 `mapstructure:"nav_rps"`
	RequeueOnFailure      bool    `mapstructure:"requeue_on_failure"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// OpsConfig configures the sidecar HTTP server for health and metrics.
type OpsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRENDTAP")
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
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.network_log_depth", 512)
	v.SetDefault("explore.check_budget", 5)
	v.SetDefault("explore.poll_interval_seconds", 5)
	v.SetDefault("explore.scroll_count", 10)
	v.SetDefault("explore.scroll_wait_seconds", 5)
	v.SetDefault("explore.category_wait_seconds", 5)
	v.SetDefault("explore.no_data_penalty", 5)
	v.SetDefault("hashtag.check_budget", 10)
	v.SetDefault("hashtag.poll_interval_seconds", 1.5)
	v.SetDefault("workers.pool_size", 5)
	v.SetDefault("workers.queue_depth", 256)
	v.SetDefault("workers.max_requests_per_session", 100)
	v.SetDefault("workers.restart_delay_seconds", 4)
	v.SetDefault("workers.sleep_min_seconds", 0)
	v.SetDefault("workers.sleep_max_seconds", 3)
	v.SetDefault("workers.nav_rps", 0)
	v.SetDefault("workers.requeue_on_failure", false)
	v.SetDefault("ops.enabled", true)
	v.SetDefault("ops.port", 9090)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Workers.PoolSize <= 0 {
		return fmt.Errorf("workers.pool_size must be > 0")
	}
	if c.Workers.QueueDepth <= 0 {
		return fmt.Errorf("workers.queue_depth must be > 0")
	}
	if c.Workers.MaxRequestsPerSession <= 0 {
		return fmt.Errorf("workers.max_requests_per_session must be > 0")
	}
	if c.Workers.SleepMaxSeconds < c.Workers.SleepMinSeconds {
		return fmt.Errorf("workers.sleep_max_seconds must be >= workers.sleep_min_seconds")
	}
	if c.Explore.CheckBudget <= 0 || c.Hashtag.CheckBudget <= 0 {
		return fmt.Errorf("check_budget must be > 0 for both phases")
	}
	if c.Explore.PollIntervalSeconds <= 0 || c.Hashtag.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be > 0 for both phases")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.Ops.Enabled && c.Ops.Port <= 0 {
		return fmt.Errorf("ops.port must be > 0 when the ops server is enabled")
	}
	return nil
}

// NavTimeout returns the per-navigation deadline as a duration.
func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

// PollInterval returns the explore-phase poll cadence as a duration.
func (c ExploreConfig) PollInterval() time.Duration {
	return secondsToDuration(c.PollIntervalSeconds)
}

// ScrollWait returns the pause after each scroll as a duration.
func (c ExploreConfig) ScrollWait() time.Duration {
	return secondsToDuration(c.ScrollWaitSeconds)
}

// CategoryWait returns the pause after clicking a category as a duration.
func (c ExploreConfig) CategoryWait() time.Duration {
	return secondsToDuration(c.CategoryWaitSeconds)
}

// PollInterval returns the detail-phase poll cadence as a duration.
func (c HashtagConfig) PollInterval() time.Duration {
	return secondsToDuration(c.PollIntervalSeconds)
}

// RestartDelay returns the pause between disposing and reacquiring a session.
func (c WorkerConfig) RestartDelay() time.Duration {
	return secondsToDuration(c.RestartDelaySeconds)
}

// SleepBounds returns the random pacing interval applied after navigations.
func (c WorkerConfig) SleepBounds() (time.Duration, time.Duration) {
	return secondsToDuration(c.SleepMinSeconds), secondsToDuration(c.SleepMaxSeconds)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
