package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete bidagent configuration
type Config struct {
	Platform   PlatformConfig   `mapstructure:"platform"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Bidding    BiddingConfig    `mapstructure:"bidding"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// PlatformConfig identifies the deployed bidding registry.
type PlatformConfig struct {
	// Address is the account that hosts the bidding_system module. Required.
	Address string `mapstructure:"address"`
	// Module is the Move module name (default: "bidding_system")
	Module string `mapstructure:"module"`
}

// LedgerConfig controls how transactions are submitted.
type LedgerConfig struct {
	// NodeURL is the REST endpoint of a full node
	NodeURL string `mapstructure:"node_url"`
	// APIKey is sent as a bearer token when set
	APIKey string `mapstructure:"api_key"`
	// Profile names the signing profile of the service agent (bids, complete)
	Profile string `mapstructure:"profile"`
	// CreatorProfile names the signing profile of the task creator (init,
	// publish, select-winner, cancel)
	CreatorProfile string `mapstructure:"creator_profile"`
	// ProfileFile overrides the credential file search path
	ProfileFile string `mapstructure:"profile_file"`
	// ConfirmTimeoutSeconds bounds the wait for a transaction to be committed
	ConfirmTimeoutSeconds int `mapstructure:"confirm_timeout_seconds"`
}

// FeedConfig controls the indexer event query.
type FeedConfig struct {
	// IndexerURL is the GraphQL endpoint
	IndexerURL string `mapstructure:"indexer_url"`
	// PageSize is the maximum number of events fetched per poll (default: 25)
	PageSize int `mapstructure:"page_size"`
	// TimeoutSeconds bounds one indexer request (default: 30)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// MonitorConfig controls the polling cadence of the agent.
type MonitorConfig struct {
	// PollIntervalSeconds is the wait between polls that found nothing (default: 30)
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	// BatchPauseMs is the pause between events within a batch (default: 2000)
	BatchPauseMs int `mapstructure:"batch_pause_ms"`
	// ErrorBackoffSeconds is the wait after a failure in the poll path (default: 10)
	ErrorBackoffSeconds int `mapstructure:"error_backoff_seconds"`
	// MaxBackoffSeconds caps repeated backoff growth (default: 60)
	MaxBackoffSeconds int `mapstructure:"max_backoff_seconds"`
	// Jitter is the random fraction (0..1) applied to backoff waits (default: 0)
	Jitter float64 `mapstructure:"jitter"`
}

// BiddingConfig is the fixed bidding strategy.
type BiddingConfig struct {
	// BidRatio is the fraction of max_budget offered, in (0, 1] (default: 0.8)
	BidRatio float64 `mapstructure:"bid_ratio"`
	// ReputationScore is sent with every bid, 0..100 (default: 90)
	ReputationScore int `mapstructure:"reputation_score"`
}

// CheckpointConfig selects where the monitor cursor lives.
type CheckpointConfig struct {
	// Backend is "json" (default) or "sqlite"
	Backend string `mapstructure:"backend"`
	// Path is the checkpoint file or database path (default: "monitor_state.json")
	Path string `mapstructure:"path"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for bidagent.log; empty logs to stderr
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Platform: PlatformConfig{
			Address: "",
			Module:  "bidding_system",
		},
		Ledger: LedgerConfig{
			NodeURL:               "https://fullnode.devnet.aptoslabs.com/v1",
			Profile:               "service_agent",
			CreatorProfile:        "personal_agent",
			ConfirmTimeoutSeconds: 60,
		},
		Feed: FeedConfig{
			IndexerURL:     "https://api.devnet.aptoslabs.com/v1/graphql",
			PageSize:       25,
			TimeoutSeconds: 30,
		},
		Monitor: MonitorConfig{
			PollIntervalSeconds: 30,
			BatchPauseMs:        2000,
			ErrorBackoffSeconds: 10,
			MaxBackoffSeconds:   60,
			Jitter:              0,
		},
		Bidding: BiddingConfig{
			BidRatio:        0.8,
			ReputationScore: 90,
		},
		Checkpoint: CheckpointConfig{
			Backend: BackendJSON,
			Path:    "monitor_state.json",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Checkpoint backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// PollInterval returns the idle poll interval as a time.Duration
func (c *MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// BatchPause returns the pause between events as a time.Duration
func (c *MonitorConfig) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseMs) * time.Millisecond
}

// ErrorBackoff returns the post-error wait as a time.Duration
func (c *MonitorConfig) ErrorBackoff() time.Duration {
	return time.Duration(c.ErrorBackoffSeconds) * time.Second
}

// MaxBackoff returns the backoff ceiling as a time.Duration
func (c *MonitorConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffSeconds) * time.Second
}

// Timeout returns the per-request indexer timeout
func (c *FeedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConfirmTimeout returns the confirmation wait bound
func (c *LedgerConfig) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutSeconds) * time.Second
}

// EventType returns the fully-qualified TaskPublishedEvent type string the
// indexer filters on.
func (c *PlatformConfig) EventType() string {
	return c.Address + "::" + c.Module + "::TaskPublishedEvent"
}

// legacyEnv maps the environment variables of the original deployment
// scripts onto config keys so existing .env files keep working.
var legacyEnv = map[string]string{
	"platform.address":              "PLATFORM_ADDRESS",
	"ledger.node_url":               "APTOS_NODE_URL",
	"feed.indexer_url":              "APTOS_INDEXER_URL",
	"ledger.profile":                "SERVICE_AGENT_PROFILE",
	"ledger.creator_profile":        "PERSONAL_AGENT_PROFILE",
	"monitor.poll_interval_seconds": "MONITOR_POLL_INTERVAL",
	"bidding.bid_ratio":             "BID_PRICE_RATIO",
	"bidding.reputation_score":      "SERVICE_AGENT_REPUTATION",
}

// SetDefaults registers default values with viper
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("platform.address", defaults.Platform.Address)
	v.SetDefault("platform.module", defaults.Platform.Module)

	v.SetDefault("ledger.node_url", defaults.Ledger.NodeURL)
	v.SetDefault("ledger.api_key", defaults.Ledger.APIKey)
	v.SetDefault("ledger.profile", defaults.Ledger.Profile)
	v.SetDefault("ledger.creator_profile", defaults.Ledger.CreatorProfile)
	v.SetDefault("ledger.profile_file", defaults.Ledger.ProfileFile)
	v.SetDefault("ledger.confirm_timeout_seconds", defaults.Ledger.ConfirmTimeoutSeconds)

	v.SetDefault("feed.indexer_url", defaults.Feed.IndexerURL)
	v.SetDefault("feed.page_size", defaults.Feed.PageSize)
	v.SetDefault("feed.timeout_seconds", defaults.Feed.TimeoutSeconds)

	v.SetDefault("monitor.poll_interval_seconds", defaults.Monitor.PollIntervalSeconds)
	v.SetDefault("monitor.batch_pause_ms", defaults.Monitor.BatchPauseMs)
	v.SetDefault("monitor.error_backoff_seconds", defaults.Monitor.ErrorBackoffSeconds)
	v.SetDefault("monitor.max_backoff_seconds", defaults.Monitor.MaxBackoffSeconds)
	v.SetDefault("monitor.jitter", defaults.Monitor.Jitter)

	v.SetDefault("bidding.bid_ratio", defaults.Bidding.BidRatio)
	v.SetDefault("bidding.reputation_score", defaults.Bidding.ReputationScore)

	v.SetDefault("checkpoint.backend", defaults.Checkpoint.Backend)
	v.SetDefault("checkpoint.path", defaults.Checkpoint.Path)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// BindEnv wires the BIDAGENT_ prefixed environment plus the legacy names.
func BindEnv() {
	viper.SetEnvPrefix("BIDAGENT")
	// e.g., BIDAGENT_BIDDING_BID_RATIO for bidding.bid_ratio
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, env := range legacyEnv {
		_ = viper.BindEnv(key, "BIDAGENT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load against an explicit viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bidagent")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bidagent"
	}
	return filepath.Join(home, ".config", "bidagent")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
