package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/a2a-aptos/bidagent/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify bidagent configuration",
	Long: `View or modify bidagent configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  bidagent config set platform.address 0x1f3a...
  bidagent config set bidding.bid_ratio 0.75
  bidagent config set checkpoint.backend sqlite

Run 'bidagent config show' to see every key and its current value.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/bidagent/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// settableKeys maps every key accepted by 'config set' to its value kind.
var settableKeys = map[string]string{
	"platform.address":               "string",
	"platform.module":                "string",
	"ledger.node_url":                "string",
	"ledger.profile":                 "string",
	"ledger.creator_profile":         "string",
	"ledger.profile_file":            "string",
	"ledger.confirm_timeout_seconds": "int",
	"feed.indexer_url":               "string",
	"feed.page_size":                 "int",
	"feed.timeout_seconds":           "int",
	"monitor.poll_interval_seconds":  "int",
	"monitor.batch_pause_ms":         "int",
	"monitor.error_backoff_seconds":  "int",
	"monitor.max_backoff_seconds":    "int",
	"monitor.jitter":                 "float",
	"bidding.bid_ratio":              "float",
	"bidding.reputation_score":       "int",
	"checkpoint.backend":             "string",
	"checkpoint.path":                "string",
	"logging.level":                  "string",
	"logging.dir":                    "string",
	"logging.max_size_mb":            "int",
	"logging.max_backups":            "int",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "platform:")
	fmt.Fprintf(out, "  address: %s\n", cfg.Platform.Address)
	fmt.Fprintf(out, "  module: %s\n", cfg.Platform.Module)

	fmt.Fprintln(out, "ledger:")
	fmt.Fprintf(out, "  node_url: %s\n", cfg.Ledger.NodeURL)
	fmt.Fprintf(out, "  api_key: %s\n", redact(cfg.Ledger.APIKey))
	fmt.Fprintf(out, "  profile: %s\n", cfg.Ledger.Profile)
	fmt.Fprintf(out, "  creator_profile: %s\n", cfg.Ledger.CreatorProfile)
	fmt.Fprintf(out, "  profile_file: %s\n", cfg.Ledger.ProfileFile)
	fmt.Fprintf(out, "  confirm_timeout_seconds: %d\n", cfg.Ledger.ConfirmTimeoutSeconds)

	fmt.Fprintln(out, "feed:")
	fmt.Fprintf(out, "  indexer_url: %s\n", cfg.Feed.IndexerURL)
	fmt.Fprintf(out, "  page_size: %d\n", cfg.Feed.PageSize)
	fmt.Fprintf(out, "  timeout_seconds: %d\n", cfg.Feed.TimeoutSeconds)

	fmt.Fprintln(out, "monitor:")
	fmt.Fprintf(out, "  poll_interval_seconds: %d\n", cfg.Monitor.PollIntervalSeconds)
	fmt.Fprintf(out, "  batch_pause_ms: %d\n", cfg.Monitor.BatchPauseMs)
	fmt.Fprintf(out, "  error_backoff_seconds: %d\n", cfg.Monitor.ErrorBackoffSeconds)
	fmt.Fprintf(out, "  max_backoff_seconds: %d\n", cfg.Monitor.MaxBackoffSeconds)
	fmt.Fprintf(out, "  jitter: %g\n", cfg.Monitor.Jitter)

	fmt.Fprintln(out, "bidding:")
	fmt.Fprintf(out, "  bid_ratio: %g\n", cfg.Bidding.BidRatio)
	fmt.Fprintf(out, "  reputation_score: %d\n", cfg.Bidding.ReputationScore)

	fmt.Fprintln(out, "checkpoint:")
	fmt.Fprintf(out, "  backend: %s\n", cfg.Checkpoint.Backend)
	fmt.Fprintf(out, "  path: %s\n", cfg.Checkpoint.Path)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.Dir)
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)

	return nil
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := settableKeys[key]
	if !ok {
		keys := make([]string, 0, len(settableKeys))
		for k := range settableKeys {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return fmt.Errorf("unknown configuration key: %s\nValid keys:\n  %s", key, strings.Join(keys, "\n  "))
	}

	var typedValue any
	switch keyType {
	case "string":
		typedValue = value
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = intVal
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected a number", key)
		}
		typedValue = f
	}

	// Reject values the loader would refuse before anything is written
	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

// defaultConfigContent is written by 'config init'.
const defaultConfigContent = `# bidagent configuration

platform:
  # Account that hosts the bidding_system module (required)
  address: ""
  module: bidding_system

ledger:
  node_url: https://fullnode.devnet.aptoslabs.com/v1
  # Signing profiles from .aptos/config.yaml
  profile: service_agent
  creator_profile: personal_agent
  # profile_file: /path/to/.aptos/config.yaml
  confirm_timeout_seconds: 60

feed:
  indexer_url: https://api.devnet.aptoslabs.com/v1/graphql
  # Maximum events fetched per poll
  page_size: 25
  timeout_seconds: 30

monitor:
  # Wait between polls that find no new events
  poll_interval_seconds: 30
  # Pause between events of one batch
  batch_pause_ms: 2000
  # Backoff after a failed bid: starts here, doubles up to max
  error_backoff_seconds: 10
  max_backoff_seconds: 60
  # Random spread applied to backoff waits (0..1)
  jitter: 0

bidding:
  # Fraction of max_budget offered, in (0, 1]
  bid_ratio: 0.8
  # Reputation score sent with every bid (0-100)
  reputation_score: 90

checkpoint:
  # json or sqlite
  backend: json
  path: monitor_state.json

logging:
  # debug, info, warn or error
  level: info
  # Directory for bidagent.log; empty logs to stderr
  dir: ""
  max_size_mb: 10
  max_backups: 3
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'bidagent config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Set platform.address before running any registry command.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: BIDAGENT_* (e.g., BIDAGENT_BIDDING_BID_RATIO)")
	fmt.Fprintln(out, "Legacy names are also read: PLATFORM_ADDRESS, APTOS_NODE_URL, SERVICE_AGENT_PROFILE, ...")

	return nil
}
