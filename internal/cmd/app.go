package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/a2a-aptos/bidagent/internal/config"
	"github.com/a2a-aptos/bidagent/internal/feed"
	"github.com/a2a-aptos/bidagent/internal/ledger"
	"github.com/a2a-aptos/bidagent/internal/logging"
	"github.com/a2a-aptos/bidagent/internal/registry"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// commandTimeout bounds a one-shot registry command, including the wait
// for the transaction to be committed.
const commandTimeout = 2 * time.Minute

// Constructors for the external collaborators. Tests replace these with
// in-memory implementations.
var (
	newRegistry = func(cfg *config.Config) registry.Registry {
		lc := ledger.NewRESTClient(cfg.Ledger.NodeURL,
			ledger.WithAPIKey(cfg.Ledger.APIKey),
			ledger.WithConfirmTimeout(cfg.Ledger.ConfirmTimeout()),
		)
		return registry.NewClient(lc, cfg.Platform.Address, cfg.Platform.Module)
	}

	loadSigner = func(cfg *config.Config, profile string) (ledger.Signer, error) {
		acct, err := ledger.LoadProfile(profile, cfg.Ledger.ProfileFile)
		if err != nil {
			return nil, err
		}
		return acct, nil
	}

	newFeed = func(cfg *config.Config) feed.Feed {
		return feed.NewGraphQLFeed(cfg.Feed.IndexerURL, cfg.Platform.Address, cfg.Platform.EventType(),
			feed.WithTimeout(cfg.Feed.Timeout()),
			feed.WithAPIKey(cfg.Ledger.APIKey),
		)
	}
)

// loadConfig reads and validates the merged configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.NewLoggerWithRotation(cfg.Logging.Dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}

// watchConfig re-applies the log level whenever the config file changes.
// Other settings take effect on the next start.
func watchConfig(logger *logging.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		level := viper.GetString("logging.level")
		logger.SetLevel(level)
		logger.Info("configuration reloaded", "file", e.Name, "op", e.Op.String(), "log_level", level)
	})
	viper.WatchConfig()
}

// session is what a registry command needs: the validated config, the
// registry and, for mutating commands, the signing account.
type session struct {
	cfg    *config.Config
	reg    registry.Registry
	signer ledger.Signer
}

// openSession loads the config and connects to the registry. When profile
// is non-empty the named signing profile is loaded as well.
func openSession(profile string) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequirePlatform(); err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, reg: newRegistry(cfg)}
	if profile != "" {
		signer, err := loadSigner(cfg, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %q: %w", profile, err)
		}
		s.signer = signer
	}
	return s, nil
}

// creatorProfile returns override, or the configured creator profile.
func creatorProfile(override string) string {
	if override != "" {
		return override
	}
	return viper.GetString("ledger.creator_profile")
}

// serviceProfile returns override, or the configured service agent profile.
func serviceProfile(override string) string {
	if override != "" {
		return override
	}
	return viper.GetString("ledger.profile")
}

func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}
