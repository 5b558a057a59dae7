package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "bidding.bid_ratio")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Has reports whether any error concerns the given field.
func (e ValidationErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// addressRegex accepts 0x-prefixed hex account addresses
var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// IsValidAddress reports whether s looks like an account address.
func IsValidAddress(s string) bool {
	return addressRegex.MatchString(s)
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidBackends returns the list of checkpoint backends
func ValidBackends() []string {
	return []string{BackendJSON, BackendSQLite}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePlatform()...)
	errors = append(errors, c.validateLedger()...)
	errors = append(errors, c.validateFeed()...)
	errors = append(errors, c.validateMonitor()...)
	errors = append(errors, c.validateBidding()...)
	errors = append(errors, c.validateCheckpoint()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validatePlatform checks the address format only. A missing address is
// reported by RequirePlatform so that read-only commands like
// `checkpoint show` still work without one.
func (c *Config) validatePlatform() []ValidationError {
	var errors []ValidationError

	if c.Platform.Address != "" && !IsValidAddress(c.Platform.Address) {
		errors = append(errors, ValidationError{
			Field:   "platform.address",
			Value:   c.Platform.Address,
			Message: "must be a 0x-prefixed hex address",
		})
	}
	if strings.TrimSpace(c.Platform.Module) == "" {
		errors = append(errors, ValidationError{
			Field:   "platform.module",
			Value:   c.Platform.Module,
			Message: "must not be empty",
		})
	}
	return errors
}

// RequirePlatform returns an error when no platform address is configured.
// Commands that talk to the registry call this before doing anything else.
func (c *Config) RequirePlatform() error {
	if strings.TrimSpace(c.Platform.Address) == "" {
		return ValidationErrors{{
			Field:   "platform.address",
			Value:   "",
			Message: "is required (set platform.address or PLATFORM_ADDRESS)",
		}}
	}
	return nil
}

func validateURL(field, raw string) []ValidationError {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []ValidationError{{
			Field:   field,
			Value:   raw,
			Message: "must be an absolute URL",
		}}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []ValidationError{{
			Field:   field,
			Value:   raw,
			Message: "scheme must be http or https",
		}}
	}
	return nil
}

func (c *Config) validateLedger() []ValidationError {
	errors := validateURL("ledger.node_url", c.Ledger.NodeURL)

	if c.Ledger.ConfirmTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "ledger.confirm_timeout_seconds",
			Value:   c.Ledger.ConfirmTimeoutSeconds,
			Message: "must be positive",
		})
	}
	return errors
}

func (c *Config) validateFeed() []ValidationError {
	errors := validateURL("feed.indexer_url", c.Feed.IndexerURL)

	const maxPageSize = 100
	if c.Feed.PageSize <= 0 || c.Feed.PageSize > maxPageSize {
		errors = append(errors, ValidationError{
			Field:   "feed.page_size",
			Value:   c.Feed.PageSize,
			Message: fmt.Sprintf("must be between 1 and %d", maxPageSize),
		})
	}
	if c.Feed.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "feed.timeout_seconds",
			Value:   c.Feed.TimeoutSeconds,
			Message: "must be positive",
		})
	}
	return errors
}

func (c *Config) validateMonitor() []ValidationError {
	var errors []ValidationError

	if c.Monitor.PollIntervalSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.poll_interval_seconds",
			Value:   c.Monitor.PollIntervalSeconds,
			Message: "must be positive",
		})
	}
	if c.Monitor.BatchPauseMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.batch_pause_ms",
			Value:   c.Monitor.BatchPauseMs,
			Message: "must be non-negative",
		})
	}
	if c.Monitor.ErrorBackoffSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.error_backoff_seconds",
			Value:   c.Monitor.ErrorBackoffSeconds,
			Message: "must be positive",
		})
	}
	if c.Monitor.MaxBackoffSeconds < c.Monitor.ErrorBackoffSeconds {
		errors = append(errors, ValidationError{
			Field:   "monitor.max_backoff_seconds",
			Value:   c.Monitor.MaxBackoffSeconds,
			Message: "must be at least monitor.error_backoff_seconds",
		})
	}
	if c.Monitor.Jitter < 0 || c.Monitor.Jitter > 1 {
		errors = append(errors, ValidationError{
			Field:   "monitor.jitter",
			Value:   c.Monitor.Jitter,
			Message: "must be between 0 and 1",
		})
	}
	return errors
}

func (c *Config) validateBidding() []ValidationError {
	var errors []ValidationError

	if c.Bidding.BidRatio <= 0 || c.Bidding.BidRatio > 1 {
		errors = append(errors, ValidationError{
			Field:   "bidding.bid_ratio",
			Value:   c.Bidding.BidRatio,
			Message: "must be in (0, 1]",
		})
	}
	if c.Bidding.ReputationScore < 0 || c.Bidding.ReputationScore > 100 {
		errors = append(errors, ValidationError{
			Field:   "bidding.reputation_score",
			Value:   c.Bidding.ReputationScore,
			Message: "must be between 0 and 100",
		})
	}
	return errors
}

func (c *Config) validateCheckpoint() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidBackends(), c.Checkpoint.Backend) {
		errors = append(errors, ValidationError{
			Field:   "checkpoint.backend",
			Value:   c.Checkpoint.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackends(), ", ")),
		})
	}
	if strings.TrimSpace(c.Checkpoint.Path) == "" {
		errors = append(errors, ValidationError{
			Field:   "checkpoint.path",
			Value:   c.Checkpoint.Path,
			Message: "must not be empty",
		})
	}
	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}
	return errors
}
