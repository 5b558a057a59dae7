package monitor

import (
	"time"

	"github.com/a2a-aptos/bidagent/internal/event"
	"github.com/a2a-aptos/bidagent/internal/logging"
	"github.com/a2a-aptos/bidagent/internal/retry"
)

const (
	defaultPollInterval  = 30 * time.Second
	defaultBatchPause    = 2 * time.Second
	defaultPageSize      = 25
	defaultSubmitTimeout = 90 * time.Second
)

// Option configures an Agent.
type Option func(*config)

type config struct {
	pollInterval  time.Duration
	batchPause    time.Duration
	pageSize      int
	feedPolicy    *retry.Policy
	submitPolicy  retry.Policy
	submitTimeout time.Duration
	jitterSource  func() float64
	logger        *logging.Logger
	bus           *event.Bus
}

func defaultConfig() *config {
	return &config{
		pollInterval: defaultPollInterval,
		batchPause:   defaultBatchPause,
		pageSize:     defaultPageSize,
		submitPolicy: retry.Policy{
			Interval:   10 * time.Second,
			Max:        60 * time.Second,
			Multiplier: 2,
		},
		submitTimeout: defaultSubmitTimeout,
		logger:        logging.NopLogger(),
	}
}

// WithPollInterval sets the wait after a poll that found nothing.
// A zero or negative value is replaced with the default (30s).
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollInterval = d
	}
}

// WithBatchPause sets the pause between events of one batch.
func WithBatchPause(d time.Duration) Option {
	return func(c *config) {
		c.batchPause = d
	}
}

// WithPageSize sets the maximum number of events fetched per poll.
func WithPageSize(n int) Option {
	return func(c *config) {
		c.pageSize = n
	}
}

// WithFeedBackoff sets the policy applied after failed feed queries. By
// default feed errors keep the normal poll cadence.
func WithFeedBackoff(p retry.Policy) Option {
	return func(c *config) {
		c.feedPolicy = &p
	}
}

// WithSubmitBackoff sets the policy applied after failed submissions.
func WithSubmitBackoff(p retry.Policy) Option {
	return func(c *config) {
		c.submitPolicy = p
	}
}

// WithSubmitTimeout bounds one submission, including the confirmation
// wait. A submission in flight when shutdown starts runs to completion or
// until this timeout.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *config) {
		c.submitTimeout = d
	}
}

// WithJitterSource overrides the random source used for backoff jitter.
func WithJitterSource(fn func() float64) Option {
	return func(c *config) {
		c.jitterSource = fn
	}
}

// WithLogger sets the logger for the agent.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithBus sets the bus lifecycle events are published on.
func WithBus(bus *event.Bus) Option {
	return func(c *config) {
		c.bus = bus
	}
}
