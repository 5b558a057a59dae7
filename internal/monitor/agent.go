package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/a2a-aptos/bidagent/internal/bidder"
	"github.com/a2a-aptos/bidagent/internal/checkpoint"
	"github.com/a2a-aptos/bidagent/internal/event"
	"github.com/a2a-aptos/bidagent/internal/feed"
	"github.com/a2a-aptos/bidagent/internal/logging"
	"github.com/a2a-aptos/bidagent/internal/retry"
)

// Submitter places a bid for one feed event. *bidder.Submitter implements it.
type Submitter interface {
	Submit(ctx context.Context, ev feed.Event) bidder.Result
}

// Stats counts what the agent has done since it started.
type Stats struct {
	Polls      int
	FeedErrors int
	Events     int
	Placed     int
	Duplicates int
	Resolved   int
	Skipped    int
	Failures   int
	Saves      int
}

// Snapshot is a point-in-time view of the agent.
type Snapshot struct {
	State  State
	Cursor uint64 // Last confirmed sequence number
	Saved  uint64 // Last sequence number known to be on disk
	Stats  Stats
}

// Agent polls the feed, bids on every announced task, and checkpoints the
// cursor after each confirmed action.
//
// The cursor only moves forward and only after the ledger has confirmed the
// bid (or confirmed it can never be placed). A crash between confirmation
// and checkpoint replays the event; the registry then reports a duplicate
// bid, which counts as success.
type Agent struct {
	feed     feed.Feed
	bidder   Submitter
	store    checkpoint.Store
	cfg      *config
	logger   *logging.Logger
	bus      *event.Bus
	tracker  *retry.Tracker
	feedWait *retry.Backoff
	bidWait  *retry.Backoff

	mu      sync.RWMutex
	state   State
	cursor  uint64
	loaded  uint64
	saved   uint64
	stats   Stats
	started bool

	shutdownOnce sync.Once

	// Start/Stop support.
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an Agent. All arguments must be non-nil.
func New(f feed.Feed, s Submitter, store checkpoint.Store, opts ...Option) *Agent {
	if f == nil {
		panic("monitor: feed must not be nil")
	}
	if s == nil {
		panic("monitor: submitter must not be nil")
	}
	if store == nil {
		panic("monitor: checkpoint store must not be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.pollInterval <= 0 {
		cfg.pollInterval = defaultPollInterval
	}
	if cfg.batchPause < 0 {
		cfg.batchPause = 0
	}
	if cfg.pageSize <= 0 {
		cfg.pageSize = defaultPageSize
	}
	if cfg.submitTimeout <= 0 {
		cfg.submitTimeout = defaultSubmitTimeout
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}

	feedPolicy := retry.Policy{Interval: cfg.pollInterval, Multiplier: 1}
	if cfg.feedPolicy != nil {
		feedPolicy = *cfg.feedPolicy
	}
	var backoffOpts []retry.BackoffOption
	if cfg.jitterSource != nil {
		backoffOpts = append(backoffOpts, retry.WithRand(cfg.jitterSource))
	}

	return &Agent{
		feed:     f,
		bidder:   s,
		store:    store,
		cfg:      cfg,
		logger:   cfg.logger.WithComponent("monitor"),
		bus:      cfg.bus,
		tracker:  retry.NewTracker(),
		feedWait: retry.NewBackoff(feedPolicy, backoffOpts...),
		bidWait:  retry.NewBackoff(cfg.submitPolicy, backoffOpts...),
		state:    StateIdle,
	}
}

// Run loads the checkpoint and processes the feed until ctx is cancelled.
// It persists the cursor one final time on the way out and returns nil on
// a clean shutdown. Run may be called only once per Agent.
func (a *Agent) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("monitor: already started")
	}
	a.started = true
	a.mu.Unlock()

	// A cancelled ctx must not read as an empty checkpoint: the final save
	// would then overwrite the real cursor with 0.
	cursor := a.store.Load(context.WithoutCancel(ctx))
	a.mu.Lock()
	a.cursor = cursor
	a.loaded = cursor
	a.saved = cursor
	a.mu.Unlock()

	a.logger.Info("monitor started",
		"cursor", cursor,
		"poll_interval", a.cfg.pollInterval,
		"page_size", a.cfg.pageSize,
	)

	defer a.shutdown()

	for ctx.Err() == nil {
		wait := a.tick(ctx)
		if wait > 0 {
			if err := retry.Wait(ctx, wait); err != nil {
				break
			}
		}
	}
	return nil
}

// tick runs one poll and, if it returned events, one batch. It returns how
// long to wait before the next tick.
func (a *Agent) tick(ctx context.Context) time.Duration {
	a.setState(StatePolling)
	defer a.setState(StateIdle)

	since := a.Cursor()
	events, err := a.feed.Query(ctx, since, a.cfg.pageSize)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		a.recordStats(func(s *Stats) { s.FeedErrors++ })
		a.bus.Publish(event.NewFeedErrorEvent(since, err))
		d := a.feedWait.Next()
		a.logger.Warn("feed query failed, treating as empty",
			"since", since, "error", err, "retry_in", d)
		return d
	}
	a.feedWait.Reset()
	a.recordStats(func(s *Stats) { s.Polls++ })
	a.bus.Publish(event.NewPollCompletedEvent(since, len(events)))

	if len(events) == 0 {
		a.logger.Debug("no new events", "since", since)
		return a.cfg.pollInterval
	}

	a.logger.Info("processing events", "since", since, "count", len(events))
	a.setState(StateProcessing)
	return a.processBatch(ctx, events)
}

// processBatch handles events in order. A transient failure stops the batch
// with the cursor left before the failed event, which is retried after the
// submission backoff.
func (a *Agent) processBatch(ctx context.Context, events []feed.Event) time.Duration {
	handled := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			return 0
		}
		if ev.SequenceNumber <= a.Cursor() {
			// Redelivered; already handled.
			continue
		}
		if handled > 0 && a.cfg.batchPause > 0 {
			if retry.Wait(ctx, a.cfg.batchPause) != nil {
				return 0
			}
		}

		handled++
		a.recordStats(func(s *Stats) { s.Events++ })
		res := a.submit(ctx, ev)

		if !res.Outcome.Advances() {
			attempt := a.tracker.RecordFailure(res.TaskID, ev.SequenceNumber, res.Err)
			d := a.bidWait.Next()
			a.recordStats(func(s *Stats) { s.Failures++ })
			a.bus.Publish(event.NewBidFailedEvent(ev.SequenceNumber, res.TaskID, attempt, res.Err, d))
			a.logger.Warn("submission failed, cursor held",
				"seq", ev.SequenceNumber,
				"task_id", res.TaskID,
				"attempt", attempt,
				"error", res.Err,
				"retry_in", d,
			)
			return d
		}

		a.bidWait.Reset()
		a.tracker.RecordSuccess(res.TaskID, ev.SequenceNumber)
		a.report(res)
		a.advance(ctx, ev.SequenceNumber)
	}
	if handled == 0 {
		return a.cfg.pollInterval
	}
	return 0
}

// submit runs one submission detached from ctx so that a shutdown signal
// does not abandon a transaction the ledger may already have accepted.
func (a *Agent) submit(ctx context.Context, ev feed.Event) bidder.Result {
	subCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.submitTimeout)
	defer cancel()
	return a.bidder.Submit(subCtx, ev)
}

func (a *Agent) report(res bidder.Result) {
	switch res.Outcome {
	case bidder.Placed:
		var hash string
		if res.Receipt != nil {
			hash = res.Receipt.TxHash
		}
		a.recordStats(func(s *Stats) { s.Placed++ })
		a.bus.Publish(event.NewBidPlacedEvent(res.Sequence, res.TaskID, res.Price, hash, false))
	case bidder.Duplicate:
		a.recordStats(func(s *Stats) { s.Duplicates++ })
		a.bus.Publish(event.NewBidPlacedEvent(res.Sequence, res.TaskID, res.Price, "", true))
	case bidder.Resolved:
		a.recordStats(func(s *Stats) { s.Resolved++ })
		a.bus.Publish(event.NewBidSkippedEvent(res.Sequence, res.TaskID, reason(res)))
	case bidder.Skipped:
		a.recordStats(func(s *Stats) { s.Skipped++ })
		a.bus.Publish(event.NewBidSkippedEvent(res.Sequence, res.TaskID, reason(res)))
	}
}

func reason(res bidder.Result) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	return res.Outcome.String()
}

// advance moves the cursor to seq and persists it. The cursor never moves
// backwards. A failed save is logged and retried by the next advance or the
// final shutdown save.
func (a *Agent) advance(ctx context.Context, seq uint64) {
	a.mu.Lock()
	if seq <= a.cursor {
		a.mu.Unlock()
		return
	}
	a.cursor = seq
	a.mu.Unlock()

	a.persist(context.WithoutCancel(ctx), seq, false)
	a.tracker.Forget(seq)
}

func (a *Agent) persist(ctx context.Context, seq uint64, final bool) {
	if err := a.store.Save(ctx, seq); err != nil {
		a.logger.Error("checkpoint save failed", "seq", seq, "final", final, "error", err)
		return
	}

	a.mu.Lock()
	if seq > a.saved || final {
		a.saved = seq
	}
	a.stats.Saves++
	a.mu.Unlock()

	a.logger.Debug("checkpoint saved", "seq", seq, "final", final)
	a.bus.Publish(event.NewCheckpointSavedEvent(seq, final))
}

// shutdown persists the cursor exactly once and stops the agent. The final
// save never writes below the cursor loaded at startup.
func (a *Agent) shutdown() {
	a.shutdownOnce.Do(func() {
		a.setState(StateShuttingDown)

		a.mu.RLock()
		cursor := max(a.cursor, a.loaded)
		a.mu.RUnlock()
		a.logger.Info("monitor shutting down", "cursor", cursor)
		a.persist(context.Background(), cursor, true)

		a.setState(StateStopped)
		a.logger.Info("monitor stopped", "cursor", cursor)
	})
}

func (a *Agent) setState(to State) {
	a.mu.Lock()
	from := a.state
	if from == to {
		a.mu.Unlock()
		return
	}
	if !CanTransition(from, to) {
		a.mu.Unlock()
		a.logger.Error("invalid state transition", "from", from.String(), "to", to.String())
		return
	}
	a.state = to
	a.mu.Unlock()

	a.logger.Debug("state changed", "from", from.String(), "to", to.String())
	a.bus.Publish(event.NewStateChangedEvent(from.String(), to.String()))
}

func (a *Agent) recordStats(fn func(*Stats)) {
	a.mu.Lock()
	fn(&a.stats)
	a.mu.Unlock()
}

// State returns the current state.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Cursor returns the last confirmed sequence number.
func (a *Agent) Cursor() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cursor
}

// Snapshot returns the agent's current state, cursor and counters.
func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		State:  a.state,
		Cursor: a.cursor,
		Saved:  a.saved,
		Stats:  a.stats,
	}
}

// PendingRetries returns the ids of tasks whose bids failed and have not
// yet succeeded.
func (a *Agent) PendingRetries() []string {
	return a.tracker.Pending()
}

// Start runs the agent in a background goroutine. Call Stop to shut down.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started || a.done != nil {
		a.mu.Unlock()
		return fmt.Errorf("monitor: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go func() {
		defer close(done)
		if err := a.Run(ctx); err != nil {
			a.logger.Error("monitor exited", "error", err)
		}
	}()
	return nil
}

// Stop cancels the agent started with Start and waits for it to finish,
// including any in-flight submission and the final checkpoint save. It is
// safe to call multiple times.
func (a *Agent) Stop() {
	a.mu.RLock()
	cancel, done := a.cancel, a.done
	a.mu.RUnlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
