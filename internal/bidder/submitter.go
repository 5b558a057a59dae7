// Package bidder turns TaskPublished events into bids.
//
// The price is a fixed fraction of the task budget and the reputation score
// is constant, so two agents with the same configuration always produce the
// same bid for the same task. Submission results are classified into an
// [Outcome] that tells the monitor whether the cursor may advance.
package bidder

import (
	"context"
	"time"

	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/feed"
	"github.com/a2a-aptos/bidagent/internal/ledger"
	"github.com/a2a-aptos/bidagent/internal/logging"
	"github.com/a2a-aptos/bidagent/internal/registry"
	"github.com/a2a-aptos/bidagent/internal/task"
)

// Strategy is the fixed bidding strategy.
type Strategy struct {
	Ratio      float64
	Reputation uint8
}

// DefaultStrategy bids 80% of budget with reputation 90.
var DefaultStrategy = Strategy{Ratio: 0.8, Reputation: 90}

// Result describes one bid attempt.
type Result struct {
	Outcome  Outcome
	Sequence uint64
	TaskID   string
	Price    uint64
	Receipt  *registry.Receipt
	Err      error
	Elapsed  time.Duration
}

// Submitter places bids through a Registry.
type Submitter struct {
	registry registry.Registry
	signer   ledger.Signer
	strategy Strategy
	logger   *logging.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithStrategy sets the bidding strategy.
func WithStrategy(s Strategy) Option {
	return func(b *Submitter) {
		b.strategy = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Submitter) {
		b.logger = l
	}
}

// NewSubmitter creates a Submitter that signs bids with signer.
func NewSubmitter(reg registry.Registry, signer ledger.Signer, opts ...Option) *Submitter {
	s := &Submitter{
		registry: reg,
		signer:   signer,
		strategy: DefaultStrategy,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("bidder")
	return s
}

// Strategy returns the configured strategy.
func (s *Submitter) Strategy() Strategy {
	return s.strategy
}

// Bidder returns the address bids are placed from.
func (s *Submitter) Bidder() string {
	return s.signer.Address()
}

// Submit decodes ev and places a bid on the announced task. It never
// returns an error directly; the Result carries the classification.
func (s *Submitter) Submit(ctx context.Context, ev feed.Event) Result {
	start := time.Now()
	res := Result{Sequence: ev.SequenceNumber}

	published, err := feed.DecodeTaskPublished(ev)
	if err != nil {
		res.Outcome = Skipped
		res.Err = err
		s.logger.Warn("skipping malformed event", "seq", ev.SequenceNumber, "error", err)
		return res
	}
	res.TaskID = published.TaskID
	res.Price = ComputePrice(published.MaxBudget, s.strategy.Ratio)

	log := s.logger.WithTask(published.TaskID).With("seq", ev.SequenceNumber)

	if err := task.ValidateBid(published.TaskID, res.Price, int(s.strategy.Reputation)); err != nil {
		res.Outcome = Skipped
		res.Err = err
		log.Warn("skipping task with unbiddable parameters", "max_budget", published.MaxBudget, "error", err)
		return res
	}

	log.Info("placing bid",
		"max_budget", published.MaxBudget,
		"price", res.Price,
		"reputation", s.strategy.Reputation,
	)

	receipt, err := s.registry.PlaceBid(ctx, s.signer, registry.BidRequest{
		TaskID:          published.TaskID,
		Price:           res.Price,
		ReputationScore: s.strategy.Reputation,
	})
	res.Elapsed = time.Since(start)
	res.Receipt = receipt
	res.Err = err
	res.Outcome = Classify(err)

	switch res.Outcome {
	case Placed:
		if receipt != nil {
			log = log.With("tx", receipt.TxHash, "version", receipt.Version)
		}
		log.Info("bid placed", "elapsed", res.Elapsed)
	case Duplicate:
		log.Info("bid already on ledger", "error", err)
	case Resolved:
		log.Info("task no longer open", "error", err)
	case Skipped:
		log.Warn("bid rejected permanently", "error", err)
	default:
		log.Error("bid submission failed", "error", err, "retryable", errors.IsRetryable(err))
	}
	return res
}
