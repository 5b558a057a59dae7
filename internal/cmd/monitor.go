package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/a2a-aptos/bidagent/internal/bidder"
	"github.com/a2a-aptos/bidagent/internal/checkpoint"
	"github.com/a2a-aptos/bidagent/internal/config"
	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/event"
	"github.com/a2a-aptos/bidagent/internal/monitor"
	"github.com/a2a-aptos/bidagent/internal/retry"
	"github.com/a2a-aptos/bidagent/internal/task"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch for new tasks and bid on them automatically",
	Long: `Run the bidding agent. It polls the indexer for TaskPublished events,
bids bid_ratio × max_budget on each new task, and saves the sequence number
of every handled event to the checkpoint so a restart resumes where it left
off.

The agent stops on SIGINT or SIGTERM. A bid already in flight is allowed to
finish and the checkpoint is written once more before exit.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

var monitorProfile string

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringVar(&monitorProfile, "profile", "", "signing profile (default: ledger.profile)")
	monitorCmd.Flags().Int("poll-interval", 0, "seconds between polls that find nothing (overrides monitor.poll_interval_seconds)")
	monitorCmd.Flags().String("checkpoint", "", "checkpoint path (overrides checkpoint.path)")
	_ = viper.BindPFlag("monitor.poll_interval_seconds", monitorCmd.Flags().Lookup("poll-interval"))
	_ = viper.BindPFlag("checkpoint.path", monitorCmd.Flags().Lookup("checkpoint"))
}

// agentOptions translates the monitor and feed settings into agent options.
func agentOptions(cfg *config.Config) []monitor.Option {
	return []monitor.Option{
		monitor.WithPollInterval(cfg.Monitor.PollInterval()),
		monitor.WithBatchPause(cfg.Monitor.BatchPause()),
		monitor.WithPageSize(cfg.Feed.PageSize),
		monitor.WithSubmitBackoff(retry.Policy{
			Interval:   cfg.Monitor.ErrorBackoff(),
			Max:        cfg.Monitor.MaxBackoff(),
			Multiplier: 2,
			Jitter:     cfg.Monitor.Jitter,
		}),
		monitor.WithSubmitTimeout(cfg.Ledger.ConfirmTimeout() + cfg.Feed.Timeout()),
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequirePlatform(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()
	watchConfig(logger)

	profile := serviceProfile(monitorProfile)
	signer, err := loadSigner(cfg, profile)
	if err != nil {
		return fmt.Errorf("failed to load profile %q: %w", profile, err)
	}

	store, err := checkpoint.Open(cfg.Checkpoint.Backend, cfg.Checkpoint.Path, checkpoint.WithLogger(logger))
	if err != nil {
		if errors.Is(err, checkpoint.ErrLocked) {
			return fmt.Errorf("another monitor is already using %s: %w", cfg.Checkpoint.Path, err)
		}
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	bus := event.NewBus(event.WithLogger(logger))
	newStatusPrinter(out, isTerminal(out)).attach(bus)

	submitter := bidder.NewSubmitter(newRegistry(cfg), signer,
		bidder.WithStrategy(bidder.Strategy{
			Ratio:      cfg.Bidding.BidRatio,
			Reputation: uint8(cfg.Bidding.ReputationScore),
		}),
		bidder.WithLogger(logger),
	)
	opts := append(agentOptions(cfg), monitor.WithLogger(logger), monitor.WithBus(bus))
	agent := monitor.New(newFeed(cfg), submitter, store, opts...)

	printHeader(out, "Bidding agent")
	printField(out, "Platform", cfg.Platform.Address)
	printField(out, "Bidder", signer.Address())
	printField(out, "Bid ratio", cfg.Bidding.BidRatio)
	printField(out, "Reputation", cfg.Bidding.ReputationScore)
	printField(out, "Poll interval", cfg.Monitor.PollInterval())
	printField(out, "Checkpoint", cfg.Checkpoint.Path)
	fmt.Fprintln(out)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return agent.Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("monitor stopped: %w", err)
	}

	snap := agent.Snapshot()
	fmt.Fprintln(out)
	printSuccess(out, "Monitor stopped")
	printField(out, "Cursor", snap.Saved)
	printField(out, "Bids placed", snap.Stats.Placed)
	printField(out, "Duplicates", snap.Stats.Duplicates)
	printField(out, "Skipped", snap.Stats.Skipped+snap.Stats.Resolved)
	printField(out, "Failures", snap.Stats.Failures)
	return nil
}

// statusPrinter renders agent events as status lines. Empty polls show as
// progress dots, but only on a terminal.
type statusPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	tty  bool
	dots bool
}

func newStatusPrinter(out io.Writer, tty bool) *statusPrinter {
	return &statusPrinter{out: out, tty: tty}
}

func (p *statusPrinter) attach(bus *event.Bus) {
	bus.SubscribeAll(p.handle)
}

// endDots terminates a run of progress dots. Caller holds mu.
func (p *statusPrinter) endDots() {
	if p.dots {
		fmt.Fprintln(p.out)
		p.dots = false
	}
}

func (p *statusPrinter) handle(e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev := e.(type) {
	case event.PollCompletedEvent:
		if ev.Events == 0 && p.tty {
			fmt.Fprint(p.out, ".")
			p.dots = true
		}
	case event.FeedErrorEvent:
		p.endDots()
		printError(p.out, ev.Err, "Event query failed: %v", ev.Err)
	case event.BidPlacedEvent:
		p.endDots()
		if ev.Duplicate {
			printSuccess(p.out, "Bid already on record for %s (event %d)", ev.TaskID, ev.Sequence)
			return
		}
		printSuccess(p.out, "Bid placed on %s at %s (event %d)", ev.TaskID, task.FormatAmount(ev.Price), ev.Sequence)
	case event.BidSkippedEvent:
		p.endDots()
		printWarning(p.out, "Skipped event %d (%s): %s", ev.Sequence, ev.TaskID, ev.Reason)
	case event.BidFailedEvent:
		p.endDots()
		printError(p.out, ev.Err, "Bid on %s failed (attempt %d), retrying in %s: %v", ev.TaskID, ev.Attempt, ev.RetryIn, ev.Err)
	case event.CheckpointSavedEvent:
		if ev.Final {
			p.endDots()
			printSuccess(p.out, "Checkpoint saved at %d", ev.Sequence)
		}
	}
}
