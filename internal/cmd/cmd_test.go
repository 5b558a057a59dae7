package cmd

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/a2a-aptos/bidagent/internal/checkpoint"
	"github.com/a2a-aptos/bidagent/internal/config"
	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/event"
	"github.com/a2a-aptos/bidagent/internal/feed"
	"github.com/a2a-aptos/bidagent/internal/ledger"
	"github.com/a2a-aptos/bidagent/internal/registry"
	"github.com/a2a-aptos/bidagent/internal/task"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlatform = "0xcafe"

// cliEnv is an in-memory registry and feed behind the real commands.
type cliEnv struct {
	reg            *registry.Memory
	feed           *feed.Memory
	signers        map[string]ledger.Signer
	checkpointPath string
}

func testAccount(name string, seed byte) *ledger.Account {
	return ledger.NewAccount(name, ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize)), "")
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	viper.Reset()
	config.SetDefaults()
	viper.Set("platform.address", testPlatform)
	viper.Set("checkpoint.path", filepath.Join(dir, "monitor_state.json"))
	viper.Set("logging.level", "error")
	viper.Set("monitor.poll_interval_seconds", 1)
	viper.Set("monitor.batch_pause_ms", 0)

	env := &cliEnv{
		reg:  registry.NewMemory(),
		feed: feed.NewMemory(),
		signers: map[string]ledger.Signer{
			"personal_agent": testAccount("personal_agent", 1),
			"service_agent":  testAccount("service_agent", 2),
			"rival_agent":    testAccount("rival_agent", 3),
		},
		checkpointPath: filepath.Join(dir, "monitor_state.json"),
	}

	origRegistry, origSigner, origFeed := newRegistry, loadSigner, newFeed
	newRegistry = func(*config.Config) registry.Registry { return env.reg }
	newFeed = func(*config.Config) feed.Feed { return env.feed }
	loadSigner = func(_ *config.Config, profile string) (ledger.Signer, error) {
		s, ok := env.signers[profile]
		if !ok {
			return nil, errors.NewNotFoundError("profile", profile)
		}
		return s, nil
	}
	resetFlags()

	t.Cleanup(func() {
		newRegistry, loadSigner, newFeed = origRegistry, origSigner, origFeed
		resetFlags()
		viper.Reset()
	})
	return env
}

// resetFlags restores flag variables, which persist across executions.
func resetFlags() {
	initProfile = ""
	publishBudget, publishDeadline, publishTaskID, publishProfile = 0, 3600, "", ""
	bidProfile = ""
	selectProfile, completeProfile, cancelProfile = "", "", ""
	statusJSON, statsJSON = false, false
	checkpointJSON, checkpointResetTo = false, 0
	monitorProfile = ""
	logsTail, logsFollow, logsLevel, logsSince, logsGrep, logsComponent = 50, false, "", "", "", ""
}

func setContext(c *cobra.Command, ctx context.Context) {
	c.SetContext(ctx)
	for _, sub := range c.Commands() {
		setContext(sub, ctx)
	}
}

// executeCommand runs the root command with args and returns captured output
func executeCommand(ctx context.Context, args ...string) (string, error) {
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	setContext(rootCmd, ctx)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeCommand(context.Background(), args...)
	require.NoError(t, err, "bidagent %v\n%s", args, out)
	return out
}

func (e *cliEnv) addr(profile string) string {
	return e.signers[profile].Address()
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "bidagent", rootCmd.Use)

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"init", "publish", "bid", "select-winner", "complete", "cancel", "status", "stats", "monitor", "checkpoint", "config", "logs"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestPublishAndMonitorBid(t *testing.T) {
	env := setupCLI(t)

	run(t, "init")
	out := run(t, "publish", "Summarize the weekly report", "--budget", "100000000", "--task-id", "task-a")
	assert.Contains(t, out, "Task published")
	assert.Contains(t, out, "1.00000000 APT (100000000 Octas)")

	env.feed.AppendTask("task-a", 100_000_000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	var monitorOut string
	var monitorErr error
	go func() {
		defer close(done)
		monitorOut, monitorErr = executeCommand(ctx, "monitor")
	}()

	require.Eventually(t, func() bool {
		tk, err := env.reg.GetTask(context.Background(), "task-a")
		return err == nil && len(tk.Bids) == 1
	}, 5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
	require.NoError(t, monitorErr, monitorOut)

	tk, err := env.reg.GetTask(context.Background(), "task-a")
	require.NoError(t, err)
	assert.Equal(t, uint64(80_000_000), tk.Bids[0].Price)
	assert.Equal(t, uint8(90), tk.Bids[0].ReputationScore)
	assert.Equal(t, env.addr("service_agent"), tk.Bids[0].Bidder)

	assert.Contains(t, monitorOut, "Bid placed on task-a")
	assert.Contains(t, monitorOut, "Monitor stopped")

	data, err := os.ReadFile(env.checkpointPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_processed_sequence_number": 1}`, string(data))
}

func TestSelectWinnerPicksLowestBid(t *testing.T) {
	env := setupCLI(t)

	run(t, "init")
	run(t, "publish", "Translate README", "--budget", "1000", "--task-id", "task-b")
	run(t, "bid", "task-b", "800", "90")
	run(t, "bid", "task-b", "700", "60", "--profile", "rival_agent")

	out := run(t, "select-winner", "task-b")
	assert.Contains(t, out, "Winner selected")

	out = run(t, "status", "task-b", "--json")
	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, float64(task.StatusAssigned), view["status"])
	assert.Equal(t, "ASSIGNED", view["status_name"])
	assert.Equal(t, env.addr("rival_agent"), view["winner"])
	assert.Equal(t, float64(700), view["winning_price"])
}

func TestCompleteSettlesEscrow(t *testing.T) {
	env := setupCLI(t)

	run(t, "init")
	run(t, "publish", "Label images", "--budget", "1000", "--task-id", "task-c")
	run(t, "bid", "task-c", "800", "90")
	run(t, "select-winner", "task-c")

	// Only the winner may complete
	_, err := executeCommand(context.Background(), "complete", "task-c", "--profile", "rival_agent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotWinner))

	out := run(t, "complete", "task-c")
	assert.Contains(t, out, "Task completed")

	tk, err := env.reg.GetTask(context.Background(), "task-c")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, tk.Status)
	assert.Empty(t, tk.Bids)
	assert.Equal(t, int64(800), env.reg.Balance(env.addr("service_agent")))
	assert.Equal(t, int64(-800), env.reg.Balance(env.addr("personal_agent")))
	assert.Zero(t, env.reg.Escrow())
	assert.True(t, env.reg.Conserved())
}

func TestCancelRefundsAndClosesBidding(t *testing.T) {
	env := setupCLI(t)

	run(t, "init")
	run(t, "publish", "Write tests", "--budget", "5000", "--task-id", "task-d")
	run(t, "bid", "task-d", "4000", "80")

	out := run(t, "cancel", "task-d")
	assert.Contains(t, out, "Task cancelled")

	tk, err := env.reg.GetTask(context.Background(), "task-d")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCancelled, tk.Status)
	assert.Empty(t, tk.Bids)
	assert.Zero(t, env.reg.Balance(env.addr("personal_agent")))
	assert.True(t, env.reg.Conserved())

	_, err = executeCommand(context.Background(), "bid", "task-d", "100", "50", "--profile", "rival_agent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTaskNotOpen))
}

func TestBidArgumentValidation(t *testing.T) {
	env := setupCLI(t)
	run(t, "init")
	run(t, "publish", "Anything", "--budget", "1000", "--task-id", "task-v")

	tests := []struct {
		name string
		args []string
	}{
		{name: "zero price", args: []string{"bid", "task-v", "0", "50"}},
		{name: "price not a number", args: []string{"bid", "task-v", "ten", "50"}},
		{name: "reputation above 100", args: []string{"bid", "task-v", "10", "101"}},
		{name: "negative reputation", args: []string{"bid", "--", "task-v", "10", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(context.Background(), tt.args...)
			require.Error(t, err)
			var verr *errors.ValidationError
			assert.True(t, errors.As(err, &verr), "want validation error, got %v", err)
		})
	}

	tk, err := env.reg.GetTask(context.Background(), "task-v")
	require.NoError(t, err)
	assert.Empty(t, tk.Bids)
}

func TestPublishValidationAndDefaults(t *testing.T) {
	env := setupCLI(t)
	run(t, "init")

	_, err := executeCommand(context.Background(), "publish", "No deadline", "--budget", "10", "--deadline", "0")
	require.Error(t, err)
	assert.Empty(t, env.reg.Tasks())

	out := run(t, "publish", "Generated id", "--budget", "10")
	tasks := env.reg.Tasks()
	require.Len(t, tasks, 1)
	assert.Regexp(t, `^task-[0-9a-f]{8}$`, tasks[0].ID)
	assert.Contains(t, out, tasks[0].ID)
	assert.Equal(t, env.addr("personal_agent"), tasks[0].Creator)
}

func TestRegistryCommandsRequirePlatform(t *testing.T) {
	setupCLI(t)
	viper.Set("platform.address", "")

	_, err := executeCommand(context.Background(), "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform.address")
}

func TestStatsJSON(t *testing.T) {
	setupCLI(t)
	run(t, "init")
	run(t, "publish", "one", "--budget", "10", "--task-id", "s1")
	run(t, "publish", "two", "--budget", "10", "--task-id", "s2")
	run(t, "cancel", "s2")

	out := run(t, "stats", "--json")
	var view statsView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, statsView{TotalTasks: 2, CancelledTasks: 1, ActiveTasks: 1}, view)
}

func TestStatusHumanReadable(t *testing.T) {
	setupCLI(t)
	run(t, "init")
	run(t, "publish", "Review the design\nwith extra detail", "--budget", "2500", "--task-id", "task-h")
	run(t, "bid", "task-h", "2000", "75")

	out := run(t, "status", "task-h")
	assert.Contains(t, out, "Task task-h")
	assert.Contains(t, out, "PUBLISHED")
	assert.Contains(t, out, "Review the design")
	assert.NotContains(t, out, "with extra detail")
	assert.Contains(t, out, "Bids (1)")
	assert.Contains(t, out, "reputation 75")

	_, err := executeCommand(context.Background(), "status", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTaskNotFound))
}

func TestCheckpointShowAndReset(t *testing.T) {
	env := setupCLI(t)

	out := run(t, "checkpoint", "reset", "--to", "7")
	assert.Contains(t, out, "Checkpoint reset")

	out = run(t, "checkpoint", "show", "--json")
	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, float64(7), shown["last_processed_sequence_number"])
	assert.Equal(t, "json", shown["backend"])

	// A running monitor holds the lock
	held, err := checkpoint.Open(checkpoint.BackendJSON, env.checkpointPath)
	require.NoError(t, err)
	defer held.Close()

	_, err = executeCommand(context.Background(), "checkpoint", "show")
	require.Error(t, err)
	assert.True(t, errors.Is(err, checkpoint.ErrLocked))
}

func TestConfigSet(t *testing.T) {
	setupCLI(t)

	out := run(t, "config", "set", "bidding.bid_ratio", "0.5")
	assert.Contains(t, out, "Set bidding.bid_ratio = 0.5")

	data, err := os.ReadFile(config.ConfigFile())
	require.NoError(t, err)
	assert.Contains(t, string(data), "bid_ratio: 0.5")

	_, err = executeCommand(context.Background(), "config", "set", "bidding.bid_ratio", "1.5")
	require.Error(t, err)
	assert.Equal(t, 0.5, viper.GetFloat64("bidding.bid_ratio"))

	_, err = executeCommand(context.Background(), "config", "set", "no.such_key", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown configuration key")
}

func TestStatusPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusPrinter(&buf, false)
	p.handle(event.NewPollCompletedEvent(3, 0))
	assert.Empty(t, buf.String(), "no progress dots off a terminal")

	tty := newStatusPrinter(&buf, true)
	tty.handle(event.NewPollCompletedEvent(3, 0))
	tty.handle(event.NewPollCompletedEvent(3, 0))
	assert.Equal(t, "..", buf.String())

	tty.handle(event.NewBidPlacedEvent(4, "task-x", 80, "0xabc", false))
	assert.Contains(t, buf.String(), "..\n")
	assert.Contains(t, buf.String(), "Bid placed on task-x")

	buf.Reset()
	tty.handle(event.NewBidPlacedEvent(4, "task-x", 80, "", true))
	assert.Contains(t, buf.String(), "already on record")
}

func TestStatusPrinterSeverity(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusPrinter(&buf, false)

	p.handle(event.NewFeedErrorEvent(5, errors.NewFeedError("indexer returned 503", nil)))
	assert.Contains(t, buf.String(), "! Event query failed")

	buf.Reset()
	p.handle(event.NewBidFailedEvent(6, "task-y", 1, errors.NewLedgerError("node unreachable", nil), 10*time.Second))
	assert.Contains(t, buf.String(), "✗ Bid on task-y failed (attempt 1)")

	buf.Reset()
	p.handle(event.NewBidFailedEvent(6, "task-y", 2, errors.NewTimeoutError("place_bid", time.Minute), 20*time.Second))
	assert.Contains(t, buf.String(), "! Bid on task-y failed (attempt 2)")
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, errors.NewValidationError("price must be greater than 0"))
	assert.Contains(t, buf.String(), "✗ ")
	assert.Contains(t, buf.String(), "price must be greater than 0")
	assert.NotContains(t, buf.String(), "--help")

	buf.Reset()
	reportError(&buf, errors.New(`unknown command "bids" for "bidagent"`))
	assert.Contains(t, buf.String(), "unknown command")
	assert.Contains(t, buf.String(), "Run 'bidagent --help' for usage.")
}
