package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/a2a-aptos/bidagent/internal/checkpoint"
	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/logging"
	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or reset the monitor cursor",
	Long: `Inspect or reset the monitor's checkpoint: the sequence number of the
last event the agent has fully handled. These commands take the checkpoint
lock, so they fail while a monitor is running against the same file.`,
	RunE: runCheckpointShow,
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved cursor",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointShow,
}

var checkpointResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Overwrite the saved cursor",
	Long: `Overwrite the saved cursor. With no flags the cursor is set to 0 and the
next monitor run replays the whole feed; bids already placed are reported
as duplicates and skipped.`,
	Args: cobra.NoArgs,
	RunE: runCheckpointReset,
}

var (
	checkpointJSON    bool
	checkpointResetTo uint64
)

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointResetCmd)

	checkpointShowCmd.Flags().BoolVar(&checkpointJSON, "json", false, "Output as JSON")
	checkpointResetCmd.Flags().Uint64Var(&checkpointResetTo, "to", 0, "sequence number to store")
}

func openCheckpoint(logger *logging.Logger) (checkpoint.Store, string, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", "", err
	}
	store, err := checkpoint.Open(cfg.Checkpoint.Backend, cfg.Checkpoint.Path, checkpoint.WithLogger(logger))
	if err != nil {
		if errors.Is(err, checkpoint.ErrLocked) {
			return nil, "", "", fmt.Errorf("checkpoint %s is in use by a running monitor: %w", cfg.Checkpoint.Path, err)
		}
		return nil, "", "", err
	}
	return store, cfg.Checkpoint.Backend, cfg.Checkpoint.Path, nil
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
	logger := logging.NewWriterLogger(cmd.ErrOrStderr(), logging.LevelWarn)
	store, backend, path, err := openCheckpoint(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	seq := store.Load(cmd.Context())
	out := cmd.OutOrStdout()
	if checkpointJSON {
		return json.NewEncoder(out).Encode(map[string]any{
			"backend":                        backend,
			"path":                           path,
			"last_processed_sequence_number": seq,
		})
	}
	printHeader(out, "Monitor checkpoint")
	printField(out, "Backend", backend)
	printField(out, "Path", path)
	printField(out, "Last sequence", seq)
	return nil
}

func runCheckpointReset(cmd *cobra.Command, args []string) error {
	logger := logging.NewWriterLogger(cmd.ErrOrStderr(), logging.LevelWarn)
	store, _, path, err := openCheckpoint(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	prev := store.Load(ctx)
	if err := store.Save(ctx, checkpointResetTo); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Checkpoint reset")
	printField(out, "Path", path)
	printField(out, "Previous", prev)
	printField(out, "Now", checkpointResetTo)
	return nil
}
