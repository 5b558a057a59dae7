package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/a2a-aptos/bidagent/internal/registry"
	"github.com/a2a-aptos/bidagent/internal/task"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish <description>",
	Short: "Publish a task and escrow its budget",
	Long: `Publish a new task. The full budget is moved into escrow until the task
is completed or cancelled.

Examples:
  # Publish a one-hour task with a 1 APT budget
  bidagent publish "Summarize the weekly report" --budget 100000000

  # Choose the task id and a shorter bidding window
  bidagent publish "Translate README" --budget 5000000 --deadline 600 --task-id readme-fr`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

var (
	publishBudget   uint64
	publishDeadline int64
	publishTaskID   string
	publishProfile  string
)

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().Uint64Var(&publishBudget, "budget", 0, "maximum budget in octas (required)")
	publishCmd.Flags().Int64Var(&publishDeadline, "deadline", 3600, "seconds from now until bidding closes")
	publishCmd.Flags().StringVar(&publishTaskID, "task-id", "", "task id (default: task-<8 hex>)")
	publishCmd.Flags().StringVar(&publishProfile, "profile", "", "signing profile (default: ledger.creator_profile)")
	_ = publishCmd.MarkFlagRequired("budget")
}

// newTaskID generates a short, human-typeable task id.
func newTaskID() string {
	return "task-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func runPublish(cmd *cobra.Command, args []string) error {
	id := publishTaskID
	if id == "" {
		id = newTaskID()
	}
	if err := task.ValidatePublish(id, publishBudget, publishDeadline); err != nil {
		return err
	}

	s, err := openSession(creatorProfile(publishProfile))
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	receipt, err := s.reg.Publish(ctx, s.signer, registry.PublishRequest{
		ID:          id,
		Description: args[0],
		MaxBudget:   publishBudget,
		Deadline:    time.Duration(publishDeadline) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to publish task %s: %w", id, err)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Task published")
	printField(out, "Task ID", id)
	printField(out, "Budget", task.FormatAmount(publishBudget))
	printField(out, "Deadline", fmt.Sprintf("%ds from now", publishDeadline))
	printReceipt(out, receipt)
	return nil
}
