package cmd

import (
	"context"
	"fmt"

	"github.com/a2a-aptos/bidagent/internal/ledger"
	"github.com/a2a-aptos/bidagent/internal/registry"
	"github.com/a2a-aptos/bidagent/internal/task"
	"github.com/spf13/cobra"
)

var selectWinnerCmd = &cobra.Command{
	Use:   "select-winner <task-id>",
	Short: "Close bidding and pick the winning bid",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelectWinner,
}

var completeCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark an assigned task complete and release escrow",
	Long: `Complete a task as its winner. The winning price is paid to the winner
and the rest of the budget is refunded to the creator.`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a published task and refund its budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

var (
	selectProfile   string
	completeProfile string
	cancelProfile   string
)

func init() {
	rootCmd.AddCommand(selectWinnerCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(cancelCmd)

	selectWinnerCmd.Flags().StringVar(&selectProfile, "profile", "", "signing profile (default: ledger.creator_profile)")
	completeCmd.Flags().StringVar(&completeProfile, "profile", "", "signing profile (default: ledger.profile)")
	cancelCmd.Flags().StringVar(&cancelProfile, "profile", "", "signing profile (default: ledger.creator_profile)")
}

type lifecycleOp func(ctx context.Context, caller ledger.Signer, taskID string) (*registry.Receipt, error)

// runLifecycle submits op for taskID and returns the task as it is after
// the operation, when it can still be read.
func runLifecycle(cmd *cobra.Command, profile, verb, taskID string, op func(registry.Registry) lifecycleOp) (*registry.Receipt, *task.Task, error) {
	s, err := openSession(profile)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	receipt, err := op(s.reg)(ctx, s.signer, taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to %s %s: %w", verb, taskID, err)
	}
	t, err := s.reg.GetTask(ctx, taskID)
	if err != nil {
		return receipt, nil, nil
	}
	return receipt, t, nil
}

func runSelectWinner(cmd *cobra.Command, args []string) error {
	receipt, t, err := runLifecycle(cmd, creatorProfile(selectProfile), "select winner for", args[0],
		func(r registry.Registry) lifecycleOp { return r.SelectWinner })
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Winner selected")
	printField(out, "Task ID", args[0])
	if t != nil && t.HasWinner() {
		printField(out, "Winner", t.Winner)
		printField(out, "Winning price", task.FormatAmount(t.WinningPrice))
	}
	printReceipt(out, receipt)
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	receipt, t, err := runLifecycle(cmd, serviceProfile(completeProfile), "complete", args[0],
		func(r registry.Registry) lifecycleOp { return r.CompleteTask })
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Task completed")
	printField(out, "Task ID", args[0])
	if t != nil {
		s := task.CompletionSettlement(t)
		printField(out, "Paid to winner", task.FormatAmount(s.ToWinner))
		printField(out, "Refunded", task.FormatAmount(s.ToCreator))
	}
	printReceipt(out, receipt)
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	receipt, t, err := runLifecycle(cmd, creatorProfile(cancelProfile), "cancel", args[0],
		func(r registry.Registry) lifecycleOp { return r.CancelTask })
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Task cancelled")
	printField(out, "Task ID", args[0])
	if t != nil {
		printField(out, "Refunded", task.FormatAmount(t.MaxBudget))
	}
	printReceipt(out, receipt)
	return nil
}
