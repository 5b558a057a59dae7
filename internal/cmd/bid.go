package cmd

import (
	"fmt"
	"strconv"

	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/registry"
	"github.com/a2a-aptos/bidagent/internal/task"
	"github.com/spf13/cobra"
)

var bidCmd = &cobra.Command{
	Use:   "bid <task-id> <price> <reputation>",
	Short: "Place a bid on a published task",
	Long: `Place a bid as the service agent. The price is in octas and must not
exceed the task's budget; the reputation score is 0-100.

Example:
  bidagent bid task-1a2b3c4d 80000000 90`,
	Args: cobra.ExactArgs(3),
	RunE: runBid,
}

var bidProfile string

func init() {
	rootCmd.AddCommand(bidCmd)
	bidCmd.Flags().StringVar(&bidProfile, "profile", "", "signing profile (default: ledger.profile)")
}

func runBid(cmd *cobra.Command, args []string) error {
	taskID := args[0]
	price, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return errors.NewValidationError("price must be a whole number of octas").WithField("price").WithValue(args[1])
	}
	reputation, err := strconv.Atoi(args[2])
	if err != nil {
		return errors.NewValidationError("reputation must be an integer").WithField("reputation").WithValue(args[2])
	}
	if err := task.ValidateBid(taskID, price, reputation); err != nil {
		return err
	}

	s, err := openSession(serviceProfile(bidProfile))
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	receipt, err := s.reg.PlaceBid(ctx, s.signer, registry.BidRequest{
		TaskID:          taskID,
		Price:           price,
		ReputationScore: uint8(reputation),
	})
	if err != nil {
		return fmt.Errorf("failed to place bid on %s: %w", taskID, err)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Bid placed")
	printField(out, "Task ID", taskID)
	printField(out, "Bidder", s.signer.Address())
	printField(out, "Price", task.FormatAmount(price))
	printField(out, "Reputation", reputation)
	printReceipt(out, receipt)
	return nil
}
