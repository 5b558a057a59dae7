package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/a2a-aptos/bidagent/internal/task"
	"github.com/a2a-aptos/bidagent/internal/util"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show a task and its bids",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

// descriptionWidth bounds the description shown in the human-readable view.
const descriptionWidth = 72

// taskView is the JSON rendering of a task with its status name.
type taskView struct {
	*task.Task
	StatusName string `json:"status_name"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession("")
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	t, err := s.reg.GetTask(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get task %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(taskView{Task: t, StatusName: t.Status.String()})
	}
	printTask(out, t)
	return nil
}

func printTask(out io.Writer, t *task.Task) {
	printHeader(out, "Task "+t.ID)
	printField(out, "Status", t.Status)
	printField(out, "Description", util.TruncateANSI(util.FirstLine(t.Description), descriptionWidth))
	printField(out, "Creator", util.ShortHash(t.Creator, hashDigits))
	printField(out, "Max budget", task.FormatAmount(t.MaxBudget))
	printField(out, "Deadline", t.Deadline.Local().Format(time.DateTime))
	if !t.CreatedAt.IsZero() {
		printField(out, "Created", t.CreatedAt.Local().Format(time.DateTime))
	}
	if t.HasWinner() {
		printField(out, "Winner", util.ShortHash(t.Winner, hashDigits))
		printField(out, "Winning price", task.FormatAmount(t.WinningPrice))
	}
	if !t.CompletedAt.IsZero() {
		printField(out, "Completed", t.CompletedAt.Local().Format(time.DateTime))
	}

	fmt.Fprintln(out)
	if len(t.Bids) == 0 {
		fmt.Fprintln(out, "No bids.")
		return
	}
	printHeader(out, fmt.Sprintf("Bids (%d)", len(t.Bids)))
	for i, b := range t.Bids {
		fmt.Fprintf(out, "  %d. %s  %s  reputation %d\n",
			i+1, util.ShortHash(b.Bidder, hashDigits), task.FormatAmount(b.Price), b.ReputationScore)
	}
}
