package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show platform task statistics",
	Long:  `Display the registry's totals: tasks published, completed and cancelled.`,
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsJSON bool

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

// statsView adds the derived figures to the registry counters.
type statsView struct {
	TotalTasks     uint64  `json:"total_tasks"`
	CompletedTasks uint64  `json:"completed_tasks"`
	CancelledTasks uint64  `json:"cancelled_tasks"`
	ActiveTasks    uint64  `json:"active_tasks"`
	SuccessRate    float64 `json:"success_rate"`
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openSession("")
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	st, err := s.reg.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get platform stats: %w", err)
	}

	view := statsView{
		TotalTasks:     st.TotalTasks,
		CompletedTasks: st.CompletedTasks,
		CancelledTasks: st.CancelledTasks,
		SuccessRate:    st.SuccessRate(),
	}
	if closed := st.CompletedTasks + st.CancelledTasks; st.TotalTasks > closed {
		view.ActiveTasks = st.TotalTasks - closed
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	printHeader(out, "Platform statistics")
	printField(out, "Total tasks", view.TotalTasks)
	printField(out, "Completed", view.CompletedTasks)
	printField(out, "Cancelled", view.CancelledTasks)
	printField(out, "Active", view.ActiveTasks)
	printField(out, "Success rate", fmt.Sprintf("%.1f%%", view.SuccessRate))
	return nil
}
