package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the bidding platform",
	Long: `Create the platform resource under the creator account. This is done
once per deployment, before any task can be published.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initProfile string

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initProfile, "profile", "", "signing profile (default: ledger.creator_profile)")
}

func runInit(cmd *cobra.Command, args []string) error {
	s, err := openSession(creatorProfile(initProfile))
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	receipt, err := s.reg.Initialize(ctx, s.signer)
	if err != nil {
		return fmt.Errorf("failed to initialize platform: %w", err)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Platform initialized")
	printField(out, "Owner", s.signer.Address())
	printReceipt(out, receipt)
	return nil
}
