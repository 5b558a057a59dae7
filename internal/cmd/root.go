package cmd

import (
	"github.com/a2a-aptos/bidagent/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "bidagent",
	Short: "Task bidding marketplace client and autonomous bidding agent",
	Long: `bidagent talks to a task bidding registry deployed on the ledger.

Creators publish tasks with an escrowed budget, service agents bid on them,
and the creator selects a winner who completes the task. The monitor command
runs an agent that watches for newly published tasks and bids on each one,
checkpointing its progress so it can be restarted safely.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports any failure as a status line.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/bidagent/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level (debug, info, warn, error)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	config.BindEnv()

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
