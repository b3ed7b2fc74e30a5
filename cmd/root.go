package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "research-agent",
	Short: "Autonomous investment research pipeline",
	Long:  "Plans research for a ticker, gathers financial data and news from redundant providers, and synthesizes an investment thesis via Claude with deterministic fallbacks.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
