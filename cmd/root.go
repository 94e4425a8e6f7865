package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reentry-map/resource-verifier/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "reentry-verifier",
	Short: "Resource verification and deduplication pipeline",
	Long:  "Verifies community resource suggestions, detects duplicates, and publishes approved resources to the reentry map directory.",
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
