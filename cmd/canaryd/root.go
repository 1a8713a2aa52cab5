package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rsclarke/canaryd/internal/config"
	"github.com/rsclarke/canaryd/internal/logging"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "canaryd",
	Short: "SSRF canary token service",
	Long: `canaryd serves canary URLs that detect server-side request forgery.
Planted tokens phone home when fetched; hits from private or cloud
metadata address space raise alerts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotenv()

		var err error
		logger, err = logging.New(logging.FromEnv())
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
