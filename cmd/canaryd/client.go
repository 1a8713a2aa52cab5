// Package main implements the canaryd CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsclarke/canaryd/internal/client"
)

type clientConfig struct {
	apiURL string
}

func addClientFlags(cmd *cobra.Command, cfg *clientConfig) {
	cmd.Flags().StringVar(&cfg.apiURL, "api-url", os.Getenv("CANARYD_API_URL"), "admin API URL")
}

func (cfg *clientConfig) newClient() (*client.Client, error) {
	if cfg.apiURL == "" {
		return nil, fmt.Errorf("API URL required (use --api-url flag or CANARYD_API_URL env var)")
	}
	return client.NewClient(cfg.apiURL), nil
}
