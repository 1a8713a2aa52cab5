package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deactivateFlags struct {
	clientConfig
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <token>",
	Short: "Deactivate a token",
	Long: `Deactivate a token. Callbacks to a deactivated token are still
recorded, but marked as hits on a dead token.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeactivate,
}

func init() {
	rootCmd.AddCommand(deactivateCmd)

	addClientFlags(deactivateCmd, &deactivateFlags.clientConfig)
}

func runDeactivate(cmd *cobra.Command, args []string) error {
	c, err := deactivateFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.DeactivateToken(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Token %s deactivated.\n", resp.Token)
	return nil
}
