package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var createFlags struct {
	clientConfig
	owner     string
	expiresIn int64
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new canary token",
	Long:  `Create a new canary token and print the URL to plant.`,
	RunE:  runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)

	addClientFlags(createCmd, &createFlags.clientConfig)
	createCmd.Flags().StringVar(&createFlags.owner, "owner", "", "owner of the token (required)")
	createCmd.Flags().Int64Var(&createFlags.expiresIn, "expires-in", 0, "lifetime in seconds (default: server default)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	if createFlags.owner == "" {
		return fmt.Errorf("--owner is required")
	}

	c, err := createFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.CreateToken(createFlags.owner, createFlags.expiresIn)
	if err != nil {
		return err
	}

	fmt.Printf("Token:   %s\n", resp.Token)
	fmt.Printf("URL:     %s\n", resp.URL)
	fmt.Printf("Owner:   %s\n", resp.Owner)
	fmt.Printf("Expires: %s\n", resp.ExpiresAt)

	return nil
}
