package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var listFlags struct {
	clientConfig
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tokens with event counts",
	Long:  `List tokens with their owners, expiry, status, and event counts.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	addClientFlags(listCmd, &listFlags.clientConfig)
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := listFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.ListTokens()
	if err != nil {
		return err
	}

	if len(resp.Tokens) == 0 {
		fmt.Println("No tokens found.")
		return nil
	}

	fmt.Printf("%-26s  %-12s  %-19s  %-8s  %s\n", "TOKEN", "OWNER", "EXPIRES", "ACTIVE", "EVENTS")
	for _, t := range resp.Tokens {
		expires, _ := time.Parse(time.RFC3339, t.ExpiresAt)
		expiresStr := expires.Format("2006-01-02 15:04:05")
		fmt.Printf("%-26s  %-12s  %-19s  %-8t  %d\n", t.Token, t.Owner, expiresStr, t.Active, t.EventCount)
	}

	return nil
}
