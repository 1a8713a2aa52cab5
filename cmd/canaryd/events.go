package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var eventsFlags struct {
	clientConfig
	page int
	per  int
	all  bool
}

var eventsCmd = &cobra.Command{
	Use:   "events [token]",
	Short: "List callback events",
	Long: `List callback events for a token, newest first. With --all, list
events across every token.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	addClientFlags(eventsCmd, &eventsFlags.clientConfig)
	eventsCmd.Flags().IntVar(&eventsFlags.page, "page", 1, "page number")
	eventsCmd.Flags().IntVar(&eventsFlags.per, "per", 50, "events per page")
	eventsCmd.Flags().BoolVar(&eventsFlags.all, "all", false, "list events across all tokens")
}

func runEvents(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) > 0 {
		token = args[0]
	}
	if token == "" && !eventsFlags.all {
		return fmt.Errorf("usage: canaryd events <token> (or --all)")
	}

	c, err := eventsFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.ListEvents(token, eventsFlags.page, eventsFlags.per)
	if err != nil {
		return err
	}

	if len(resp.Events) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	fmt.Printf("%-20s  %-6s  %-16s  %-10s  %s\n", "TIME", "METHOD", "REMOTE", "STATUS", "PATH")
	for _, e := range resp.Events {
		t, _ := time.Parse(time.RFC3339, e.ReceivedAt)
		timeStr := t.Format("2006-01-02 15:04:05")

		status := "clean"
		if e.Suspicious {
			status = "suspect"
			if e.SuspicionReason != nil {
				status = *e.SuspicionReason
			}
		}

		remote := e.RemoteIP
		if e.ResolvedHostname != nil {
			remote = fmt.Sprintf("%s (%s)", e.RemoteIP, *e.ResolvedHostname)
		}

		fmt.Printf("%-20s  %-6s  %-16s  %-10s  %s\n", timeStr, e.Method, remote, status, e.Path)
	}

	fmt.Printf("\n%d of %d events (page %d)\n", len(resp.Events), resp.Total, resp.Page)

	return nil
}
