package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splice/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()
				cmdCtx := cmd.Context()

				resp, err := client.LogTail(ipc.LogTailRequest{Limit: limit})
				if err != nil {
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, evt := range resp.Events {
					fmt.Fprintln(stdout, formatLogEvent(evt))
				}
				if !follow {
					if len(resp.Events) == 0 {
						fmt.Fprintln(stdout, "No log entries available")
					}
					return nil
				}

				since := resp.Next
				for {
					if err := cmdCtx.Err(); err != nil {
						return err
					}
					resp, err := client.LogTail(ipc.LogTailRequest{
						Since:      since,
						Follow:     true,
						WaitMillis: 1000,
					})
					if err != nil {
						return fmt.Errorf("tail logs: %w", err)
					}
					for _, evt := range resp.Events {
						fmt.Fprintln(stdout, formatLogEvent(evt))
					}
					since = resp.Next
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new log entries")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of recent entries to show")
	return cmd
}
