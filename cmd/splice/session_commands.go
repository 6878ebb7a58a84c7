package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/ipc"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage editing sessions",
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List editing sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionList()
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				if listJSON {
					return writeJSON(cmd, resp.Sessions)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Sessions) == 0 {
					fmt.Fprintln(stdout, "No sessions")
					return nil
				}
				rows := make([][]string, 0, len(resp.Sessions))
				for _, sess := range resp.Sessions {
					rows = append(rows, []string{
						shortID(sess.ID),
						sess.Name,
						strconv.FormatFloat(sess.FrameRate, 'f', -1, 64),
						strconv.Itoa(sess.MediaCount),
						strconv.Itoa(sess.TimelineCount),
						sess.CreatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprint(stdout, renderTable(
					[]string{"ID", "Name", "FPS", "Media", "Timeline", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintln(stdout)
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Emit sessions as JSON")

	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an editing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionCreate(args[0])
				if err != nil {
					return fmt.Errorf("create session: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created session %s (%s)\n", resp.Session.Name, resp.Session.ID)
				return nil
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove SESSION_ID",
		Short: "Remove a session and all of its media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionRemove(args[0])
				if err != nil {
					return fmt.Errorf("remove session: %w", err)
				}
				if !resp.Removed {
					return errors.New("session was not removed")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session removed")
				return nil
			})
		},
	}

	sessionCmd.AddCommand(listCmd, createCmd, removeCmd)
	return sessionCmd
}
