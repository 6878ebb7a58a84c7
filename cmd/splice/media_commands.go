package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"splice/internal/api"
	"splice/internal/config"
	"splice/internal/ipc"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Manage session media",
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list SESSION_ID",
		Short: "List a session's media items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MediaList(args[0])
				if err != nil {
					return fmt.Errorf("list media: %w", err)
				}
				if listJSON {
					return writeJSON(cmd, resp.Items)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "No media in session")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{
						shortID(item.ID),
						item.Name,
						item.MediaType,
						mediaStatusCell(item),
						strconv.Itoa(item.Progress) + "%",
						sourceCell(item.Source),
					})
				}
				fmt.Fprint(stdout, renderTable(
					[]string{"ID", "Name", "Type", "Status", "Progress", "Source"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintln(stdout)
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Emit media items as JSON")

	var projectRef string
	var remoteURL string
	importCmd := &cobra.Command{
		Use:   "import SESSION_ID [PATH]",
		Short: "Import media into a session",
		Long: "Import media into a session from a local file path, a project-relative\n" +
			"reference (--project-ref), or a remote URL (--url).",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.ImportRequest{SessionID: args[0]}
			switch {
			case len(args) == 2:
				if projectRef != "" || remoteURL != "" {
					return errors.New("provide a path argument or a locator flag, not both")
				}
				expanded, err := config.ExpandPath(args[1])
				if err != nil {
					return err
				}
				req.Path = expanded
			case projectRef != "":
				if remoteURL != "" {
					return errors.New("--project-ref and --url are mutually exclusive")
				}
				req.ProjectRef = projectRef
			case remoteURL != "":
				req.URL = remoteURL
			default:
				return errors.New("import needs a path argument, --project-ref, or --url")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Import(req)
				if err != nil {
					return fmt.Errorf("import media: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s), status %s\n",
					resp.Item.Name, resp.Item.ID, resp.Item.Status)
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&projectRef, "project-ref", "", "Project-relative media reference")
	importCmd.Flags().StringVar(&remoteURL, "url", "", "Remote media URL")

	cancelCmd := &cobra.Command{
		Use:   "cancel MEDIA_ID",
		Short: "Cancel an in-flight acquisition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Cancel(args[0]); err != nil {
					return fmt.Errorf("cancel media: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cancel requested")
				return nil
			})
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry MEDIA_ID",
		Short: "Retry failed, cancelled, or missing media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Retry(args[0]); err != nil {
					return fmt.Errorf("retry media: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Retry started")
				return nil
			})
		},
	}

	relinkCmd := &cobra.Command{
		Use:   "relink MEDIA_ID PATH",
		Short: "Point missing media at a replacement file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expanded, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Relink(args[0], expanded); err != nil {
					return fmt.Errorf("relink media: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Media relinked")
				return nil
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove MEDIA_ID",
		Short: "Remove a media item and its timeline placements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.RemoveMedia(args[0]); err != nil {
					return fmt.Errorf("remove media: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Media removed")
				return nil
			})
		},
	}

	mediaCmd.AddCommand(listCmd, importCmd, cancelCmd, retryCmd, relinkCmd, removeCmd)
	return mediaCmd
}

func mediaStatusCell(item api.MediaItemView) string {
	if item.ErrorMessage != "" {
		return item.Status + ": " + truncate(item.ErrorMessage, 40)
	}
	return item.Status
}

func sourceCell(source api.SourceView) string {
	locator := source.Path
	if locator == "" {
		locator = source.URL
	}
	if locator == "" {
		return source.Kind
	}
	return fmt.Sprintf("%s %s", source.Kind, truncate(locator, 48))
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
