package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"splice/internal/api"
	"splice/internal/ipc"
)

func newTimelineCommand(ctx *commandContext) *cobra.Command {
	timelineCmd := &cobra.Command{
		Use:   "timeline",
		Short: "Manage timeline placements",
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list SESSION_ID",
		Short: "List a session's timeline items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TimelineList(args[0])
				if err != nil {
					return fmt.Errorf("list timeline: %w", err)
				}
				if listJSON {
					return writeJSON(cmd, resp.Items)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "Timeline is empty")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{
						shortID(item.ID),
						shortID(item.MediaItemID),
						item.TrackID,
						timelineStatusCell(item),
						strconv.FormatInt(item.Position, 10),
						strconv.FormatInt(item.Duration, 10),
						handleCell(item.Handle),
					})
				}
				fmt.Fprint(stdout, renderTable(
					[]string{"ID", "Media", "Track", "Status", "Position", "Duration", "Handle"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintln(stdout)
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Emit timeline items as JSON")

	var position int64
	var duration int64
	var scale float64
	var opacity float64
	placeCmd := &cobra.Command{
		Use:   "place SESSION_ID MEDIA_ID TRACK_ID",
		Short: "Place a media item on a timeline track",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Place(ipc.PlaceRequest{
					SessionID:   args[0],
					MediaItemID: args[1],
					TrackID:     args[2],
					Position:    position,
					Duration:    duration,
					Scale:       scale,
					Opacity:     opacity,
				})
				if err != nil {
					return fmt.Errorf("place media: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Placed %s on track %s at frame %d, status %s\n",
					resp.Item.ID, resp.Item.TrackID, resp.Item.Position, resp.Item.Status)
				return nil
			})
		},
	}
	placeCmd.Flags().Int64Var(&position, "position", 0, "Timeline position in frames")
	placeCmd.Flags().Int64Var(&duration, "duration", 0, "Clip duration in frames (0 uses the media duration)")
	placeCmd.Flags().Float64Var(&scale, "scale", 0, "Clip scale factor")
	placeCmd.Flags().Float64Var(&opacity, "opacity", 0, "Clip opacity")

	var movePosition int64
	var moveDuration int64
	var moveScale float64
	var moveOpacity float64
	moveCmd := &cobra.Command{
		Use:   "move TIMELINE_ITEM_ID",
		Short: "Reposition or retime a timeline placement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MoveTimelineItem(ipc.MoveTimelineItemRequest{
					TimelineItemID: args[0],
					Position:       movePosition,
					Duration:       moveDuration,
					Scale:          moveScale,
					Opacity:        moveOpacity,
				})
				if err != nil {
					return fmt.Errorf("move timeline item: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to frame %d, duration %d\n",
					resp.Item.ID, resp.Item.Position, resp.Item.Duration)
				return nil
			})
		},
	}
	moveCmd.Flags().Int64Var(&movePosition, "position", 0, "Timeline position in frames")
	moveCmd.Flags().Int64Var(&moveDuration, "duration", 0, "Clip duration in frames")
	moveCmd.Flags().Float64Var(&moveScale, "scale", 0, "Clip scale factor")
	moveCmd.Flags().Float64Var(&moveOpacity, "opacity", 0, "Clip opacity")

	removeCmd := &cobra.Command{
		Use:   "remove TIMELINE_ITEM_ID",
		Short: "Remove a timeline placement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.RemoveTimelineItem(args[0]); err != nil {
					return fmt.Errorf("remove timeline item: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Timeline item removed")
				return nil
			})
		},
	}

	timelineCmd.AddCommand(listCmd, placeCmd, moveCmd, removeCmd)
	return timelineCmd
}

func timelineStatusCell(item api.TimelineItemView) string {
	if item.StatusMessage != "" {
		return item.Status + ": " + truncate(item.StatusMessage, 40)
	}
	return item.Status
}

func handleCell(handle *api.HandleView) string {
	if handle == nil {
		return "-"
	}
	label := handle.Path
	if handle.Proxy {
		label += " (proxy)"
	}
	return truncate(label, 56)
}
