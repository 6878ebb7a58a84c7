package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/ipc"
)

const daemonStartTimeout = 10 * time.Second

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the splice daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			launched := false
			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
				if err := launchDaemon(ctx); err != nil {
					return err
				}
				launched = true
				client, err = waitForSocket(ctx, daemonStartTimeout)
				if err != nil {
					return err
				}
			}
			defer client.Close()

			resp, err := client.Start()
			if err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}
			switch {
			case resp.Started, launched && strings.Contains(resp.Message, "already"):
				fmt.Fprintln(stdout, "Daemon started")
			case strings.Contains(resp.Message, "already"):
				fmt.Fprintln(stdout, "Daemon already running")
			default:
				return fmt.Errorf("start daemon: %s", resp.Message)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the splice daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			defer client.Close()

			if _, err := client.Stop(); err != nil {
				return fmt.Errorf("stop daemon: %w", err)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and media status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return fmt.Errorf("fetch status: %w", err)
				}
				if statusJSON {
					return writeJSON(cmd, resp)
				}
				renderStatus(cmd, resp)
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderStatus(cmd *cobra.Command, resp *ipc.StatusResponse) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	runningKind := statusError
	if resp.Status.Running {
		runningKind = statusOK
	}
	fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, yesNo(resp.Status.Running), colorize))
	fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, strconv.Itoa(resp.Status.PID), colorize))
	if !resp.Status.StartedAt.IsZero() {
		fmt.Fprintln(stdout, renderStatusLine("Started", statusInfo, resp.Status.StartedAt.Format(time.RFC3339), colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Sessions", statusInfo, strconv.Itoa(resp.Status.Sessions), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Ingest monitor", statusInfo, yesNo(resp.Status.IngestRunning), colorize))
	if resp.LockPath != "" {
		fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, resp.LockPath, colorize))
	}

	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Media Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows := buildMediaStatusRows(resp.Status.MediaByStatus)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "Library is empty")
		return
	}
	fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintln(stdout)
}

func buildMediaStatusRows(counts map[string]int) [][]string {
	statuses := make([]string, 0, len(counts))
	for status, count := range counts {
		if count > 0 {
			statuses = append(statuses, status)
		}
	}
	sort.Strings(statuses)

	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{status, strconv.Itoa(counts[status])})
	}
	return rows
}

func launchDaemon(ctx *commandContext) error {
	exe, err := daemonExecutable()
	if err != nil {
		return err
	}

	args := make([]string, 0, 2)
	if ctx.configFlag != nil {
		if path := strings.TrimSpace(*ctx.configFlag); path != "" {
			args = append(args, "-config", path)
		}
	}

	launch := exec.Command(exe, args...)
	launch.Stdout = nil
	launch.Stderr = nil
	if err := launch.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return launch.Process.Release()
}

// daemonExecutable prefers a spliced binary next to the CLI, then $PATH.
func daemonExecutable() (string, error) {
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), "spliced")
		if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	exe, err := exec.LookPath("spliced")
	if err != nil {
		return "", fmt.Errorf("locate spliced binary: %w", err)
	}
	return exe, nil
}

func waitForSocket(ctx *commandContext, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	for {
		client, err := ctx.dialClient()
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("daemon did not come up within %s: %w", timeout, err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
