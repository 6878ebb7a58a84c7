package main

import (
	"github.com/spf13/cobra"

	"splice/internal/daemonrun"
)

// newRunCommand runs the daemon in the foreground inside the CLI process.
// Mostly useful under process supervisors and when debugging.
func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "run",
		Short:        "Run the splice daemon in the foreground",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg)
		},
	}
}
