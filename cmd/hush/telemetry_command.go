package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hush/internal/telemetry"
)

func newTelemetryCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Show the usage log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			usage := telemetry.New(cfg.Telemetry.Path, cfg.Telemetry.UserLabel, logger)

			out := cmd.OutOrStdout()
			if raw {
				fmt.Fprint(out, usage.ReadRaw())
				return nil
			}

			rows := usage.ReadAll()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No usage records")
				return nil
			}
			fmt.Fprintln(out, renderTable(telemetry.Header(), rows, 6, 7, 8))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the CSV file verbatim")
	return cmd
}
