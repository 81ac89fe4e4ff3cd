package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"hush/internal/pipeline"
	"hush/internal/queue"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var attenuation int
	var enqueueOnly bool

	cmd := &cobra.Command{
		Use:   "process <file-or-url>",
		Short: "Denoise a local file or a remote URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateAttenuation(attenuation); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			source := strings.TrimSpace(args[0])
			sourceType := queue.SourceLocal
			originalName := ""
			if isRemoteSource(source) {
				sourceType = queue.SourceRemote
			} else {
				abs, err := filepath.Abs(source)
				if err != nil {
					return fmt.Errorf("resolve source path: %w", err)
				}
				if _, err := os.Stat(abs); err != nil {
					return fmt.Errorf("source file: %w", err)
				}
				source = abs
				originalName = filepath.Base(abs)
				if ext := filepath.Ext(originalName); !queue.IsSupportedExt(ext) {
					return fmt.Errorf("unsupported media extension %q", ext)
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			job, err := store.NewJob(runCtx, source, sourceType, originalName, attenuation)
			if err != nil {
				return fmt.Errorf("enqueue job: %w", err)
			}

			out := cmd.OutOrStdout()
			if enqueueOnly {
				fmt.Fprintf(out, "Queued job %d (%s)\n", job.ID, job.Source)
				return nil
			}

			orch := pipeline.New(cfg, store, logger)
			if err := orch.Run(runCtx, job); err != nil {
				return fmt.Errorf("job %d failed: %s", job.ID, job.ErrorMessage)
			}
			fmt.Fprintf(out, "Done: %s\n", job.OutputFile)
			return nil
		},
	}

	cmd.Flags().IntVar(&attenuation, "atten", 50, "Noise attenuation in dB")
	cmd.Flags().BoolVar(&enqueueOnly, "enqueue", false, "Queue the job for the daemon instead of processing now")
	return cmd
}

func isRemoteSource(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
