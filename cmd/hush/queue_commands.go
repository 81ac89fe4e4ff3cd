package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hush/internal/queue"
	"hush/internal/workspace"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			if s := strings.TrimSpace(statusFilter); s != "" {
				statuses = append(statuses, queue.Status(s))
			}
			jobs, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					string(job.Status),
					jobDisplayName(job),
					fmt.Sprintf("%d dB", job.AttenuationDB),
					progressCell(job),
					job.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Source", "Attenuation", "Progress", "Error"},
				rows,
				1, 4,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show jobs with this status")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Reset failed jobs to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}

			count, err := store.RetryFailed(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d job(s) to pending\n", count)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all jobs and their workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to clear the queue without --force")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
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

			jobs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			workspaces := workspace.NewManager(cfg.Paths.WorkRoot, logger)
			for _, job := range jobs {
				workspaces.Dispose(job.WorkspaceDir)
			}

			count, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm removal of every job")
	return cmd
}

func jobDisplayName(job *queue.Job) string {
	if job.OriginalName != "" {
		return job.OriginalName
	}
	return job.Source
}

func progressCell(job *queue.Job) string {
	if job.ProgressMessage == "" {
		return fmt.Sprintf("%.0f%%", job.ProgressPercent)
	}
	return fmt.Sprintf("%.0f%% %s", job.ProgressPercent, job.ProgressMessage)
}
