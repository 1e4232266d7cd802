package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"demix/internal/config"
	"demix/internal/jobs"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				var statuses []jobs.Status
				for _, raw := range strings.Split(statusFilter, ",") {
					raw = strings.TrimSpace(raw)
					if raw == "" {
						continue
					}
					status, ok := jobs.ParseStatus(raw)
					if !ok {
						return fmt.Errorf("unknown status %q", raw)
					}
					statuses = append(statuses, status)
				}

				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, job := range items {
					rows = append(rows, []string{
						job.ID,
						string(job.Kind),
						string(job.Status),
						describeJob(job),
						job.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Kind", "Status", "Detail", "Created"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Comma-separated status filter (pending,in_progress,done,error)")
	return cmd
}

func describeJob(job *jobs.Job) string {
	name := strings.TrimSpace(strings.TrimSpace(job.Artist) + " " + strings.TrimSpace(job.Title))
	switch {
	case job.Status == jobs.StatusError && job.ErrorMessage != "":
		return truncate(job.ErrorMessage, 60)
	case job.Kind == jobs.KindFetch && name == "":
		return truncate(job.Link, 60)
	default:
		return truncate(name, 60)
	}
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit-1] + "…"
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				statuses := jobs.AllStatuses()
				total := 0
				rows := make([][]string, 0, len(statuses)+1)
				for _, status := range statuses {
					count := stats[status]
					total += count
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run queue database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:  %s\n", health.DBPath)
				fmt.Fprintf(out, "Exists:    %v\n", health.DatabaseExists)
				fmt.Fprintf(out, "Readable:  %v\n", health.DatabaseReadable)
				fmt.Fprintf(out, "Table:     %v\n", health.TableExists)
				fmt.Fprintf(out, "Integrity: %v\n", health.IntegrityCheck)
				fmt.Fprintf(out, "Jobs:      %d\n", health.TotalJobs)
				if len(health.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(health.MissingColumns, ", "))
				}
				if health.Error != "" {
					fmt.Fprintf(out, "Error:     %s\n", health.Error)
				}
				return err
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Reset an errored job back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				err := store.RetryErrored(cmd.Context(), args[0])
				if errors.Is(err, jobs.ErrNotFound) {
					return fmt.Errorf("no job with id %s", args[0])
				}
				if errors.Is(err, jobs.ErrInvalidTransition) {
					return fmt.Errorf("job %s is not in the error state", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s queued for retry\n", args[0])
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Delete a job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				removed, err := store.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no job with id %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s removed\n", args[0])
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var doneOnly bool
	var erroredOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				var (
					count int64
					err   error
				)
				switch {
				case doneOnly && erroredOnly:
					return errors.New("--done and --errored are mutually exclusive")
				case doneOnly:
					count, err = store.ClearDone(cmd.Context())
				case erroredOnly:
					count, err = store.ClearErrored(cmd.Context())
				default:
					count, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d job(s)\n", count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&doneOnly, "done", false, "Remove only done jobs")
	cmd.Flags().BoolVar(&erroredOnly, "errored", false, "Remove only errored jobs")
	return cmd
}
