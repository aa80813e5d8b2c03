package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"polyvox/internal/api"
	"polyvox/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := fetchQueueSummary(ctx, cmd)
			if err != nil {
				return err
			}
			rows := buildQueueStatusRows(summary)
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, 1))
			return nil
		},
	}
}

func fetchQueueSummary(ctx *commandContext, cmd *cobra.Command) (queue.HealthSummary, error) {
	if ctx.daemonRunning(cmd.Context()) {
		client, err := ctx.apiClient()
		if err != nil {
			return queue.HealthSummary{}, err
		}
		status, err := client.Status(cmd.Context())
		if err != nil {
			return queue.HealthSummary{}, err
		}
		return status.Queue, nil
	}
	var summary queue.HealthSummary
	err := ctx.withStore(func(store *queue.Store) error {
		var err error
		summary, err = store.Health(cmd.Context())
		return err
	})
	return summary, err
}

func buildQueueStatusRows(summary queue.HealthSummary) [][]string {
	if summary.Total == 0 {
		return nil
	}
	counts := []struct {
		label string
		count int
	}{
		{"pending", summary.Pending},
		{"blocked", summary.Blocked},
		{"running", summary.Running},
		{"completed", summary.Completed},
		{"failed", summary.Failed},
		{"cancelled", summary.Cancelled},
	}
	rows := make([][]string, 0, len(counts)+1)
	for _, c := range counts {
		if c.count == 0 {
			continue
		}
		rows = append(rows, []string{c.label, strconv.Itoa(c.count)})
	}
	rows = append(rows, []string{"total", strconv.Itoa(summary.Total)})
	return rows
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := fetchQueueViews(ctx, cmd, listStatuses)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{"jobs": views})
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				detail := view.ProgressMessage
				if view.ErrorMessage != "" {
					detail = view.ErrorMessage
				} else if view.BlockedReason != "" {
					detail = view.BlockedReason
				}
				rows = append(rows, []string{
					strconv.FormatInt(view.ID, 10),
					view.Project,
					view.JobType,
					view.Status,
					fmt.Sprintf("%.0f%%", view.ProgressPercent),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Project", "Stage", "Status", "Progress", "Detail"}, rows, 0, 4))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the listing as JSON")
	return cmd
}

func fetchQueueViews(ctx *commandContext, cmd *cobra.Command, statuses []string) ([]api.ItemView, error) {
	for _, raw := range statuses {
		if _, ok := queue.ParseStatus(strings.TrimSpace(raw)); !ok {
			return nil, fmt.Errorf("unknown status %q", raw)
		}
	}
	if ctx.daemonRunning(cmd.Context()) {
		client, err := ctx.apiClient()
		if err != nil {
			return nil, err
		}
		return client.Queue(cmd.Context(), statuses)
	}
	var views []api.ItemView
	err := ctx.withStore(func(store *queue.Store) error {
		parsed := make([]queue.Status, 0, len(statuses))
		for _, raw := range statuses {
			status, _ := queue.ParseStatus(strings.TrimSpace(raw))
			parsed = append(parsed, status)
		}
		items, err := store.List(cmd.Context(), parsed...)
		if err != nil {
			return err
		}
		views = api.ItemViews(items)
		return nil
	})
	return views, err
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if clearAll {
				return ctx.withStore(func(store *queue.Store) error {
					removed, err := store.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d queue jobs\n", removed)
					return nil
				})
			}

			if ctx.daemonRunning(cmd.Context()) {
				client, err := ctx.apiClient()
				if err != nil {
					return err
				}
				removed, err := client.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d completed jobs\n", removed)
				return nil
			}
			return ctx.withStore(func(store *queue.Store) error {
				removed, err := store.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d completed jobs\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every job regardless of status")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Return failed jobs to pending",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(store *queue.Store) error {
				updated, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				if updated == 0 && len(ids) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matching failed jobs")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed jobs\n", updated)
				return nil
			})
		},
	}
}
