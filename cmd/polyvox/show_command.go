package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"polyvox/internal/api"
	"polyvox/internal/compile"
	"polyvox/internal/queue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <workflowID>",
		Short: "Show a workflow's jobs and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := fetchWorkflowView(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workflow %s (project %s): %d/%d jobs completed",
				view.WorkflowID, view.Project, view.Completed, view.Visible)
			if view.Failed > 0 {
				fmt.Fprintf(out, ", %d failed", view.Failed)
			}
			fmt.Fprintln(out)

			rows := make([][]string, 0, len(view.Jobs))
			for _, job := range view.Jobs {
				if job.ChainRole == string(compile.ChainPlaceholderAssembly) && job.Status == string(queue.StatusBlocked) {
					continue
				}
				detail := job.ProgressMessage
				if job.ErrorMessage != "" {
					detail = job.ErrorMessage
				} else if job.BlockedReason != "" {
					detail = job.BlockedReason
				}
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					job.JobType,
					job.Status,
					fmt.Sprintf("%.0f%%", job.ProgressPercent),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Stage", "Status", "Progress", "Detail"}, rows, 0, 3))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the workflow as JSON")
	return cmd
}

func fetchWorkflowView(ctx *commandContext, cmd *cobra.Command, workflowID string) (api.WorkflowView, error) {
	if ctx.daemonRunning(cmd.Context()) {
		client, err := ctx.apiClient()
		if err != nil {
			return api.WorkflowView{}, err
		}
		return client.Workflow(cmd.Context(), workflowID)
	}
	var view api.WorkflowView
	err := ctx.withStore(func(store *queue.Store) error {
		items, err := store.ListByWorkflow(cmd.Context(), workflowID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("workflow %s not found", workflowID)
		}
		view = api.NewWorkflowView(workflowID, items)
		return nil
	})
	return view, err
}
