package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"polyvox/internal/queue"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <workflowID>",
		Short: "Cancel a workflow's waiting jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID := args[0]

			var cancelled int64
			if ctx.daemonRunning(cmd.Context()) {
				client, err := ctx.apiClient()
				if err != nil {
					return err
				}
				cancelled, err = client.CancelWorkflow(cmd.Context(), workflowID)
				if err != nil {
					return err
				}
			} else {
				err := ctx.withStore(func(store *queue.Store) error {
					var err error
					cancelled, err = store.CancelWorkflow(cmd.Context(), workflowID)
					return err
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if cancelled == 0 {
				fmt.Fprintf(out, "Workflow %s has no waiting jobs\n", workflowID)
				return nil
			}
			fmt.Fprintf(out, "Cancelled %d jobs of workflow %s; running jobs finish and are then ignored\n",
				cancelled, workflowID)
			return nil
		},
	}
}
