package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"polyvox/internal/notifications"
	"polyvox/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "submit <project>",
		Short: "Compile a project's recipe and enqueue the resulting jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := ctx.projectDir(args[0])
			if err != nil {
				return err
			}
			plan, err := compileProject(ctx, projectDir)
			if err != nil {
				return err
			}
			if len(plan.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to submit: the recipe produces no jobs")
				return nil
			}

			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.Enqueue(cmd.Context(), plan)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, warning := range plan.Warnings {
					fmt.Fprintf(out, "Warning (%s): %s\n", warning.Stage, warning.Message)
				}
				fmt.Fprintf(out, "Submitted %d jobs (%d user-visible) as workflow %s\n",
					len(items), plan.VisibleJobCount(), plan.WorkflowID)

				if !quiet {
					cfg, _ := ctx.ensureConfig()
					notifier := notifications.NewService(cfg)
					if err := notifier.NotifyWorkflowSubmitted(cmd.Context(), filepath.Base(projectDir), plan.VisibleJobCount()); err != nil {
						fmt.Fprintf(out, "Notification failed: %v\n", err)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Skip the submission push notification")
	return cmd
}
