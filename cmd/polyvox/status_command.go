package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"polyvox/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}

			running := ctx.daemonRunning(cmd.Context())
			var summary queue.HealthSummary
			if running {
				client, err := ctx.apiClient()
				if err != nil {
					return err
				}
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				detail := fmt.Sprintf("serving %s", cfg.Paths.APIBind)
				if !status.Running {
					detail = "api up, worker stopped"
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, detail, colorize))
				summary = status.Queue
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running; start with `polyvox start`", colorize))
				err := ctx.withStore(func(store *queue.Store) error {
					var err error
					summary, err = store.Health(cmd.Context())
					return err
				})
				if err != nil {
					return err
				}
			}

			fmt.Fprintln(stdout, renderStatusLine("Projects", statusInfo, cfg.Paths.ProjectsDir, colorize))
			fmt.Fprintln(stdout, renderStatusLine("TTS server", statusInfo, cfg.TTS.BaseURL, colorize))

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildQueueStatusRows(summary)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, 1))
			return nil
		},
	}
}
