package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"polyvox/internal/language"
	"polyvox/internal/sessions"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <project>",
		Short: "List a project's synthesis sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := ctx.projectDir(args[0])
			if err != nil {
				return err
			}
			discovered, err := sessions.Scan(projectDir)
			if err != nil {
				return err
			}
			if len(discovered) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No synthesis sessions yet")
				return nil
			}

			rows := make([][]string, 0, len(discovered))
			for _, session := range discovered {
				resume, err := sessions.CheckResume(session.SessionDir)
				if err != nil {
					return err
				}
				state := "in progress"
				if session.Complete {
					state = "complete"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%s (%s)", language.DisplayName(session.Language), session.Language),
					resume.Voice,
					fmt.Sprintf("%d/%d", resume.CompletedSentences, resume.TotalSentences),
					state,
					session.CreatedAt.Format(time.DateOnly),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Language", "Voice", "Sentences", "State", "Created"}, rows, 2))
			return nil
		},
	}
}
