package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"polyvox/internal/catalog"
	"polyvox/internal/compile"
	"polyvox/internal/language"
	"polyvox/internal/sessions"
	"polyvox/internal/wizard"
)

// compileProject loads the project's recipe and compiles it against the
// current artifact catalog and discovered synthesis sessions.
func compileProject(ctx *commandContext, projectDir string) (*compile.Plan, error) {
	recipe, err := wizard.LoadRecipe(projectDir)
	if err != nil {
		return nil, err
	}
	session, err := recipe.Session(projectDir)
	if err != nil {
		return nil, err
	}
	snapshot, err := catalog.Scan(projectDir)
	if err != nil {
		return nil, err
	}
	discovered, err := sessions.Scan(projectDir)
	if err != nil {
		return nil, err
	}
	return compile.Compile(compile.Inputs{
		Config:   session.Snapshot(),
		Catalog:  snapshot,
		Sessions: discovered,
	}), nil
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "plan <project>",
		Short: "Preview the job plan a project's recipe compiles to",
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
			if jsonOut {
				return writeJSON(cmd, plan)
			}
			printPlan(cmd, plan)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the plan as JSON")
	return cmd
}

func printPlan(cmd *cobra.Command, plan *compile.Plan) {
	out := cmd.OutOrStdout()

	if len(plan.Jobs) == 0 {
		fmt.Fprintln(out, "Nothing to do: the recipe produces no jobs")
	} else {
		rows := make([][]string, 0, len(plan.Jobs))
		for i, job := range plan.Jobs {
			rows = append(rows, []string{
				fmt.Sprintf("%d", i+1),
				string(job.Type),
				jobLanguageLabel(job),
				jobStateLabel(job),
				filepath.Base(job.OutputPath()),
			})
		}
		fmt.Fprintln(out, renderTable([]string{"#", "Stage", "Language", "State", "Output"}, rows, 0))
		fmt.Fprintf(out, "%d jobs (%d user-visible) for workflow %s\n",
			len(plan.Jobs), plan.VisibleJobCount(), plan.WorkflowID)
	}

	for _, kind := range plan.AutoSkipped {
		fmt.Fprintf(out, "Auto-skipped: %s\n", kind)
	}
	for _, warning := range plan.Warnings {
		fmt.Fprintf(out, "Warning (%s): %s\n", warning.Stage, warning.Message)
	}
}

func jobLanguageLabel(job compile.Job) string {
	code := job.Language()
	if code == "" {
		if job.Assembly != nil {
			return fmt.Sprintf("%s+%s", job.Assembly.SourceLanguage, job.Assembly.TargetLanguage)
		}
		return ""
	}
	return fmt.Sprintf("%s (%s)", language.DisplayName(code), code)
}

func jobStateLabel(job compile.Job) string {
	switch {
	case job.Placeholder:
		return "waiting for chain"
	case job.ChainRole == compile.ChainSource:
		return "chain source"
	case job.ChainRole == compile.ChainSolo:
		return "solo chain"
	case !job.InputExists:
		return "waiting for input"
	default:
		return "ready"
	}
}
