package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"polyvox/internal/catalog"
	"polyvox/internal/language"
)

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Inspect and delete project artifacts",
	}

	artifactsCmd.AddCommand(newArtifactsListCommand(ctx))
	artifactsCmd.AddCommand(newArtifactsDeleteCommand(ctx))

	return artifactsCmd
}

func newArtifactsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List a project's artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := ctx.projectDir(args[0])
			if err != nil {
				return err
			}
			snapshot, err := catalog.Scan(projectDir)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, snapshot)
			}
			if len(snapshot.Artifacts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No artifacts yet")
				return nil
			}

			rows := make([][]string, 0, len(snapshot.Artifacts))
			for _, artifact := range snapshot.Artifacts {
				lang := ""
				if artifact.Language != "" {
					lang = fmt.Sprintf("%s (%s)", language.DisplayName(artifact.Language), artifact.Language)
				}
				rows = append(rows, []string{
					string(artifact.Stage),
					artifact.Filename,
					lang,
					artifact.Path,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Stage", "Name", "Language", "Path"}, rows))
			fmt.Fprintf(out, "Catalog fingerprint: %s\n", shortFingerprint(snapshot.Fingerprint))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the catalog as JSON")
	return cmd
}

func newArtifactsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project> <stage> <name>",
		Short: "Delete an artifact and everything derived from it",
		Long: `Delete an artifact by stage and name, e.g. "translate de" or
"cleanup cleaned". Deleting a translation also removes its sentence-pair
cache and the synthesis session for that language.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := ctx.projectDir(args[0])
			if err != nil {
				return err
			}
			snapshot, err := catalog.Scan(projectDir)
			if err != nil {
				return err
			}
			artifact, ok := snapshot.Lookup(catalog.Stage(args[1]), args[2])
			if !ok {
				return fmt.Errorf("no %s artifact named %q in %s", args[1], args[2], projectDir)
			}
			if err := catalog.RemoveArtifact(projectDir, artifact); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted %s\n", artifact.Path)
			if artifact.Stage == catalog.StageTranslate && artifact.Language != "" {
				fmt.Fprintf(out, "Also removed the %s sentence-pair cache and synthesis session\n",
					artifact.Language)
			}
			return nil
		},
	}
}
