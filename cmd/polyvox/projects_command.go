package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"polyvox/internal/catalog"
	"polyvox/internal/config"
	"polyvox/internal/fileutil"
	"polyvox/internal/sessions"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage book projects",
	}

	projectsCmd.AddCommand(newProjectsListCommand(ctx))
	projectsCmd.AddCommand(newProjectsCreateCommand(ctx))
	projectsCmd.AddCommand(newProjectsImportCommand(ctx))

	return projectsCmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects under the projects root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			projects, err := catalog.ListProjects(cfg.Paths.ProjectsDir)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects yet; create one with `polyvox projects create <id>`")
				return nil
			}

			rows := make([][]string, 0, len(projects))
			for _, project := range projects {
				snapshot, err := catalog.Scan(project.RootDir)
				if err != nil {
					return err
				}
				discovered, err := sessions.Scan(project.RootDir)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					project.ID,
					strconv.Itoa(len(snapshot.Artifacts)),
					strconv.Itoa(len(discovered)),
					shortFingerprint(snapshot.Fingerprint),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Project", "Artifacts", "Sessions", "Fingerprint"}, rows, 1, 2))
			return nil
		},
	}
}

func newProjectsCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <id>",
		Short: "Create a project directory layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			project, err := catalog.InitProject(cfg.Paths.ProjectsDir, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created project %s at %s\n", project.ID, project.RootDir)
			fmt.Fprintf(out, "Import a book with `polyvox projects import %s <epub>` and add a %s recipe.\n",
				project.ID, "recipe.toml")
			return nil
		},
	}
}

func newProjectsImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <project> <epub>",
		Short: "Copy an EPUB into a project as its original source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := ctx.projectDir(args[0])
			if err != nil {
				return err
			}
			src, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			if _, err := os.Stat(projectDir); err != nil {
				return fmt.Errorf("project %s does not exist; create it first", args[0])
			}

			dst := catalog.OriginalPath(projectDir)
			if err := fileutil.CopyFileVerified(src, dst); err != nil {
				return fmt.Errorf("import %s: %w", src, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as %s\n", src, dst)
			return nil
		},
	}
}

func shortFingerprint(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
