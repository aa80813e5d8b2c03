package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	body := fmt.Sprintf(`[paths]
projects_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"
`, filepath.Join(base, "projects"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, configPath string, args ...string) string {
	t.Helper()
	out, err := runCommand(t, configPath, args...)
	if err != nil {
		t.Fatalf("polyvox %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func seedProject(t *testing.T, configPath, id, recipe string) {
	t.Helper()
	mustRun(t, configPath, "projects", "create", id)

	epub := filepath.Join(t.TempDir(), "book.epub")
	if err := os.WriteFile(epub, []byte("epub bytes"), 0o644); err != nil {
		t.Fatalf("write epub: %v", err)
	}
	mustRun(t, configPath, "projects", "import", id, epub)

	projectsDir := filepath.Join(filepath.Dir(configPath), "projects")
	recipePath := filepath.Join(projectsDir, id, "recipe.toml")
	if err := os.WriteFile(recipePath, []byte(recipe), 0o644); err != nil {
		t.Fatalf("write recipe: %v", err)
	}
}

const translateRecipe = `source_language = "en"

[translate]
languages = ["de"]
provider = "deepl"
`

func TestProjectsCreateAndImport(t *testing.T) {
	configPath := writeTestConfig(t)
	seedProject(t, configPath, "demo", translateRecipe)

	imported := filepath.Join(filepath.Dir(configPath), "projects", "demo", "source", "original.epub")
	if _, err := os.Stat(imported); err != nil {
		t.Fatalf("imported epub missing: %v", err)
	}

	out := mustRun(t, configPath, "projects", "list")
	if !strings.Contains(out, "demo") {
		t.Fatalf("projects list missing demo:\n%s", out)
	}
}

func TestPlanCommandCompilesRecipe(t *testing.T) {
	configPath := writeTestConfig(t)
	seedProject(t, configPath, "demo", translateRecipe)

	out := mustRun(t, configPath, "plan", "demo")
	if !strings.Contains(out, "translate") {
		t.Fatalf("plan output missing translate job:\n%s", out)
	}
	if !strings.Contains(out, "German (de)") {
		t.Fatalf("plan output missing language label:\n%s", out)
	}
	if !strings.Contains(out, "1 jobs (1 user-visible)") {
		t.Fatalf("plan output missing job count:\n%s", out)
	}
}

func TestPlanWarnsWhenSourceMissing(t *testing.T) {
	configPath := writeTestConfig(t)
	mustRun(t, configPath, "projects", "create", "empty")

	projectsDir := filepath.Join(filepath.Dir(configPath), "projects")
	recipePath := filepath.Join(projectsDir, "empty", "recipe.toml")
	if err := os.WriteFile(recipePath, []byte(translateRecipe), 0o644); err != nil {
		t.Fatalf("write recipe: %v", err)
	}

	out := mustRun(t, configPath, "plan", "empty")
	if !strings.Contains(out, "Warning") {
		t.Fatalf("expected missing-source warning:\n%s", out)
	}
}

func TestSubmitEnqueuesAndQueueListsJobs(t *testing.T) {
	configPath := writeTestConfig(t)
	seedProject(t, configPath, "demo", translateRecipe)

	out := mustRun(t, configPath, "submit", "demo")
	if !strings.Contains(out, "Submitted 1 jobs (1 user-visible) as workflow ") {
		t.Fatalf("unexpected submit output:\n%s", out)
	}

	out = mustRun(t, configPath, "queue", "list")
	if !strings.Contains(out, "translate") || !strings.Contains(out, "pending") {
		t.Fatalf("queue list missing submitted job:\n%s", out)
	}

	out = mustRun(t, configPath, "queue", "status")
	if !strings.Contains(out, "pending") || !strings.Contains(out, "total") {
		t.Fatalf("unexpected queue status:\n%s", out)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "queue", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestCancelWithoutMatchingWorkflow(t *testing.T) {
	configPath := writeTestConfig(t)
	out := mustRun(t, configPath, "cancel", "wf-missing")
	if !strings.Contains(out, "no waiting jobs") {
		t.Fatalf("unexpected cancel output:\n%s", out)
	}
}

func TestArtifactsListAndCascadeDelete(t *testing.T) {
	configPath := writeTestConfig(t)
	seedProject(t, configPath, "demo", translateRecipe)

	projectDir := filepath.Join(filepath.Dir(configPath), "projects", "demo")
	translation := filepath.Join(projectDir, "stages", "02-translate", "de.epub")
	if err := os.MkdirAll(filepath.Dir(translation), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(translation, []byte("uebersetzt"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := mustRun(t, configPath, "artifacts", "list", "demo")
	if !strings.Contains(out, "translate") || !strings.Contains(out, "German (de)") {
		t.Fatalf("artifacts list missing translation:\n%s", out)
	}

	out = mustRun(t, configPath, "artifacts", "delete", "demo", "translate", "de")
	if !strings.Contains(out, "Deleted") || !strings.Contains(out, "sentence-pair cache") {
		t.Fatalf("unexpected delete output:\n%s", out)
	}
	if _, err := os.Stat(translation); !os.IsNotExist(err) {
		t.Fatalf("translation still present after delete: %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "polyvox", "config.toml")
	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v\n%s", err, buf.String())
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
}
