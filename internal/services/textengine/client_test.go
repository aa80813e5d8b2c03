package textengine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
)

func TestNewCLIWithBinary(t *testing.T) {
	cli := NewCLI(WithBinary("/opt/bookwright"))
	if cli.binary != "/opt/bookwright" {
		t.Fatalf("expected binary override to be applied, got %q", cli.binary)
	}
}

func TestCleanRequiresPaths(t *testing.T) {
	cli := NewCLI()
	if err := cli.Clean(context.Background(), CleanRequest{OutputPath: "/out.epub"}, nil); err == nil {
		t.Fatal("expected error when input path is empty")
	}
	if err := cli.Clean(context.Background(), CleanRequest{InputPath: "/in.epub"}, nil); err == nil {
		t.Fatal("expected error when output path is empty")
	}
}

func TestTranslateRequiresLanguage(t *testing.T) {
	cli := NewCLI()
	req := TranslateRequest{InputPath: "/in.epub", OutputPath: "/out.epub"}
	if err := cli.Translate(context.Background(), req, nil); err == nil {
		t.Fatal("expected error when language is empty")
	}
}

func stubCommand(t *testing.T, capture *[]string, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		*capture = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "BOOKWRIGHT_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestCleanSelectsSimplifyMode(t *testing.T) {
	var captured []string
	stubCommand(t, &captured, "success")

	cli := NewCLI()
	req := CleanRequest{
		InputPath:  "/in.epub",
		OutputPath: "/out.epub",
		Simplify:   true,
		Provider:   "openrouter",
		Model:      "test-model",
	}
	if err := cli.Clean(context.Background(), req, nil); err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if len(captured) == 0 || captured[0] != "simplify" {
		t.Fatalf("expected simplify subcommand, got %v", captured)
	}
	assertFlag(t, captured, "--provider", "openrouter")
	assertFlag(t, captured, "--model", "test-model")
}

func TestTranslatePassesPairsPath(t *testing.T) {
	var captured []string
	stubCommand(t, &captured, "progress")

	var updates []ProgressUpdate
	cli := NewCLI()
	req := TranslateRequest{
		InputPath:  "/in.epub",
		OutputPath: "/de.epub",
		PairsPath:  "/sentence_pairs_de.json",
		Language:   "de",
	}
	err := cli.Translate(context.Background(), req, func(update ProgressUpdate) {
		updates = append(updates, update)
	})
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	assertFlag(t, captured, "--pairs", "/sentence_pairs_de.json")
	assertFlag(t, captured, "--language", "de")
	if len(updates) == 0 {
		t.Fatal("expected progress updates from JSON output")
	}
	if updates[len(updates)-1].Percent != 100 {
		t.Fatalf("last progress = %+v", updates[len(updates)-1])
	}
}

func TestRunSurfacesFailure(t *testing.T) {
	var captured []string
	stubCommand(t, &captured, "fail")

	cli := NewCLI()
	req := CleanRequest{InputPath: "/in.epub", OutputPath: "/out.epub"}
	if err := cli.Clean(context.Background(), req, nil); err == nil {
		t.Fatal("expected error from failing process")
	}
}

func assertFlag(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i, arg := range args {
		if arg == flag {
			if i+1 >= len(args) {
				t.Fatalf("%s present without value in %v", flag, args)
			}
			if args[i+1] != value {
				t.Fatalf("%s = %q, want %q", flag, args[i+1], value)
			}
			return
		}
	}
	t.Fatalf("expected %s in args %v", flag, args)
}

// TestHelperProcess is re-executed by the stubbed command factory; it is not
// a real test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("BOOKWRIGHT_HELPER_MODE") {
	case "success":
		os.Exit(0)
	case "progress":
		fmt.Println(`{"percent":50,"stage":"translate","message":"halfway"}`)
		fmt.Println(`{"percent":100,"stage":"translate","message":"done"}`)
		os.Exit(0)
	case "fail":
		fmt.Println("fatal: engine exploded")
		os.Exit(1)
	}
	os.Exit(0)
}
