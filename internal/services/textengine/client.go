package textengine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// ProgressUpdate captures bookwright progress events.
type ProgressUpdate struct {
	Percent float64
	Stage   string
	Message string
}

// CleanRequest configures one cleanup or simplification pass.
type CleanRequest struct {
	InputPath  string
	OutputPath string
	Simplify   bool
	Provider   string
	Model      string
}

// TranslateRequest configures one translation pass. PairsPath receives the
// aligned sentence pairs the downstream stages consume.
type TranslateRequest struct {
	InputPath  string
	OutputPath string
	PairsPath  string
	Language   string
	Provider   string
	Model      string
}

// Client defines the text engine behaviour.
type Client interface {
	Clean(ctx context.Context, req CleanRequest, progress func(ProgressUpdate)) error
	Translate(ctx context.Context, req TranslateRequest, progress func(ProgressUpdate)) error
	Segment(ctx context.Context, inputPath, outputPath string) error
	HealthCheck(ctx context.Context) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the bookwright command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "bookwright"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Clean launches a cleanup or simplification pass.
func (c *CLI) Clean(ctx context.Context, req CleanRequest, progress func(ProgressUpdate)) error {
	if req.InputPath == "" {
		return errors.New("input path required")
	}
	if req.OutputPath == "" {
		return errors.New("output path required")
	}

	mode := "clean"
	if req.Simplify {
		mode = "simplify"
	}
	args := []string{mode, "--input", req.InputPath, "--output", req.OutputPath, "--progress-json"}
	args = appendEngineArgs(args, req.Provider, req.Model)
	return c.run(ctx, mode, args, progress)
}

// Translate launches a translation pass with sentence alignment.
func (c *CLI) Translate(ctx context.Context, req TranslateRequest, progress func(ProgressUpdate)) error {
	if req.InputPath == "" {
		return errors.New("input path required")
	}
	if req.OutputPath == "" {
		return errors.New("output path required")
	}
	if req.Language == "" {
		return errors.New("target language required")
	}

	args := []string{
		"translate",
		"--input", req.InputPath,
		"--output", req.OutputPath,
		"--language", req.Language,
		"--progress-json",
	}
	if req.PairsPath != "" {
		args = append(args, "--pairs", req.PairsPath)
	}
	args = appendEngineArgs(args, req.Provider, req.Model)
	return c.run(ctx, "translate", args, progress)
}

// Segment splits an EPUB into sentences and writes them as a JSON document.
func (c *CLI) Segment(ctx context.Context, inputPath, outputPath string) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}
	args := []string{"segment", "--input", inputPath, "--output", outputPath}
	return c.run(ctx, "segment", args, nil)
}

// HealthCheck verifies the binary is runnable.
func (c *CLI) HealthCheck(ctx context.Context) error {
	cmd := commandContext(ctx, c.binary, "--version")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s unavailable: %w (%s)", c.binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func appendEngineArgs(args []string, provider, model string) []string {
	if provider != "" {
		args = append(args, "--provider", provider)
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	return args
}

func (c *CLI) run(ctx context.Context, op string, args []string, progress func(ProgressUpdate)) error {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s %s: %w", c.binary, op, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		var payload struct {
			Percent float64 `json:"percent"`
			Stage   string  `json:"stage"`
			Message string  `json:"message"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			continue
		}
		if progress != nil {
			progress(ProgressUpdate{Percent: payload.Percent, Stage: payload.Stage, Message: payload.Message})
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s output: %w", c.binary, err)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s %s failed: %w", c.binary, op, err)
	}
	return nil
}

var _ Client = (*CLI)(nil)
