package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// PatternSourceFirst and PatternTargetFirst order the two languages inside
// each interleaved sentence pair.
const (
	PatternSourceFirst = "source-first"
	PatternTargetFirst = "target-first"
)

// ProgressUpdate reports how far an ffmpeg run has come.
type ProgressUpdate struct {
	Seconds float64
	Message string
}

// AssembleRequest interleaves two complete synthesis sessions.
type AssembleRequest struct {
	SourceSessionDir string
	TargetSessionDir string
	Pattern          string
	PauseMs          int
	OutputPath       string
}

// VideoRequest renders an audiobook over a still background image.
type VideoRequest struct {
	AudioPath  string
	Background string
	OutputPath string
}

// Client defines the media assembly behaviour.
type Client interface {
	Assemble(ctx context.Context, req AssembleRequest, progress func(ProgressUpdate)) error
	RenderVideo(ctx context.Context, req VideoRequest, progress func(ProgressUpdate)) error
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

// CLI wraps the ffmpeg command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Assemble interleaves the sentence WAVs of both sessions in pair order and
// encodes the result as an m4b audiobook. Sessions must hold the same number
// of sentences.
func (c *CLI) Assemble(ctx context.Context, req AssembleRequest, progress func(ProgressUpdate)) error {
	if req.SourceSessionDir == "" || req.TargetSessionDir == "" {
		return errors.New("both session directories required")
	}
	if req.OutputPath == "" {
		return errors.New("output path required")
	}

	sourceWavs, err := sentenceFiles(req.SourceSessionDir)
	if err != nil {
		return err
	}
	targetWavs, err := sentenceFiles(req.TargetSessionDir)
	if err != nil {
		return err
	}
	if len(sourceWavs) == 0 {
		return fmt.Errorf("no sentences in %s", req.SourceSessionDir)
	}
	if len(sourceWavs) != len(targetWavs) {
		return fmt.Errorf("sentence count mismatch: %d source, %d target", len(sourceWavs), len(targetWavs))
	}

	outDir := filepath.Dir(req.OutputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var pausePath string
	if req.PauseMs > 0 {
		pausePath = filepath.Join(outDir, ".pause.wav")
		if err := c.renderSilence(ctx, pausePath, req.PauseMs); err != nil {
			return err
		}
		defer os.Remove(pausePath)
	}

	listPath := filepath.Join(outDir, ".concat.txt")
	if err := writeConcatList(listPath, sourceWavs, targetWavs, req.Pattern, pausePath); err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{
		"-y", "-nostdin",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c:a", "aac", "-b:a", "96k",
		"-progress", "pipe:1",
		req.OutputPath,
	}
	return c.run(ctx, "assemble", args, progress)
}

// RenderVideo loops the background image for the duration of the audiobook.
func (c *CLI) RenderVideo(ctx context.Context, req VideoRequest, progress func(ProgressUpdate)) error {
	if req.AudioPath == "" {
		return errors.New("audio path required")
	}
	if req.OutputPath == "" {
		return errors.New("output path required")
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	args := []string{"-y", "-nostdin"}
	if req.Background != "" {
		args = append(args, "-loop", "1", "-i", req.Background)
	} else {
		args = append(args, "-f", "lavfi", "-i", "color=c=black:s=1280x720")
	}
	args = append(args,
		"-i", req.AudioPath,
		"-c:v", "libx264", "-tune", "stillimage", "-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-shortest",
		"-progress", "pipe:1",
		req.OutputPath,
	)
	return c.run(ctx, "render video", args, progress)
}

// HealthCheck verifies the binary is runnable.
func (c *CLI) HealthCheck(ctx context.Context) error {
	cmd := commandContext(ctx, c.binary, "-version")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s unavailable: %w (%s)", c.binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (c *CLI) renderSilence(ctx context.Context, path string, durationMs int) error {
	seconds := strconv.FormatFloat(float64(durationMs)/1000, 'f', 3, 64)
	args := []string{
		"-y", "-nostdin",
		"-f", "lavfi", "-i", "anullsrc=r=24000:cl=mono",
		"-t", seconds,
		path,
	}
	return c.run(ctx, "render silence", args, nil)
}

func (c *CLI) run(ctx context.Context, op string, args []string, progress func(ProgressUpdate)) error {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg %s: %w", op, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, found := strings.Cut(line, "=")
		if !found || progress == nil {
			continue
		}
		if key == "out_time_us" {
			if us, err := strconv.ParseInt(value, 10, 64); err == nil {
				progress(ProgressUpdate{Seconds: float64(us) / 1e6, Message: op})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ffmpeg output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 400 {
			detail = detail[len(detail)-400:]
		}
		return fmt.Errorf("ffmpeg %s failed: %w: %s", op, err, detail)
	}
	return nil
}

// sentenceFiles lists a session's numbered WAVs in sentence order.
func sentenceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wav") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func writeConcatList(path string, sourceWavs, targetWavs []string, pattern, pausePath string) error {
	var b strings.Builder
	writeEntry := func(file string) {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(file, "'", `'\''`))
		b.WriteString("'\n")
	}
	for i := range sourceWavs {
		first, second := sourceWavs[i], targetWavs[i]
		if pattern == PatternTargetFirst {
			first, second = second, first
		}
		writeEntry(first)
		if pausePath != "" {
			writeEntry(pausePath)
		}
		writeEntry(second)
		if pausePath != "" {
			writeEntry(pausePath)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

var _ Client = (*CLI)(nil)
