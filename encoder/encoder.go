// Package encoder combines numbered PNG frames into an H.264 video with ffmpeg.
package encoder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/alessio/shellescape"
	"github.com/flanksource/commons/logger"
)

const (
	DefaultFFmpeg  = "ffmpeg"
	DefaultCodec   = "libx264"
	DefaultPixFmt  = "yuv420p"
	DefaultCRF     = 20
	DefaultPattern = "frame-%05d.png"

	stderrLines = 20
)

// Options controls the ffmpeg invocation
type Options struct {
	FFmpegPath string   `yaml:"ffmpeg,omitempty" json:"ffmpeg,omitempty"`
	FPS        int      `yaml:"fps,omitempty" json:"fps,omitempty"`
	Codec      string   `yaml:"codec,omitempty" json:"codec,omitempty"`
	PixFmt     string   `yaml:"pixFmt,omitempty" json:"pixFmt,omitempty"`
	CRF        int      `yaml:"crf,omitempty" json:"crf,omitempty"`
	Pattern    string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	ExtraArgs  []string `yaml:"extraArgs,omitempty" json:"extraArgs,omitempty"`
}

// WithDefaults fills unset fields
func (o Options) WithDefaults() Options {
	if o.FFmpegPath == "" {
		o.FFmpegPath = DefaultFFmpeg
	}
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.Codec == "" {
		o.Codec = DefaultCodec
	}
	if o.PixFmt == "" {
		o.PixFmt = DefaultPixFmt
	}
	if o.CRF <= 0 {
		o.CRF = DefaultCRF
	}
	if o.Pattern == "" {
		o.Pattern = DefaultPattern
	}
	return o
}

// Available checks if the ffmpeg binary is in PATH
func (o Options) Available() bool {
	_, err := exec.LookPath(o.WithDefaults().FFmpegPath)
	return err == nil
}

func (o Options) encodeArgs(framesDir, output string) []string {
	o = o.WithDefaults()
	args := []string{
		"-framerate", strconv.Itoa(o.FPS),
		"-i", filepath.Join(framesDir, o.Pattern),
		"-c:v", o.Codec,
		"-pix_fmt", o.PixFmt,
		"-crf", strconv.Itoa(o.CRF),
	}
	args = append(args, o.ExtraArgs...)
	return append(args, output)
}

// Args returns the ffmpeg arguments used by Encode
func (o Options) Args(framesDir, output string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-progress", "pipe:1",
	}
	return append(args, o.encodeArgs(framesDir, output)...)
}

// ManualCommand is a copy-pasteable command that encodes the frames
func (o Options) ManualCommand(framesDir, output string) string {
	parts := []string{shellescape.Quote(o.WithDefaults().FFmpegPath), "-y"}
	for _, arg := range o.encodeArgs(framesDir, output) {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}

// EncodeError is returned when ffmpeg fails
type EncodeError struct {
	Err           error
	Stderr        string
	ManualCommand string
}

func (e *EncodeError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg failed: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg failed: %v: %s", e.Err, e.Stderr)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encode runs ffmpeg over the frames in framesDir. onProgress may be nil.
func (o Options) Encode(ctx context.Context, framesDir, output string, onProgress func(Progress)) error {
	o = o.WithDefaults()
	manual := o.ManualCommand(framesDir, output)
	fail := func(err error, stderr string) error {
		return &EncodeError{Err: err, Stderr: stderr, ManualCommand: manual}
	}

	if !o.Available() {
		return fail(fmt.Errorf("%s not found in PATH", o.FFmpegPath), "")
	}
	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fail(err, "")
		}
	}

	args := o.Args(framesDir, output)
	logger.Debugf("%s %s", o.FFmpegPath, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, o.FFmpegPath, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fail(err, "")
	}
	stderr := &tail{max: stderrLines}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fail(err, "")
	}
	readProgress(stdout, onProgress)
	if err := cmd.Wait(); err != nil {
		return fail(err, stderr.String())
	}
	return nil
}

// Progress is one ffmpeg progress report
type Progress struct {
	Frame   int
	OutTime float64
	Done    bool
}

func readProgress(r io.Reader, onProgress func(Progress)) {
	var current Progress
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if parseProgressLine(scanner.Text(), &current) && onProgress != nil {
			onProgress(current)
		}
	}
}

// parseProgressLine updates p from one key=value line and reports whether a
// progress block is complete
func parseProgressLine(line string, p *Progress) bool {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return false
	}
	switch key {
	case "frame":
		if n, err := strconv.Atoi(value); err == nil {
			p.Frame = n
		}
	case "out_time_ms", "out_time_us":
		// both keys are microseconds
		if us, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.OutTime = float64(us) / 1e6
		}
	case "progress":
		p.Done = value == "end"
		return true
	}
	return false
}

// tail keeps the last max lines written to it
type tail struct {
	mu    sync.Mutex
	max   int
	lines []string
	part  string
}

func (t *tail) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	chunks := strings.Split(t.part+string(b), "\n")
	t.part = chunks[len(chunks)-1]
	for _, line := range chunks[:len(chunks)-1] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		t.lines = append(t.lines, line)
		if len(t.lines) > t.max {
			t.lines = t.lines[len(t.lines)-t.max:]
		}
	}
	return len(b), nil
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := t.lines
	if strings.TrimSpace(t.part) != "" {
		lines = append(append([]string{}, lines...), t.part)
	}
	return strings.Join(lines, "\n")
}

// CleanupFrames removes the frames directory
func CleanupFrames(dir string) error {
	if dir == "" || dir == "/" {
		return fmt.Errorf("refusing to remove %q", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove frames: %w", err)
	}
	return nil
}
