package animator

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "animator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, `
output: videos
fps: 24
duration: 4s
width: 1920
height: 1080
fit: off
encoder:
  ffmpeg: /opt/ffmpeg/bin/ffmpeg
  crf: 28
`)
	t.Setenv(EnvFFmpeg, "/usr/local/bin/ffmpeg")
	t.Setenv(EnvAnimateURL, "")

	opts := DefaultOptions()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags, &opts)
	require.NoError(t, flags.Parse([]string{"--fps", "60", "-o", "out"}))

	require.NoError(t, LoadConfig(path, &opts, flags))

	assert.Equal(t, 60, opts.FPS, "flags win over the config file")
	assert.Equal(t, "out", opts.OutputDir)
	assert.Equal(t, 4*time.Second, opts.Duration, "config wins over defaults")
	assert.Equal(t, 1920, opts.Width)
	assert.Equal(t, 28, opts.Encoder.CRF)
	assert.Equal(t, "libx264", opts.Encoder.Codec, "unset config keys keep their defaults")
	assert.Equal(t, "/usr/local/bin/ffmpeg", opts.Encoder.FFmpegPath, "the environment wins over the config file")
	assert.False(t, opts.ShouldFit())
}

func TestLoadConfigEnvPath(t *testing.T) {
	t.Setenv(EnvConfig, writeConfig(t, "backend: browser\n"))
	opts := DefaultOptions()
	require.NoError(t, LoadConfig("", &opts, nil))
	assert.Equal(t, BackendBrowser, opts.Backend)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv(EnvConfig, "")
	opts := DefaultOptions()
	assert.Error(t, LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), &opts, nil))
	assert.Error(t, LoadConfig(writeConfig(t, "fps: [1\n"), &opts, nil))

	require.NoError(t, LoadConfig("", &opts, nil))
	assert.Equal(t, DefaultOptions().FPS, opts.FPS)
}

func TestWithBackendDefaults(t *testing.T) {
	frames := Options{}.WithBackendDefaults()
	assert.Equal(t, BackendFrames, frames.Backend)
	assert.Equal(t, 30, frames.FPS)
	assert.Equal(t, 10*time.Second, frames.Duration)
	assert.Equal(t, 1280, frames.Width)
	assert.Equal(t, "output", frames.OutputDir)

	browser := Options{Backend: BackendBrowser}.WithBackendDefaults()
	assert.Equal(t, 15, browser.FPS)
	assert.Equal(t, 15*time.Second, browser.Duration)

	explicit := Options{Backend: BackendBrowser, FPS: 24, Duration: time.Second}.WithBackendDefaults()
	assert.Equal(t, 24, explicit.FPS)
	assert.Equal(t, time.Second, explicit.Duration)
}

func TestShouldFit(t *testing.T) {
	tests := []struct {
		backend, fit string
		want         bool
	}{
		{BackendFrames, FitAuto, true},
		{BackendBrowser, FitAuto, false},
		{BackendBrowser, FitOn, true},
		{BackendFrames, FitOff, false},
		{BackendFrames, "false", false},
		{BackendBrowser, "yes", true},
		{BackendFrames, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend+"/"+tt.fit, func(t *testing.T) {
			assert.Equal(t, tt.want, Options{Backend: tt.backend, Fit: tt.fit}.ShouldFit())
		})
	}
}

func TestOptionsString(t *testing.T) {
	s := DefaultOptions().String()
	assert.Contains(t, s, "backend: frames")
	assert.Contains(t, s, "ffmpeg: ffmpeg")
	assert.NotContains(t, s, "level")
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleWriter(&out, false, true)

	c.Header("Title")
	c.Field("Output", "a.mp4")
	c.Success("done %d", 3)
	c.Warn("careful")
	c.Error("broken")
	c.Muted("ffmpeg -y")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"Title",
		"=====",
		"Output:    a.mp4",
		"   ✓ done 3",
		"   ⚠ careful",
		"   ✗ broken",
		"   ffmpeg -y",
	}, lines)
}

func TestConsoleProgress(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleWriter(&out, false, true)
	for i := 1; i <= 100; i++ {
		c.Progress("frames", i, 100)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 11, "non-interactive progress prints once per 10 percent step")
	assert.Equal(t, "   frames 100% (100/100)", lines[len(lines)-1])

	out.Reset()
	tty := NewConsoleWriter(&out, true, true)
	tty.Progress("encode", 5, 10)
	tty.Progress("encode", 10, 10)
	assert.Contains(t, out.String(), "\r   encode ")
	assert.Contains(t, out.String(), " 50% (5/10)")
	assert.True(t, strings.HasSuffix(out.String(), "(10/10)\n"))

	var nilConsole *Console
	assert.NotPanics(t, func() { nilConsole.Progress("frames", 1, 2) })
}

func TestSize(t *testing.T) {
	assert.Equal(t, "1.5 MB", Size(1_500_000))
	assert.Equal(t, "0 B", Size(-1))
}
