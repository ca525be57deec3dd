package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// RSVG rasterizes with rsvg-convert, streaming through stdin and stdout
type RSVG struct {
	Binary string
}

func NewRSVG() *RSVG {
	return &RSVG{Binary: "rsvg-convert"}
}

func (r *RSVG) Name() string {
	return NameRSVG
}

// IsAvailable checks if rsvg-convert is available in PATH
func (r *RSVG) IsAvailable() bool {
	_, err := exec.LookPath(r.Binary)
	return err == nil
}

func (r *RSVG) args(opts RasterOptions) []string {
	args := []string{"--format=png"}
	if opts.Width > 0 {
		args = append(args, "--width="+strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		args = append(args, "--height="+strconv.Itoa(opts.Height))
	}
	if opts.Background != "" {
		args = append(args, "--background-color="+opts.Background)
	}
	return append(args, "-")
}

func (r *RSVG) Rasterize(ctx context.Context, svg []byte, opts RasterOptions) ([]byte, error) {
	if !r.IsAvailable() {
		return nil, newRasterError(r.Name(), "rasterize", fmt.Errorf("%s not found in PATH", r.Binary))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, r.args(opts)...)
	cmd.Stdin = bytes.NewReader(svg)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, newRasterError(r.Name(), "rasterize", fmt.Errorf("command failed: %w, output: %s", err, stderr.String()))
	}
	return stdout.Bytes(), nil
}
