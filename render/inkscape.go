package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Inkscape rasterizes with the inkscape CLI through temporary files
type Inkscape struct {
	Binary string
}

func NewInkscape() *Inkscape {
	return &Inkscape{Binary: "inkscape"}
}

func (r *Inkscape) Name() string {
	return NameInkscape
}

// IsAvailable checks if Inkscape is available in PATH
func (r *Inkscape) IsAvailable() bool {
	_, err := exec.LookPath(r.Binary)
	return err == nil
}

func (r *Inkscape) args(svgPath, pngPath string, opts RasterOptions) []string {
	args := []string{
		svgPath,
		"--export-type=png",
		"--export-filename=" + pngPath,
	}
	if opts.Width > 0 {
		args = append(args, "--export-width="+strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		args = append(args, "--export-height="+strconv.Itoa(opts.Height))
	}
	if opts.Background != "" {
		args = append(args, "--export-background="+opts.Background)
	}
	return args
}

func (r *Inkscape) Rasterize(ctx context.Context, svg []byte, opts RasterOptions) ([]byte, error) {
	if !r.IsAvailable() {
		return nil, newRasterError(r.Name(), "rasterize", fmt.Errorf("%s not found in PATH", r.Binary))
	}

	dir, err := os.MkdirTemp("", "animator-inkscape-")
	if err != nil {
		return nil, newRasterError(r.Name(), "create temp dir", err)
	}
	defer os.RemoveAll(dir)

	svgPath := filepath.Join(dir, "frame.svg")
	pngPath := filepath.Join(dir, "frame.png")
	if err := os.WriteFile(svgPath, svg, 0o644); err != nil {
		return nil, newRasterError(r.Name(), "write SVG", err)
	}

	cmd := exec.CommandContext(ctx, r.Binary, r.args(svgPath, pngPath, opts)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, newRasterError(r.Name(), "rasterize", fmt.Errorf("command failed: %w, output: %s", err, string(output)))
	}

	data, err := os.ReadFile(pngPath)
	if err != nil {
		return nil, newRasterError(r.Name(), "read PNG", err)
	}
	return data, nil
}
