package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/flanksource/commons/logger"
	"golang.org/x/sync/errgroup"

	"github.com/flanksource/animator/animation"
)

// DefaultPattern names frame files; ffmpeg reads them back with the same pattern
const DefaultPattern = "frame-%05d.png"

// FrameWriter renders every frame of a source to PNG files in Dir
type FrameWriter struct {
	Source     animation.FrameSource
	Rasterizer Rasterizer
	Dir        string
	Workers    int
	Pattern    string
	Background string
	// OnProgress is called after each frame with the number of frames written
	OnProgress func(done, total int)
}

// Path returns the file frame is written to
func (w *FrameWriter) Path(frame int) string {
	pattern := w.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	return filepath.Join(w.Dir, fmt.Sprintf(pattern, frame))
}

// Write renders all frames concurrently. The first error cancels the
// remaining frames. It returns the number of frames written.
func (w *FrameWriter) Write(ctx context.Context) (int, error) {
	if w.Source == nil || w.Rasterizer == nil {
		return 0, fmt.Errorf("frame writer needs a source and a rasterizer")
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create frames directory: %w", err)
	}

	workers := w.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	total := w.Source.FrameCount()
	width, height := w.Source.Size()
	opts := RasterOptions{Width: width, Height: height, Background: w.Background}

	logger.Debugf("Rendering %d frames at %dx%d with %s (%d workers)", total, width, height, w.Rasterizer.Name(), workers)

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for frame := 0; frame < total; frame++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := w.writeFrame(gctx, frame, opts); err != nil {
				return err
			}
			n := done.Add(1)
			if w.OnProgress != nil {
				w.OnProgress(int(n), total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(done.Load()), err
	}
	if err := ctx.Err(); err != nil {
		return int(done.Load()), err
	}
	return total, nil
}

func (w *FrameWriter) writeFrame(ctx context.Context, frame int, opts RasterOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	svg, err := w.Source.RenderFrame(frame)
	if err != nil {
		return fmt.Errorf("failed to render frame %d: %w", frame, err)
	}
	png, err := w.Rasterizer.Rasterize(ctx, svg, opts)
	if err != nil {
		return fmt.Errorf("failed to rasterize frame %d: %w", frame, err)
	}
	if err := os.WriteFile(w.Path(frame), png, 0o644); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", frame, err)
	}
	return nil
}
