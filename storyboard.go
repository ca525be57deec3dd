package animator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flanksource/animator/storyboard"
)

// Storyboard renders key frames of opts.Input, a diagram or a scene, into a
// PDF written to output
func (p *Pipeline) Storyboard(ctx context.Context, opts Options, board storyboard.Options, output string) error {
	source, _, err := p.Source(opts)
	if err != nil {
		return err
	}
	rasterizer, err := p.rasterizers(opts)
	if err != nil {
		return err
	}
	if board.Title == "" {
		board.Title = nameOf(opts.Input)
	}
	pdf, err := storyboard.Build(ctx, source, rasterizer, board)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(output, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write storyboard: %w", err)
	}
	p.console().Success("Storyboard saved: %s (%s)", output, Size(int64(len(pdf))))
	return nil
}
