// Package storyboard lays out key frames of an animation on a printable PDF
// contact sheet.
package storyboard

import (
	"context"
	"fmt"
	"math"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/samber/lo"

	"github.com/flanksource/animator/animation"
	"github.com/flanksource/animator/render"
)

const (
	DefaultFrames  = 6
	DefaultColumns = 2

	margin       = 10.0
	contentWidth = 210.0 - 2*margin // A4 in mm
	gridColumns  = 12
	captionRow   = 6.0
	thumbWidth   = 640
)

// Options controls the layout
type Options struct {
	Frames  int
	Columns int
	Title   string
}

func (o Options) withDefaults() Options {
	if o.Frames <= 0 {
		o.Frames = DefaultFrames
	}
	if o.Columns <= 0 {
		o.Columns = DefaultColumns
	}
	return o
}

// KeyFrames picks count evenly spaced frames out of total, always including
// the first and last frame
func KeyFrames(count, total int) []int {
	if total <= 0 || count <= 0 {
		return nil
	}
	if count == 1 || total == 1 {
		return []int{0}
	}
	if count >= total {
		return lo.Range(total)
	}
	frames := make([]int, count)
	for i := range frames {
		frames[i] = int(math.Round(float64(i) * float64(total-1) / float64(count-1)))
	}
	return lo.Uniq(frames)
}

// Caption labels a frame with its number and time
func Caption(frame, fps int) string {
	if fps <= 0 {
		return fmt.Sprintf("frame %d", frame)
	}
	return fmt.Sprintf("frame %d · %.1f s", frame, float64(frame)/float64(fps))
}

// Build rasterizes the key frames of source and returns the storyboard PDF
func Build(ctx context.Context, source animation.FrameSource, rasterizer render.Rasterizer, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if gridColumns%opts.Columns != 0 {
		return nil, fmt.Errorf("columns must divide %d, got %d", gridColumns, opts.Columns)
	}

	width, height := source.Size()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	raster := render.RasterOptions{Width: width, Height: height}
	if width > thumbWidth {
		raster.Width = thumbWidth
		raster.Height = int(math.Round(float64(height) * thumbWidth / float64(width)))
	}

	frames := KeyFrames(opts.Frames, source.FrameCount())
	if len(frames) == 0 {
		return nil, fmt.Errorf("animation has no frames")
	}

	type thumb struct {
		frame int
		png   []byte
	}
	thumbs := make([]thumb, 0, len(frames))
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		svg, err := source.RenderFrame(frame)
		if err != nil {
			return nil, fmt.Errorf("failed to render frame %d: %w", frame, err)
		}
		png, err := rasterizer.Rasterize(ctx, svg, raster)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize frame %d: %w", frame, err)
		}
		thumbs = append(thumbs, thumb{frame: frame, png: png})
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(margin).
		WithRightMargin(margin).
		WithTopMargin(margin).
		WithBottomMargin(margin).
		Build()
	m := maroto.New(cfg)

	if opts.Title != "" {
		m.AddRows(textRow(12, opts.Title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}))
	}
	summary := fmt.Sprintf("%d frames · %d fps · %dx%d", source.FrameCount(), source.FPS(), width, height)
	m.AddRows(textRow(8, summary, props.Text{Size: 9, Align: align.Left, Color: &props.Color{Red: 100, Green: 100, Blue: 100}}))

	colSize := gridColumns / opts.Columns
	cellHeight := contentWidth / float64(opts.Columns) * float64(height) / float64(width)
	captionProps := props.Text{
		Size:  8,
		Style: fontstyle.Italic,
		Align: align.Center,
		Color: &props.Color{Red: 100, Green: 100, Blue: 100},
	}

	for _, chunk := range lo.Chunk(thumbs, opts.Columns) {
		images := make([]core.Col, 0, len(chunk))
		captions := make([]core.Col, 0, len(chunk))
		for _, t := range chunk {
			images = append(images, col.New(colSize).Add(
				image.NewFromBytes(t.png, extension.Png, props.Rect{Center: true, Percent: 95}),
			))
			captions = append(captions, col.New(colSize).Add(
				text.New(Caption(t.frame, source.FPS()), captionProps),
			))
		}
		m.AddRow(cellHeight, images...)
		m.AddRow(captionRow, captions...)
	}

	document, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return document.GetBytes(), nil
}

func textRow(height float64, value string, p props.Text) core.Row {
	return row.New(height).Add(col.New(gridColumns).Add(text.New(value, p)))
}
