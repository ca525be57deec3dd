package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// OKSVG rasterizes in process with oksvg. It is always available but does
// not draw <text> elements.
type OKSVG struct{}

func NewOKSVG() *OKSVG {
	return &OKSVG{}
}

func (r *OKSVG) Name() string {
	return NameOKSVG
}

func (r *OKSVG) IsAvailable() bool {
	return true
}

func (r *OKSVG) Rasterize(ctx context.Context, svg []byte, opts RasterOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, newRasterError(r.Name(), "parse SVG", err)
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = int(math.Ceil(icon.ViewBox.W))
	}
	if height <= 0 {
		height = int(math.Ceil(icon.ViewBox.H))
	}
	if width <= 0 || height <= 0 {
		return nil, newRasterError(r.Name(), "size", fmt.Errorf("invalid output size %dx%d", width, height))
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, newRasterError(r.Name(), "encode PNG", err)
	}
	return buf.Bytes(), nil
}
