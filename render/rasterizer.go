// Package render turns SVG frames into PNG images and writes whole
// animations to disk.
package render

import (
	"context"
	"fmt"
)

// Rasterizer converts one SVG document into PNG bytes
type Rasterizer interface {
	// Name returns the name of the rasterizer
	Name() string

	// IsAvailable checks if the rasterizer can run on this system
	IsAvailable() bool

	// Rasterize renders svg as a PNG
	Rasterize(ctx context.Context, svg []byte, opts RasterOptions) ([]byte, error)
}

// RasterOptions holds the output size of a rasterization
type RasterOptions struct {
	// Output width in pixels (0 = size of the SVG)
	Width int

	// Output height in pixels (0 = size of the SVG)
	Height int

	// Background color (transparent if empty)
	Background string
}

const (
	NameRSVG       = "rsvg"
	NameInkscape   = "inkscape"
	NamePlaywright = "playwright"
	NameOKSVG      = "oksvg"
)

// RasterError represents an error from a rasterizer
type RasterError struct {
	Rasterizer string
	Operation  string
	Err        error
}

func (e *RasterError) Error() string {
	return fmt.Sprintf("%s rasterizer %s failed: %v", e.Rasterizer, e.Operation, e.Err)
}

func (e *RasterError) Unwrap() error {
	return e.Err
}

func newRasterError(rasterizer, operation string, err error) error {
	return &RasterError{
		Rasterizer: rasterizer,
		Operation:  operation,
		Err:        err,
	}
}
