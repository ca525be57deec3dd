// Package geometry fits positioned 2D elements into a fixed-size canvas.
//
// The fit is a single uniform scale plus a translation, computed once from
// the bounding box of all elements and then applied to each element's
// position, size, points and scalar stroke/font attributes.
package geometry

import (
	"fmt"
	"math"
)

// Point is an (x, y) coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width and height
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is a positioned drawable item. Size, Points and the scalar
// attributes are independent and may each be absent.
type Element struct {
	Position    Point    `json:"position"`
	Size        *Size    `json:"size,omitempty"`
	Points      []Point  `json:"points,omitempty"`
	FontSize    *float64 `json:"fontSize,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
}

// BoundingBox is the axis-aligned rectangle enclosing a set of elements
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width of the box
func (b BoundingBox) Width() float64 { return b.MaxX - b.MinX }

// Height of the box
func (b BoundingBox) Height() float64 { return b.MaxY - b.MinY }

// Center of the box
func (b BoundingBox) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// FitTransform maps source coordinates into the canvas: p' = p*Scale + Offset
type FitTransform struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Identity is the transform that leaves elements unchanged
var Identity = FitTransform{Scale: 1}

func (t FitTransform) String() string {
	return fmt.Sprintf("Scale: %.2f, Offset: (%.0f, %.0f)", t.Scale, t.OffsetX, t.OffsetY)
}

// Bounds computes the bounding box of elements. Only position and size
// contribute; points are ignored.
func Bounds(elements []Element) (BoundingBox, error) {
	if len(elements) == 0 {
		return BoundingBox{}, invalidInput("no elements to compute a bounding box from")
	}

	box := BoundingBox{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
	for _, e := range elements {
		var w, h float64
		if e.Size != nil {
			w, h = e.Size.Width, e.Size.Height
		}
		box.MinX = math.Min(box.MinX, e.Position.X)
		box.MinY = math.Min(box.MinY, e.Position.Y)
		box.MaxX = math.Max(box.MaxX, e.Position.X+w)
		box.MaxY = math.Max(box.MaxY, e.Position.Y+h)
	}
	return box, nil
}

// ComputeFitTransform returns the uniform scale and offset that centers the
// elements' bounding box inside a canvasWidth x canvasHeight canvas, inset by
// padding on the constraining axis.
//
// An axis with zero content extent gets a scale of 1 instead of dividing by
// zero, so a single point or a perfectly aligned row still produces a
// centered result.
func ComputeFitTransform(elements []Element, canvasWidth, canvasHeight, padding float64) (FitTransform, error) {
	if err := validateCanvas(canvasWidth, canvasHeight, padding); err != nil {
		return FitTransform{}, err
	}
	box, err := Bounds(elements)
	if err != nil {
		return FitTransform{}, err
	}

	contentWidth := box.Width()
	contentHeight := box.Height()

	scaleX := axisScale(canvasWidth-2*padding, contentWidth)
	scaleY := axisScale(canvasHeight-2*padding, contentHeight)
	scale := math.Min(scaleX, scaleY)

	scaledWidth := contentWidth * scale
	scaledHeight := contentHeight * scale

	return FitTransform{
		Scale:   scale,
		OffsetX: (canvasWidth-scaledWidth)/2 - box.MinX*scale,
		OffsetY: (canvasHeight-scaledHeight)/2 - box.MinY*scale,
	}, nil
}

func axisScale(available, content float64) float64 {
	if content == 0 {
		return 1
	}
	return available / content
}

func validateCanvas(width, height, padding float64) error {
	switch {
	case !(width > 0):
		return invalidInput(fmt.Sprintf("canvas width must be positive, got %v", width))
	case !(height > 0):
		return invalidInput(fmt.Sprintf("canvas height must be positive, got %v", height))
	case !(padding > 0):
		return invalidInput(fmt.Sprintf("padding must be positive, got %v", padding))
	case padding >= math.Min(width, height)/2:
		return invalidInput(fmt.Sprintf("padding %v leaves no room in a %vx%v canvas", padding, width, height))
	}
	return nil
}

// Apply returns a transformed copy of e. Points are local offsets from the
// element position, so they are scaled but not translated.
func (t FitTransform) Apply(e Element) Element {
	out := Element{
		Position: Point{
			X: e.Position.X*t.Scale + t.OffsetX,
			Y: e.Position.Y*t.Scale + t.OffsetY,
		},
	}
	if e.Size != nil {
		out.Size = &Size{Width: e.Size.Width * t.Scale, Height: e.Size.Height * t.Scale}
	}
	if e.FontSize != nil {
		v := *e.FontSize * t.Scale
		out.FontSize = &v
	}
	if e.StrokeWidth != nil {
		v := *e.StrokeWidth * t.Scale
		out.StrokeWidth = &v
	}
	if e.Points != nil {
		out.Points = make([]Point, len(e.Points))
		for i, p := range e.Points {
			out.Points[i] = t.ApplyVector(p)
		}
	}
	return out
}

// ApplyAll returns transformed copies of all elements, in order
func (t FitTransform) ApplyAll(elements []Element) []Element {
	out := make([]Element, len(elements))
	for i, e := range elements {
		out[i] = t.Apply(e)
	}
	return out
}

// ApplyPoint maps an absolute coordinate
func (t FitTransform) ApplyPoint(p Point) Point {
	return Point{X: p.X*t.Scale + t.OffsetX, Y: p.Y*t.Scale + t.OffsetY}
}

// ApplyVector maps a relative offset (scale only)
func (t FitTransform) ApplyVector(p Point) Point {
	return Point{X: p.X * t.Scale, Y: p.Y * t.Scale}
}

// ApplyScalar scales a length such as a font size or stroke width
func (t FitTransform) ApplyScalar(v float64) float64 {
	return v * t.Scale
}

// Fit computes the transform for elements and returns transformed copies
func Fit(elements []Element, canvasWidth, canvasHeight, padding float64) ([]Element, FitTransform, error) {
	t, err := ComputeFitTransform(elements, canvasWidth, canvasHeight, padding)
	if err != nil {
		return nil, FitTransform{}, err
	}
	return t.ApplyAll(elements), t, nil
}
