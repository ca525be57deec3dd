package excalidraw

import (
	"github.com/flanksource/animator/geometry"
)

// Geometry converts the element to the shape used by the viewport fitter
func (e Element) Geometry() geometry.Element {
	g := geometry.Element{
		Position:    geometry.Point{X: e.X, Y: e.Y},
		FontSize:    clonePtr(e.FontSize),
		StrokeWidth: clonePtr(e.StrokeWidth),
	}
	if e.Width != nil || e.Height != nil {
		w, h := e.Dimensions()
		g.Size = &geometry.Size{Width: w, Height: h}
	}
	if e.Points != nil {
		g.Points = make([]geometry.Point, len(e.Points))
		for i, p := range e.Points {
			g.Points[i] = geometry.Point{X: p[0], Y: p[1]}
		}
	}
	return g
}

// withGeometry returns a copy of e with the geometric fields taken from g.
// Absent width/height stay absent.
func (e Element) withGeometry(g geometry.Element) Element {
	out := e.Clone()
	out.X, out.Y = g.Position.X, g.Position.Y
	if g.Size != nil {
		if out.Width != nil {
			*out.Width = g.Size.Width
		}
		if out.Height != nil {
			*out.Height = g.Size.Height
		}
	}
	if g.FontSize != nil {
		out.FontSize = clonePtr(g.FontSize)
	}
	if g.StrokeWidth != nil {
		out.StrokeWidth = clonePtr(g.StrokeWidth)
	}
	if g.Points != nil {
		out.Points = make([][2]float64, len(g.Points))
		for i, p := range g.Points {
			out.Points[i] = [2]float64{p.X, p.Y}
		}
	}
	return out
}

// GeometryElements returns the diagram's elements as fitter input, in order
func (d *Diagram) GeometryElements() []geometry.Element {
	out := make([]geometry.Element, len(d.Elements))
	for i, e := range d.Elements {
		out[i] = e.Geometry()
	}
	return out
}

// FitToCanvas returns a copy of the diagram scaled and centred into a
// width x height canvas with padding. The receiver is not modified.
func (d *Diagram) FitToCanvas(width, height, padding float64) (*Diagram, geometry.FitTransform, error) {
	t, err := geometry.ComputeFitTransform(d.GeometryElements(), width, height, padding)
	if err != nil {
		return nil, geometry.FitTransform{}, err
	}
	return d.Transform(t), t, nil
}

// Transform returns a copy of the diagram with t applied to every element
func (d *Diagram) Transform(t geometry.FitTransform) *Diagram {
	out := d.Clone()
	for i, e := range d.Elements {
		out.Elements[i] = e.withGeometry(t.Apply(e.Geometry()))
	}
	return out
}
