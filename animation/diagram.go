// Package animation renders animation frames as SVG documents. Every frame
// is a pure function of its frame number, so frames can be rendered in any
// order and in parallel.
package animation

import (
	"math"
	"strings"
	"time"

	"github.com/flanksource/animator/excalidraw"
	"github.com/flanksource/animator/timeline"
)

// FrameSource produces SVG frames for a fixed-length animation
type FrameSource interface {
	Size() (width, height int)
	FPS() int
	FrameCount() int
	RenderFrame(frame int) ([]byte, error)
}

const (
	// DefaultFPS of the frame-accurate renderer
	DefaultFPS = 30
	// DefaultDuration of a diagram animation
	DefaultDuration = 10 * time.Second

	defaultWidth       = 1280
	defaultHeight      = 720
	elementOverlap     = 0.8
	textScale          = 1.3
	lineHeight         = 1.25
	rectRadius         = 4
	defaultStrokeWidth = 2
	defaultInk         = "#1e1e1e"
	emptyMessage       = "No elements to render"
)

// DiagramAnimation reveals the elements of a diagram one after another, each
// overlapping the previous. Elements are drawn at their stored coordinates;
// fit the diagram first to place it on the canvas.
type DiagramAnimation struct {
	Diagram  *excalidraw.Diagram
	Rate     int
	Duration time.Duration
	Width    int
	Height   int
}

// NewDiagramAnimation returns an animation with the default clock and canvas
func NewDiagramAnimation(d *excalidraw.Diagram) *DiagramAnimation {
	return &DiagramAnimation{
		Diagram:  d,
		Rate:     DefaultFPS,
		Duration: DefaultDuration,
		Width:    defaultWidth,
		Height:   defaultHeight,
	}
}

func (a *DiagramAnimation) Size() (int, int) {
	w, h := a.Width, a.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func (a *DiagramAnimation) FPS() int {
	if a.Rate <= 0 {
		return DefaultFPS
	}
	return a.Rate
}

func (a *DiagramAnimation) FrameCount() int {
	d := a.Duration
	if d <= 0 {
		d = DefaultDuration
	}
	return int(math.Round(d.Seconds() * float64(a.FPS())))
}

// ElementProgress is the 0..1 reveal progress of element index out of count
// at frame. Each element gets total/count frames and starts 80% of the way
// through its predecessor.
func ElementProgress(index, count, frame, total int) float64 {
	if count <= 0 {
		return 0
	}
	perElement := float64(total) / float64(count)
	start := float64(index) * perElement * elementOverlap
	return timeline.Interpolate(float64(frame),
		[]float64{start, start + perElement},
		[]float64{0, 1},
		timeline.Clamped)
}

// RenderFrame draws frame as SVG
func (a *DiagramAnimation) RenderFrame(frame int) ([]byte, error) {
	w, h := a.Size()
	background := excalidraw.DefaultBackground
	var elements []excalidraw.Element
	if a.Diagram != nil {
		background = a.Diagram.Background()
		elements = a.Diagram.Elements
	}

	c := newCanvas(w, h, background)
	if len(elements) == 0 {
		c.Text(float64(w)/2, float64(h)/2, emptyMessage,
			css{}.set("fill", "#666666").set("font-family", "sans-serif").set("font-size", "32px").set("text-anchor", "middle").String())
		return c.bytes(), nil
	}

	total := a.FrameCount()
	for i, e := range elements {
		drawElement(c, e, ElementProgress(i, len(elements), frame, total))
	}
	return c.bytes(), nil
}

func drawElement(c *canvas, e excalidraw.Element, p float64) {
	if p <= 0 {
		return
	}
	opacity := e.OpacityFraction() * p
	width, height := e.Dimensions()
	stroke := e.Stroke(defaultStrokeWidth)

	shape := css{}.
		set("fill", color(e.BackgroundColor)).
		set("stroke", ink(e)).
		set("stroke-width", stroke).
		set("opacity", opacity).String()

	switch e.Type {
	case excalidraw.TypeRectangle:
		c.Roundrect(e.X, e.Y, width, height, rectRadius, rectRadius, shape)

	case excalidraw.TypeEllipse:
		c.Ellipse(e.X+width/2, e.Y+height/2, width/2, height/2, shape)

	case excalidraw.TypeDiamond:
		c.Polygon(
			[]float64{e.X + width/2, e.X + width, e.X + width/2, e.X},
			[]float64{e.Y, e.Y + height/2, e.Y + height, e.Y + height/2},
			shape)

	case excalidraw.TypeLine, excalidraw.TypeArrow, excalidraw.TypeFreedraw:
		if len(e.Points) < 2 {
			return
		}
		pts := make([]point, len(e.Points))
		for i, pt := range e.Points {
			pts[i] = point{x: e.X + pt[0], y: e.Y + pt[1]}
		}
		line := css{}.
			set("fill", "none").
			set("stroke", ink(e)).
			set("stroke-width", stroke).
			set("stroke-linecap", "round").
			set("stroke-linejoin", "round").
			set("opacity", opacity).String()
		drawn := partialPath(pts, p)
		c.Polyline(xs(drawn), ys(drawn), line)

		if e.Type == excalidraw.TypeArrow && p > 0.8 {
			size := math.Max(8, stroke*4)
			c.arrowHead(pts, size, ink(e), e.OpacityFraction()*(p-0.8)*5)
		}

	case excalidraw.TypeText:
		drawText(c, e, p, opacity)
	}
}

func drawText(c *canvas, e excalidraw.Element, p, opacity float64) {
	family, size := e.Font()
	size *= textScale
	width, _ := e.Dimensions()

	x, anchor := e.X, "start"
	switch e.TextAlign {
	case "center":
		x, anchor = e.X+width/2, "middle"
	case "right":
		x, anchor = e.X+width, "end"
	}

	style := css{}.
		set("fill", ink(e)).
		set("font-family", family).
		set("font-size", num(size)+"px").
		set("text-anchor", anchor).
		set("white-space", "pre").
		set("opacity", opacity).String()

	for i, line := range strings.Split(revealRunes(e.Text, p), "\n") {
		if line == "" {
			continue
		}
		c.Text(x, e.Y+size+float64(i)*size*lineHeight, line, style)
	}
}

func ink(e excalidraw.Element) string {
	if e.StrokeColor == "" {
		return defaultInk
	}
	return color(e.StrokeColor)
}
