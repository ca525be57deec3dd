package animation

import (
	"fmt"
	"math"

	"github.com/flanksource/animator/excalidraw"
	"github.com/flanksource/animator/timeline"
)

// SceneAnimation renders a declarative scene timeline
type SceneAnimation struct {
	Timeline *timeline.SceneTimeline
}

// NewSceneAnimation wraps a timeline, filling its defaults
func NewSceneAnimation(t *timeline.SceneTimeline) *SceneAnimation {
	t.ApplyDefaults()
	return &SceneAnimation{Timeline: t}
}

func (s *SceneAnimation) Size() (int, int) {
	return s.Timeline.Width, s.Timeline.Height
}

func (s *SceneAnimation) FPS() int {
	return s.Timeline.FPS
}

func (s *SceneAnimation) FrameCount() int {
	return s.Timeline.DurationInFrames()
}

// RenderFrame draws the visible cues of frame as SVG
func (s *SceneAnimation) RenderFrame(frame int) ([]byte, error) {
	if frame < 0 || frame >= s.FrameCount() {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", frame, s.FrameCount())
	}
	t := s.Timeline
	state := timeline.ComputeFrameState(frame, t)

	c := newCanvas(t.Width, t.Height, t.Background)
	for _, cue := range state.Visible() {
		s.drawCue(c, cue)
	}
	return c.bytes(), nil
}

func (s *SceneAnimation) drawCue(c *canvas, cue timeline.CueState) {
	ax, ay := anchorOf(cue.Cue.Shape)
	transform := fmt.Sprintf("translate(%s,%s)", num(cue.TranslateX), num(cue.TranslateY))
	if cue.Scale != 1 {
		transform += fmt.Sprintf(" translate(%s,%s) scale(%s) translate(%s,%s)",
			num(ax), num(ay), num(math.Max(cue.Scale, 0)), num(-ax), num(-ay))
	}

	c.Group(fmt.Sprintf(`transform="%s"`, transform), fmt.Sprintf(`opacity="%s"`, num(clamp01(cue.Opacity))))
	lineProgress := 1.0
	if cue.Kind == timeline.KindDraw {
		lineProgress = cue.Progress
	}

	primary := cue.Cue.Shape
	if cue.Kind == timeline.KindTypewriter {
		primary.Text = cue.Text
	}
	shapes := append([]timeline.Shape{primary}, cue.Cue.Shapes...)
	for _, shape := range shapes {
		s.drawShape(c, shape, lineProgress)
	}
	c.Gend()
}

func (s *SceneAnimation) drawShape(c *canvas, shape timeline.Shape, progress float64) {
	t := s.Timeline
	stroke := shape.StrokeWidth
	fill := color(t.Color(shape.Fill))

	switch shape.Type {
	case timeline.ShapeText:
		if shape.Text == "" {
			return
		}
		family := t.FontFamily
		if family == "" {
			family = excalidraw.FontFamily(excalidraw.FontVirgil)
		}
		size := shape.FontSize
		if size <= 0 {
			size = excalidraw.DefaultFontSize
		}
		fillColor := defaultInk
		if shape.Color != "" {
			fillColor = color(t.Color(shape.Color))
		}
		style := css{}.
			set("fill", fillColor).
			set("font-family", family).
			set("font-size", num(size)+"px")
		if shape.Bold {
			style = style.set("font-weight", "bold")
		}
		if shape.Italic {
			style = style.set("font-style", "italic")
		}
		if shape.Anchor != "" {
			style = style.set("text-anchor", shape.Anchor)
		}
		c.Text(shape.X, shape.Y, shape.Text, style.String())

	case timeline.ShapeRect:
		if stroke == 0 && fill == "none" {
			stroke = defaultStrokeWidth
		}
		style := css{}.set("fill", fill).set("stroke", strokeColor(t, shape, stroke)).set("stroke-width", stroke)
		if shape.Radius > 0 {
			c.Roundrect(shape.X, shape.Y, shape.Width, shape.Height, shape.Radius, shape.Radius, style.String())
		} else {
			c.Rect(shape.X, shape.Y, shape.Width, shape.Height, style.String())
		}

	case timeline.ShapeEllipse:
		style := css{}.set("fill", fill).set("stroke", strokeColor(t, shape, stroke)).set("stroke-width", stroke)
		c.Ellipse(shape.X+shape.Width/2, shape.Y+shape.Height/2, shape.Width/2, shape.Height/2, style.String())

	case timeline.ShapeLine:
		if stroke == 0 {
			stroke = defaultStrokeWidth
		}
		if progress <= 0 {
			return
		}
		pts := []point{{shape.X, shape.Y}, {shape.X2, shape.Y2}}
		drawn := partialPath(pts, progress)
		if len(drawn) < 2 {
			return
		}
		lineColor := defaultInk
		if shape.Color != "" {
			lineColor = color(t.Color(shape.Color))
		}
		c.Line(drawn[0].x, drawn[0].y, drawn[1].x, drawn[1].y,
			css{}.set("stroke", lineColor).set("stroke-width", stroke).set("stroke-linecap", "round").String())
		if shape.ArrowHead && progress > 0.8 {
			c.arrowHead(pts, math.Max(8, stroke*4), lineColor, (progress-0.8)*5)
		}
	}
}

func strokeColor(t *timeline.SceneTimeline, shape timeline.Shape, width float64) string {
	if width == 0 || shape.Color == "" {
		return "none"
	}
	return color(t.Color(shape.Color))
}

// anchorOf is the point a cue scales around
func anchorOf(shape timeline.Shape) (float64, float64) {
	switch shape.Type {
	case timeline.ShapeRect, timeline.ShapeEllipse:
		return shape.X + shape.Width/2, shape.Y + shape.Height/2
	case timeline.ShapeLine:
		return (shape.X + shape.X2) / 2, (shape.Y + shape.Y2) / 2
	}
	return shape.X, shape.Y
}
