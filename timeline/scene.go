package timeline

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// ErrUnknownScene is returned for a built-in scene name that does not exist
var ErrUnknownScene = errors.New("unknown scene")

// Kind selects the cue's motion
type Kind string

const (
	KindPopIn      Kind = "popIn"
	KindSlideIn    Kind = "slideIn"
	KindDraw       Kind = "draw"
	KindFade       Kind = "fade"
	KindTypewriter Kind = "typewriter"
)

// Kinds lists every cue kind
var Kinds = []Kind{KindPopIn, KindSlideIn, KindDraw, KindFade, KindTypewriter}

// Shape types a cue can draw
const (
	ShapeText    = "text"
	ShapeRect    = "rect"
	ShapeEllipse = "ellipse"
	ShapeLine    = "line"
)

var shapeTypes = []string{ShapeText, ShapeRect, ShapeEllipse, ShapeLine}

// Defaults for a timeline without explicit values
const (
	DefaultFPS      = 30
	DefaultWidth    = 1280
	DefaultHeight   = 720
	DefaultDuration = 10.0
)

// Shape is one drawable item of a cue. Coordinates are canvas pixels; text
// is anchored at (X, Y) on its baseline.
type Shape struct {
	Type        string  `yaml:"shape,omitempty" json:"shape,omitempty"`
	Text        string  `yaml:"text,omitempty" json:"text,omitempty"`
	X           float64 `yaml:"x,omitempty" json:"x,omitempty"`
	Y           float64 `yaml:"y,omitempty" json:"y,omitempty"`
	Width       float64 `yaml:"width,omitempty" json:"width,omitempty"`
	Height      float64 `yaml:"height,omitempty" json:"height,omitempty"`
	X2          float64 `yaml:"x2,omitempty" json:"x2,omitempty"`
	Y2          float64 `yaml:"y2,omitempty" json:"y2,omitempty"`
	Radius      float64 `yaml:"radius,omitempty" json:"radius,omitempty"`
	FontSize    float64 `yaml:"fontSize,omitempty" json:"fontSize,omitempty"`
	Bold        bool    `yaml:"bold,omitempty" json:"bold,omitempty"`
	Italic      bool    `yaml:"italic,omitempty" json:"italic,omitempty"`
	Anchor      string  `yaml:"anchor,omitempty" json:"anchor,omitempty"`
	Color       string  `yaml:"color,omitempty" json:"color,omitempty"`
	Fill        string  `yaml:"fill,omitempty" json:"fill,omitempty"`
	StrokeWidth float64 `yaml:"strokeWidth,omitempty" json:"strokeWidth,omitempty"`
	ArrowHead   bool    `yaml:"arrowHead,omitempty" json:"arrowHead,omitempty"`
}

// Cue is a named, timed reveal of one or more shapes. With Items set the
// cue expands into one sub-cue per item, each Stagger seconds after the
// previous and Spacing px lower.
type Cue struct {
	Name           string    `yaml:"name" json:"name"`
	Kind           Kind      `yaml:"kind" json:"kind"`
	Start          float64   `yaml:"start" json:"start"`
	Duration       float64   `yaml:"duration,omitempty" json:"duration,omitempty"`
	Fade           float64   `yaml:"fade,omitempty" json:"fade,omitempty"`
	Direction      Direction `yaml:"direction,omitempty" json:"direction,omitempty"`
	Distance       float64   `yaml:"distance,omitempty" json:"distance,omitempty"`
	CharsPerSecond float64   `yaml:"charsPerSecond,omitempty" json:"charsPerSecond,omitempty"`
	Stagger        float64   `yaml:"stagger,omitempty" json:"stagger,omitempty"`
	Items          []string  `yaml:"items,omitempty" json:"items,omitempty"`
	Spacing        float64   `yaml:"spacing,omitempty" json:"spacing,omitempty"`

	Shape  `yaml:",inline"`
	Shapes []Shape `yaml:"shapes,omitempty" json:"shapes,omitempty"`
}

// SceneTimeline is a declarative scene: canvas, palette and cues
type SceneTimeline struct {
	Name       string            `yaml:"name" json:"name"`
	Title      string            `yaml:"title,omitempty" json:"title,omitempty"`
	FPS        int               `yaml:"fps,omitempty" json:"fps,omitempty"`
	Duration   float64           `yaml:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`
	Width      int               `yaml:"width,omitempty" json:"width,omitempty"`
	Height     int               `yaml:"height,omitempty" json:"height,omitempty"`
	Background string            `yaml:"background,omitempty" json:"background,omitempty"`
	FontFamily string            `yaml:"fontFamily,omitempty" json:"fontFamily,omitempty"`
	Colors     map[string]string `yaml:"colors,omitempty" json:"colors,omitempty"`
	Cues       []Cue             `yaml:"cues" json:"cues"`
}

// CueState is a cue evaluated at one frame
type CueState struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Shape string `json:"shape"`
	Motion
	Text   string `json:"text,omitempty"`
	Typing bool   `json:"typing,omitempty"`
	Cue    Cue    `json:"-"`
}

// RenderState is everything needed to draw one frame
type RenderState struct {
	Frame int        `json:"frame"`
	Time  float64    `json:"time"`
	Cues  []CueState `json:"cues"`
}

// Visible returns only the cues that should be drawn
func (r RenderState) Visible() []CueState {
	return lo.Filter(r.Cues, func(c CueState, _ int) bool {
		return c.Visible && c.Opacity > 0
	})
}

// Get returns the state of the named cue
func (r RenderState) Get(name string) (CueState, bool) {
	return lo.Find(r.Cues, func(c CueState) bool { return c.Name == name })
}

// LoadTimeline reads a YAML timeline file
func LoadTimeline(path string) (*SceneTimeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}
	tl, err := ParseTimeline(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tl, nil
}

// ParseTimeline decodes, defaults and validates a YAML timeline
func ParseTimeline(data []byte) (*SceneTimeline, error) {
	var tl SceneTimeline
	if err := yaml.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("failed to parse timeline: %w", err)
	}
	tl.ApplyDefaults()
	if err := tl.Validate(); err != nil {
		return nil, err
	}
	return &tl, nil
}

// ApplyDefaults fills unset canvas and clock values
func (t *SceneTimeline) ApplyDefaults() {
	if t.FPS == 0 {
		t.FPS = DefaultFPS
	}
	if t.Duration == 0 {
		t.Duration = DefaultDuration
	}
	if t.Width == 0 {
		t.Width = DefaultWidth
	}
	if t.Height == 0 {
		t.Height = DefaultHeight
	}
	if t.Background == "" {
		t.Background = "#ffffff"
	}
}

// Validate checks the clock, cue names, kinds and shapes
func (t *SceneTimeline) Validate() error {
	var errs []error
	if t.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", t.FPS))
	}
	if !(t.Duration > 0) {
		errs = append(errs, fmt.Errorf("durationSeconds must be positive, got %v", t.Duration))
	}
	if t.Width <= 0 || t.Height <= 0 {
		errs = append(errs, fmt.Errorf("canvas must be positive, got %dx%d", t.Width, t.Height))
	}

	seen := map[string]bool{}
	for i, c := range t.Cues {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("cue %d has no name", i))
		} else if seen[c.Name] {
			errs = append(errs, fmt.Errorf("duplicate cue name %q", c.Name))
		}
		seen[c.Name] = true

		if !lo.Contains(Kinds, c.Kind) {
			errs = append(errs, fmt.Errorf("cue %q: unknown kind %q", c.Name, c.Kind))
		}
		if c.Start < 0 || c.Duration < 0 || c.Stagger < 0 {
			errs = append(errs, fmt.Errorf("cue %q: times must not be negative", c.Name))
		}
		for _, s := range append([]Shape{c.Shape}, c.Shapes...) {
			if s.Type != "" && !lo.Contains(shapeTypes, s.Type) {
				errs = append(errs, fmt.Errorf("cue %q: unknown shape %q", c.Name, s.Type))
			}
		}
		if c.Shape.Type == "" && len(c.Shapes) == 0 {
			errs = append(errs, fmt.Errorf("cue %q draws nothing", c.Name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid timeline %q: %w", t.Name, errors.Join(errs...))
	}
	return nil
}

// Color resolves a palette name to its value; anything else is returned as is
func (t *SceneTimeline) Color(name string) string {
	if v, ok := t.Colors[name]; ok {
		return v
	}
	return name
}

// DurationInFrames is the total frame count
func (t *SceneTimeline) DurationInFrames() int {
	return t.Frames(t.Duration)
}

// Frames converts seconds to a whole number of frames
func (t *SceneTimeline) Frames(seconds float64) int {
	return int(math.Round(seconds * float64(t.FPS)))
}

// Seconds converts frames to seconds
func (t *SceneTimeline) Seconds(frames int) float64 {
	if t.FPS == 0 {
		return 0
	}
	return float64(frames) / float64(t.FPS)
}

// Expand returns the cues with item lists flattened into sub-cues
func (t *SceneTimeline) Expand() []Cue {
	var out []Cue
	for _, c := range t.Cues {
		if len(c.Items) == 0 {
			out = append(out, c)
			continue
		}
		for i, item := range c.Items {
			sub := c
			sub.Name = fmt.Sprintf("%s[%d]", c.Name, i)
			sub.Items = nil
			sub.Start = c.Start + float64(i)*c.Stagger
			dy := float64(i) * c.Spacing

			sub.Shape = c.Shape.shifted(dy)
			sub.Shape.Text = item
			sub.Shapes = lo.Map(c.Shapes, func(s Shape, _ int) Shape { return s.shifted(dy) })
			out = append(out, sub)
		}
	}
	return out
}

func (s Shape) shifted(dy float64) Shape {
	s.Y += dy
	if s.Type == ShapeLine {
		s.Y2 += dy
	}
	return s
}

// ComputeFrameState evaluates every cue at frame. It is a pure function of
// its inputs.
func ComputeFrameState(frame int, t *SceneTimeline) RenderState {
	fps := t.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	state := RenderState{Frame: frame, Time: float64(frame) / float64(fps)}

	for _, c := range t.Expand() {
		cs := CueState{Name: c.Name, Kind: c.Kind, Shape: c.Shape.Type, Text: c.Text, Cue: c}
		switch c.Kind {
		case KindSlideIn:
			cs.Motion = SlideIn(frame, fps, c.Start, c.Direction, c.Distance, c.Fade)
		case KindDraw:
			cs.Motion = Draw(frame, fps, c.Start, c.Duration)
		case KindFade:
			cs.Motion = Fade(frame, fps, c.Start, c.Duration)
		case KindTypewriter:
			typed := Typewriter(frame, fps, c.Text, c.Start, c.CharsPerSecond)
			cs.Motion = Motion{Visible: typed.Visible, Opacity: 1, Scale: 1, Progress: progressOf(typed, c.Text)}
			cs.Text = typed.Text
			cs.Typing = typed.Typing
		default:
			cs.Motion = PopIn(frame, fps, c.Start)
		}
		state.Cues = append(state.Cues, cs)
	}
	return state
}

func progressOf(typed Typed, full string) float64 {
	n := len([]rune(full))
	if n == 0 {
		return 1
	}
	return float64(len([]rune(typed.Text))) / float64(n)
}

// Summary is a one-line description used in listings
func (t *SceneTimeline) Summary() string {
	kinds := lo.Uniq(lo.Map(t.Cues, func(c Cue, _ int) string { return string(c.Kind) }))
	return fmt.Sprintf("%d cues (%s)", len(t.Expand()), strings.Join(kinds, ", "))
}
