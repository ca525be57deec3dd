// Package excalidraw loads and saves .excalidraw diagram files.
//
// Fields the animator does not use are kept verbatim so a fitted diagram can
// be written back and opened by Excalidraw itself.
package excalidraw

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// DefaultBackground is used when the diagram has no viewBackgroundColor
const DefaultBackground = "#ffffff"

// Element types understood by the renderers
const (
	TypeRectangle = "rectangle"
	TypeEllipse   = "ellipse"
	TypeDiamond   = "diamond"
	TypeLine      = "line"
	TypeArrow     = "arrow"
	TypeText      = "text"
	TypeFreedraw  = "freedraw"
)

// Diagram is the top level of an .excalidraw file
type Diagram struct {
	Type     string          `json:"type,omitempty"`
	Version  int             `json:"version,omitempty"`
	Source   string          `json:"source,omitempty"`
	Elements []Element       `json:"elements"`
	AppState AppState        `json:"appState"`
	Files    json.RawMessage `json:"files,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// AppState holds editor state; only the background color is interpreted
type AppState struct {
	ViewBackgroundColor string `json:"viewBackgroundColor,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Element is a single shape, line or text item
type Element struct {
	ID              string       `json:"id"`
	Type            string       `json:"type"`
	X               float64      `json:"x"`
	Y               float64      `json:"y"`
	Width           *float64     `json:"width,omitempty"`
	Height          *float64     `json:"height,omitempty"`
	Angle           *float64     `json:"angle,omitempty"`
	StrokeColor     string       `json:"strokeColor,omitempty"`
	BackgroundColor string       `json:"backgroundColor,omitempty"`
	FillStyle       string       `json:"fillStyle,omitempty"`
	StrokeWidth     *float64     `json:"strokeWidth,omitempty"`
	Roughness       *float64     `json:"roughness,omitempty"`
	Opacity         *float64     `json:"opacity,omitempty"`
	Text            string       `json:"text,omitempty"`
	FontSize        *float64     `json:"fontSize,omitempty"`
	FontFamily      *int         `json:"fontFamily,omitempty"`
	TextAlign       string       `json:"textAlign,omitempty"`
	Points          [][2]float64 `json:"points,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var elementFields = []string{
	"id", "type", "x", "y", "width", "height", "angle", "strokeColor",
	"backgroundColor", "fillStyle", "strokeWidth", "roughness", "opacity",
	"text", "fontSize", "fontFamily", "textAlign", "points",
}

var appStateFields = []string{"viewBackgroundColor"}

var diagramFields = []string{"type", "version", "source", "elements", "appState", "files"}

// Load reads and parses an .excalidraw file
func Load(path string) (*Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagram: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes diagram JSON. A document without elements is valid and
// yields an empty diagram.
func Parse(data []byte) (*Diagram, error) {
	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse excalidraw JSON: %w", err)
	}
	return &d, nil
}

// Marshal encodes the diagram as indented JSON
func (d *Diagram) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode diagram: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the diagram to path
func (d *Diagram) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write diagram: %w", err)
	}
	return nil
}

// Background returns the view background color
func (d *Diagram) Background() string {
	if d.AppState.ViewBackgroundColor == "" {
		return DefaultBackground
	}
	return d.AppState.ViewBackgroundColor
}

// Clone returns a deep copy of the diagram
func (d *Diagram) Clone() *Diagram {
	out := *d
	out.Elements = make([]Element, len(d.Elements))
	for i, e := range d.Elements {
		out.Elements[i] = e.Clone()
	}
	out.AppState.Extra = cloneRaw(d.AppState.Extra)
	out.Extra = cloneRaw(d.Extra)
	if d.Files != nil {
		out.Files = append(json.RawMessage(nil), d.Files...)
	}
	return &out
}

// Clone returns a deep copy of the element
func (e Element) Clone() Element {
	out := e
	out.Width = clonePtr(e.Width)
	out.Height = clonePtr(e.Height)
	out.Angle = clonePtr(e.Angle)
	out.Roughness = clonePtr(e.Roughness)
	out.StrokeWidth = clonePtr(e.StrokeWidth)
	out.Opacity = clonePtr(e.Opacity)
	out.FontSize = clonePtr(e.FontSize)
	out.FontFamily = clonePtr(e.FontFamily)
	if e.Points != nil {
		out.Points = append([][2]float64(nil), e.Points...)
	}
	out.Extra = cloneRaw(e.Extra)
	return out
}

// OpacityFraction returns opacity in [0,1]; missing opacity is fully opaque
func (e Element) OpacityFraction() float64 {
	if e.Opacity == nil {
		return 1
	}
	return *e.Opacity / 100
}

// Stroke returns the stroke width, defaulting to def when absent or zero
func (e Element) Stroke(def float64) float64 {
	if e.StrokeWidth == nil || *e.StrokeWidth == 0 {
		return def
	}
	return *e.StrokeWidth
}

// Dimensions returns width and height, zero when absent
func (e Element) Dimensions() (float64, float64) {
	return deref(e.Width), deref(e.Height)
}

// UnmarshalJSON decodes known fields and keeps the rest in Extra
func (d *Diagram) UnmarshalJSON(data []byte) error {
	type plain Diagram
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, diagramFields)
	if err != nil {
		return err
	}
	*d = Diagram(p)
	d.Extra = extra
	return nil
}

// MarshalJSON encodes known fields merged with Extra
func (d Diagram) MarshalJSON() ([]byte, error) {
	type plain Diagram
	return mergeExtra(plain(d), d.Extra)
}

// UnmarshalJSON decodes known fields and keeps the rest in Extra
func (e *Element) UnmarshalJSON(data []byte) error {
	type plain Element
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, elementFields)
	if err != nil {
		return err
	}
	*e = Element(p)
	e.Extra = extra
	return nil
}

// MarshalJSON encodes known fields merged with Extra
func (e Element) MarshalJSON() ([]byte, error) {
	type plain Element
	return mergeExtra(plain(e), e.Extra)
}

// UnmarshalJSON decodes known fields and keeps the rest in Extra
func (a *AppState) UnmarshalJSON(data []byte) error {
	type plain AppState
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, appStateFields)
	if err != nil {
		return err
	}
	*a = AppState(p)
	a.Extra = extra
	return nil
}

// MarshalJSON encodes known fields merged with Extra
func (a AppState) MarshalJSON() ([]byte, error) {
	type plain AppState
	return mergeExtra(plain(a), a.Extra)
}

func extraFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

func mergeExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	known, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return known, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = raw
		}
	}
	return json.Marshal(merged)
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
