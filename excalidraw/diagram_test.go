package excalidraw

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "type": "excalidraw",
  "version": 2,
  "source": "https://excalidraw.com",
  "elements": [
    {"id": "a", "type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50,
     "strokeColor": "#1e1e1e", "backgroundColor": "transparent", "strokeWidth": 2,
     "opacity": 100, "angle": 0, "roughness": 0, "seed": 1234, "groupIds": ["g1"], "roundness": {"type": 3}},
    {"id": "b", "type": "ellipse", "x": 200, "y": 100, "width": 50, "height": 50,
     "strokeWidth": 1, "opacity": 80},
    {"id": "c", "type": "arrow", "x": 100, "y": 25, "width": 100, "height": 75,
     "points": [[0, 0], [100, 75]], "strokeWidth": 2},
    {"id": "d", "type": "text", "x": 10, "y": 10, "text": "hello",
     "fontSize": 20, "fontFamily": 1, "textAlign": "center"},
    {"id": "e", "type": "frame", "x": 0, "y": 0, "width": 0, "height": 0}
  ],
  "appState": {"viewBackgroundColor": "#fafafa", "gridSize": null, "theme": "light"},
  "files": {},
  "scrollToContent": true
}`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Len(t, d.Elements, 5)
	assert.Equal(t, "#fafafa", d.Background())
	assert.Equal(t, TypeRectangle, d.Elements[0].Type)
	assert.Equal(t, 0.8, d.Elements[1].OpacityFraction())
	assert.Equal(t, [][2]float64{{0, 0}, {100, 75}}, d.Elements[2].Points)
	assert.Equal(t, "frame", d.Elements[4].Type, "unknown kinds are loaded as-is")

	assert.Contains(t, d.Elements[0].Extra, "seed")
	assert.Contains(t, d.Elements[0].Extra, "roundness")
	assert.NotContains(t, d.Elements[0].Extra, "x")
	assert.Contains(t, d.AppState.Extra, "theme")
	assert.Contains(t, d.Extra, "scrollToContent")
	assert.NotContains(t, d.Extra, "elements")
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"elements": [`))
	assert.Error(t, err)

	d, err := Parse([]byte(`{"type": "excalidraw"}`))
	require.NoError(t, err)
	assert.Empty(t, d.Elements)
	assert.Equal(t, DefaultBackground, d.Background())
}

func TestRoundTripPreservesUnknownFields(t *testing.T) {
	d, err := Parse([]byte(sample))
	require.NoError(t, err)

	data, err := d.Marshal()
	require.NoError(t, err)

	var raw struct {
		Elements        []map[string]any `json:"elements"`
		AppState        map[string]any   `json:"appState"`
		ScrollToContent bool             `json:"scrollToContent"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.True(t, raw.ScrollToContent, "unknown top-level keys are kept")
	assert.Contains(t, raw.Elements[0], "roughness", "zero roughness is the architect style and must survive")
	assert.Equal(t, float64(0), raw.Elements[0]["roughness"])
	assert.Contains(t, raw.Elements[0], "angle")
	assert.NotContains(t, raw.Elements[1], "roughness", "absent keys stay absent")
	assert.Equal(t, float64(1234), raw.Elements[0]["seed"])
	assert.Equal(t, []any{"g1"}, raw.Elements[0]["groupIds"])
	assert.Equal(t, "light", raw.AppState["theme"])
	assert.Equal(t, "#fafafa", raw.AppState["viewBackgroundColor"])

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, d.Elements[2].Points, again.Elements[2].Points)
	assert.Equal(t, *d.Elements[3].FontSize, *again.Elements[3].FontSize)
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.excalidraw")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	d, err := Load(path)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.excalidraw")
	require.NoError(t, d.Save(out))

	reloaded, err := Load(out)
	require.NoError(t, err)
	assert.Len(t, reloaded.Elements, len(d.Elements))

	_, err = Load(filepath.Join(dir, "missing.excalidraw"))
	assert.Error(t, err)
}

func TestFitToCanvas(t *testing.T) {
	d, err := Parse([]byte(`{"elements": [
		{"id": "a", "type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50, "strokeWidth": 2},
		{"id": "b", "type": "arrow", "x": 200, "y": 100, "width": 50, "height": 50, "points": [[0, 0], [50, 50]]},
		{"id": "c", "type": "text", "x": 10, "y": 10, "text": "hi", "fontSize": 20}
	]}`))
	require.NoError(t, err)

	fitted, transform, err := d.FitToCanvas(1280, 720, 60)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, transform.Scale, 1e-9)
	assert.InDelta(t, 140.0, transform.OffsetX, 1e-9)
	assert.InDelta(t, 60.0, transform.OffsetY, 1e-9)

	rect := fitted.Elements[0]
	assert.InDelta(t, 140.0, rect.X, 1e-9)
	assert.InDelta(t, 60.0, rect.Y, 1e-9)
	w, h := rect.Dimensions()
	assert.InDelta(t, 400.0, w, 1e-9)
	assert.InDelta(t, 200.0, h, 1e-9)
	assert.InDelta(t, 8.0, *rect.StrokeWidth, 1e-9)

	arrow := fitted.Elements[1]
	assert.Equal(t, [][2]float64{{0, 0}, {200, 200}}, arrow.Points)
	assert.Nil(t, arrow.StrokeWidth)

	text := fitted.Elements[2]
	assert.Nil(t, text.Width, "absent width stays absent")
	assert.InDelta(t, 80.0, *text.FontSize, 1e-9)

	// input untouched
	assert.Equal(t, 0.0, d.Elements[0].X)
	assert.Equal(t, 2.0, *d.Elements[0].StrokeWidth)
	assert.Equal(t, [][2]float64{{0, 0}, {50, 50}}, d.Elements[1].Points)
}

func TestFitToCanvasEmpty(t *testing.T) {
	d := &Diagram{}
	_, _, err := d.FitToCanvas(1280, 720, 60)
	assert.Error(t, err)
}

func TestFont(t *testing.T) {
	tests := []struct {
		id     int
		family string
	}{
		{FontVirgil, "'Caveat', 'Comic Neue', cursive"},
		{FontHelvetica, "Helvetica, Arial, sans-serif"},
		{FontCascadia, "'Cascadia Code', 'Fira Code', monospace"},
		{9, "'Caveat', cursive"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.family, FontFamily(tt.id))
	}

	family, size := Element{}.Font()
	assert.Equal(t, "'Caveat', cursive", family)
	assert.Equal(t, DefaultFontSize, size)
}
