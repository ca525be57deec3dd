package animation

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo/float"
)

// canvas is an svgo document buffered in memory
type canvas struct {
	*svg.SVG
	buf *bytes.Buffer
}

func newCanvas(width, height int, background string) *canvas {
	buf := &bytes.Buffer{}
	c := &canvas{SVG: svg.New(buf), buf: buf}
	w, h := float64(width), float64(height)
	c.Start(w, h, fmt.Sprintf(`viewBox="0 0 %d %d"`, width, height))
	c.Rect(0, 0, w, h, css{}.set("fill", color(background)).String())
	return c
}

func (c *canvas) bytes() []byte {
	c.End()
	return c.buf.Bytes()
}

// css is an ordered list of style declarations
type css []string

func (s css) set(key string, value any) css {
	var v string
	switch t := value.(type) {
	case float64:
		v = num(t)
	case int:
		v = strconv.Itoa(t)
	default:
		v = fmt.Sprint(t)
	}
	return append(s, key+":"+v)
}

func (s css) String() string {
	return strings.Join(s, ";")
}

// num formats a float with at most 3 decimals
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// color normalises colors the SVG rasterizers understand
func color(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "", "transparent":
		return "none"
	}
	return c
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

type point struct{ x, y float64 }

// partialPath returns the prefix of the polyline through pts covering
// fraction p of its total length
func partialPath(pts []point, p float64) []point {
	p = clamp01(p)
	if len(pts) < 2 || p >= 1 {
		return pts
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += dist(pts[i-1], pts[i])
	}
	if total == 0 {
		return pts[:1]
	}

	remaining := total * p
	out := []point{pts[0]}
	for i := 1; i < len(pts); i++ {
		seg := dist(pts[i-1], pts[i])
		if seg >= remaining {
			t := 0.0
			if seg > 0 {
				t = remaining / seg
			}
			out = append(out, point{
				x: pts[i-1].x + (pts[i].x-pts[i-1].x)*t,
				y: pts[i-1].y + (pts[i].y-pts[i-1].y)*t,
			})
			return out
		}
		remaining -= seg
		out = append(out, pts[i])
	}
	return out
}

func dist(a, b point) float64 {
	return math.Hypot(b.x-a.x, b.y-a.y)
}

func xs(pts []point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.x
	}
	return out
}

func ys(pts []point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.y
	}
	return out
}

// arrowHead draws a filled triangle with its tip at the last point,
// pointing along the final segment
func (c *canvas) arrowHead(pts []point, size float64, fill string, opacity float64) {
	if len(pts) < 2 || opacity <= 0 {
		return
	}
	tip := pts[len(pts)-1]
	from := pts[len(pts)-2]
	angle := math.Atan2(tip.y-from.y, tip.x-from.x)

	back := point{x: tip.x - size*math.Cos(angle), y: tip.y - size*math.Sin(angle)}
	half := size / 2
	left := point{x: back.x + half*math.Sin(angle), y: back.y - half*math.Cos(angle)}
	right := point{x: back.x - half*math.Sin(angle), y: back.y + half*math.Cos(angle)}

	c.Polygon(
		[]float64{tip.x, left.x, right.x},
		[]float64{tip.y, left.y, right.y},
		css{}.set("fill", color(fill)).set("stroke", "none").set("opacity", opacity).String(),
	)
}

// revealRunes returns the first fraction p of text's characters
func revealRunes(text string, p float64) string {
	runes := []rune(text)
	n := int(math.Round(float64(len(runes)) * clamp01(p)))
	return string(runes[:n])
}
