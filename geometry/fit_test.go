package geometry

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func f(v float64) *float64 { return &v }

func box(x, y, w, h float64) Element {
	return Element{Position: Point{X: x, Y: y}, Size: &Size{Width: w, Height: h}}
}

func TestComputeFitTransformScenario(t *testing.T) {
	elements := []Element{
		box(0, 0, 100, 50),
		box(200, 100, 50, 50),
	}

	bounds, err := Bounds(elements)
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{MinX: 0, MinY: 0, MaxX: 250, MaxY: 150}, bounds)

	transform, err := ComputeFitTransform(elements, 1280, 720, 60)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, transform.Scale, tolerance)
	assert.InDelta(t, 140.0, transform.OffsetX, tolerance)
	assert.InDelta(t, 60.0, transform.OffsetY, tolerance)

	first := transform.Apply(elements[0])
	assert.InDelta(t, 140.0, first.Position.X, tolerance)
	assert.InDelta(t, 60.0, first.Position.Y, tolerance)
	require.NotNil(t, first.Size)
	assert.InDelta(t, 400.0, first.Size.Width, tolerance)
	assert.InDelta(t, 200.0, first.Size.Height, tolerance)
}

func TestComputeFitTransformInvalidInput(t *testing.T) {
	valid := []Element{box(0, 0, 10, 10)}

	tests := []struct {
		name     string
		elements []Element
		w, h, p  float64
	}{
		{"empty elements", nil, 1280, 720, 60},
		{"zero width", valid, 0, 720, 60},
		{"negative height", valid, 1280, -1, 60},
		{"zero padding", valid, 1280, 720, 0},
		{"negative padding", valid, 1280, 720, -5},
		{"padding too large", valid, 1280, 720, 360},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeFitTransform(tt.elements, tt.w, tt.h, tt.p)
			require.Error(t, err)

			var invalid *InvalidInputError
			assert.True(t, errors.As(err, &invalid), "expected InvalidInputError, got %T", err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestComputeFitTransformDegenerate(t *testing.T) {
	t.Run("single point", func(t *testing.T) {
		transform, err := ComputeFitTransform([]Element{box(30, 40, 0, 0)}, 1280, 720, 60)
		require.NoError(t, err)
		assert.Equal(t, 1.0, transform.Scale)

		p := transform.ApplyPoint(Point{X: 30, Y: 40})
		assert.InDelta(t, 640.0, p.X, tolerance)
		assert.InDelta(t, 360.0, p.Y, tolerance)
	})

	t.Run("element without size", func(t *testing.T) {
		transform, err := ComputeFitTransform([]Element{{Position: Point{X: 5, Y: 5}}}, 1280, 720, 60)
		require.NoError(t, err)
		assert.Equal(t, 1.0, transform.Scale)
	})

	t.Run("vertically aligned", func(t *testing.T) {
		elements := []Element{
			{Position: Point{X: 10, Y: 0}},
			{Position: Point{X: 10, Y: 100}},
		}
		transform, err := ComputeFitTransform(elements, 1280, 720, 60)
		require.NoError(t, err)
		// width is degenerate so its axis scale is 1, which is the minimum
		assert.Equal(t, 1.0, transform.Scale)

		fitted := transform.ApplyAll(elements)
		bounds, err := Bounds(fitted)
		require.NoError(t, err)
		assert.InDelta(t, 640.0, bounds.Center().X, tolerance)
		assert.InDelta(t, 360.0, bounds.Center().Y, tolerance)
	})
}

func randomElements(r *rand.Rand, n int) []Element {
	elements := make([]Element, n)
	for i := range elements {
		elements[i] = box(
			r.Float64()*2000-1000,
			r.Float64()*2000-1000,
			r.Float64()*300,
			r.Float64()*300,
		)
	}
	return elements
}

func TestFitProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	canvases := []struct{ w, h, p float64 }{
		{1280, 720, 60},
		{1920, 1080, 10},
		{720, 1280, 40},
		{500, 500, 1},
	}

	for i := 0; i < 50; i++ {
		elements := randomElements(r, 1+r.Intn(20))
		c := canvases[i%len(canvases)]

		fitted, transform, err := Fit(elements, c.w, c.h, c.p)
		require.NoError(t, err)

		bounds, err := Bounds(fitted)
		require.NoError(t, err)

		// fit guarantee
		assert.LessOrEqual(t, bounds.Width(), c.w-2*c.p+1e-6)
		assert.LessOrEqual(t, bounds.Height(), c.h-2*c.p+1e-6)

		// centering
		assert.InDelta(t, c.w/2, bounds.Center().X, 1e-6)
		assert.InDelta(t, c.h/2, bounds.Center().Y, 1e-6)

		// aspect ratio
		original, _ := Bounds(elements)
		if original.Width() > 0 && original.Height() > 0 {
			assert.InDelta(t, original.Width()/original.Height(), bounds.Width()/bounds.Height(), 1e-6)
		}

		// re-fitting an already fitted set is the identity
		refit, err := ComputeFitTransform(fitted, c.w, c.h, c.p)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, refit.Scale, 1e-6, "transform %s", transform)
		assert.InDelta(t, 0.0, refit.OffsetX, 1e-6)
		assert.InDelta(t, 0.0, refit.OffsetY, 1e-6)
	}
}

func TestApply(t *testing.T) {
	transform := FitTransform{Scale: 2, OffsetX: 10, OffsetY: 20}

	t.Run("scales attributes and points without offsetting points", func(t *testing.T) {
		e := Element{
			Position:    Point{X: 5, Y: 5},
			Points:      []Point{{X: 0, Y: 0}, {X: 30, Y: -10}},
			FontSize:    f(20),
			StrokeWidth: f(2),
		}
		out := transform.Apply(e)

		assert.Equal(t, Point{X: 20, Y: 30}, out.Position)
		assert.Nil(t, out.Size)
		assert.Equal(t, []Point{{X: 0, Y: 0}, {X: 60, Y: -20}}, out.Points)
		assert.Equal(t, 40.0, *out.FontSize)
		assert.Equal(t, 4.0, *out.StrokeWidth)
	})

	t.Run("does not mutate the original", func(t *testing.T) {
		e := Element{
			Position:    Point{X: 1, Y: 1},
			Size:        &Size{Width: 3, Height: 4},
			Points:      []Point{{X: 1, Y: 1}},
			FontSize:    f(10),
			StrokeWidth: f(1),
		}
		_ = transform.Apply(e)

		assert.Equal(t, Point{X: 1, Y: 1}, e.Position)
		assert.Equal(t, Size{Width: 3, Height: 4}, *e.Size)
		assert.Equal(t, []Point{{X: 1, Y: 1}}, e.Points)
		assert.Equal(t, 10.0, *e.FontSize)
		assert.Equal(t, 1.0, *e.StrokeWidth)
	})

	t.Run("is deterministic", func(t *testing.T) {
		elements := []Element{box(0, 0, 100, 50), box(200, 100, 50, 50)}
		a, ta, err := Fit(elements, 1280, 720, 60)
		require.NoError(t, err)
		b, tb, err := Fit(elements, 1280, 720, 60)
		require.NoError(t, err)
		assert.Equal(t, ta, tb)
		assert.Equal(t, a, b)
	})
}

func TestIdentity(t *testing.T) {
	e := box(3, 4, 5, 6)
	assert.Equal(t, e, Identity.Apply(e))
	assert.Equal(t, "Scale: 4.00, Offset: (140, 60)", FitTransform{Scale: 4, OffsetX: 140, OffsetY: 60}.String())
}
