package timeline

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		opts  []InterpolateOptions
		want  float64
	}{
		{"inside", 5, nil, 50},
		{"start", 0, nil, 0},
		{"end", 10, nil, 100},
		{"extend right", 20, nil, 200},
		{"extend left", -5, nil, -50},
		{"clamp right", 20, []InterpolateOptions{Clamped}, 100},
		{"clamp left", -5, []InterpolateOptions{Clamped}, 0},
		{"identity right", 20, []InterpolateOptions{{Right: ExtrapolateIdentity}}, 20},
		{"identity left", -5, []InterpolateOptions{{Left: ExtrapolateIdentity}}, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpolate(tt.input, []float64{0, 10}, []float64{0, 100}, tt.opts...)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	t.Run("multi segment", func(t *testing.T) {
		in := []float64{0, 10, 20}
		out := []float64{0, 1, 0}
		assert.InDelta(t, 0.5, Interpolate(5, in, out), 1e-9)
		assert.InDelta(t, 0.5, Interpolate(15, in, out), 1e-9)
	})

	t.Run("easing", func(t *testing.T) {
		got := Interpolate(2.5, []float64{0, 10}, []float64{0, 1}, InterpolateOptions{Easing: EaseInOutCubic})
		assert.Less(t, got, 0.25)
	})

	t.Run("invalid ranges", func(t *testing.T) {
		_, err := InterpolateE(1, []float64{0}, []float64{0})
		assert.Error(t, err)
		_, err = InterpolateE(1, []float64{0, 1}, []float64{0, 1, 2})
		assert.Error(t, err)
		_, err = InterpolateE(1, []float64{1, 0}, []float64{0, 1})
		assert.Error(t, err)
		assert.Equal(t, 7.0, Interpolate(1, []float64{1, 0}, []float64{7, 1}))
	})
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(0, 10, 10))
	assert.InDelta(t, 0.5, Progress(15, 10, 10), 1e-9)
	assert.Equal(t, 1.0, Progress(50, 10, 10))
	assert.Equal(t, 1.0, Progress(10, 10, 0))
}

func TestSpring(t *testing.T) {
	assert.Equal(t, 0.0, Spring(0, 30, DefaultSpring))
	assert.Equal(t, 0.0, Spring(-10, 30, DefaultSpring))

	t.Run("smooth spring is monotone and settles", func(t *testing.T) {
		prev := 0.0
		for f := 1; f <= 90; f++ {
			v := Spring(float64(f), 30, SmoothSpring)
			assert.GreaterOrEqual(t, v, prev-1e-12, "frame %d", f)
			assert.LessOrEqual(t, v, 1.0+1e-9, "frame %d", f)
			prev = v
		}
		assert.InDelta(t, 1.0, prev, 1e-3)
	})

	t.Run("bouncy spring overshoots", func(t *testing.T) {
		peak := 0.0
		for f := 1; f <= 60; f++ {
			peak = math.Max(peak, Spring(float64(f), 30, DefaultSpring))
		}
		assert.Greater(t, peak, 1.0)
		assert.InDelta(t, 1.0, Spring(300, 30, DefaultSpring), 1e-3)
	})

	t.Run("overshoot clamping", func(t *testing.T) {
		cfg := DefaultSpring
		cfg.OvershootClamping = true
		for f := 1; f <= 60; f++ {
			assert.LessOrEqual(t, Spring(float64(f), 30, cfg), 1.0)
		}
	})

	t.Run("fractional frames lie between neighbours", func(t *testing.T) {
		a := Spring(3, 30, SmoothSpring)
		b := Spring(3.5, 30, SmoothSpring)
		c := Spring(4, 30, SmoothSpring)
		assert.Greater(t, b, a)
		assert.Less(t, b, c)
	})

	t.Run("bouncy spring follows the damped oscillator", func(t *testing.T) {
		// damping 10, stiffness 100: zeta 0.5, omega0 10
		zeta, omega0 := 0.5, 10.0
		omega1 := omega0 * math.Sqrt(1-zeta*zeta)
		for _, frame := range []float64{3, 15, 40} {
			at := frame / 30
			want := 1 - math.Exp(-zeta*omega0*at)*(math.Cos(omega1*at)+zeta*omega0/omega1*math.Sin(omega1*at))
			assert.InDelta(t, want, Spring(frame, 30, DefaultSpring), 1e-9, "frame %v", frame)
		}
	})

	t.Run("heavy damping settles like a critical spring", func(t *testing.T) {
		// omega0 10 at half a second: 1 - e^-5 * (1 + 5)
		assert.InDelta(t, 1-6*math.Exp(-5), Spring(15, 30, SmoothSpring), 1e-9)
	})

	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, SpringConfig{}.Validate())
		assert.Error(t, SpringConfig{Damping: -1}.Validate())
		assert.Error(t, SpringConfig{Mass: -2}.Validate())
	})
}

func TestPopIn(t *testing.T) {
	before := PopIn(29, 30, 1)
	assert.False(t, before.Visible)
	assert.Equal(t, 0.0, before.Opacity)

	at := PopIn(30, 30, 1)
	assert.True(t, at.Visible)
	assert.Equal(t, 0.0, at.Scale)

	mid := PopIn(34, 30, 1)
	assert.InDelta(t, 4.0/9.0, mid.Opacity, 1e-9)

	late := PopIn(90, 30, 1)
	assert.Equal(t, 1.0, late.Opacity)
	assert.InDelta(t, 1.0, late.Scale, 1e-3)
}

func TestSlideIn(t *testing.T) {
	left := SlideIn(30, 30, 1, DirectionLeft, 100, 0.4)
	assert.InDelta(t, -100, left.TranslateX, 1e-9)
	assert.Equal(t, 0.0, left.TranslateY)

	right := SlideIn(30, 30, 1, DirectionRight, 50, 0.3)
	assert.InDelta(t, 50, right.TranslateX, 1e-9)

	up := SlideIn(30, 30, 1, DirectionUp, 0, 0)
	assert.InDelta(t, DefaultSlideDistance, up.TranslateY, 1e-9)

	settled := SlideIn(200, 30, 1, DirectionLeft, 100, 0.4)
	assert.InDelta(t, 0, settled.TranslateX, 0.5)
	assert.Equal(t, 1.0, settled.Opacity)
}

func TestDrawAndFade(t *testing.T) {
	d := Draw(75, 30, 2, 1)
	assert.InDelta(t, 0.5, d.Progress, 1e-9)
	assert.Equal(t, 1.0, d.Opacity)

	f := Fade(45, 30, 1, 0)
	assert.InDelta(t, 1.0, f.Opacity, 1e-9)
	f = Fade(30, 30, 1, 0)
	assert.Equal(t, 0.0, f.Opacity)
}

func TestTypewriter(t *testing.T) {
	text := "Héllo world"
	tests := []struct {
		frame  int
		want   string
		typing bool
	}{
		{0, "", false},
		{30, "", true},
		{35, "Hé", true},
		{55, "Héllo worl", true},
		{58, "Héllo world", false},
		{300, "Héllo world", false},
	}
	for _, tt := range tests {
		got := Typewriter(tt.frame, 30, text, 1, 12)
		assert.Equal(t, tt.want, got.Text, "frame %d", tt.frame)
		assert.Equal(t, tt.typing, got.Typing, "frame %d", tt.frame)
	}
}

func TestBuiltins(t *testing.T) {
	names := BuiltinNames()
	assert.Equal(t, []string{
		"autocomplete-metaphor",
		"iteration-cycle",
		"privacy-boundary",
		"prompt-structure",
		"source-grounded",
		"sustainability-balance",
		"two-tool-model",
	}, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			tl, err := Builtin(name)
			require.NoError(t, err)
			assert.Equal(t, name, tl.Name)
			assert.Equal(t, 30, tl.FPS)
			assert.Greater(t, tl.DurationInFrames(), 0)
			for _, c := range tl.Expand() {
				assert.Less(t, c.Start, tl.Duration, "cue %s starts after the end", c.Name)
			}
		})
	}

	_, err := Builtin("nope")
	assert.True(t, errors.Is(err, ErrUnknownScene))
}

func TestTwoToolModelTimeline(t *testing.T) {
	tl, err := Builtin("two-tool-model")
	require.NoError(t, err)

	starts := map[string]float64{}
	for _, c := range tl.Expand() {
		starts[c.Name] = c.Start
	}
	assert.Equal(t, 0.3, starts["title"])
	assert.Equal(t, 1.2, starts["leftCard"])
	assert.Equal(t, 1.6, starts["rightCard"])
	assert.InDelta(t, 2.0, starts["leftBullets[0]"], 1e-9)
	assert.InDelta(t, 2.8, starts["leftBullets[2]"], 1e-9)
	assert.InDelta(t, 3.2, starts["rightBullets[2]"], 1e-9)
	assert.Equal(t, 6.5, starts["takeaway"])
	assert.Equal(t, "#11998e", tl.Color("accent"))
	assert.Equal(t, "#abcdef", tl.Color("#abcdef"))
}

func TestComputeFrameState(t *testing.T) {
	tl, err := Builtin("two-tool-model")
	require.NoError(t, err)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, ComputeFrameState(100, tl), ComputeFrameState(100, tl))
	})

	t.Run("nothing visible at frame 0", func(t *testing.T) {
		assert.Empty(t, ComputeFrameState(0, tl).Visible())
	})

	t.Run("staggered items", func(t *testing.T) {
		state := ComputeFrameState(62, tl)
		first, ok := state.Get("leftBullets[0]")
		require.True(t, ok)
		assert.True(t, first.Visible)
		assert.Equal(t, "Brainstorming", first.Text)

		third, ok := state.Get("leftBullets[2]")
		require.True(t, ok)
		assert.False(t, third.Visible)
		assert.Equal(t, "Open-ended tasks", third.Text)
		assert.InDelta(t, 370+2*48, third.Cue.Y, 1e-9)
	})

	t.Run("everything visible at the end", func(t *testing.T) {
		state := ComputeFrameState(tl.DurationInFrames()-1, tl)
		assert.Len(t, state.Visible(), len(state.Cues))
		assert.InDelta(t, float64(tl.DurationInFrames()-1)/30, state.Time, 1e-9)
	})
}

func TestTypewriterCue(t *testing.T) {
	tl, err := Builtin("autocomplete-metaphor")
	require.NoError(t, err)

	typing, ok := ComputeFrameState(61, tl).Get("inputText")
	require.True(t, ok)
	assert.True(t, typing.Typing)
	assert.Equal(t, "Help me ", typing.Text)
}

func TestParseTimelineValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "cues: [\n"},
		{"negative fps", "name: x\nfps: -1\ncues: []\n"},
		{"unknown kind", "name: x\ncues:\n  - {name: a, kind: spin, shape: text}\n"},
		{"duplicate", "name: x\ncues:\n  - {name: a, kind: fade, shape: text}\n  - {name: a, kind: fade, shape: text}\n"},
		{"unknown shape", "name: x\ncues:\n  - {name: a, kind: fade, shape: star}\n"},
		{"empty cue", "name: x\ncues:\n  - {name: a, kind: fade}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTimeline([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}

	tl, err := ParseTimeline([]byte("name: x\ncues:\n  - {name: a, kind: fade, shape: text, text: hi}\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultFPS, tl.FPS)
	assert.Equal(t, DefaultWidth, tl.Width)
	assert.Equal(t, 300, tl.DurationInFrames())
	assert.Equal(t, 2.0, tl.Seconds(60))
}

func TestLoadTimeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: custom\nfps: 24\ndurationSeconds: 2\ncues:\n  - {name: a, kind: popIn, shape: rect, width: 10, height: 10}\n"), 0o644))

	tl, err := LoadTimeline(path)
	require.NoError(t, err)
	assert.Equal(t, 48, tl.DurationInFrames())

	_, err = LoadTimeline(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
