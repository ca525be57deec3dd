package timeline

import "math"

// Default cue parameters, in seconds unless noted
const (
	DefaultPopInFade      = 0.3
	DefaultSlideInFade    = 0.4
	DefaultFadeDuration   = 0.5
	DefaultDrawDuration   = 0.5
	DefaultSlideDistance  = 100.0 // px
	DefaultCharsPerSecond = 12.0
)

// Direction of a slide-in. Left and right name the side the cue enters
// from; up and down name the direction it travels.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

// Motion is the animated state of one cue at one frame
type Motion struct {
	Visible    bool    `json:"visible"`
	Opacity    float64 `json:"opacity"`
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translateX,omitempty"`
	TranslateY float64 `json:"translateY,omitempty"`
	Progress   float64 `json:"progress"`
}

// Typed is the state of a typewriter reveal
type Typed struct {
	Text     string `json:"text"`
	Visible  bool   `json:"visible"`
	Typing   bool   `json:"typing"`
	Complete bool   `json:"complete"`
}

func startFrame(start float64, fps int) float64 {
	return start * float64(fps)
}

// PopIn scales in on a smooth spring while fading in over 0.3 s
func PopIn(frame, fps int, start float64) Motion {
	s := startFrame(start, fps)
	f := float64(frame)
	scale := Spring(f-s, fps, SmoothSpring)
	return Motion{
		Visible:  f >= s,
		Opacity:  Progress(f, s, DefaultPopInFade*float64(fps)),
		Scale:    scale,
		Progress: scale,
	}
}

// SlideIn translates from distance px away in direction to rest, fading in
// over fade seconds
func SlideIn(frame, fps int, start float64, direction Direction, distance, fade float64) Motion {
	if distance == 0 {
		distance = DefaultSlideDistance
	}
	if fade <= 0 {
		fade = DefaultSlideInFade
	}
	s := startFrame(start, fps)
	f := float64(frame)
	progress := Spring(f-s, fps, SmoothSpring)

	m := Motion{
		Visible:  f >= s,
		Opacity:  Progress(f, s, fade*float64(fps)),
		Scale:    1,
		Progress: progress,
	}
	offset := Interpolate(progress, []float64{0, 1}, []float64{distance, 0})
	switch direction {
	case DirectionRight:
		m.TranslateX = offset
	case DirectionUp:
		m.TranslateY = offset
	case DirectionDown:
		m.TranslateY = -offset
	default:
		m.TranslateX = -offset
	}
	return m
}

// Draw is a linear 0..1 progress over duration seconds, for strokes
func Draw(frame, fps int, start, duration float64) Motion {
	if duration <= 0 {
		duration = DefaultDrawDuration
	}
	s := startFrame(start, fps)
	f := float64(frame)
	return Motion{
		Visible:  f >= s,
		Opacity:  1,
		Scale:    1,
		Progress: Progress(f, s, duration*float64(fps)),
	}
}

// Fade ramps opacity linearly from 0 to 1 over duration seconds
func Fade(frame, fps int, start, duration float64) Motion {
	if duration <= 0 {
		duration = DefaultFadeDuration
	}
	s := startFrame(start, fps)
	f := float64(frame)
	p := Progress(f, s, duration*float64(fps))
	return Motion{
		Visible:  f >= s,
		Opacity:  p,
		Scale:    1,
		Progress: p,
	}
}

// Typewriter reveals text at charsPerSecond
func Typewriter(frame, fps int, text string, start, charsPerSecond float64) Typed {
	if charsPerSecond <= 0 {
		charsPerSecond = DefaultCharsPerSecond
	}
	runes := []rune(text)
	s := startFrame(start, fps)
	f := float64(frame)

	framesPerChar := float64(fps) / charsPerSecond
	elapsed := math.Max(0, f-s)
	count := len(runes)
	if framesPerChar > 0 {
		count = int(math.Min(float64(len(runes)), math.Floor(elapsed/framesPerChar)))
	}
	complete := count >= len(runes)
	return Typed{
		Text:     string(runes[:count]),
		Visible:  f >= s,
		Typing:   f >= s && !complete,
		Complete: complete,
	}
}
