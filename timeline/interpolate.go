// Package timeline holds the frame clock math shared by every animation:
// piecewise interpolation, a damped spring, the reveal cues built on them
// and declarative scene timelines evaluated as pure functions of a frame.
package timeline

import (
	"fmt"
	"math"
)

// Extrapolate controls values outside an input range
type Extrapolate string

const (
	// ExtrapolateExtend continues the edge segment linearly
	ExtrapolateExtend Extrapolate = "extend"
	// ExtrapolateClamp holds the edge output value
	ExtrapolateClamp Extrapolate = "clamp"
	// ExtrapolateIdentity returns the input unchanged
	ExtrapolateIdentity Extrapolate = "identity"
)

// Easing maps linear progress in [0,1] to eased progress
type Easing func(float64) float64

// InterpolateOptions configures Interpolate. Empty extrapolation means extend.
type InterpolateOptions struct {
	Left   Extrapolate
	Right  Extrapolate
	Easing Easing
}

// Clamped clamps on both sides
var Clamped = InterpolateOptions{Left: ExtrapolateClamp, Right: ExtrapolateClamp}

// EaseInOutCubic is a symmetric cubic easing
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// InterpolateE maps input through the piecewise linear function defined by
// inputRange -> outputRange. Ranges must have the same length (at least 2)
// and inputRange must be non-decreasing.
func InterpolateE(input float64, inputRange, outputRange []float64, opts ...InterpolateOptions) (float64, error) {
	if len(inputRange) < 2 {
		return 0, fmt.Errorf("inputRange must have at least 2 elements, got %d", len(inputRange))
	}
	if len(inputRange) != len(outputRange) {
		return 0, fmt.Errorf("inputRange (%d) and outputRange (%d) must have the same length", len(inputRange), len(outputRange))
	}
	for i := 1; i < len(inputRange); i++ {
		if inputRange[i] < inputRange[i-1] {
			return 0, fmt.Errorf("inputRange must be non-decreasing, got %v", inputRange)
		}
	}
	for _, v := range append(append([]float64{input}, inputRange...), outputRange...) {
		if math.IsNaN(v) {
			return 0, fmt.Errorf("cannot interpolate NaN")
		}
	}

	var o InterpolateOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	i := 1
	for ; i < len(inputRange)-1; i++ {
		if inputRange[i] >= input {
			break
		}
	}
	return segment(input, inputRange[i-1], inputRange[i], outputRange[i-1], outputRange[i], o), nil
}

// Interpolate is InterpolateE for ranges known to be valid. An invalid range
// yields the first output value (or 0 when there is none).
func Interpolate(input float64, inputRange, outputRange []float64, opts ...InterpolateOptions) float64 {
	v, err := InterpolateE(input, inputRange, outputRange, opts...)
	if err != nil {
		if len(outputRange) > 0 {
			return outputRange[0]
		}
		return 0
	}
	return v
}

func segment(input, inMin, inMax, outMin, outMax float64, o InterpolateOptions) float64 {
	result := input

	if result < inMin {
		switch o.Left {
		case ExtrapolateIdentity:
			return result
		case ExtrapolateClamp:
			result = inMin
		}
	}
	if result > inMax {
		switch o.Right {
		case ExtrapolateIdentity:
			return result
		case ExtrapolateClamp:
			result = inMax
		}
	}

	if outMin == outMax {
		return outMin
	}
	if inMin == inMax {
		if input < inMin {
			return outMin
		}
		return outMax
	}

	result = (result - inMin) / (inMax - inMin)
	if o.Easing != nil {
		result = o.Easing(result)
	}
	return result*(outMax-outMin) + outMin
}

// Progress is a clamped 0..1 ramp from start to start+duration (in frames)
func Progress(frame, start, duration float64) float64 {
	if duration <= 0 {
		if frame >= start {
			return 1
		}
		return 0
	}
	return Interpolate(frame, []float64{start, start + duration}, []float64{0, 1}, Clamped)
}
