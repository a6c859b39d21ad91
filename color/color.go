// Package color holds the clamped RGB color used throughout the renderer.
package color

import (
	"errors"
	"fmt"
	imgcolor "image/color"
	"math"
)

// ErrInvalidArgument is returned when a color is constructed from a channel
// outside [0, 1].
var ErrInvalidArgument = errors.New("invalid argument")

// T is an RGB color with every channel in [0, 1].
//
// Values are only ever produced by New, Must, or the clamping operations
// below, so a T never holds an out-of-range channel.
type T struct {
	r, g, b float64
}

// New validates and builds a color.
func New(r, g, b float64) (T, error) {
	for i, v := range [3]float64{r, g, b} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return T{}, fmt.Errorf("%w: channel %d is %v, want a value in [0, 1]", ErrInvalidArgument, i, v)
		}
	}
	return T{r, g, b}, nil
}

// Must is like New but panics on an invalid channel.  Use it for literals.
func Must(r, g, b float64) T {
	c, err := New(r, g, b)
	if err != nil {
		panic(err)
	}
	return c
}

func Black() T {
	return T{}
}

func White() T {
	return T{1, 1, 1}
}

func (c T) R() float64 { return c.r }
func (c T) G() float64 { return c.g }
func (c T) B() float64 { return c.b }

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func clamped(r, g, b float64) T {
	return T{clamp(r), clamp(g), clamp(b)}
}

// Add sums c and every element of cs, clamping once at the end.
func (c T) Add(cs ...T) T {
	r, g, b := c.r, c.g, c.b
	for _, o := range cs {
		r += o.r
		g += o.g
		b += o.b
	}
	return clamped(r, g, b)
}

// MulC is the component-wise product.
func (c T) MulC(o T) T {
	return clamped(c.r*o.r, c.g*o.g, c.b*o.b)
}

// MulS scales every channel by s.
func (c T) MulS(s float64) T {
	return clamped(c.r*s, c.g*s, c.b*s)
}

// Average returns the channel-wise mean of cs without clamping the running
// sums.  The average of no colors is black.
func Average(cs []T) T {
	if len(cs) == 0 {
		return Black()
	}
	var r, g, b float64
	for _, c := range cs {
		r += c.r
		g += c.g
		b += c.b
	}
	n := float64(len(cs))
	return clamped(r/n, g/n, b/n)
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}

// RGBA8 packs the color to 8 bits per channel with an opaque alpha.
func (c T) RGBA8() imgcolor.NRGBA {
	return imgcolor.NRGBA{R: to8(c.r), G: to8(c.g), B: to8(c.b), A: 255}
}

// RGBA implements image/color.Color.
func (c T) RGBA() (r, g, b, a uint32) {
	return c.RGBA8().RGBA()
}

func (c T) String() string {
	return fmt.Sprintf("(%g, %g, %g)", c.r, c.g, c.b)
}
