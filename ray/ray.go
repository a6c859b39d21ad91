package ray

import (
	"whitted/vmath/vec3"
)

// Ray is a half-line.  Slope always has unit length; build rays with New.
type Ray struct {
	Point vec3.T
	Slope vec3.T
}

// New returns the ray leaving origin along direction, normalizing direction.
func New(origin, direction vec3.T) Ray {
	return Ray{
		Point: origin,
		Slope: vec3.Normalize(direction),
	}
}

// Toward returns the ray leaving from and passing through to.
func Toward(from, to vec3.T) Ray {
	return New(from, vec3.Joining(from, to))
}

func (r Ray) Eval(t float64) vec3.T {
	return vec3.T{
		r.Point[0] + t*r.Slope[0],
		r.Point[1] + t*r.Slope[1],
		r.Point[2] + t*r.Slope[2],
	}
}
