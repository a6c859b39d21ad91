package geometry

import (
	"math"

	"whitted/ray"
	"whitted/vmath/vec3"
)

// Miss is the distance reported by RayInto when the ray does not hit.
var Miss = math.Inf(1)

// Epsilon is the smallest distance along a ray that counts as a hit.  Roots at
// or below it belong to the surface the ray was launched from.
const Epsilon = 1e-9

// Geometry is a solid that rays can strike.
type Geometry interface {
	// RayInto returns the distance along r to the first surface point, or Miss.
	RayInto(r ray.Ray) float64

	// NormalAt returns the unit surface normal at p, which must lie on the
	// surface.
	NormalAt(p vec3.T) vec3.T
}

// IsMiss reports whether a distance returned by RayInto is a miss.
func IsMiss(t float64) bool {
	return math.IsInf(t, 1) || math.IsNaN(t)
}

type Sphere struct {
	Center vec3.T
	Radius float64
}

func (s *Sphere) RayInto(r ray.Ray) float64 {
	toCenter := vec3.Joining(r.Point, s.Center)

	scal := vec3.IProd(toCenter, r.Slope)
	if scal < 0 {
		// The center is behind the ray origin.
		return Miss
	}

	ch2 := toCenter.NormSquared() - scal*scal
	r2 := s.Radius * s.Radius
	if ch2 > r2 {
		return Miss
	}

	d := math.Sqrt(r2 - ch2)
	near := scal - d
	far := scal + d

	if near > Epsilon {
		return near
	}
	if far > Epsilon {
		return far
	}
	return Miss
}

func (s *Sphere) NormalAt(p vec3.T) vec3.T {
	return vec3.Normalize(vec3.Joining(s.Center, p))
}

// Plane is the set of points p with Normal·p + Distance == 0.
type Plane struct {
	Normal   vec3.T
	Distance float64
}

// NewPlane builds a plane, normalizing the normal.
func NewPlane(normal vec3.T, distance float64) *Plane {
	return &Plane{
		Normal:   vec3.Normalize(normal),
		Distance: distance,
	}
}

func (p *Plane) RayInto(r ray.Ray) float64 {
	denom := vec3.IProd(p.Normal, r.Slope)
	if denom >= 0 {
		// Parallel, or approaching from behind.
		return Miss
	}

	t := -(vec3.IProd(p.Normal, r.Point) + p.Distance) / denom
	if t < 0 {
		return Miss
	}
	return t
}

func (p *Plane) NormalAt(vec3.T) vec3.T {
	return p.Normal
}

// Triangle is a flat triangle.  Its normal follows the winding A, B, C.
type Triangle struct {
	A, B, C vec3.T

	normal vec3.T
}

func NewTriangle(a, b, c vec3.T) *Triangle {
	t := &Triangle{A: a, B: b, C: c}
	t.normal = vec3.Normalize(vec3.CProd(vec3.SubVV(b, a), vec3.SubVV(c, a)))
	return t
}

// RayInto uses the Möller-Trumbore test.
func (tr *Triangle) RayInto(r ray.Ray) float64 {
	edge1 := vec3.SubVV(tr.B, tr.A)
	edge2 := vec3.SubVV(tr.C, tr.A)

	h := vec3.CProd(r.Slope, edge2)
	det := vec3.IProd(edge1, h)
	if math.Abs(det) < Epsilon {
		// The ray runs within the triangle's plane.
		return Miss
	}

	f := 1 / det
	s := vec3.SubVV(r.Point, tr.A)
	u := f * vec3.IProd(s, h)
	if u < 0 || u > 1 {
		return Miss
	}

	q := vec3.CProd(s, edge1)
	v := f * vec3.IProd(r.Slope, q)
	if v < 0 || u+v > 1 {
		return Miss
	}

	t := f * vec3.IProd(edge2, q)
	if t <= Epsilon {
		return Miss
	}
	return t
}

func (tr *Triangle) NormalAt(vec3.T) vec3.T {
	return tr.normal
}
