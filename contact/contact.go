package contact

import (
	"whitted/geometry"
	"whitted/ray"
	"whitted/vmath/vec3"
)

// Contact records a ray striking a geometry.
type Contact struct {
	// The ray that made the contact.
	R ray.Ray

	// Distance along R.
	T float64

	// The struck point and the unit surface normal there.
	P vec3.T
	N vec3.T

	Geometry geometry.Geometry
}

// New builds the contact of r with g at distance t.  P and N are evaluated
// here, once.
func New(r ray.Ray, t float64, g geometry.Geometry) Contact {
	p := r.Eval(t)
	return Contact{
		R:        r,
		T:        t,
		P:        p,
		N:        g.NormalAt(p),
		Geometry: g,
	}
}

// Reflected returns the mirror image of the incoming ray, launched from the
// contact point.
func (c Contact) Reflected() ray.Ray {
	return ray.New(c.P, vec3.Reflect(c.R.Slope, c.N))
}
