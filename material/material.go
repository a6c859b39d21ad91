package material

import (
	"math"

	"whitted/color"
	"whitted/contact"
	"whitted/light"
	"whitted/ray"
	"whitted/vmath/vec3"
)

// MaxDepth bounds the number of reflective and refractive bounces along a
// single path.
const MaxDepth = 8

// Scene is the view of the world a material needs to cast secondary rays.
type Scene interface {
	// Nearest returns the closest qualifying contact along r.
	Nearest(r ray.Ray) (contact.Contact, bool)

	// Trace returns the color seen along r, shading the nearest contact with
	// its element's material.
	Trace(r ray.Ray, ctx Context) color.T

	Lights() []light.Light
	Ambient() color.T
}

// Context is the per-path state threaded through shading.  It is a value;
// derive new contexts with Deeper and Through rather than mutating one.
type Context struct {
	Depth int

	// Refractive index of the medium the current ray travels through.
	Index float64

	Scene Scene
}

// NewContext returns the context for a primary ray: depth zero, in air.
func NewContext(s Scene) Context {
	return Context{
		Depth: 0,
		Index: 1.0,
		Scene: s,
	}
}

func (c Context) Deeper() Context {
	c.Depth++
	return c
}

func (c Context) Through(index float64) Context {
	c.Index = index
	return c
}

// Exhausted reports whether no further bounces may be traced.
func (c Context) Exhausted() bool {
	return c.Depth >= MaxDepth
}

type Material interface {
	Shade(c contact.Contact, ctx Context) color.T
}

// shadeInner evaluates an optional sub-material.  A nil inner material is the
// end of the chain and contributes fallback.
func shadeInner(inner Material, c contact.Contact, ctx Context, fallback color.T) color.T {
	if inner == nil {
		return fallback
	}
	return inner.Shade(c, ctx)
}

// Solid is a fixed color that ignores lighting.  It usually terminates a chain.
type Solid struct {
	Color color.T
}

func (s *Solid) Shade(contact.Contact, Context) color.T {
	return s.Color
}

// Phong lights the color of its inner material with every scene light that
// is visible from the contact point.
type Phong struct {
	Diffuse  float64
	Specular float64

	Inner Material
}

func (p *Phong) Shade(c contact.Contact, ctx Context) color.T {
	base := shadeInner(p.Inner, c, ctx, color.Black())

	terms := []color.T{}
	if ctx.Depth == 0 {
		terms = append(terms, ctx.Scene.Ambient())
	}

	for _, l := range ctx.Scene.Lights() {
		toLight := vec3.Joining(c.P, l.Position)
		lightDistance := toLight.Norm()
		if lightDistance == 0 {
			continue
		}

		shadowRay := ray.Toward(c.P, l.Position)
		lambert := vec3.IProd(shadowRay.Slope, c.N)
		if lambert <= 0 {
			// The light is behind the surface.
			continue
		}

		if blocker, ok := ctx.Scene.Nearest(shadowRay); ok && blocker.T < lightDistance {
			continue
		}

		terms = append(terms, l.Color.MulC(base).MulS(lambert*p.Diffuse))

		// Mirror the light's incoming direction about the normal and compare it
		// with the viewing ray.  They oppose each other when the highlight faces
		// the viewer.
		reflected := vec3.Reflect(vec3.Neg(shadowRay.Slope), c.N)
		if rv := vec3.IProd(reflected, c.R.Slope); rv < 0 {
			terms = append(terms, l.Color.MulS(math.Pow(math.Abs(rv), p.Specular)))
		}
	}

	return color.Black().Add(terms...)
}

// Reflective blends its inner color with what is seen in the mirror
// direction.
type Reflective struct {
	// Reflectivity in [0, 1]; 1 is a perfect mirror.
	Reflectivity float64

	Inner Material
}

func (r *Reflective) Shade(c contact.Contact, ctx Context) color.T {
	base := shadeInner(r.Inner, c, ctx, color.Black())

	reflected := color.Black()
	if !ctx.Exhausted() {
		reflected = ctx.Scene.Trace(c.Reflected(), ctx.Deeper())
	}

	return base.MulS(1 - r.Reflectivity).Add(reflected.MulS(r.Reflectivity))
}

// Refractive transmits light through the surface according to Snell's law.
//
// Index is the refractive index of the material's interior.  A ray striking
// the surface while the context says it already travels through a medium of
// this index is taken to be leaving, back into air.  The inner material, when
// present, filters the transmitted color.
type Refractive struct {
	Index float64

	Inner Material
}

func (r *Refractive) Shade(c contact.Contact, ctx Context) color.T {
	transmitted := color.Black()
	if !ctx.Exhausted() {
		next, nextIndex := r.refract(c, ctx.Index)
		transmitted = ctx.Scene.Trace(next, ctx.Deeper().Through(nextIndex))
	}

	return shadeInner(r.Inner, c, ctx, color.White()).MulC(transmitted)
}

// refract returns the continuation of c.R through the surface together with
// the index of the medium it continues in.  Under total internal reflection the
// continuation is the mirror ray and the medium is unchanged.
//
// Nested media are not tracked: a ray arriving from a medium of index r.Index
// is taken to be leaving this material into vacuum (index 1), even when the
// object sits inside another refractive object.
func (r *Refractive) refract(c contact.Contact, fromIndex float64) (ray.Ray, float64) {
	toIndex := r.Index
	if fromIndex == r.Index {
		toIndex = 1.0
	}

	n := c.N
	cosI := -vec3.IProd(c.R.Slope, n)
	if cosI < 0 {
		// Struck from the back face.
		n = vec3.Neg(n)
		cosI = -cosI
	}

	eta := fromIndex / toIndex
	k := 1 - eta*eta*(1-cosI*cosI)
	if k < 0 {
		return ray.New(c.P, vec3.Reflect(c.R.Slope, n)), fromIndex
	}

	dir := vec3.AddVV(vec3.MulVS(c.R.Slope, eta), vec3.MulVS(n, eta*cosI-math.Sqrt(k)))
	return ray.New(c.P, dir), toIndex
}
