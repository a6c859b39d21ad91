package vec3

import (
	"math"
)

type T [3]float64

// unitTolerance is how far from 1 a squared length may be for the vector to be
// treated as already normalized.
const unitTolerance = 1e-12

func (v T) Norm() float64 {
	n2 := v.NormSquared()
	if n2 == 0 {
		return 0
	}
	return math.Sqrt(n2)
}

func (v T) NormSquared() float64 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// Normalize returns the unit vector pointing along v.
//
// The zero vector is returned unchanged, as is any vector that is already of
// unit length, so Normalize(Normalize(v)) == Normalize(v).
func Normalize(v T) T {
	n2 := v.NormSquared()
	if n2 == 0 || math.Abs(n2-1) < unitTolerance {
		return v
	}
	l := math.Sqrt(n2)
	return T{
		v[0] / l,
		v[1] / l,
		v[2] / l,
	}
}

func AddVV(a, b T) T {
	return T{
		a[0] + b[0],
		a[1] + b[1],
		a[2] + b[2],
	}
}

func SubVV(a, b T) T {
	return T{
		a[0] - b[0],
		a[1] - b[1],
		a[2] - b[2],
	}
}

func MulVS(a T, b float64) T {
	return T{
		a[0] * b,
		a[1] * b,
		a[2] * b,
	}
}

// MulVV is the component-wise product.
func MulVV(a, b T) T {
	return T{
		a[0] * b[0],
		a[1] * b[1],
		a[2] * b[2],
	}
}

func Neg(a T) T {
	return T{-a[0], -a[1], -a[2]}
}

func IProd(a, b T) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// CProd is the right-handed cross product.
func CProd(a, b T) T {
	return T{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Joining returns the vector that carries a to b.
func Joining(a, b T) T {
	return SubVV(b, a)
}

func Distance(a, b T) float64 {
	return Joining(a, b).Norm()
}

// Reject returns the component of b that is orthogonal to a.
func Reject(a, b T) T {
	n2 := a.NormSquared()
	if n2 == 0 {
		return b
	}
	return SubVV(b, MulVS(a, IProd(a, b)/n2))
}

// Reflect mirrors a about the plane with normal n.  n must be of unit length.
func Reflect(a, n T) T {
	return SubVV(a, MulVS(n, 2*IProd(a, n)))
}
