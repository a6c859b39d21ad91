// Package quadratic finds the real roots of a*x^2 + b*x + c = 0.
package quadratic

import "math"

type Roots struct {
	// Count is 0, 1, or 2.  First and Second are only meaningful up to Count;
	// when Count is 1 they are equal.
	Count int

	First, Second float64
}

// Solve returns the real roots, with First <= Second.
//
// a == 0 degenerates to the linear equation b*x + c = 0, which has one root
// unless b is also zero.
func Solve(a, b, c float64) Roots {
	if a == 0 {
		if b == 0 {
			return Roots{}
		}
		x := -c / b
		return Roots{Count: 1, First: x, Second: x}
	}

	delta := b*b - 4*a*c
	switch {
	case delta < 0:
		return Roots{}
	case delta == 0:
		x := -b / (2 * a)
		return Roots{Count: 1, First: x, Second: x}
	}

	sq := math.Sqrt(delta)
	x1 := (-b - sq) / (2 * a)
	x2 := (-b + sq) / (2 * a)
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	return Roots{Count: 2, First: x1, Second: x2}
}
