package vec3

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func TestNormalize(t *testing.T) {
	testCases := []T{
		{1, 0, 0},
		{0, -3, 0},
		{1, 2, 3},
		{-0.001, 0.002, 1000},
		{1e-8, 1e-8, 1e-8},
	}

	for i, v := range testCases {
		t.Run(fmt.Sprintf("Case %d", i), func(t *testing.T) {
			n := Normalize(v)
			if got := n.Norm(); math.Abs(got-1) > 1e-12 {
				t.Errorf("Normalize(%v).Norm() = %v, want 1", v, got)
			}

			if diff := cmp.Diff(Normalize(n), n); diff != "" {
				t.Errorf("Normalize is not idempotent; diff (-got +want)\n%s", diff)
			}

			if IProd(n, v) <= 0 {
				t.Errorf("Normalize(%v) = %v points the wrong way", v, n)
			}
		})
	}
}

func TestNormalizeZero(t *testing.T) {
	got := Normalize(T{})
	if diff := cmp.Diff(got, T{}); diff != "" {
		t.Errorf("Normalize of zero vector; diff (-got +want)\n%s", diff)
	}
	if math.IsNaN(got[0]) || math.IsNaN(got[1]) || math.IsNaN(got[2]) {
		t.Errorf("Normalize of zero vector produced NaN: %v", got)
	}
}

func TestNorm(t *testing.T) {
	if got := (T{}).Norm(); got != 0 {
		t.Errorf("Norm of zero vector = %v, want 0", got)
	}
	if got := (T{}).NormSquared(); got != 0 {
		t.Errorf("NormSquared of zero vector = %v, want 0", got)
	}
	if got := (T{3, 4, 12}).Norm(); got != 13 {
		t.Errorf("Norm = %v, want 13", got)
	}
	if got := (T{3, 4, 12}).NormSquared(); got != 169 {
		t.Errorf("NormSquared = %v, want 169", got)
	}
}

func TestArithmeticDoesNotMutate(t *testing.T) {
	a := T{1, 2, 3}
	b := T{4, 5, 6}

	AddVV(a, b)
	SubVV(a, b)
	MulVS(a, 3)
	MulVV(a, b)
	Neg(a)
	Normalize(a)
	Reflect(a, T{0, 1, 0})

	if diff := cmp.Diff(a, T{1, 2, 3}); diff != "" {
		t.Errorf("Receiver mutated; diff (-got +want)\n%s", diff)
	}
}

func TestCProdRightHanded(t *testing.T) {
	got := CProd(T{1, 0, 0}, T{0, 1, 0})
	if diff := cmp.Diff(got, T{0, 0, 1}); diff != "" {
		t.Errorf("x cross y; diff (-got +want)\n%s", diff)
	}

	got = CProd(T{0, 0, -1}, T{0, 1, 0})
	if diff := cmp.Diff(got, T{1, 0, 0}); diff != "" {
		t.Errorf("-z cross y; diff (-got +want)\n%s", diff)
	}
}

func TestReflect(t *testing.T) {
	got := Reflect(T{1, -1, 0}, T{0, 1, 0})
	if diff := cmp.Diff(got, T{1, 1, 0}, approx); diff != "" {
		t.Errorf("Reflect; diff (-got +want)\n%s", diff)
	}
}

func TestJoiningAndDistance(t *testing.T) {
	a := T{1, 1, 1}
	b := T{4, 5, 1}

	if diff := cmp.Diff(Joining(a, b), T{3, 4, 0}); diff != "" {
		t.Errorf("Joining; diff (-got +want)\n%s", diff)
	}
	if got := Distance(a, b); got != 5 {
		t.Errorf("Distance = %v, want 5", got)
	}
}

func TestReject(t *testing.T) {
	got := Reject(T{0, 0, 2}, T{1, 2, 3})
	if diff := cmp.Diff(got, T{1, 2, 0}, approx); diff != "" {
		t.Errorf("Reject; diff (-got +want)\n%s", diff)
	}
}

func TestMulVV(t *testing.T) {
	got := MulVV(T{1, -2, 3}, T{4, 5, -0.5})
	if diff := cmp.Diff(got, T{4, -10, -1.5}); diff != "" {
		t.Errorf("MulVV; diff (-got +want)\n%s", diff)
	}
}
