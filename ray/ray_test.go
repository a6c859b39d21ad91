package ray

import (
	"math"
	"testing"

	"whitted/vmath/vec3"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestNewNormalizes(t *testing.T) {
	r := New(vec3.T{1, 2, 3}, vec3.T{0, 0, 5})
	if diff := cmp.Diff(r.Slope, vec3.T{0, 0, 1}); diff != "" {
		t.Errorf("Slope; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(r.Point, vec3.T{1, 2, 3}); diff != "" {
		t.Errorf("Point; diff (-got +want)\n%s", diff)
	}
}

func TestToward(t *testing.T) {
	r := Toward(vec3.T{0, 0, 0}, vec3.T{3, 4, 0})
	if got := r.Slope.Norm(); math.Abs(got-1) > 1e-12 {
		t.Errorf("Slope norm = %v, want 1", got)
	}
	if diff := cmp.Diff(r.Eval(5), vec3.T{3, 4, 0}, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Eval(5); diff (-got +want)\n%s", diff)
	}
}
