package scenefile

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"whitted/color"
	"whitted/geometry"
	"whitted/light"
	"whitted/material"
	"whitted/scene"
	"whitted/vmath/vec3"

	"github.com/google/go-cmp/cmp"
)

var allowColor = cmp.AllowUnexported(color.T{})

func TestLoad(t *testing.T) {
	s, err := Load(context.Background(), "testdata/spheres.yaml")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff(s.Ambient(), color.Must(0.05, 0.05, 0.05), allowColor); diff != "" {
		t.Errorf("Ambient; diff (-got +want)\n%s", diff)
	}

	if diff := cmp.Diff(s.CameraNames(), []string{"front", "top"}); diff != "" {
		t.Errorf("CameraNames; diff (-got +want)\n%s", diff)
	}
	front, _ := s.Camera("front")
	if def, _ := s.DefaultCamera(); def != front {
		t.Errorf("Default camera is not the first camera in the file")
	}
	if front.Plane.Cols != 160 || front.Plane.Rows != 120 {
		t.Errorf("Front camera resolution %dx%d, want 160x120", front.Plane.Cols, front.Plane.Rows)
	}

	wantLights := []light.Light{
		{Position: vec3.T{5, 8, 5}, Color: color.White()},
		{Position: vec3.T{-6, 4, 3}, Color: color.Must(0.2, 0.2, 0.3)},
	}
	if diff := cmp.Diff(s.Lights(), wantLights, allowColor); diff != "" {
		t.Errorf("Lights; diff (-got +want)\n%s", diff)
	}

	var names []string
	for _, e := range s.Elements() {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff(names, []string{"ground", "left-ball", "right-ball", "backdrop"}); diff != "" {
		t.Errorf("Element names; diff (-got +want)\n%s", diff)
	}

	ground, _ := s.Element("ground")
	if diff := cmp.Diff(ground.TheGeometry, geometry.Geometry(geometry.NewPlane(vec3.T{0, 1, 0}, 1))); diff != "" {
		t.Errorf("Ground geometry; diff (-got +want)\n%s", diff)
	}

	ball, _ := s.Element("left-ball")
	if diff := cmp.Diff(ball.TheGeometry, geometry.Geometry(&geometry.Sphere{Center: vec3.T{-1.2, 0, 0}, Radius: 1})); diff != "" {
		t.Errorf("Ball geometry; diff (-got +want)\n%s", diff)
	}

	wantChrome := &material.Reflective{
		Reflectivity: 0.8,
		Inner: &material.Phong{
			Diffuse:  0.4,
			Specular: 60,
			Inner:    &material.Solid{Color: color.Must(0.8, 0.8, 0.9)},
		},
	}
	if diff := cmp.Diff(ball.TheMaterial, material.Material(wantChrome), allowColor); diff != "" {
		t.Errorf("Chrome material; diff (-got +want)\n%s", diff)
	}

	glass, _ := s.Element("right-ball")
	if diff := cmp.Diff(glass.TheMaterial, material.Material(&material.Refractive{Index: 1.5}), allowColor); diff != "" {
		t.Errorf("Glass material; diff (-got +want)\n%s", diff)
	}

	backdrop, _ := s.Element("backdrop")
	if _, ok := backdrop.TheGeometry.(*geometry.Triangle); !ok {
		t.Errorf("Backdrop geometry is %T, want *geometry.Triangle", backdrop.TheGeometry)
	}
	if backdrop.TheMaterial != ground.TheMaterial {
		t.Errorf("Primitives naming the same material do not share it")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(context.Background(), "testdata/does-not-exist.yaml"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load error = %v, want fs.ErrNotExist", err)
	}
}

const header = `
ambient: [0, 0, 0]
cameras:
  - name: main
    position: [0, 0, 0]
    direction: [0, 0, -1]
    up: [0, 1, 0]
    plane: {width: 1, height: 1, distance: 1, cols: 4, rows: 4}
`

func TestParseMinimal(t *testing.T) {
	s, err := Parse(context.Background(), []byte(header))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(s.Elements()) != 0 || len(s.Lights()) != 0 {
		t.Errorf("Minimal scene has %d elements and %d lights, want none", len(s.Elements()), len(s.Lights()))
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		want []error
	}{
		{
			name: "empty",
			yaml: ``,
			want: []error{ErrInvalidScene},
		},
		{
			name: "no ambient",
			yaml: strings.Replace(header, "ambient: [0, 0, 0]", "", 1),
			want: []error{ErrInvalidScene},
		},
		{
			name: "ambient out of range",
			yaml: strings.Replace(header, "ambient: [0, 0, 0]", "ambient: [0, 2, 0]", 1),
			want: []error{ErrInvalidScene, color.ErrInvalidArgument},
		},
		{
			name: "no cameras",
			yaml: `ambient: [0, 0, 0]`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "unknown field",
			yaml: header + `
fog: 0.5
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "bad camera",
			yaml: `
ambient: [0, 0, 0]
cameras:
  - name: main
    position: [0, 0, 0]
    direction: [0, 1, 0]
    up: [0, 1, 0]
    plane: {width: 1, height: 1, distance: 1, cols: 4, rows: 4}
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "duplicate light",
			yaml: header + `
lights:
  - {name: key, position: [0, 1, 0], color: [1, 1, 1]}
  - {name: key, position: [0, 2, 0], color: [1, 1, 1]}
`,
			want: []error{ErrInvalidScene, scene.ErrDuplicateName},
		},
		{
			name: "short vector",
			yaml: header + `
lights:
  - {name: key, position: [0, 1], color: [1, 1, 1]}
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "unknown material type",
			yaml: header + `
materials:
  - {name: velvet, type: velvet}
`,
			want: []error{ErrUnknownKind},
		},
		{
			name: "unknown nested material type",
			yaml: header + `
materials:
  - name: coat
    type: reflective
    reflectivity: 0.5
    material: {type: velvet}
`,
			want: []error{ErrUnknownKind},
		},
		{
			name: "color with nested material",
			yaml: header + `
materials:
  - name: red
    type: color
    color: [1, 0, 0]
    material: {type: color, color: [0, 1, 0]}
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "phong without specular",
			yaml: header + `
materials:
  - {name: dull, type: phong, diffuse: 1}
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "reflectivity above one",
			yaml: header + `
materials:
  - {name: mirror, type: reflective, reflectivity: 1.5}
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "duplicate material",
			yaml: header + `
materials:
  - {name: red, type: color, color: [1, 0, 0]}
  - {name: red, type: color, color: [0, 1, 0]}
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "unknown primitive type",
			yaml: header + `
materials:
  - {name: red, type: color, color: [1, 0, 0]}
primitives:
  - {name: box, type: box, material: red}
`,
			want: []error{ErrUnknownKind},
		},
		{
			name: "undefined material",
			yaml: header + `
primitives:
  - {name: ball, type: sphere, center: [0, 0, -5], radius: 1, material: red}
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "sphere without radius",
			yaml: header + `
materials:
  - {name: red, type: color, color: [1, 0, 0]}
primitives:
  - {name: ball, type: sphere, center: [0, 0, -5], material: red}
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "degenerate triangle",
			yaml: header + `
materials:
  - {name: red, type: color, color: [1, 0, 0]}
primitives:
  - {name: sliver, type: triangle, vertices: [[0, 0, 0], [1, 1, 1], [2, 2, 2]], material: red}
`,
			want: []error{ErrInvalidScene},
		},
		{
			name: "duplicate primitive",
			yaml: header + `
materials:
  - {name: red, type: color, color: [1, 0, 0]}
primitives:
  - {name: ball, type: sphere, center: [0, 0, -5], radius: 1, material: red}
  - {name: ball, type: sphere, center: [0, 0, -9], radius: 1, material: red}
`,
			want: []error{ErrInvalidScene, scene.ErrDuplicateName},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tc.yaml))
			if err == nil {
				t.Fatalf("Parse succeeded, want error")
			}
			for _, want := range tc.want {
				if !errors.Is(err, want) {
					t.Errorf("Parse error = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestKinds(t *testing.T) {
	if diff := cmp.Diff(PrimitiveKinds(), []string{"plane", "sphere", "triangle"}); diff != "" {
		t.Errorf("PrimitiveKinds; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(MaterialKinds(), []string{"color", "phong", "reflective", "refractive"}); diff != "" {
		t.Errorf("MaterialKinds; diff (-got +want)\n%s", diff)
	}
}
