// Package scenefile loads scenes from YAML.
//
// A scene file lists the ambient color, cameras, lights, shared materials and
// primitives:
//
//	ambient: [0.1, 0.1, 0.1]
//	cameras:
//	  - name: main
//	    position: [0, 1, 5]
//	    direction: [0, 0, -1]
//	    up: [0, 1, 0]
//	    plane: {width: 4, height: 3, distance: 2, cols: 640, rows: 480}
//	lights:
//	  - name: key
//	    position: [5, 5, 5]
//	    color: [1, 1, 1]
//	materials:
//	  - name: red-plastic
//	    type: phong
//	    diffuse: 0.8
//	    specular: 30
//	    material:
//	      type: color
//	      color: [0.8, 0.1, 0.1]
//	primitives:
//	  - name: ball
//	    type: sphere
//	    center: [0, 0, 0]
//	    radius: 1
//	    material: red-plastic
//
// Named materials may be shared by any number of primitives.  A nested
// material block belongs to the material that contains it.  Entries are added
// to the scene in file order, and the first camera is the default.
package scenefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"whitted/camera"
	"whitted/color"
	"whitted/geometry"
	"whitted/light"
	"whitted/material"
	"whitted/scene"
	"whitted/vmath/vec3"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidScene = errors.New("invalid scene")
	ErrUnknownKind  = errors.New("unknown kind")
)

type fileScene struct {
	Ambient    []float64       `yaml:"ambient"`
	Cameras    []fileCamera    `yaml:"cameras"`
	Lights     []fileLight     `yaml:"lights"`
	Materials  []fileMaterial  `yaml:"materials"`
	Primitives []filePrimitive `yaml:"primitives"`
}

type filePlane struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Distance float64 `yaml:"distance"`
	Cols     int     `yaml:"cols"`
	Rows     int     `yaml:"rows"`
}

type fileCamera struct {
	Name      string    `yaml:"name"`
	Position  []float64 `yaml:"position"`
	Direction []float64 `yaml:"direction"`
	Up        []float64 `yaml:"up"`
	Plane     filePlane `yaml:"plane"`
}

type fileLight struct {
	Name     string    `yaml:"name"`
	Position []float64 `yaml:"position"`
	Color    []float64 `yaml:"color"`
}

type fileMaterial struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	Color        []float64 `yaml:"color"`
	Diffuse      *float64  `yaml:"diffuse"`
	Specular     *float64  `yaml:"specular"`
	Reflectivity *float64  `yaml:"reflectivity"`
	Index        *float64  `yaml:"index"`

	Material *fileMaterial `yaml:"material"`
}

type filePrimitive struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	Center   []float64   `yaml:"center"`
	Radius   *float64    `yaml:"radius"`
	Normal   []float64   `yaml:"normal"`
	Distance *float64    `yaml:"distance"`
	Vertices [][]float64 `yaml:"vertices"`

	Material string `yaml:"material"`
}

type primitiveBuilder func(p *filePrimitive) (geometry.Geometry, error)

var primitiveKinds = map[string]primitiveBuilder{
	"sphere":   buildSphere,
	"plane":    buildPlane,
	"triangle": buildTriangle,
}

// materialBuilder builds one link of a material chain.  inner is the already
// built nested material, or nil.
type materialBuilder func(m *fileMaterial, inner material.Material) (material.Material, error)

var materialKinds = map[string]materialBuilder{
	"color":      buildSolid,
	"phong":      buildPhong,
	"reflective": buildReflective,
	"refractive": buildRefractive,
}

// PrimitiveKinds lists the primitive types a scene file may use.
func PrimitiveKinds() []string {
	kinds := make([]string, 0, len(primitiveKinds))
	for k := range primitiveKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// MaterialKinds lists the material types a scene file may use.
func MaterialKinds() []string {
	kinds := make([]string, 0, len(materialKinds))
	for k := range materialKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Load reads and parses the scene file at path.
func Load(ctx context.Context, path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("while reading scene file: %w", err)
	}

	s, err := Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("while parsing scene file %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a scene from the YAML in data.  Unknown fields are rejected.
func Parse(ctx context.Context, data []byte) (*scene.Scene, error) {
	tracer := otel.Tracer("whitted/scenefile")
	var span trace.Span
	_, span = tracer.Start(ctx, "scenefile.Parse")
	defer span.End()

	s, err := parse(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("elements", int64(len(s.Elements()))),
		attribute.Int64("lights", int64(len(s.Lights()))),
		attribute.Int64("cameras", int64(len(s.CameraNames()))),
	)
	span.SetStatus(codes.Ok, "")
	return s, nil
}

func parse(data []byte) (*scene.Scene, error) {
	fs := &fileScene{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fs); err != nil {
		return nil, fmt.Errorf("%w: while decoding yaml: %v", ErrInvalidScene, err)
	}

	if fs.Ambient == nil {
		return nil, fmt.Errorf("%w: no ambient color", ErrInvalidScene)
	}
	ambient, err := convertColor("ambient", fs.Ambient)
	if err != nil {
		return nil, err
	}

	if len(fs.Cameras) == 0 {
		return nil, fmt.Errorf("%w: no cameras", ErrInvalidScene)
	}

	s := scene.New(ambient)

	for i := range fs.Cameras {
		fc := &fs.Cameras[i]
		c, err := buildCamera(fc)
		if err != nil {
			return nil, fmt.Errorf("while building camera %q: %w", fc.Name, err)
		}
		if err := s.AddCamera(fc.Name, c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
		}
	}

	for i := range fs.Lights {
		fl := &fs.Lights[i]
		l, err := buildLight(fl)
		if err != nil {
			return nil, fmt.Errorf("while building light %q: %w", fl.Name, err)
		}
		if err := s.AddLight(fl.Name, l); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
		}
	}

	materials := map[string]material.Material{}
	for i := range fs.Materials {
		fm := &fs.Materials[i]
		if err := requireName("material", fm.Name); err != nil {
			return nil, err
		}
		if _, ok := materials[fm.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate material %q", ErrInvalidScene, fm.Name)
		}
		m, err := buildMaterial(fm)
		if err != nil {
			return nil, fmt.Errorf("while building material %q: %w", fm.Name, err)
		}
		materials[fm.Name] = m
	}

	for i := range fs.Primitives {
		fp := &fs.Primitives[i]
		if err := requireName("primitive", fp.Name); err != nil {
			return nil, err
		}

		build, ok := primitiveKinds[fp.Type]
		if !ok {
			return nil, fmt.Errorf("while building primitive %q: %w: primitive type %q (have %v)", fp.Name, ErrUnknownKind, fp.Type, PrimitiveKinds())
		}
		g, err := build(fp)
		if err != nil {
			return nil, fmt.Errorf("while building primitive %q: %w", fp.Name, err)
		}

		m, ok := materials[fp.Material]
		if !ok {
			return nil, fmt.Errorf("%w: primitive %q refers to undefined material %q", ErrInvalidScene, fp.Name, fp.Material)
		}

		if _, err := s.AddElement(fp.Name, g, m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
		}
	}

	return s, nil
}

func requireName(what, name string) error {
	if name == "" {
		return fmt.Errorf("%w: %s without a name", ErrInvalidScene, what)
	}
	return nil
}

func buildCamera(fc *fileCamera) (*camera.Camera, error) {
	if err := requireName("camera", fc.Name); err != nil {
		return nil, err
	}
	position, err := convertVec3("position", fc.Position)
	if err != nil {
		return nil, err
	}
	direction, err := convertVec3("direction", fc.Direction)
	if err != nil {
		return nil, err
	}
	up, err := convertVec3("up", fc.Up)
	if err != nil {
		return nil, err
	}

	c, err := camera.New(position, direction, up, camera.Plane{
		Width:    fc.Plane.Width,
		Height:   fc.Plane.Height,
		Distance: fc.Plane.Distance,
		Cols:     fc.Plane.Cols,
		Rows:     fc.Plane.Rows,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	return c, nil
}

func buildLight(fl *fileLight) (light.Light, error) {
	if err := requireName("light", fl.Name); err != nil {
		return light.Light{}, err
	}
	position, err := convertVec3("position", fl.Position)
	if err != nil {
		return light.Light{}, err
	}
	c, err := convertColor("color", fl.Color)
	if err != nil {
		return light.Light{}, err
	}
	return light.Light{Position: position, Color: c}, nil
}

// buildMaterial builds fm and its nested chain, innermost first.
func buildMaterial(fm *fileMaterial) (material.Material, error) {
	build, ok := materialKinds[fm.Type]
	if !ok {
		return nil, fmt.Errorf("%w: material type %q (have %v)", ErrUnknownKind, fm.Type, MaterialKinds())
	}

	var inner material.Material
	if fm.Material != nil {
		if fm.Material.Name != "" {
			return nil, fmt.Errorf("%w: nested material may not be named (%q)", ErrInvalidScene, fm.Material.Name)
		}
		var err error
		inner, err = buildMaterial(fm.Material)
		if err != nil {
			return nil, fmt.Errorf("while building nested %s material: %w", fm.Material.Type, err)
		}
	}

	return build(fm, inner)
}

func buildSolid(fm *fileMaterial, inner material.Material) (material.Material, error) {
	if inner != nil {
		return nil, fmt.Errorf("%w: color material cannot have a nested material", ErrInvalidScene)
	}
	c, err := convertColor("color", fm.Color)
	if err != nil {
		return nil, err
	}
	return &material.Solid{Color: c}, nil
}

func buildPhong(fm *fileMaterial, inner material.Material) (material.Material, error) {
	diffuse, err := requireNonNegative("diffuse", fm.Diffuse)
	if err != nil {
		return nil, err
	}
	specular, err := requireNonNegative("specular", fm.Specular)
	if err != nil {
		return nil, err
	}
	return &material.Phong{Diffuse: diffuse, Specular: specular, Inner: inner}, nil
}

func buildReflective(fm *fileMaterial, inner material.Material) (material.Material, error) {
	k, err := requireNonNegative("reflectivity", fm.Reflectivity)
	if err != nil {
		return nil, err
	}
	if k > 1 {
		return nil, fmt.Errorf("%w: reflectivity %v is above 1", ErrInvalidScene, k)
	}
	return &material.Reflective{Reflectivity: k, Inner: inner}, nil
}

func buildRefractive(fm *fileMaterial, inner material.Material) (material.Material, error) {
	if fm.Index == nil {
		return nil, fmt.Errorf("%w: missing index", ErrInvalidScene)
	}
	if *fm.Index <= 0 {
		return nil, fmt.Errorf("%w: index %v must be positive", ErrInvalidScene, *fm.Index)
	}
	return &material.Refractive{Index: *fm.Index, Inner: inner}, nil
}

func buildSphere(fp *filePrimitive) (geometry.Geometry, error) {
	center, err := convertVec3("center", fp.Center)
	if err != nil {
		return nil, err
	}
	if fp.Radius == nil || *fp.Radius <= 0 {
		return nil, fmt.Errorf("%w: sphere needs a positive radius", ErrInvalidScene)
	}
	return &geometry.Sphere{Center: center, Radius: *fp.Radius}, nil
}

func buildPlane(fp *filePrimitive) (geometry.Geometry, error) {
	normal, err := convertVec3("normal", fp.Normal)
	if err != nil {
		return nil, err
	}
	if normal.NormSquared() == 0 {
		return nil, fmt.Errorf("%w: plane normal is zero", ErrInvalidScene)
	}
	if fp.Distance == nil {
		return nil, fmt.Errorf("%w: missing distance", ErrInvalidScene)
	}
	return geometry.NewPlane(normal, *fp.Distance), nil
}

func buildTriangle(fp *filePrimitive) (geometry.Geometry, error) {
	if len(fp.Vertices) != 3 {
		return nil, fmt.Errorf("%w: triangle needs 3 vertices, got %d", ErrInvalidScene, len(fp.Vertices))
	}
	var v [3]vec3.T
	for i := range v {
		var err error
		v[i], err = convertVec3(fmt.Sprintf("vertices[%d]", i), fp.Vertices[i])
		if err != nil {
			return nil, err
		}
	}
	tr := geometry.NewTriangle(v[0], v[1], v[2])
	if tr.NormalAt(v[0]).NormSquared() == 0 {
		return nil, fmt.Errorf("%w: triangle is degenerate", ErrInvalidScene)
	}
	return tr, nil
}

func requireNonNegative(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidScene, field)
	}
	if *v < 0 {
		return 0, fmt.Errorf("%w: %s %v is negative", ErrInvalidScene, field, *v)
	}
	return *v, nil
}

func convertVec3(field string, in []float64) (vec3.T, error) {
	if len(in) != 3 {
		return vec3.T{}, fmt.Errorf("%w: %s needs 3 components, got %d", ErrInvalidScene, field, len(in))
	}
	return vec3.T{in[0], in[1], in[2]}, nil
}

func convertColor(field string, in []float64) (color.T, error) {
	if len(in) != 3 {
		return color.T{}, fmt.Errorf("%w: %s needs 3 channels, got %d", ErrInvalidScene, field, len(in))
	}
	c, err := color.New(in[0], in[1], in[2])
	if err != nil {
		return color.T{}, fmt.Errorf("%w: %s: %w", ErrInvalidScene, field, err)
	}
	return c, nil
}
