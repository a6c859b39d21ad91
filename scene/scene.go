package scene

import (
	"errors"
	"fmt"

	"whitted/camera"
	"whitted/color"
	"whitted/contact"
	"whitted/geometry"
	"whitted/light"
	"whitted/material"
	"whitted/ray"
)

// Delta is the distance tolerance of the nearest-intersection query.  Hits at
// or closer than Delta to the ray origin are discarded, and a hit only
// displaces the current best when it is nearer by more than Delta.
const Delta = geometry.Epsilon

var (
	ErrDuplicateName  = errors.New("duplicate name")
	ErrInvalidElement = errors.New("invalid element")
)

// Element is a renderable primitive: a geometry painted with a material.
//
// Materials may be shared between elements.
type Element struct {
	Name        string
	TheGeometry geometry.Geometry
	TheMaterial material.Material
}

type namedCamera struct {
	name string
	c    *camera.Camera
}

// Scene owns everything that is rendered.  It must not be modified while a
// render pass is running; during a pass it is only read, and may be shared by
// any number of goroutines.
type Scene struct {
	ambient color.T

	elements     []*Element
	elementIndex map[string]int

	lights     []light.Light
	lightNames map[string]bool

	cameras     []namedCamera
	cameraIndex map[string]int
}

func New(ambient color.T) *Scene {
	return &Scene{
		ambient:      ambient,
		elementIndex: map[string]int{},
		lightNames:   map[string]bool{},
		cameraIndex:  map[string]int{},
	}
}

// AddElement registers a primitive and returns its index.
func (s *Scene) AddElement(name string, g geometry.Geometry, m material.Material) (int, error) {
	if _, ok := s.elementIndex[name]; ok {
		return -1, fmt.Errorf("%w: primitive %q", ErrDuplicateName, name)
	}
	if g == nil || m == nil {
		return -1, fmt.Errorf("%w: primitive %q needs both a geometry and a material", ErrInvalidElement, name)
	}
	s.elements = append(s.elements, &Element{
		Name:        name,
		TheGeometry: g,
		TheMaterial: m,
	})
	s.elementIndex[name] = len(s.elements) - 1
	return len(s.elements) - 1, nil
}

func (s *Scene) AddLight(name string, l light.Light) error {
	if s.lightNames[name] {
		return fmt.Errorf("%w: light %q", ErrDuplicateName, name)
	}
	s.lightNames[name] = true
	s.lights = append(s.lights, l)
	return nil
}

func (s *Scene) AddCamera(name string, c *camera.Camera) error {
	if c == nil {
		return fmt.Errorf("%w: camera %q is nil", ErrInvalidElement, name)
	}
	if _, ok := s.cameraIndex[name]; ok {
		return fmt.Errorf("%w: camera %q", ErrDuplicateName, name)
	}
	s.cameras = append(s.cameras, namedCamera{name, c})
	s.cameraIndex[name] = len(s.cameras) - 1
	return nil
}

func (s *Scene) Ambient() color.T {
	return s.ambient
}

func (s *Scene) Lights() []light.Light {
	return s.lights
}

func (s *Scene) Elements() []*Element {
	return s.elements
}

// Element looks a primitive up by name.
func (s *Scene) Element(name string) (*Element, bool) {
	i, ok := s.elementIndex[name]
	if !ok {
		return nil, false
	}
	return s.elements[i], true
}

func (s *Scene) Camera(name string) (*camera.Camera, bool) {
	i, ok := s.cameraIndex[name]
	if !ok {
		return nil, false
	}
	return s.cameras[i].c, true
}

// DefaultCamera is the first camera added.
func (s *Scene) DefaultCamera() (*camera.Camera, bool) {
	if len(s.cameras) == 0 {
		return nil, false
	}
	return s.cameras[0].c, true
}

func (s *Scene) CameraNames() []string {
	names := make([]string, 0, len(s.cameras))
	for _, c := range s.cameras {
		names = append(names, c.name)
	}
	return names
}

// NearestElement scans every element for the closest hit along r.  It returns
// the contact and the element's index, or -1 when nothing qualifies.
func (s *Scene) NearestElement(r ray.Ray) (contact.Contact, int) {
	minT := geometry.Miss
	minElementIndex := -1

	for i, elt := range s.elements {
		t := elt.TheGeometry.RayInto(r)
		if geometry.IsMiss(t) || t <= Delta {
			continue
		}
		if t < minT && minT-t > Delta {
			minT = t
			minElementIndex = i
		}
	}

	if minElementIndex == -1 {
		return contact.Contact{}, -1
	}
	return contact.New(r, minT, s.elements[minElementIndex].TheGeometry), minElementIndex
}

func (s *Scene) Nearest(r ray.Ray) (contact.Contact, bool) {
	c, i := s.NearestElement(r)
	return c, i != -1
}

// Trace returns the color seen along r.  Rays that escape the scene see black.
func (s *Scene) Trace(r ray.Ray, ctx material.Context) color.T {
	c, i := s.NearestElement(r)
	if i == -1 {
		return color.Black()
	}
	return s.elements[i].TheMaterial.Shade(c, ctx)
}
