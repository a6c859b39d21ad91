package camera

import (
	"errors"
	"fmt"

	"whitted/ray"
	"whitted/vmath/mat33"
	"whitted/vmath/vec3"
)

var (
	ErrInvalidCamera = errors.New("invalid camera")
	ErrInvalidPixel  = errors.New("invalid pixel")
)

// Plane describes the image plane: its physical size, its distance in front
// of the camera, and its resolution in pixels.
type Plane struct {
	Width, Height float64
	Distance      float64

	Cols, Rows int
}

// Camera is a pinhole camera.  It is immutable once built.
type Camera struct {
	Position vec3.T
	Plane    Plane

	// Columns are the right, up, and view directions, in that order.  Maps
	// image-plane coordinates to world directions.
	ApertureToWorld mat33.T
}

// New builds a camera at position looking along direction.  up need not be
// orthogonal to direction; only its component orthogonal to direction is used.
func New(position, direction, up vec3.T, plane Plane) (*Camera, error) {
	if plane.Width <= 0 || plane.Height <= 0 || plane.Distance <= 0 {
		return nil, fmt.Errorf("%w: image plane %gx%g at distance %g must have positive extent", ErrInvalidCamera, plane.Width, plane.Height, plane.Distance)
	}
	if plane.Cols <= 0 || plane.Rows <= 0 {
		return nil, fmt.Errorf("%w: resolution %dx%d must be positive", ErrInvalidCamera, plane.Cols, plane.Rows)
	}

	eye := vec3.Normalize(direction)
	if eye.NormSquared() == 0 {
		return nil, fmt.Errorf("%w: zero view direction", ErrInvalidCamera)
	}

	right := vec3.Normalize(vec3.CProd(eye, up))
	if right.NormSquared() == 0 {
		return nil, fmt.Errorf("%w: up vector %v is parallel to view direction %v", ErrInvalidCamera, up, direction)
	}
	trueUp := vec3.Normalize(vec3.Reject(eye, up))

	return &Camera{
		Position:        position,
		Plane:           plane,
		ApertureToWorld: mat33.FromColumns(right, trueUp, eye),
	}, nil
}

// Right, Up, and Eye are the camera's orthonormal basis in world space.
func (c *Camera) Right() vec3.T {
	return c.ApertureToWorld.Column(0)
}

func (c *Camera) Up() vec3.T {
	return c.ApertureToWorld.Column(1)
}

func (c *Camera) Eye() vec3.T {
	return c.ApertureToWorld.Column(2)
}

// RayThroughPixel returns the ray from the camera through the center of the
// pixel at (col, row).  Row 0 is the top of the image.
func (c *Camera) RayThroughPixel(col, row int) (ray.Ray, error) {
	if col < 0 || row < 0 {
		return ray.Ray{}, fmt.Errorf("%w: (%d, %d) is negative", ErrInvalidPixel, col, row)
	}
	if col >= c.Plane.Cols || row >= c.Plane.Rows {
		return ray.Ray{}, fmt.Errorf("%w: (%d, %d) is outside the %dx%d image", ErrInvalidPixel, col, row, c.Plane.Cols, c.Plane.Rows)
	}
	return c.RayThroughPoint(float64(col), float64(row)), nil
}

// RayThroughPoint is RayThroughPixel for fractional pixel coordinates, used to
// place sub-pixel samples.
//
// Offsets are measured from the center pixel, which maps to the point
// directly ahead of the camera.
func (c *Camera) RayThroughPoint(x, y float64) ray.Ray {
	pixelWidth := c.Plane.Width / float64(c.Plane.Cols)
	pixelHeight := c.Plane.Height / float64(c.Plane.Rows)

	apertureCoords := vec3.T{
		(x - float64(c.Plane.Cols/2)) * pixelWidth,
		(float64(c.Plane.Rows/2) - y) * pixelHeight,
		c.Plane.Distance,
	}

	return ray.New(c.Position, mat33.MulMV(c.ApertureToWorld, apertureCoords))
}
