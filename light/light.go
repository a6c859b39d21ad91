package light

import (
	"whitted/color"
	"whitted/vmath/vec3"
)

// Light is a point light.
type Light struct {
	Position vec3.T
	Color    color.T
}
