// Package scene defines the rendering-engine collaborator the movement states
// drive, plus a headless implementation used by tools and tests.
package scene

import (
	"context"

	"github.com/OCAP2/mapdrive/pkg/core"
)

// Representation is a loaded 3D model instance.
type Representation interface {
	Attach()
	Detach()
	Attached() bool

	SetCoordinates(pos core.LngLat, elevation float64)
	SetRotation(heading float64)
	SetTranslation(x, y, z float64)

	PlayClip(name string, speed float64)
	StopClip()
	// Advance moves the animation mixer by real elapsed seconds.
	Advance(dt float64)
}

// Loader loads a model descriptor into a representation. Loading may block
// and must honour ctx cancellation.
type Loader interface {
	Load(ctx context.Context, desc core.ModelDescriptor) (Representation, error)
}
