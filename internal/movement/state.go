// Package movement implements the per-mode movement states driven by the
// entity controller's fixed-timestep loop.
package movement

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/input"
	"github.com/OCAP2/mapdrive/internal/scene"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// ErrUnknownMode is returned by New for a mode with no state implementation.
var ErrUnknownMode = errors.New("unknown movement mode")

// State is one movement mode. Exactly one state is active per entity.
type State interface {
	Mode() core.Mode
	// Enter loads and attaches the representation. It may block on asset loading.
	Enter(ctx context.Context, owner Owner) error
	// Exit detaches the representation and zeroes transient physics.
	Exit(owner Owner)
	// Update advances physics by one step of dt seconds.
	Update(owner Owner, in input.Snapshot, dt float64)
	Representation() scene.Representation
}

// DeltaScaled is implemented by states whose Update integrates the real
// frame delta spread across the steps of a frame instead of the fixed step.
type DeltaScaled interface {
	ScalesWithDelta()
}

// Owner is the entity a state moves.
type Owner interface {
	Body() *Body
	Loader() scene.Loader
}

// Body is the mutable physical state shared between the controller and the
// active movement state. Velocity is in metres per step.
type Body struct {
	Position core.LngLat
	// Heading is the z-rotation in radians, counter-clockwise, 0 = north.
	Heading  float64
	Velocity float64

	// Ground is the terrain height under Position, refreshed by the
	// controller before every step.
	Ground float64

	// VerticalPosition and VerticalVelocity track pedestrian jumps.
	VerticalPosition float64
	VerticalVelocity float64
	Airborne         bool
}

// Tuning holds constants shared by every state.
type Tuning struct {
	// Step is the fixed timestep in seconds.
	Step float64
	// SteeringMultiplier scales vehicle turn speed, even near standstill.
	SteeringMultiplier float64
	BoostMultiplier    float64
	Epsilon            float64
}

// DefaultTuning returns the stock tuning.
func DefaultTuning() Tuning {
	return Tuning{
		Step:               1.0 / 60,
		SteeringMultiplier: 1.5,
		BoostMultiplier:    4,
		Epsilon:            0.01,
	}
}

// TuningFromConfig builds a Tuning from the loaded configuration.
func TuningFromConfig(loop config.LoopConfig, phys config.PhysicsConfig) Tuning {
	t := DefaultTuning()
	if loop.Step > 0 {
		t.Step = loop.Step
	}
	if phys.SteeringMultiplier > 0 {
		t.SteeringMultiplier = phys.SteeringMultiplier
	}
	if phys.BoostMultiplier > 0 {
		t.BoostMultiplier = phys.BoostMultiplier
	}
	if phys.Epsilon > 0 {
		t.Epsilon = phys.Epsilon
	}
	return t
}

// New returns a fresh state for mode bound to the model descriptor.
func New(mode core.Mode, desc core.ModelDescriptor, tuning Tuning) (State, error) {
	switch mode {
	case core.ModeCar:
		return NewCar(desc, tuning), nil
	case core.ModeWalking:
		return NewWalking(desc, tuning), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// attachment is the load/attach/detach plumbing common to every state.
type attachment struct {
	desc core.ModelDescriptor
	rep  scene.Representation
	clip string
}

func (a *attachment) enter(ctx context.Context, owner Owner) error {
	rep, err := owner.Loader().Load(ctx, a.desc)
	if err != nil {
		return fmt.Errorf("loading model %s: %w", a.desc.ID, err)
	}
	// A load that finished after cancellation is discarded unattached.
	if err := ctx.Err(); err != nil {
		return err
	}
	a.rep = rep
	a.clip = ""
	rep.Attach()
	return nil
}

func (a *attachment) exit() {
	if a.rep == nil {
		return
	}
	a.rep.StopClip()
	a.rep.Detach()
	a.clip = ""
}

// play starts a clip only when the selected name changes.
func (a *attachment) play(name string, speed float64) {
	if a.rep == nil || name == a.clip {
		return
	}
	a.clip = name
	a.rep.PlayClip(name, speed)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
