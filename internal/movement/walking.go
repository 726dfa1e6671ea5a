package movement

import (
	"context"
	"math"

	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/internal/input"
	"github.com/OCAP2/mapdrive/internal/scene"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// Pedestrian animation clips.
const (
	ClipWalk = "walk"
	ClipRun  = "run"
	ClipJump = "jump"
)

// Walking is the pedestrian movement state.
type Walking struct {
	attachment
	profile core.PedestrianProfile
	tuning  Tuning
	runAnim float64
}

// NewWalking returns a detached pedestrian state for desc.
func NewWalking(desc core.ModelDescriptor, tuning Tuning) *Walking {
	runAnim := desc.RunAnimSpeed
	if runAnim <= 0 {
		runAnim = 1
	}
	return &Walking{
		attachment: attachment{desc: desc},
		profile:    desc.Pedestrian,
		tuning:     tuning,
		runAnim:    runAnim,
	}
}

func (w *Walking) Mode() core.Mode { return core.ModeWalking }

func (w *Walking) Representation() scene.Representation { return w.rep }

func (w *Walking) Enter(ctx context.Context, owner Owner) error {
	return w.enter(ctx, owner)
}

func (w *Walking) Exit(owner Owner) {
	w.exit()
	b := owner.Body()
	b.Velocity = 0
	b.VerticalVelocity = 0
	b.VerticalPosition = b.Ground
	b.Airborne = false
}

// ScalesWithDelta marks walking physics as driven by the real frame delta.
func (w *Walking) ScalesWithDelta() {}

func (w *Walking) Update(owner Owner, in input.Snapshot, dt float64) {
	b := owner.Body()
	p := w.profile
	scale := dt / w.tuning.Step

	accel, limit := p.WalkAcceleration, p.WalkMaxVelocity
	if in.Boost {
		accel, limit = p.RunAcceleration, p.RunMaxVelocity
	}

	if dir, ok := in.Turning(); ok {
		b.Heading += p.RotationSpeed * dir * scale
	}

	v := b.Velocity
	switch {
	case in.Forward && !in.Back:
		if v < limit {
			v = math.Min(v+accel*scale, limit)
		} else {
			// Run released: slow down to walking pace.
			v = math.Max(v*math.Pow(p.Deceleration, scale), limit)
		}
	case in.Back && !in.Forward:
		v = math.Max(v-accel*scale, -p.WalkMaxVelocity)
	default:
		v *= math.Pow(p.Deceleration, scale)
		if math.Abs(v) < w.tuning.Epsilon {
			v = 0
		}
	}
	b.Velocity = clamp(v, -p.WalkMaxVelocity, math.Max(p.RunMaxVelocity, p.WalkMaxVelocity))

	if b.Velocity != 0 {
		east, north := forward(b.Heading, b.Velocity*scale)
		b.Position = geo.Offset(b.Position, east, north)
	}

	w.integrateJump(b, in.Jump, scale)

	switch {
	case b.Airborne:
		w.play(ClipJump, 1)
	case math.Abs(b.Velocity) > p.WalkMaxVelocity:
		w.play(ClipRun, w.runAnim)
	case b.Velocity != 0:
		w.play(ClipWalk, 1)
	default:
		w.play(ClipIdle, 1)
	}
}

func (w *Walking) integrateJump(b *Body, jump bool, scale float64) {
	if jump && !b.Airborne {
		b.VerticalPosition = b.Ground
		b.VerticalVelocity = w.profile.JumpForce
		b.Airborne = true
	}
	if !b.Airborne {
		b.VerticalPosition = b.Ground
		return
	}
	b.VerticalVelocity -= w.profile.Gravity * scale
	b.VerticalPosition += b.VerticalVelocity * scale
	if b.VerticalPosition <= b.Ground {
		b.VerticalPosition = b.Ground
		b.VerticalVelocity = 0
		b.Airborne = false
	}
}
