package movement

import (
	"context"
	"math"

	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/internal/input"
	"github.com/OCAP2/mapdrive/internal/scene"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// Vehicle animation clips.
const (
	ClipIdle    = "idle"
	ClipDrive   = "drive"
	ClipReverse = "reverse"
)

// Car is the vehicle movement state.
type Car struct {
	attachment
	profile  core.VehicleProfile
	tuning   Tuning
	steering float64
}

// NewCar returns a detached car state for desc.
func NewCar(desc core.ModelDescriptor, tuning Tuning) *Car {
	return &Car{
		attachment: attachment{desc: desc},
		profile:    desc.Vehicle,
		tuning:     tuning,
	}
}

func (c *Car) Mode() core.Mode { return core.ModeCar }

func (c *Car) Representation() scene.Representation { return c.rep }

// Steering returns the heading change applied on the last step.
func (c *Car) Steering() float64 { return c.steering }

// SpeedLimit returns the highest forward velocity reachable with boost.
func (c *Car) SpeedLimit() float64 {
	return c.profile.MaxSpeed * c.tuning.BoostMultiplier
}

func (c *Car) Enter(ctx context.Context, owner Owner) error {
	c.steering = 0
	return c.enter(ctx, owner)
}

func (c *Car) Exit(owner Owner) {
	c.exit()
	c.steering = 0
	owner.Body().Velocity = 0
}

func (c *Car) Update(owner Owner, in input.Snapshot, dt float64) {
	b := owner.Body()
	p := c.profile

	limit := p.MaxSpeed
	if in.Boost {
		limit *= c.tuning.BoostMultiplier
	}

	v := b.Velocity
	switch {
	case in.Forward && !in.Back:
		switch {
		case v < 0:
			v = math.Min(v+p.BrakeForce, 0)
		case v < limit:
			v = math.Min(v+p.Acceleration, limit)
		default:
			// Boost released above the normal limit: coast down.
			v = math.Max(v*p.Friction, limit)
		}
	case in.Back && !in.Forward:
		if v > 0 {
			v = math.Max(v-p.BrakeForce, 0)
		} else {
			v = math.Max(v-p.Acceleration, -p.ReverseSpeed)
		}
	default:
		v *= p.Friction
		if math.Abs(v) < c.tuning.Epsilon {
			v = 0
		}
	}
	b.Velocity = clamp(v, -p.ReverseSpeed, c.SpeedLimit())

	c.steering = c.steer(in, b.Velocity)
	b.Heading += c.steering

	if b.Velocity != 0 {
		east, north := forward(b.Heading, b.Velocity)
		b.Position = geo.Offset(b.Position, east, north)
	}

	switch {
	case b.Velocity > 0:
		c.play(ClipDrive, 1)
	case b.Velocity < 0:
		c.play(ClipReverse, 1)
	default:
		c.play(ClipIdle, 1)
	}
}

// steer returns the heading change for this step. Turning is mirrored when
// reversing and softened with speed down to 40% of full lock.
func (c *Car) steer(in input.Snapshot, v float64) float64 {
	dir, ok := in.Turning()
	if !ok {
		return 0
	}
	lock := c.profile.TurnSpeed * c.tuning.SteeringMultiplier
	travel := 1.0
	if v < 0 {
		travel = -1
	}
	attenuation := 1.0
	if c.profile.MaxSpeed > 0 {
		attenuation = math.Max(1-math.Abs(v)/c.profile.MaxSpeed*0.9, 0.4)
	}
	return clamp(lock*travel*dir*attenuation, -lock, lock)
}
