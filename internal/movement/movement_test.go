package movement

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/input"
	"github.com/OCAP2/mapdrive/internal/scene"
	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const step = 1.0 / 60

type fakeOwner struct {
	body   Body
	loader *scene.HeadlessLoader
}

func newOwner() *fakeOwner {
	return &fakeOwner{
		body:   Body{Position: core.LngLat{Lng: 2.3522, Lat: 48.8566}},
		loader: &scene.HeadlessLoader{},
	}
}

func (o *fakeOwner) Body() *Body          { return &o.body }
func (o *fakeOwner) Loader() scene.Loader { return o.loader }

func carDescriptor() core.ModelDescriptor {
	return core.ModelDescriptor{ID: "car", Vehicle: core.DefaultVehicleProfile()}
}

func walkerDescriptor() core.ModelDescriptor {
	return core.ModelDescriptor{ID: "walker", RunAnimSpeed: 1.5, Pedestrian: core.DefaultPedestrianProfile()}
}

func enter(t *testing.T, s State, o *fakeOwner) {
	t.Helper()
	require.NoError(t, s.Enter(context.Background(), o))
}

func TestNew(t *testing.T) {
	car, err := New(core.ModeCar, carDescriptor(), DefaultTuning())
	require.NoError(t, err)
	assert.Equal(t, core.ModeCar, car.Mode())
	assert.IsType(t, &Car{}, car)

	walk, err := New(core.ModeWalking, walkerDescriptor(), DefaultTuning())
	require.NoError(t, err)
	assert.Equal(t, core.ModeWalking, walk.Mode())

	_, err = New(core.Mode("boat"), carDescriptor(), DefaultTuning())
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestTuningFromConfig(t *testing.T) {
	tuning := TuningFromConfig(
		config.LoopConfig{Step: 1.0 / 30},
		config.PhysicsConfig{SteeringMultiplier: 2, BoostMultiplier: 3},
	)
	assert.Equal(t, 1.0/30, tuning.Step)
	assert.Equal(t, 2.0, tuning.SteeringMultiplier)
	assert.Equal(t, 3.0, tuning.BoostMultiplier)
	assert.Equal(t, 0.01, tuning.Epsilon)
}

func TestEnter_AttachesRepresentation(t *testing.T) {
	o := newOwner()
	car := NewCar(carDescriptor(), DefaultTuning())
	assert.Nil(t, car.Representation())

	enter(t, car, o)
	rep := car.Representation().(*scene.Headless)
	assert.True(t, rep.Attached())
	assert.Equal(t, "car", rep.ModelID)
}

func TestEnter_LoadFailure(t *testing.T) {
	o := newOwner()
	o.loader.Fail = map[string]error{"car": errors.New("not found")}

	car := NewCar(carDescriptor(), DefaultTuning())
	err := car.Enter(context.Background(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading model car")
	assert.Nil(t, car.Representation())
}

func TestEnter_CancelledDiscardsLoad(t *testing.T) {
	o := newOwner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	walk := NewWalking(walkerDescriptor(), DefaultTuning())
	err := walk.Enter(ctx, o)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, walk.Representation())
	for _, h := range o.loader.Loaded() {
		assert.False(t, h.Attached())
	}
}

func TestCar_AcceleratesTowardMaxSpeed(t *testing.T) {
	o := newOwner()
	car := NewCar(carDescriptor(), DefaultTuning())
	enter(t, car, o)

	vmax := carDescriptor().Vehicle.MaxSpeed
	prev := 0.0
	for i := 0; i < 120; i++ {
		car.Update(o, input.Snapshot{Forward: true}, step)
		v := o.body.Velocity
		assert.GreaterOrEqual(t, v, prev, "tick %d", i)
		assert.LessOrEqual(t, v, vmax, "tick %d", i)
		prev = v
	}
	assert.InDelta(t, vmax, o.body.Velocity, 1e-9)
}

func TestCar_BoostBound(t *testing.T) {
	o := newOwner()
	car := NewCar(carDescriptor(), DefaultTuning())
	enter(t, car, o)

	limit := car.SpeedLimit()
	for i := 0; i < 600; i++ {
		car.Update(o, input.Snapshot{Forward: true, Boost: true}, step)
		require.LessOrEqual(t, math.Abs(o.body.Velocity), limit)
	}
	assert.InDelta(t, limit, o.body.Velocity, 1e-9)

	// Releasing boost coasts back down to the normal limit.
	for i := 0; i < 600; i++ {
		car.Update(o, input.Snapshot{Forward: true}, step)
	}
	assert.InDelta(t, carDescriptor().Vehicle.MaxSpeed, o.body.Velocity, 1e-9)
}

func TestCar_BrakeThenReverse(t *testing.T) {
	o := newOwner()
	car := NewCar(carDescriptor(), DefaultTuning())
	enter(t, car, o)
	o.body.Velocity = 0.1

	car.Update(o, input.Snapshot{Back: true}, step)
	assert.InDelta(t, 0.08, o.body.Velocity, 1e-9)

	for i := 0; i < 10; i++ {
		car.Update(o, input.Snapshot{Back: true}, step)
	}
	assert.Less(t, o.body.Velocity, 0.0)

	for i := 0; i < 200; i++ {
		car.Update(o, input.Snapshot{Back: true}, step)
		require.GreaterOrEqual(t, o.body.Velocity, -carDescriptor().Vehicle.ReverseSpeed)
	}
	assert.InDelta(t, -carDescriptor().Vehicle.ReverseSpeed, o.body.Velocity, 1e-9)
}

func TestCar_FrictionSnapsToZero(t *testing.T) {
	o := newOwner()
	car := NewCar(carDescriptor(), DefaultTuning())
	enter(t, car, o)
	o.body.Velocity = 0.3

	car.Update(o, input.Snapshot{}, step)
	assert.InDelta(t, 0.3*0.98, o.body.Velocity, 1e-9)

	for i := 0; i < 500 && o.body.Velocity != 0; i++ {
		car.Update(o, input.Snapshot{}, step)
	}
	assert.Equal(t, 0.0, o.body.Velocity)
}

func TestCar_Steering(t *testing.T) {
	p := core.DefaultVehicleProfile()
	lock := p.TurnSpeed * 1.5

	tests := []struct {
		name     string
		velocity float64
		in       input.Snapshot
		want     float64
	}{
		{"no turn key", 0.2, input.Snapshot{}, 0},
		{"left at rest turns in place", 0, input.Snapshot{Left: true}, lock},
		{"right at rest", 0, input.Snapshot{Right: true}, -lock},
		{"both keys cancel", 0.2, input.Snapshot{Left: true, Right: true}, 0},
		{"attenuated at max speed", p.MaxSpeed, input.Snapshot{Left: true}, lock * 0.4},
		{"attenuated at half speed", p.MaxSpeed / 2, input.Snapshot{Left: true}, lock * 0.55},
		{"mirrored when reversing", -0.1, input.Snapshot{Left: true}, -lock * (1 - 0.1/p.MaxSpeed*0.9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			car := NewCar(carDescriptor(), DefaultTuning())
			assert.InDelta(t, tt.want, car.steer(tt.in, tt.velocity), 1e-9)
		})
	}
}

func TestCar_MovesAlongHeading(t *testing.T) {
	o := newOwner()
	car := NewCar(carDescriptor(), DefaultTuning())
	enter(t, car, o)
	start := o.body.Position

	o.body.Velocity = 0.5
	car.Update(o, input.Snapshot{Forward: true}, step)
	assert.Greater(t, o.body.Position.Lat, start.Lat)
	assert.InDelta(t, start.Lng, o.body.Position.Lng, 1e-12)

	// A quarter turn counter-clockwise faces west.
	o.body.Heading = math.Pi / 2
	before := o.body.Position
	car.Update(o, input.Snapshot{Forward: true}, step)
	assert.Less(t, o.body.Position.Lng, before.Lng)
	assert.InDelta(t, before.Lat, o.body.Position.Lat, 1e-9)
}

func TestCar_ExitResetsPhysics(t *testing.T) {
	o := newOwner()
	car := NewCar(carDescriptor(), DefaultTuning())
	enter(t, car, o)

	for i := 0; i < 30; i++ {
		car.Update(o, input.Snapshot{Forward: true, Left: true}, step)
	}
	require.NotZero(t, o.body.Velocity)
	require.NotZero(t, car.Steering())

	car.Exit(o)
	assert.Zero(t, o.body.Velocity)
	assert.Zero(t, car.Steering())
	assert.False(t, car.Representation().Attached())
}

func TestCar_ClipChangesOnlyOnTransition(t *testing.T) {
	o := newOwner()
	car := NewCar(carDescriptor(), DefaultTuning())
	enter(t, car, o)
	rep := car.Representation().(*scene.Headless)

	for i := 0; i < 10; i++ {
		car.Update(o, input.Snapshot{Forward: true}, step)
	}
	name, _, starts := rep.Clip()
	assert.Equal(t, ClipDrive, name)
	assert.Equal(t, 1, starts)

	o.body.Velocity = -0.1
	car.Update(o, input.Snapshot{Back: true}, step)
	name, _, starts = rep.Clip()
	assert.Equal(t, ClipReverse, name)
	assert.Equal(t, 2, starts)
}

func TestWalking_SpeedBounds(t *testing.T) {
	p := core.DefaultPedestrianProfile()

	o := newOwner()
	walk := NewWalking(walkerDescriptor(), DefaultTuning())
	enter(t, walk, o)

	for i := 0; i < 200; i++ {
		walk.Update(o, input.Snapshot{Forward: true}, step)
		require.LessOrEqual(t, o.body.Velocity, p.WalkMaxVelocity)
	}
	assert.InDelta(t, p.WalkMaxVelocity, o.body.Velocity, 1e-9)

	for i := 0; i < 200; i++ {
		walk.Update(o, input.Snapshot{Forward: true, Boost: true}, step)
		require.LessOrEqual(t, o.body.Velocity, p.RunMaxVelocity)
	}
	assert.InDelta(t, p.RunMaxVelocity, o.body.Velocity, 1e-9)

	for i := 0; i < 200; i++ {
		walk.Update(o, input.Snapshot{Back: true}, step)
		require.GreaterOrEqual(t, o.body.Velocity, -p.WalkMaxVelocity)
	}
}

func TestWalking_ScalesWithDelta(t *testing.T) {
	p := core.DefaultPedestrianProfile()

	o := newOwner()
	walk := NewWalking(walkerDescriptor(), DefaultTuning())
	enter(t, walk, o)

	walk.Update(o, input.Snapshot{Forward: true, Left: true}, 2*step)
	assert.InDelta(t, 2*p.WalkAcceleration, o.body.Velocity, 1e-9)
	assert.InDelta(t, 2*p.RotationSpeed, o.body.Heading, 1e-9)
}

func TestWalking_IdleDeceleration(t *testing.T) {
	o := newOwner()
	walk := NewWalking(walkerDescriptor(), DefaultTuning())
	enter(t, walk, o)
	o.body.Velocity = 0.1

	walk.Update(o, input.Snapshot{}, 2*step)
	assert.InDelta(t, 0.1*0.9*0.9, o.body.Velocity, 1e-9)

	for i := 0; i < 100 && o.body.Velocity != 0; i++ {
		walk.Update(o, input.Snapshot{}, step)
	}
	assert.Equal(t, 0.0, o.body.Velocity)
}

func TestWalking_JumpLandsExactlyOnGround(t *testing.T) {
	o := newOwner()
	o.body.Ground = 10
	walk := NewWalking(walkerDescriptor(), DefaultTuning())
	enter(t, walk, o)
	rep := walk.Representation().(*scene.Headless)

	walk.Update(o, input.Snapshot{Jump: true}, step)
	require.True(t, o.body.Airborne)
	assert.Greater(t, o.body.VerticalPosition, 10.0)
	name, _, _ := rep.Clip()
	assert.Equal(t, ClipJump, name)

	ticks := 1
	for o.body.Airborne && ticks < 200 {
		// Holding jump mid-air must not re-trigger it.
		walk.Update(o, input.Snapshot{Jump: true}, step)
		ticks++
	}
	assert.False(t, o.body.Airborne)
	assert.Equal(t, 10.0, o.body.VerticalPosition)
	assert.Zero(t, o.body.VerticalVelocity)
	assert.Less(t, ticks, 100)
}

func TestWalking_RunClipSpeed(t *testing.T) {
	o := newOwner()
	walk := NewWalking(walkerDescriptor(), DefaultTuning())
	enter(t, walk, o)
	rep := walk.Representation().(*scene.Headless)

	for i := 0; i < 60; i++ {
		walk.Update(o, input.Snapshot{Forward: true, Boost: true}, step)
	}
	name, speed, _ := rep.Clip()
	assert.Equal(t, ClipRun, name)
	assert.Equal(t, 1.5, speed)
}

func TestWalking_ExitResetsPhysics(t *testing.T) {
	o := newOwner()
	o.body.Ground = 3
	walk := NewWalking(walkerDescriptor(), DefaultTuning())
	enter(t, walk, o)

	walk.Update(o, input.Snapshot{Forward: true, Jump: true}, step)
	require.True(t, o.body.Airborne)

	walk.Exit(o)
	assert.Zero(t, o.body.Velocity)
	assert.Zero(t, o.body.VerticalVelocity)
	assert.False(t, o.body.Airborne)
	assert.Equal(t, 3.0, o.body.VerticalPosition)
	assert.False(t, walk.Representation().Attached())
}
