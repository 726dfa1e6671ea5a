// Package entity owns the controllable entity: its movement state machine,
// the fixed-timestep loop, elevation and odometers.
package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/dispatcher"
	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/internal/input"
	"github.com/OCAP2/mapdrive/internal/movement"
	"github.com/OCAP2/mapdrive/internal/scene"
	"github.com/OCAP2/mapdrive/internal/store"
	"github.com/OCAP2/mapdrive/internal/terrain"
	"github.com/OCAP2/mapdrive/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrTransitionSuperseded is returned by SwitchState when a newer
	// transition started before this one finished loading.
	ErrTransitionSuperseded = errors.New("state transition superseded")
	// ErrNoState is returned by operations that need an active movement state.
	ErrNoState = errors.New("no active movement state")
	// ErrFlyingUnsupported is returned when flying is requested outside a vehicle.
	ErrFlyingUnsupported = errors.New("flying requires a vehicle")
)

// Publisher receives feedback events.
type Publisher interface {
	Publish(kind string, data any)
}

// PositionSource is the read-only view collaborators take of the entity.
type PositionSource interface {
	// Snapshot returns a copy of the entity; ok is false until a position is known.
	Snapshot() (e core.Entity, ok bool)
}

// Dependencies holds the collaborators of a Controller. Store and Events
// are optional.
type Dependencies struct {
	Loader  scene.Loader
	Terrain terrain.Service
	Input   input.Source
	Store   store.Store
	Events  Publisher
	Logger  *slog.Logger
}

// Options holds the loop and physics tunables.
type Options struct {
	Loop    config.LoopConfig
	Physics config.PhysicsConfig
}

// DefaultOptions returns the stock loop and physics settings.
func DefaultOptions() Options {
	return Options{
		Loop: config.LoopConfig{Step: 1.0 / 60, MaxFrameDelta: 0.1},
		Physics: config.PhysicsConfig{
			SteeringMultiplier: 1.5,
			BoostMultiplier:    4,
			Epsilon:            0.01,
			FlyAscendRate:      50,
			FlyDescendRate:     20,
			FlySmoothing:       0.05,
		},
	}
}

// Controller owns the entity. Frame must be called from a single driver
// goroutine; every other method is safe for concurrent use.
type Controller struct {
	deps     Dependencies
	log      *slog.Logger
	tuning   movement.Tuning
	maxDelta float64
	physics  config.PhysicsConfig
	metrics  *metrics

	mu              sync.Mutex
	body            movement.Body
	hasPosition     bool
	state           movement.State
	desc            core.ModelDescriptor
	flying          bool
	flyingElevation float64
	elevation       float64
	groundElevation float64
	odometer        core.Odometer
	accumulator     float64
	sinceStep       float64
	gen             uint64
	cancel          context.CancelFunc
	pending         bool

	snapMu  sync.RWMutex
	snap    core.Entity
	snapOdo core.Odometer
	snapOK  bool
}

// New creates a controller with no active state.
func New(deps Dependencies, opts Options) (*Controller, error) {
	if deps.Loader == nil {
		return nil, fmt.Errorf("entity controller requires a scene loader")
	}
	if deps.Terrain == nil {
		deps.Terrain = terrain.Flat{}
	}
	if deps.Input == nil {
		deps.Input = input.NewState()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	maxDelta := opts.Loop.MaxFrameDelta
	if maxDelta <= 0 {
		maxDelta = 0.1
	}

	return &Controller{
		deps:     deps,
		log:      deps.Logger,
		tuning:   movement.TuningFromConfig(opts.Loop, opts.Physics),
		maxDelta: maxDelta,
		physics:  opts.Physics,
		metrics:  m,
	}, nil
}

// Body implements movement.Owner. Callers must hold c.mu.
func (c *Controller) Body() *movement.Body {
	return &c.body
}

// Loader implements movement.Owner.
func (c *Controller) Loader() scene.Loader {
	return c.deps.Loader
}

// SwitchState exits the active state, then loads and enters a new state for
// mode. Ticking is suspended until it returns. A later call supersedes a
// pending one, which then returns ErrTransitionSuperseded with nothing attached.
func (c *Controller) SwitchState(ctx context.Context, mode core.Mode, desc core.ModelDescriptor) error {
	next, err := movement.New(mode, desc, c.tuning)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	if c.state != nil {
		c.state.Exit(c)
		c.state = nil
	}
	c.pending = true
	c.accumulator = 0
	c.sinceStep = 0
	c.mu.Unlock()

	start := time.Now()
	enterErr := next.Enter(ctx, c)

	defer cancel()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if rep := next.Representation(); rep != nil && enterErr == nil {
			rep.Detach()
		}
		c.metrics.superseded.Add(context.Background(), 1)
		c.log.Debug("Transition superseded", "mode", mode, "model", desc.ID)
		return ErrTransitionSuperseded
	}

	c.cancel = nil
	c.pending = false
	if enterErr != nil {
		c.publish()
		c.mu.Unlock()
		c.log.Error("Failed to enter movement state", "mode", mode, "model", desc.ID, "error", enterErr)
		return fmt.Errorf("switching to %s: %w", mode, enterErr)
	}

	c.state = next
	c.desc = desc
	if mode != core.ModeCar {
		c.flying = false
		c.flyingElevation = 0
	}
	c.body.Ground = c.deps.Terrain.QueryElevation(c.body.Position.Lng, c.body.Position.Lat)
	c.body.VerticalPosition = c.body.Ground
	c.body.VerticalVelocity = 0
	c.body.Airborne = false
	c.groundElevation = c.body.Ground + desc.ElevationOffset
	c.elevation = c.groundElevation + c.flyingElevation
	c.syncRepresentation()
	c.publish()
	c.mu.Unlock()

	c.metrics.transitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("mode", string(mode))))
	c.log.Info("State switched", "mode", mode, "model", desc.ID, "duration", time.Since(start))
	if c.deps.Events != nil {
		snap, _ := c.Snapshot()
		c.deps.Events.Publish(dispatcher.KindStateSwitched, snap)
	}
	return nil
}

// Frame advances the simulation by elapsed wall-clock seconds and returns
// the number of fixed steps executed. It does nothing while a transition is
// pending or no state is active.
func (c *Controller) Frame(elapsed float64) int {
	c.mu.Lock()
	if c.state == nil || c.pending {
		c.accumulator = 0
		c.sinceStep = 0
		c.mu.Unlock()
		return 0
	}

	if elapsed < 0 || math.IsNaN(elapsed) {
		elapsed = 0
	}
	elapsed = math.Min(elapsed, c.maxDelta)
	c.accumulator += elapsed
	c.sinceStep += elapsed

	steps := 0
	for c.accumulator >= c.tuning.Step {
		c.accumulator -= c.tuning.Step
		steps++
	}

	// Delta-scaled states integrate the time elapsed since the previous
	// step, shared evenly between this frame's steps.
	dt := c.tuning.Step
	if steps > 0 {
		if _, ok := c.state.(movement.DeltaScaled); ok {
			dt = c.sinceStep / float64(steps)
		}
		c.sinceStep = 0
	}

	in := c.deps.Input.Snapshot()
	for i := 0; i < steps; i++ {
		c.step(in, dt)
	}

	if rep := c.state.Representation(); rep != nil {
		rep.Advance(elapsed)
	}
	c.publish()
	c.mu.Unlock()

	ctx := context.Background()
	c.metrics.frames.Add(ctx, 1)
	if steps > 0 {
		c.metrics.steps.Add(ctx, int64(steps))
	}
	return steps
}

func (c *Controller) step(in input.Snapshot, dt float64) {
	prev := c.body.Position
	c.body.Ground = c.deps.Terrain.QueryElevation(prev.Lng, prev.Lat)

	c.state.Update(c, in, dt)

	if c.body.Position != prev {
		c.body.Ground = c.deps.Terrain.QueryElevation(c.body.Position.Lng, c.body.Position.Lat)
		c.odometer.Add(c.state.Mode(), geo.Haversine(prev, c.body.Position))
	}
	c.updateElevation(in)
	c.syncRepresentation()
}

func (c *Controller) updateElevation(in input.Snapshot) {
	c.groundElevation = c.body.Ground + c.desc.ElevationOffset
	if !c.flying {
		c.elevation = c.groundElevation
		return
	}

	dt := c.tuning.Step
	if in.Ascend {
		c.flyingElevation += c.physics.FlyAscendRate * dt
	} else {
		c.flyingElevation = math.Max(0, c.flyingElevation-c.physics.FlyDescendRate*dt)
	}
	target := c.groundElevation + c.flyingElevation
	c.elevation += (target - c.elevation) * c.physics.FlySmoothing
}

func (c *Controller) syncRepresentation() {
	rep := c.state.Representation()
	if rep == nil {
		return
	}
	rep.SetCoordinates(c.body.Position, c.elevation)
	rep.SetRotation(c.body.Heading)
	jump := 0.0
	if c.body.Airborne {
		jump = c.body.VerticalPosition - c.body.Ground
	}
	rep.SetTranslation(0, 0, jump)
}

// publish copies the entity into the snapshot read by other goroutines.
// Callers must hold c.mu.
func (c *Controller) publish() {
	e := core.Entity{
		Position:        c.body.Position,
		Elevation:       c.elevation,
		Heading:         c.body.Heading,
		Speed:           c.body.Velocity,
		ModelID:         c.desc.ID,
		Flying:          c.flying,
		GroundElevation: c.groundElevation,
		FlyingElevation: c.flyingElevation,
		Airborne:        c.body.Airborne,
	}
	if c.state != nil {
		e.Mode = c.state.Mode()
	}

	c.snapMu.Lock()
	c.snap = e
	c.snapOdo = c.odometer
	c.snapOK = c.hasPosition
	c.snapMu.Unlock()
}

// Snapshot returns a copy of the entity as of the last frame.
func (c *Controller) Snapshot() (core.Entity, bool) {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap, c.snapOK
}

// Odometer returns the distance counters as of the last frame.
func (c *Controller) Odometer() core.Odometer {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapOdo
}

// ResetOdometer zeroes both distance counters.
func (c *Controller) ResetOdometer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.odometer.Reset()
	c.publish()
}

// Mode returns the active mode, or "" when no state is active.
func (c *Controller) Mode() core.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return ""
	}
	return c.state.Mode()
}

// State returns the active movement state, or nil.
func (c *Controller) State() movement.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transitioning reports whether a SwitchState call is in flight.
func (c *Controller) Transitioning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// SetPosition teleports the entity. Teleports do not count towards the odometers.
func (c *Controller) SetPosition(pos core.LngLat) error {
	if !pos.IsValid() {
		return geo.ErrInvalidCoordinates
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.body.Position = pos
	c.hasPosition = true
	c.body.Ground = c.deps.Terrain.QueryElevation(pos.Lng, pos.Lat)
	c.body.VerticalPosition = c.body.Ground
	c.groundElevation = c.body.Ground + c.desc.ElevationOffset
	c.elevation = c.groundElevation + c.flyingElevation
	if c.state != nil {
		c.syncRepresentation()
	}
	c.publish()
	return nil
}

// SetHeading sets the heading in radians, counter-clockwise from north.
func (c *Controller) SetHeading(heading float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.body.Heading = heading
	if c.state != nil {
		c.syncRepresentation()
	}
	c.publish()
}

// SetFlying enables or disables flying. Only vehicles can fly.
func (c *Controller) SetFlying(on bool) error {
	c.mu.Lock()
	if c.state == nil {
		c.mu.Unlock()
		return ErrNoState
	}
	if on && c.state.Mode() != core.ModeCar {
		c.mu.Unlock()
		return ErrFlyingUnsupported
	}
	changed := c.flying != on
	c.flying = on
	if !on {
		c.flyingElevation = 0
		c.elevation = c.groundElevation
		c.syncRepresentation()
	}
	c.publish()
	c.mu.Unlock()

	if changed && c.deps.Events != nil {
		c.deps.Events.Publish(dispatcher.KindFlyingChanged, on)
	}
	return nil
}

// Flying reports whether flying is enabled.
func (c *Controller) Flying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flying
}

// LogAttrs returns the entity mode and position for log enrichment.
func (c *Controller) LogAttrs() []slog.Attr {
	e, ok := c.Snapshot()
	if !ok {
		return nil
	}
	return []slog.Attr{
		slog.String("entity.mode", string(e.Mode)),
		slog.Float64("entity.lng", e.Position.Lng),
		slog.Float64("entity.lat", e.Position.Lat),
	}
}
