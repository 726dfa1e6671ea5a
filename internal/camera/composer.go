package camera

import (
	"math"
	"sync"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// Tile size and equator length used to fit a route preview.
const (
	tileSize           = 512.0
	earthCircumference = 2 * math.Pi * 6378137
	previewPixels      = 800.0
)

// PositionSource is the read-only entity view the composer follows.
type PositionSource interface {
	Snapshot() (core.Entity, bool)
}

// Composer drives a View from the entity each tick. It starts in follow mode.
type Composer struct {
	view            View
	source          PositionSource
	scalars         Scalars
	baseDistance    float64
	flyingThreshold float64

	mu      sync.Mutex
	follow  bool
	flying  bool
	pushed  bool
	center  core.LngLat
	bearing float64
	pitch   float64
	zoom    float64
}

// NewComposer creates a composer in follow mode.
func NewComposer(view View, source PositionSource, scalars Scalars, cfg config.CameraConfig) *Composer {
	base := cfg.BaseDistance
	if base <= 0 {
		base = 100
	}
	threshold := cfg.FlyingThreshold
	if threshold <= 0 {
		threshold = 5
	}
	return &Composer{
		view:            view,
		source:          source,
		scalars:         scalars,
		baseDistance:    base,
		flyingThreshold: threshold,
		follow:          true,
	}
}

// Update synchronizes the view with the entity. It returns
// core.ErrNoPosition when the entity has no position yet, and does nothing
// in free mode.
func (c *Composer) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.follow {
		return nil
	}
	e, ok := c.source.Snapshot()
	if !ok {
		return core.ErrNoPosition
	}

	heading := e.HeadingDegrees()
	pitch := c.scalars.Pitch.Get()
	zoom := c.scalars.Zoom.Get()

	if e.Flying && e.HeightAboveGround() > c.flyingThreshold {
		pose := FlyingPose(e, pitch, zoom, c.baseDistance)
		c.view.SetCameraOverride(&pose)
		c.flying = true
		c.apply(e.Position, heading, pitch, zoom)
		return nil
	}

	if c.flying {
		c.view.SetCameraOverride(nil)
		c.flying = false
	}
	bearing := geo.NormalizeBearing(heading + c.scalars.Bearing.Get())
	c.apply(e.Position, bearing, pitch, zoom)
	return nil
}

// apply writes only the parameters that changed since the last push.
func (c *Composer) apply(center core.LngLat, bearing, pitch, zoom float64) {
	if !c.pushed || center != c.center {
		c.view.SetCenter(center)
		c.center = center
	}
	if !c.pushed || bearing != c.bearing {
		c.view.SetBearing(bearing)
		c.bearing = bearing
	}
	if !c.pushed || pitch != c.pitch {
		c.view.SetPitch(pitch)
		c.pitch = pitch
	}
	if !c.pushed || zoom != c.zoom {
		c.view.SetZoom(zoom)
		c.zoom = zoom
	}
	c.pushed = true
}

// FlyingPose places the camera behind and above a flying entity, looking at
// it along its true heading.
func FlyingPose(e core.Entity, pitch, zoom, baseDistance float64) Pose {
	heading := e.HeadingDegrees()
	diff := e.HeightAboveGround()
	distance := baseDistance * (1 + diff/200) * math.Pow(0.75, zoom-14)
	return Pose{
		Position:  geo.MercatorOffset(e.Position, heading+180, distance),
		Elevation: e.Elevation + zoom*0.3,
		LookAt:    e.Position,
		Bearing:   heading,
		Pitch:     pitch,
	}
}

// SetFollow switches between follow and free mode. Leaving follow mode
// hands the view back to the user and drops any flying override.
func (c *Composer) SetFollow(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setFollow(on)
}

func (c *Composer) setFollow(on bool) {
	if c.follow == on {
		return
	}
	c.follow = on
	c.pushed = false
	if !on && c.flying {
		c.view.SetCameraOverride(nil)
		c.flying = false
	}
}

// ToggleFollow flips the mode and returns true when now following.
func (c *Composer) ToggleFollow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setFollow(!c.follow)
	return c.follow
}

// Following reports whether follow mode is on.
func (c *Composer) Following() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.follow
}

// Flying reports whether the flying chase camera is engaged.
func (c *Composer) Flying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flying
}

// AdjustBearing shifts the free-bearing offset by delta degrees.
func (c *Composer) AdjustBearing(delta float64) float64 {
	return c.scalars.Bearing.Set(c.scalars.Bearing.Get() + delta)
}

// Scalars returns the composer's sub-controllers.
func (c *Composer) Scalars() Scalars {
	return c.scalars
}

// Preview leaves follow mode and frames a route around its midpoint. The
// persisted zoom is left untouched and may be undercut to fit long routes.
func (c *Composer) Preview(route core.Route) bool {
	mid, ok := geo.Midpoint(route.Geometry)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setFollow(false)

	c.view.SetCenter(mid)
	c.view.SetZoom(c.fitZoom(mid, geo.Length(route.Geometry)))
	return true
}

func (c *Composer) fitZoom(at core.LngLat, length float64) float64 {
	_, hi := c.scalars.Zoom.Bounds()
	if length <= 0 {
		return hi
	}
	metersPerPixel := length / previewPixels
	z := math.Log2(earthCircumference * math.Cos(at.Lat*math.Pi/180) / (tileSize * metersPerPixel))
	return math.Max(0, math.Min(hi, z))
}
