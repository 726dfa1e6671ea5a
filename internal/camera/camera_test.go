package camera

import (
	"math"
	"testing"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/internal/store"
	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paris = core.LngLat{Lng: 2.3522, Lat: 48.8566}

func testCameraConfig() config.CameraConfig {
	return config.CameraConfig{
		Bearing:         config.ScalarConfig{Min: -180, Max: 180, Step: 15, Default: 0},
		Pitch:           config.ScalarConfig{Min: 0, Max: 85, Step: 5, Default: 60},
		Zoom:            config.ScalarConfig{Min: 14, Max: 22, Step: 0.5, Default: 18},
		BaseDistance:    100,
		FlyingThreshold: 5,
	}
}

type fakeSource struct {
	e  core.Entity
	ok bool
}

func (s *fakeSource) Snapshot() (core.Entity, bool) { return s.e, s.ok }

func TestScalar_Clamps(t *testing.T) {
	s := NewScalar(KeyZoom, testCameraConfig().Zoom, nil, nil)
	assert.Equal(t, 18.0, s.Get())

	for _, in := range []float64{1e308, -1e308, math.Inf(1), math.Inf(-1), 30, -4} {
		v := s.Set(in)
		assert.GreaterOrEqual(t, v, 14.0, "input %v", in)
		assert.LessOrEqual(t, v, 22.0, "input %v", in)
	}
	assert.Equal(t, 22.0, s.Set(math.Inf(1)))
	assert.Equal(t, 14.0, s.Set(-1e9))
	assert.Equal(t, 18.0, s.Set(math.NaN()))
}

func TestScalar_Steps(t *testing.T) {
	s := NewScalar(KeyPitch, testCameraConfig().Pitch, nil, nil)

	assert.Equal(t, 65.0, s.StepUp())
	assert.Equal(t, 60.0, s.StepDown())
	for i := 0; i < 40; i++ {
		s.StepUp()
	}
	assert.Equal(t, 85.0, s.Get())
	assert.Equal(t, 60.0, s.Reset())
}

func TestScalar_SwappedBounds(t *testing.T) {
	s := NewScalar("x", config.ScalarConfig{Min: 10, Max: 0, Default: 50}, nil, nil)
	lo, hi := s.Bounds()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 10.0, hi)
	assert.Equal(t, 10.0, s.Get())
}

func TestScalar_Persistence(t *testing.T) {
	st := store.NewMemory()

	s := NewScalar(KeyZoom, testCameraConfig().Zoom, st, nil)
	s.Set(16)
	assert.Equal(t, 16.0, store.GetFloat(st, KeyZoom, 0))

	reloaded := NewScalar(KeyZoom, testCameraConfig().Zoom, st, nil)
	assert.Equal(t, 16.0, reloaded.Get())

	// Stored values outside the range are clamped on load.
	require.NoError(t, st.Put(KeyZoom, 99.0))
	assert.Equal(t, 22.0, NewScalar(KeyZoom, testCameraConfig().Zoom, st, nil).Get())
}

func newComposer(src PositionSource) (*Composer, *MapView) {
	view := &MapView{}
	cfg := testCameraConfig()
	return NewComposer(view, src, NewScalars(cfg, nil, nil), cfg), view
}

func TestComposer_NoPosition(t *testing.T) {
	c, view := newComposer(&fakeSource{})
	assert.ErrorIs(t, c.Update(), core.ErrNoPosition)
	assert.Zero(t, view.Writes())
}

func TestComposer_FollowWritesOnlyOnChange(t *testing.T) {
	src := &fakeSource{e: core.Entity{Position: paris}, ok: true}
	c, view := newComposer(src)

	require.NoError(t, c.Update())
	assert.Equal(t, 4, view.Writes())
	assert.Equal(t, paris, view.Center())
	assert.Equal(t, 60.0, view.Pitch())
	assert.Equal(t, 18.0, view.Zoom())

	require.NoError(t, c.Update())
	assert.Equal(t, 4, view.Writes(), "stationary entity")

	src.e.Position.Lat += 0.0001
	require.NoError(t, c.Update())
	assert.Equal(t, 5, view.Writes())

	c.Scalars().Zoom.Set(20)
	require.NoError(t, c.Update())
	assert.Equal(t, 6, view.Writes())
	assert.Equal(t, 20.0, view.Zoom())
}

func TestComposer_BearingFollowsHeadingPlusOffset(t *testing.T) {
	// A quarter turn clockwise: compass 90.
	src := &fakeSource{e: core.Entity{Position: paris, Heading: -math.Pi / 2}, ok: true}
	c, view := newComposer(src)

	require.NoError(t, c.Update())
	assert.InDelta(t, 90, view.Bearing(), 1e-9)

	assert.Equal(t, 30.0, c.AdjustBearing(30))
	require.NoError(t, c.Update())
	assert.InDelta(t, 120, view.Bearing(), 1e-9)

	// Offset is clamped to its own range.
	assert.Equal(t, 180.0, c.AdjustBearing(1000))
}

func TestComposer_FreeMode(t *testing.T) {
	src := &fakeSource{e: core.Entity{Position: paris}, ok: true}
	c, view := newComposer(src)

	assert.False(t, c.ToggleFollow())
	src.e.Position.Lng += 1
	require.NoError(t, c.Update())
	assert.Zero(t, view.Writes())

	// Returning to follow pushes everything again.
	assert.True(t, c.ToggleFollow())
	require.NoError(t, c.Update())
	assert.Equal(t, 4, view.Writes())
	assert.Equal(t, src.e.Position, view.Center())
}

func TestFlyingPose(t *testing.T) {
	e := core.Entity{
		Position:        paris,
		Heading:         -math.Pi / 2, // east
		Elevation:       40,
		GroundElevation: 20,
		Flying:          true,
	}
	pose := FlyingPose(e, 60, 14, 100)

	assert.Less(t, pose.Position.Lng, paris.Lng, "camera sits behind, to the west")
	assert.InDelta(t, paris.Lat, pose.Position.Lat, 1e-6)
	assert.InDelta(t, 110, geo.Haversine(paris, pose.Position), 0.5)
	assert.InDelta(t, 40+14*0.3, pose.Elevation, 1e-9)
	assert.Equal(t, paris, pose.LookAt)
	assert.InDelta(t, 90, pose.Bearing, 1e-9)
	assert.Equal(t, 60.0, pose.Pitch)

	// Zooming in pulls the camera closer.
	closer := FlyingPose(e, 60, 16, 100)
	assert.InDelta(t, 110*0.75*0.75, geo.Haversine(paris, closer.Position), 0.5)
}

func TestComposer_FlyingEngagesAboveThreshold(t *testing.T) {
	src := &fakeSource{e: core.Entity{Position: paris, Flying: true, Elevation: 13, GroundElevation: 10}, ok: true}
	c, view := newComposer(src)

	require.NoError(t, c.Update())
	assert.False(t, c.Flying())
	assert.Nil(t, view.Override())

	src.e.Elevation = 30
	require.NoError(t, c.Update())
	assert.True(t, c.Flying())
	require.NotNil(t, view.Override())
	assert.Equal(t, paris, view.Override().LookAt)

	// The bearing offset does not apply while flying.
	c.AdjustBearing(45)
	require.NoError(t, c.Update())
	assert.InDelta(t, 0, view.Bearing(), 1e-9)

	src.e.Elevation = 11
	require.NoError(t, c.Update())
	assert.False(t, c.Flying())
	assert.Nil(t, view.Override())
	assert.InDelta(t, 45, view.Bearing(), 1e-9)
}

func TestComposer_FreeModeDropsOverride(t *testing.T) {
	src := &fakeSource{e: core.Entity{Position: paris, Flying: true, Elevation: 60}, ok: true}
	c, view := newComposer(src)

	require.NoError(t, c.Update())
	require.NotNil(t, view.Override())

	c.SetFollow(false)
	assert.Nil(t, view.Override())
	assert.False(t, c.Flying())
	assert.False(t, c.Following())
}

func TestComposer_Preview(t *testing.T) {
	c, view := newComposer(&fakeSource{})

	assert.False(t, c.Preview(core.Route{}))

	a := paris
	b := geo.Offset(paris, 0, 2000)
	ok := c.Preview(core.Route{Geometry: core.Polyline{a, b}})
	require.True(t, ok)
	assert.False(t, c.Following())
	assert.InDelta(t, (a.Lat+b.Lat)/2, view.Center().Lat, 1e-4)
	assert.Greater(t, view.Zoom(), 10.0)
	assert.Less(t, view.Zoom(), 18.0)
	assert.Equal(t, 18.0, c.Scalars().Zoom.Get(), "persisted zoom untouched")
}
