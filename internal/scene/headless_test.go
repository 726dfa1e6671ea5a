package scene

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Representation = (*Headless)(nil)
var _ Loader = (*HeadlessLoader)(nil)

func TestHeadlessLoader_Load(t *testing.T) {
	l := &HeadlessLoader{}
	rep, err := l.Load(context.Background(), core.ModelDescriptor{ID: "car"})
	require.NoError(t, err)

	h := rep.(*Headless)
	assert.Equal(t, "car", h.ModelID)
	assert.False(t, h.Attached())
	require.Len(t, l.Loaded(), 1)
}

func TestHeadlessLoader_Failure(t *testing.T) {
	boom := errors.New("404")
	l := &HeadlessLoader{Fail: map[string]error{"car": boom}}

	_, err := l.Load(context.Background(), core.ModelDescriptor{ID: "car"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, l.Loaded())
}

func TestHeadlessLoader_CancelDuringDelay(t *testing.T) {
	l := &HeadlessLoader{Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Load(ctx, core.ModelDescriptor{ID: "car"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHeadless_ClipAndAdvance(t *testing.T) {
	h := &Headless{}
	h.Advance(1)
	assert.Equal(t, 0.0, h.AnimationTime())

	h.PlayClip("run", 1.5)
	h.Advance(2)
	name, speed, starts := h.Clip()
	assert.Equal(t, "run", name)
	assert.Equal(t, 1.5, speed)
	assert.Equal(t, 1, starts)
	assert.Equal(t, 3.0, h.AnimationTime())

	h.StopClip()
	name, _, _ = h.Clip()
	assert.Empty(t, name)
}

func TestHeadless_Pose(t *testing.T) {
	h := &Headless{}
	h.SetCoordinates(core.LngLat{Lng: 1, Lat: 2}, 3)
	h.SetRotation(0.5)

	pos, elev, heading := h.Pose()
	assert.Equal(t, core.LngLat{Lng: 1, Lat: 2}, pos)
	assert.Equal(t, 3.0, elev)
	assert.Equal(t, 0.5, heading)
}
