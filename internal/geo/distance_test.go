package geo

import (
	"testing"

	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestHaversine_OneDegreeLatitude(t *testing.T) {
	d := Haversine(core.LngLat{Lng: 0, Lat: 0}, core.LngLat{Lng: 0, Lat: 1})
	assert.InDelta(t, 111194.93, d, 0.1)
}

func TestHaversine_SamePoint(t *testing.T) {
	p := core.LngLat{Lng: 13.405, Lat: 52.52}
	assert.Equal(t, 0.0, Haversine(p, p))
}

func TestHaversine_Symmetric(t *testing.T) {
	a := core.LngLat{Lng: 13.405, Lat: 52.52}
	b := core.LngLat{Lng: 2.3522, Lat: 48.8566}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-6)
	// Berlin to Paris is roughly 878 km.
	assert.InDelta(t, 878_000, Haversine(a, b), 5_000)
}

func TestDestination_DistanceAndBearing(t *testing.T) {
	p := core.LngLat{Lng: 13.405, Lat: 52.52}
	dest := Destination(p, 73, 200)

	assert.InDelta(t, 200, Haversine(p, dest), 1e-6)
	assert.InDelta(t, 73, Bearing(p, dest), 1e-6)
}

func TestBearing_Cardinal(t *testing.T) {
	p := core.LngLat{Lng: 0, Lat: 0}
	assert.InDelta(t, 0, Bearing(p, core.LngLat{Lng: 0, Lat: 1}), 1e-9)
	assert.InDelta(t, 90, Bearing(p, core.LngLat{Lng: 1, Lat: 0}), 1e-9)
	assert.InDelta(t, 180, Bearing(p, core.LngLat{Lng: 0, Lat: -1}), 1e-9)
	assert.InDelta(t, 270, Bearing(p, core.LngLat{Lng: -1, Lat: 0}), 1e-9)
}

func TestOffset_SmallDisplacement(t *testing.T) {
	p := core.LngLat{Lng: 13.405, Lat: 52.52}
	moved := Offset(p, 30, 40)

	assert.InDelta(t, 50, Haversine(p, moved), 0.2)
	assert.Greater(t, moved.Lng, p.Lng)
	assert.Greater(t, moved.Lat, p.Lat)
}

func TestOffset_WrapsAntimeridian(t *testing.T) {
	p := core.LngLat{Lng: 179.99999, Lat: 0}
	moved := Offset(p, 10, 0)
	assert.Less(t, moved.Lng, -179.9)
}

func TestNormalizeBearing(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeBearing(360))
	assert.Equal(t, 270.0, NormalizeBearing(-90))
	assert.Equal(t, 10.0, NormalizeBearing(730))
}
