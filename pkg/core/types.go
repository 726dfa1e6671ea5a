// pkg/core/types.go
package core

import "math"

// LngLat is a WGS84 horizontal position in degrees.
type LngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// IsValid reports whether the position is finite and inside WGS84 bounds.
func (p LngLat) IsValid() bool {
	if math.IsNaN(p.Lng) || math.IsNaN(p.Lat) || math.IsInf(p.Lng, 0) || math.IsInf(p.Lat, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Polyline is an ordered list of positions, as returned by a routing service.
type Polyline []LngLat

// Mode is the active movement mode of the entity.
type Mode string

const (
	ModeCar     Mode = "car"
	ModeWalking Mode = "walking"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeCar, ModeWalking:
		return true
	}
	return false
}
