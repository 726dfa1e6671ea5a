// pkg/core/entity.go
package core

import "math"

// Entity is the controllable entity as published to collaborators.
// Heading is the z-rotation in radians, counter-clockwise, 0 = north.
type Entity struct {
	Position  LngLat  `json:"position"`
	Elevation float64 `json:"elevation"`
	Heading   float64 `json:"heading"`
	Speed     float64 `json:"speed"`
	Mode      Mode    `json:"mode"`
	ModelID   string  `json:"modelId"`
	Flying    bool    `json:"flying"`

	// GroundElevation is the terrain height plus the model offset at Position.
	GroundElevation float64 `json:"groundElevation"`
	// FlyingElevation is the extra height requested while flying.
	FlyingElevation float64 `json:"flyingElevation"`
	Airborne        bool    `json:"airborne"`
}

// HeadingDegrees returns the heading as a compass bearing, clockwise from north in [0, 360).
func (e Entity) HeadingDegrees() float64 {
	deg := -e.Heading * 180 / math.Pi
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// HeightAboveGround returns how far the entity is above its resting elevation.
func (e Entity) HeightAboveGround() float64 {
	return e.Elevation - e.GroundElevation
}

// Odometer holds the cumulative distance counters in metres.
type Odometer struct {
	Driven float64 `json:"driven"`
	Walked float64 `json:"walked"`
}

// Add accumulates meters on the counter matching mode. Non-positive distances are ignored.
func (o *Odometer) Add(mode Mode, meters float64) {
	if meters <= 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return
	}
	switch mode {
	case ModeCar:
		o.Driven += meters
	case ModeWalking:
		o.Walked += meters
	}
}

// Reset zeroes both counters.
func (o *Odometer) Reset() {
	o.Driven = 0
	o.Walked = 0
}
