package camera

import (
	"sync"

	"github.com/OCAP2/mapdrive/pkg/core"
)

// Pose is a free camera placement used while flying.
type Pose struct {
	Position  core.LngLat
	Elevation float64
	LookAt    core.LngLat
	Bearing   float64
	Pitch     float64
}

// View is the map view engine the composer drives.
type View interface {
	SetCenter(core.LngLat)
	Center() core.LngLat
	SetBearing(float64)
	Bearing() float64
	SetPitch(float64)
	Pitch() float64
	SetZoom(float64)
	Zoom() float64
	// SetCameraOverride places the camera freely; nil returns control to
	// the center/bearing/pitch/zoom parameters.
	SetCameraOverride(*Pose)
}

// MapView is an in-process View that records what it was told.
type MapView struct {
	mu       sync.RWMutex
	center   core.LngLat
	bearing  float64
	pitch    float64
	zoom     float64
	override *Pose
	writes   int
}

func (v *MapView) SetCenter(p core.LngLat) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.center = p
	v.writes++
}

func (v *MapView) Center() core.LngLat {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.center
}

func (v *MapView) SetBearing(b float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bearing = b
	v.writes++
}

func (v *MapView) Bearing() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.bearing
}

func (v *MapView) SetPitch(p float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pitch = p
	v.writes++
}

func (v *MapView) Pitch() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pitch
}

func (v *MapView) SetZoom(z float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoom = z
	v.writes++
}

func (v *MapView) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

func (v *MapView) SetCameraOverride(p *Pose) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p != nil {
		cp := *p
		p = &cp
	}
	v.override = p
	v.writes++
}

// Override returns the current camera override, or nil.
func (v *MapView) Override() *Pose {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.override == nil {
		return nil
	}
	cp := *v.override
	return &cp
}

// Writes returns the number of setter calls received.
func (v *MapView) Writes() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.writes
}
