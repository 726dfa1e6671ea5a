// Package camera keeps the map view synchronized to the entity.
package camera

import (
	"log/slog"
	"math"
	"sync"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/store"
)

// Store keys of the camera scalars.
const (
	KeyBearing = "camera.bearing"
	KeyPitch   = "camera.pitch"
	KeyZoom    = "camera.zoom"
)

// Scalar is one persisted, clamped camera parameter. It knows nothing about
// the entity or the other scalars.
type Scalar struct {
	key                 string
	min, max, step, def float64
	store               store.Store
	log                 *slog.Logger

	mu    sync.RWMutex
	value float64
}

// NewScalar creates a scalar persisted under key. A previously stored value
// is loaded and clamped; otherwise the configured default is used. s may be nil.
func NewScalar(key string, cfg config.ScalarConfig, s store.Store, log *slog.Logger) *Scalar {
	if log == nil {
		log = slog.Default()
	}
	lo, hi := cfg.Min, cfg.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	sc := &Scalar{
		key:   key,
		min:   lo,
		max:   hi,
		step:  cfg.Step,
		store: s,
		log:   log,
	}
	sc.def = sc.clamp(cfg.Default)
	sc.value = sc.def
	if s != nil {
		sc.value = sc.clamp(store.GetFloat(s, key, sc.def))
	}
	return sc
}

func (s *Scalar) clamp(v float64) float64 {
	if math.IsNaN(v) {
		return s.def
	}
	return math.Max(s.min, math.Min(s.max, v))
}

// Get returns the current value.
func (s *Scalar) Get() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores v clamped to [min, max] and returns the stored value.
func (s *Scalar) Set(v float64) float64 {
	s.mu.Lock()
	v = s.clamp(v)
	changed := v != s.value
	s.value = v
	s.mu.Unlock()

	if changed && s.store != nil {
		if err := s.store.Put(s.key, v); err != nil {
			s.log.Error("Failed to persist camera setting", "key", s.key, "error", err)
		}
	}
	return v
}

// StepUp raises the value by one step.
func (s *Scalar) StepUp() float64 { return s.Set(s.Get() + s.step) }

// StepDown lowers the value by one step.
func (s *Scalar) StepDown() float64 { return s.Set(s.Get() - s.step) }

// Reset restores the configured default.
func (s *Scalar) Reset() float64 { return s.Set(s.def) }

// Bounds returns the configured range.
func (s *Scalar) Bounds() (lo, hi float64) { return s.min, s.max }

// Step returns the increment used by StepUp and StepDown.
func (s *Scalar) Step() float64 { return s.step }

// Scalars groups the three camera sub-controllers.
type Scalars struct {
	Bearing *Scalar
	Pitch   *Scalar
	Zoom    *Scalar
}

// NewScalars builds the bearing, pitch and zoom scalars from configuration.
func NewScalars(cfg config.CameraConfig, s store.Store, log *slog.Logger) Scalars {
	return Scalars{
		Bearing: NewScalar(KeyBearing, cfg.Bearing, s, log),
		Pitch:   NewScalar(KeyPitch, cfg.Pitch, s, log),
		Zoom:    NewScalar(KeyZoom, cfg.Zoom, s, log),
	}
}
