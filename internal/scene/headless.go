package scene

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/mapdrive/pkg/core"
)

// Headless is a Representation that only records what it was told.
type Headless struct {
	mu sync.Mutex

	ModelID     string
	attached    bool
	position    core.LngLat
	elevation   float64
	heading     float64
	translation [3]float64
	clip        string
	clipSpeed   float64
	clipStarts  int
	animTime    float64
}

func (h *Headless) Attach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attached = true
}

func (h *Headless) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attached = false
}

func (h *Headless) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attached
}

func (h *Headless) SetCoordinates(pos core.LngLat, elevation float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.position = pos
	h.elevation = elevation
}

func (h *Headless) SetRotation(heading float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.heading = heading
}

func (h *Headless) SetTranslation(x, y, z float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.translation = [3]float64{x, y, z}
}

func (h *Headless) PlayClip(name string, speed float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clip = name
	h.clipSpeed = speed
	h.clipStarts++
}

func (h *Headless) StopClip() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clip = ""
	h.clipSpeed = 0
}

func (h *Headless) Advance(dt float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clip != "" {
		h.animTime += dt * h.clipSpeed
	}
}

// Clip returns the playing clip, its speed and how many times a clip was started.
func (h *Headless) Clip() (name string, speed float64, starts int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clip, h.clipSpeed, h.clipStarts
}

// Pose returns the last coordinates and rotation set on the representation.
func (h *Headless) Pose() (pos core.LngLat, elevation, heading float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position, h.elevation, h.heading
}

// AnimationTime returns the accumulated, speed-scaled mixer time.
func (h *Headless) AnimationTime() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.animTime
}

// HeadlessLoader produces Headless representations.
type HeadlessLoader struct {
	// Delay simulates asset download time.
	Delay time.Duration
	// Fail makes Load fail for the listed model IDs.
	Fail map[string]error

	mu     sync.Mutex
	loaded []*Headless
}

func (l *HeadlessLoader) Load(ctx context.Context, desc core.ModelDescriptor) (Representation, error) {
	if l.Delay > 0 {
		timer := time.NewTimer(l.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := l.Fail[desc.ID]; err != nil {
		return nil, fmt.Errorf("loading %s: %w", desc.ID, err)
	}

	h := &Headless{ModelID: desc.ID}
	l.mu.Lock()
	l.loaded = append(l.loaded, h)
	l.mu.Unlock()
	return h, nil
}

// Loaded returns every representation produced so far, oldest first.
func (l *HeadlessLoader) Loaded() []*Headless {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Headless(nil), l.loaded...)
}
