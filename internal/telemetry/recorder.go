package telemetry

import (
	"sync"
	"time"

	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/rs/zerolog"
)

// Source is what the recorder samples.
type Source interface {
	Snapshot() (core.Entity, bool)
	Odometer() core.Odometer
}

// NavigationSource reports the navigation progress. Optional.
type NavigationSource interface {
	Status() core.NavigationStatus
}

// Recorder samples the entity at a fixed interval and writes points.
type Recorder struct {
	manager  *Manager
	source   Source
	nav      NavigationSource
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRecorder creates a recorder; nav may be nil.
func NewRecorder(m *Manager, source Source, nav NavigationSource, interval time.Duration, logger zerolog.Logger) *Recorder {
	return &Recorder{
		manager:  m,
		source:   source,
		nav:      nav,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sampling loop. A non-positive interval disables it.
func (r *Recorder) Start() {
	if r.interval <= 0 {
		return
	}
	r.wg.Add(1)
	go r.loop()
}

// Stop ends the loop.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.Sample(); err != nil {
				r.logger.Error().Err(err).Msg("Error recording telemetry")
			}
		}
	}
}

// Sample writes one entity point and, while navigating, one navigation point.
func (r *Recorder) Sample() error {
	e, ok := r.source.Snapshot()
	if !ok {
		return nil
	}
	ts := r.now()
	if err := r.manager.WritePoint(EntityPoint(e, r.source.Odometer(), ts)); err != nil {
		return err
	}
	if r.nav == nil {
		return nil
	}
	if s := r.nav.Status(); s.Active {
		return r.manager.WritePoint(NavigationPoint(s, ts))
	}
	return nil
}
