package entity

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/mapdrive/internal/store"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// Persist writes the odometers and the entity snapshot to the store.
func (c *Controller) Persist() error {
	if c.deps.Store == nil {
		return nil
	}
	e, ok := c.Snapshot()
	odo := c.Odometer()

	if err := c.deps.Store.Put(store.KeyOdometer, odo); err != nil {
		return fmt.Errorf("persisting odometer: %w", err)
	}
	if !ok {
		return nil
	}
	if err := c.deps.Store.Put(store.KeySnapshot, e); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	return nil
}

// Restore loads the odometers and the last entity pose from the store. It
// returns the stored entity so the caller can switch back into its mode and
// model; ok is false when nothing was stored.
func (c *Controller) Restore() (e core.Entity, ok bool, err error) {
	if c.deps.Store == nil {
		return core.Entity{}, false, nil
	}

	var odo core.Odometer
	switch err := c.deps.Store.Get(store.KeyOdometer, &odo); {
	case err == nil:
		c.mu.Lock()
		c.odometer = odo
		c.publish()
		c.mu.Unlock()
	case !errors.Is(err, store.ErrNotFound):
		return core.Entity{}, false, fmt.Errorf("restoring odometer: %w", err)
	}

	switch err := c.deps.Store.Get(store.KeySnapshot, &e); {
	case errors.Is(err, store.ErrNotFound):
		return core.Entity{}, false, nil
	case err != nil:
		return core.Entity{}, false, fmt.Errorf("restoring snapshot: %w", err)
	}

	if err := c.SetPosition(e.Position); err != nil {
		return core.Entity{}, false, fmt.Errorf("restoring snapshot: %w", err)
	}
	c.SetHeading(e.Heading)
	return e, true, nil
}

// Snapshotter persists the controller periodically from its own goroutine.
type Snapshotter struct {
	ctrl     *Controller
	interval time.Duration
	log      *slog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSnapshotter creates a snapshotter; call Start to begin.
func NewSnapshotter(ctrl *Controller, interval time.Duration, log *slog.Logger) *Snapshotter {
	if log == nil {
		log = slog.Default()
	}
	return &Snapshotter{
		ctrl:     ctrl,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start launches the persistence loop. A non-positive interval disables it.
func (s *Snapshotter) Start() {
	if s.interval <= 0 {
		return
	}
	s.wg.Add(1)
	go s.loop()
}

// Stop ends the loop and writes a final snapshot.
func (s *Snapshotter) Stop() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return s.ctrl.Persist()
}

func (s *Snapshotter) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if err := s.ctrl.Persist(); err != nil {
				s.log.Error("Error persisting entity", "error", err)
			}
		}
	}
}
