// Package navigation tracks point-to-point navigation and arrival.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/internal/routing"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// ErrRouteTimeout is returned when the routing service does not answer in time.
var ErrRouteTimeout = errors.New("route computation timed out")

// PositionSource is the read-only entity view navigation polls.
type PositionSource interface {
	Snapshot() (core.Entity, bool)
}

// Feedback receives the navigation visuals. Methods are called with the
// controller locked and must not call back into it.
type Feedback interface {
	ShowMarker(destination core.LngLat)
	HideMarker()
	ShowArrivalZone(destination core.LngLat, radius float64)
	HideArrivalZone()
	Arrived(status core.NavigationStatus)
}

// Options holds the navigation thresholds and timings.
type Options struct {
	ArrivalThreshold float64
	CloseThreshold   float64
	PollInterval     time.Duration
	AutoCancelDelay  time.Duration
	RouteTimeout     time.Duration
}

// DefaultOptions returns the stock thresholds and timings.
func DefaultOptions() Options {
	return Options{
		ArrivalThreshold: core.DefaultArrivalThreshold,
		CloseThreshold:   core.DefaultCloseThreshold,
		PollInterval:     500 * time.Millisecond,
		AutoCancelDelay:  3 * time.Second,
		RouteTimeout:     10 * time.Second,
	}
}

// OptionsFromConfig fills unset values from DefaultOptions.
func OptionsFromConfig(cfg config.NavigationConfig) Options {
	o := DefaultOptions()
	if cfg.ArrivalThreshold > 0 {
		o.ArrivalThreshold = cfg.ArrivalThreshold
	}
	if cfg.CloseThreshold > 0 {
		o.CloseThreshold = cfg.CloseThreshold
	}
	if cfg.PollInterval > 0 {
		o.PollInterval = cfg.PollInterval
	}
	if cfg.AutoCancelDelay > 0 {
		o.AutoCancelDelay = cfg.AutoCancelDelay
	}
	if cfg.RouteTimeout > 0 {
		o.RouteTimeout = cfg.RouteTimeout
	}
	return o
}

// Controller computes routes and follows the entity towards a destination.
type Controller struct {
	router   routing.Service
	source   PositionSource
	feedback Feedback
	log      *slog.Logger
	opts     Options

	mu            sync.Mutex
	route         *core.Route
	status        core.NavigationStatus
	totalDuration float64
	markerShown   bool
	zoneShown     bool
	session       uint64
	stop          chan struct{}
	autoCancel    *time.Timer
}

// New creates an idle navigation controller. feedback may be nil.
func New(router routing.Service, source PositionSource, feedback Feedback, log *slog.Logger, opts Options) *Controller {
	if feedback == nil {
		feedback = nopFeedback{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		router:   router,
		source:   source,
		feedback: feedback,
		log:      log,
		opts:     opts,
	}
}

// CalculateRoute computes a route from the entity to destination without
// starting navigation. It fails with ErrRouteTimeout once the route timeout
// passes, whether or not the router honours ctx.
func (c *Controller) CalculateRoute(ctx context.Context, destination core.LngLat) (core.Route, error) {
	if !destination.IsValid() {
		return core.Route{}, geo.ErrInvalidCoordinates
	}
	e, ok := c.source.Snapshot()
	if !ok {
		return core.Route{}, core.ErrNoPosition
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RouteTimeout)
	defer cancel()

	type outcome struct {
		res routing.Result
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		res, err := c.router.ComputeRoute(ctx, e.Position, destination)
		done <- outcome{res, err}
	}()

	var res routing.Result
	var err error
	select {
	case o := <-done:
		res, err = o.res, o.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn("Route computation timed out", "timeout", c.opts.RouteTimeout)
			return core.Route{}, fmt.Errorf("%w after %s", ErrRouteTimeout, c.opts.RouteTimeout)
		}
		return core.Route{}, fmt.Errorf("computing route: %w", err)
	}

	route := core.Route{
		Origin:      e.Position,
		Destination: destination,
		Geometry:    res.Geometry,
		Distance:    res.Distance,
		Duration:    res.Duration,
	}
	c.mu.Lock()
	c.route = &route
	c.mu.Unlock()

	c.log.Debug("Route computed", "distance", res.Distance, "duration", res.Duration, "took", time.Since(start))
	return route, nil
}

// Route returns the last computed route.
func (c *Controller) Route() (core.Route, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.route == nil {
		return core.Route{}, false
	}
	return *c.route, true
}

// NavigateTo starts navigation to destination, replacing any active one.
// The distance to go is checked immediately and then every poll interval.
// Distances are geodesic; a computed route to the same destination only
// supplies the total duration.
func (c *Controller) NavigateTo(ctx context.Context, destination core.LngLat) error {
	if !destination.IsValid() {
		return geo.ErrInvalidCoordinates
	}
	e, ok := c.source.Snapshot()
	if !ok {
		return core.ErrNoPosition
	}

	c.mu.Lock()
	c.clear()

	total := geo.Haversine(e.Position, destination)
	c.totalDuration = 0
	if c.route != nil && c.route.Destination == destination {
		c.totalDuration = c.route.Duration
	}

	c.session++
	c.status = core.NavigationStatus{
		Active:            true,
		Destination:       destination,
		TotalDistance:     total,
		RemainingDistance: total,
		RemainingDuration: c.totalDuration,
	}
	c.markerShown = true
	c.feedback.ShowMarker(destination)

	stop := make(chan struct{})
	c.stop = stop
	session := c.session
	c.poll(e)
	arrived := c.status.Arrived
	c.mu.Unlock()

	c.log.Info("Navigation started", "destination", destination, "distance", total)
	if !arrived {
		go c.pollLoop(ctx, stop, session)
	}
	return nil
}

// pollLoop polls until arrival, cancellation or ctx is done.
func (c *Controller) pollLoop(ctx context.Context, stop <-chan struct{}, session uint64) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			c.cancelSession(session)
			return
		case <-ticker.C:
			if s := c.Poll(); !s.Active || s.Arrived {
				return
			}
		}
	}
}

// Poll re-evaluates the distance to the destination and returns the status.
// It is a no-op when navigation is inactive or already arrived.
func (c *Controller) Poll() core.NavigationStatus {
	e, ok := c.source.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.poll(e)
	}
	return c.status
}

// poll updates progress for entity e. Callers must hold c.mu.
func (c *Controller) poll(e core.Entity) {
	if !c.status.Active || c.status.Arrived {
		return
	}

	s := &c.status
	s.RemainingDistance = geo.Haversine(e.Position, s.Destination)
	s.Progress = progress(s.TotalDistance, s.RemainingDistance)

	if s.RemainingDistance <= c.opts.CloseThreshold && !c.zoneShown {
		c.zoneShown = true
		s.InArrivalZone = true
		c.feedback.ShowArrivalZone(s.Destination, c.opts.CloseThreshold)
	}

	if s.RemainingDistance <= c.opts.ArrivalThreshold {
		c.arrive()
		return
	}
	s.RemainingDuration = c.totalDuration * (1 - s.Progress/100)
}

// arrive completes navigation. Callers must hold c.mu.
func (c *Controller) arrive() {
	s := &c.status
	s.Arrived = true
	s.Progress = 100
	s.RemainingDuration = 0
	c.stopPolling()

	if c.zoneShown {
		c.zoneShown = false
		c.feedback.HideArrivalZone()
	}
	c.feedback.Arrived(*s)
	c.log.Info("Arrived at destination", "destination", s.Destination, "remaining", s.RemainingDistance)

	session := c.session
	c.autoCancel = time.AfterFunc(c.opts.AutoCancelDelay, func() {
		c.cancelSession(session)
	})
}

// cancelSession clears navigation only if session is still the current one.
func (c *Controller) cancelSession(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == session {
		c.clear()
	}
}

func progress(total, remaining float64) float64 {
	if total <= 0 {
		return 100
	}
	p := (total - remaining) / total * 100
	return math.Max(0, math.Min(100, p))
}

// CancelNavigation stops polling and removes the marker and arrival zone.
// It is safe to call at any time.
func (c *Controller) CancelNavigation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Active {
		c.log.Info("Navigation cancelled", "destination", c.status.Destination)
	}
	c.clear()
}

// clear resets navigation state. Callers must hold c.mu.
func (c *Controller) clear() {
	c.stopPolling()
	if c.autoCancel != nil {
		c.autoCancel.Stop()
		c.autoCancel = nil
	}
	if c.zoneShown {
		c.zoneShown = false
		c.feedback.HideArrivalZone()
	}
	if c.markerShown {
		c.markerShown = false
		c.feedback.HideMarker()
	}
	c.session++
	c.status = core.NavigationStatus{}
	c.totalDuration = 0
}

func (c *Controller) stopPolling() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// Status returns the current navigation status.
func (c *Controller) Status() core.NavigationStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

type nopFeedback struct{}

func (nopFeedback) ShowMarker(core.LngLat)               {}
func (nopFeedback) HideMarker()                          {}
func (nopFeedback) ShowArrivalZone(core.LngLat, float64) {}
func (nopFeedback) HideArrivalZone()                     {}
func (nopFeedback) Arrived(core.NavigationStatus)        {}
