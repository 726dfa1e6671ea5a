package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/OCAP2/mapdrive/internal/dispatcher"
	"github.com/OCAP2/mapdrive/internal/entity"
	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// command is a one-shot session action, as opposed to a held input.Action.
type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdToggleMode
	cmdToggleFlying
	cmdToggleFollow
	cmdZoomIn
	cmdZoomOut
	cmdPitchUp
	cmdPitchDown
	cmdBearingLeft
	cmdBearingRight
	cmdResetCamera
	cmdNavigate
	cmdCancelNavigation
	cmdResetOdometer
)

// navigateAhead is how far in front of the entity the navigate command
// drops its destination.
const navigateAhead = 500.0

// execute runs cmd. It reports false when the session should end.
func (a *app) execute(ctx context.Context, cmd command) bool {
	s := a.composer.Scalars()

	switch cmd {
	case cmdQuit:
		return false
	case cmdToggleMode:
		go a.toggleMode(ctx)
	case cmdToggleFlying:
		if err := a.ctrl.SetFlying(!a.ctrl.Flying()); err != nil {
			a.messages.Add(err.Error())
		}
	case cmdToggleFollow:
		if a.composer.ToggleFollow() {
			a.messages.Add("camera following")
		} else {
			a.messages.Add("camera free")
		}
	case cmdZoomIn:
		s.Zoom.StepUp()
	case cmdZoomOut:
		s.Zoom.StepDown()
	case cmdPitchUp:
		s.Pitch.StepUp()
	case cmdPitchDown:
		s.Pitch.StepDown()
	case cmdBearingLeft:
		a.composer.AdjustBearing(-s.Bearing.Step())
	case cmdBearingRight:
		a.composer.AdjustBearing(s.Bearing.Step())
	case cmdResetCamera:
		s.Bearing.Reset()
		s.Pitch.Reset()
		s.Zoom.Reset()
	case cmdNavigate:
		go a.navigateAhead(ctx)
	case cmdCancelNavigation:
		a.nav.CancelNavigation()
	case cmdResetOdometer:
		a.ctrl.ResetOdometer()
		a.messages.Add("odometer reset")
	}
	return true
}

// toggleMode switches between driving and walking.
func (a *app) toggleMode(ctx context.Context) {
	next := core.ModeWalking
	if a.ctrl.Mode() == core.ModeWalking {
		next = core.ModeCar
	}
	desc, err := a.modelFor(next)
	if err != nil {
		a.messages.Add(err.Error())
		return
	}

	switch err := a.ctrl.SwitchState(ctx, next, desc); {
	case errors.Is(err, entity.ErrTransitionSuperseded):
	case err != nil:
		a.log.Error("Failed to switch movement mode", "mode", next, "error", err)
		a.messages.Add(fmt.Sprintf("switch to %s failed", next))
	default:
		a.composer.SetFollow(true)
	}
}

// navigateAhead routes to a point straight ahead of the entity and starts
// navigation. A routing failure still navigates, measuring straight-line
// distance.
func (a *app) navigateAhead(ctx context.Context) {
	e, ok := a.ctrl.Snapshot()
	if !ok {
		return
	}
	dest := geo.Destination(e.Position, e.HeadingDegrees(), navigateAhead)

	route, err := a.nav.CalculateRoute(ctx, dest)
	if err != nil {
		a.log.Warn("Route unavailable, navigating straight", "error", err)
		a.messages.Add("no route, heading straight")
	} else {
		a.composer.Preview(route)
	}

	if err := a.nav.NavigateTo(ctx, dest); err != nil {
		a.messages.Add(err.Error())
	}
}

// describeEvent renders a feedback event for the HUD message area.
func describeEvent(e dispatcher.Event) string {
	switch e.Kind {
	case dispatcher.KindStateSwitched:
		if ent, ok := e.Data.(core.Entity); ok {
			return fmt.Sprintf("now %s (%s)", ent.Mode, ent.ModelID)
		}
	case dispatcher.KindFlyingChanged:
		if on, ok := e.Data.(bool); ok && on {
			return "flying"
		}
		return "landed"
	case dispatcher.KindNavigationStarted:
		if p, ok := e.Data.(core.LngLat); ok {
			return fmt.Sprintf("navigating to %.5f,%.5f", p.Lng, p.Lat)
		}
	case dispatcher.KindArrivalZone:
		return "destination close"
	case dispatcher.KindArrived:
		return "arrived"
	case dispatcher.KindNavigationCancelled:
		return "navigation ended"
	}
	return ""
}

// messageLog keeps the most recent HUD messages.
type messageLog struct {
	mu    sync.Mutex
	limit int
	lines []string
}

func newMessageLog(limit int) *messageLog {
	return &messageLog{limit: limit}
}

func (m *messageLog) Add(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line)
	if len(m.lines) > m.limit {
		m.lines = m.lines[len(m.lines)-m.limit:]
	}
}

// Lines returns the messages, oldest first.
func (m *messageLog) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

// hud is everything the status panel shows.
type hud struct {
	Entity    core.Entity
	HasEntity bool
	Odometer  core.Odometer
	Nav       core.NavigationStatus
	Following bool
	Flying    bool
	Bearing   float64
	Pitch     float64
	Zoom      float64
}

func (a *app) hud() hud {
	e, ok := a.ctrl.Snapshot()
	return hud{
		Entity:    e,
		HasEntity: ok,
		Odometer:  a.ctrl.Odometer(),
		Nav:       a.nav.Status(),
		Following: a.composer.Following(),
		Flying:    a.composer.Flying(),
		Bearing:   a.view.Bearing(),
		Pitch:     a.view.Pitch(),
		Zoom:      a.view.Zoom(),
	}
}

// Lines renders the panel.
func (h hud) Lines(step float64) []string {
	if !h.HasEntity {
		return []string{"waiting for position"}
	}
	e := h.Entity

	camMode := "free"
	switch {
	case h.Flying:
		camMode = "flying"
	case h.Following:
		camMode = "follow"
	}

	lines := []string{
		fmt.Sprintf("mode %-8s model %s", e.Mode, e.ModelID),
		fmt.Sprintf("pos  %.6f, %.6f  elev %.1f m", e.Position.Lng, e.Position.Lat, e.Elevation),
		fmt.Sprintf("hdg  %03.0f°  speed %s", e.HeadingDegrees(), formatSpeed(e.Speed, step)),
		fmt.Sprintf("odo  driven %s  walked %s", formatDistance(h.Odometer.Driven), formatDistance(h.Odometer.Walked)),
		fmt.Sprintf("cam  %-6s brg %.0f  pitch %.0f  zoom %.1f", camMode, h.Bearing, h.Pitch, h.Zoom),
	}

	if h.Nav.Active {
		nav := fmt.Sprintf("nav  %s left  %.0f%%", formatDistance(h.Nav.RemainingDistance), h.Nav.Progress)
		if h.Nav.RemainingDuration > 0 {
			nav += fmt.Sprintf("  eta %.0fs", h.Nav.RemainingDuration)
		}
		if h.Nav.Arrived {
			nav += "  arrived"
		}
		lines = append(lines, nav)
	}
	return lines
}

// formatDistance prints metres below a kilometre and kilometres above.
func formatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return fmt.Sprintf("%.2f km", m/1000)
}

// formatSpeed converts a per-step velocity to km/h.
func formatSpeed(perStep, step float64) string {
	if step <= 0 {
		return "0 km/h"
	}
	return fmt.Sprintf("%.0f km/h", math.Abs(perStep)/step*3.6)
}
