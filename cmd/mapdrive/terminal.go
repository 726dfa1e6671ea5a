package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/internal/input"
	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/gdamore/tcell/v2"
)

const frameInterval = 16 * time.Millisecond // ~60 FPS

var (
	hudStyle     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	messageStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	entityStyle  = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	markerStyle  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	zoneStyle    = tcell.StyleDefault.Foreground(tcell.ColorDarkRed)
	helpStyle    = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

const helpLine = "wasd/arrows move  b boost  space jump  e ascend  m mode  f fly  c follow  +/- zoom  [/] bearing  pgup/pgdn pitch  n navigate  x cancel  o reset odo  q quit"

// runTerminal drives the session from a terminal until the user quits.
func runTerminal(a *app) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	step := config.GetLoopConfig().Step
	last := time.Now()
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if action, ok := actionForKey(ev.Key(), ev.Rune()); ok {
					a.latch.Press(action)
					continue
				}
				if !a.execute(ctx, commandForKey(ev.Key(), ev.Rune())) {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case now := <-ticker.C:
			a.ctrl.Frame(now.Sub(last).Seconds())
			last = now
			if err := a.composer.Update(); err != nil && !errors.Is(err, core.ErrNoPosition) {
				a.log.Error("Camera update failed", "error", err)
			}
			draw(screen, a.hud(), a.messages.Lines(), step)
		}
	}
}

// actionForKey maps movement keys to held actions.
func actionForKey(key tcell.Key, r rune) (input.Action, bool) {
	switch key {
	case tcell.KeyUp:
		return input.Forward, true
	case tcell.KeyDown:
		return input.Back, true
	case tcell.KeyLeft:
		return input.Left, true
	case tcell.KeyRight:
		return input.Right, true
	case tcell.KeyRune:
	default:
		return "", false
	}

	switch r {
	case 'w', 'W':
		return input.Forward, true
	case 's', 'S':
		return input.Back, true
	case 'a', 'A':
		return input.Left, true
	case 'd', 'D':
		return input.Right, true
	case 'b', 'B':
		return input.Boost, true
	case ' ':
		return input.Jump, true
	case 'e', 'E':
		return input.Ascend, true
	}
	return "", false
}

// commandForKey maps the remaining keys to one-shot commands.
func commandForKey(key tcell.Key, r rune) command {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return cmdQuit
	case tcell.KeyPgUp:
		return cmdPitchUp
	case tcell.KeyPgDn:
		return cmdPitchDown
	case tcell.KeyRune:
	default:
		return cmdNone
	}

	switch r {
	case 'q', 'Q':
		return cmdQuit
	case 'm', 'M':
		return cmdToggleMode
	case 'f', 'F':
		return cmdToggleFlying
	case 'c', 'C':
		return cmdToggleFollow
	case '+', '=':
		return cmdZoomIn
	case '-', '_':
		return cmdZoomOut
	case '[':
		return cmdBearingLeft
	case ']':
		return cmdBearingRight
	case 'r', 'R':
		return cmdResetCamera
	case 'n', 'N':
		return cmdNavigate
	case 'x', 'X':
		return cmdCancelNavigation
	case 'o', 'O':
		return cmdResetOdometer
	}
	return cmdNone
}

// draw renders the HUD on top, a top-down radar in the middle and the
// message log at the bottom.
func draw(screen tcell.Screen, h hud, messages []string, step float64) {
	screen.Clear()
	w, ht := screen.Size()

	lines := h.Lines(step)
	for i, line := range lines {
		drawText(screen, 0, i, line, hudStyle)
	}
	top := len(lines) + 1
	bottom := ht - len(messages) - 2

	if h.HasEntity && bottom-top > 2 {
		drawRadar(screen, h, 0, top, w, bottom-top)
	}

	for i, msg := range messages {
		drawText(screen, 0, ht-len(messages)-1+i, msg, messageStyle)
	}
	drawText(screen, 0, ht-1, helpLine, helpStyle)
	screen.Show()
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// Terminal cells are roughly twice as tall as wide.
const cellAspect = 2.0

// drawRadar shows the entity at the centre of the box, north up, with the
// destination and arrival zone when navigating.
func drawRadar(screen tcell.Screen, h hud, x0, y0, w, ht int) {
	cx, cy := x0+w/2, y0+ht/2
	perCell := metersPerCell(h.Entity.Position.Lat, h.Zoom)

	place := func(p core.LngLat) (int, int) {
		d := geo.Haversine(h.Entity.Position, p)
		b := geo.Bearing(h.Entity.Position, p) * math.Pi / 180
		east, north := d*math.Sin(b), d*math.Cos(b)
		return cx + int(math.Round(east/perCell)), cy - int(math.Round(north/perCell/cellAspect))
	}
	inside := func(x, y int) bool {
		return x >= x0 && x < x0+w && y >= y0 && y < y0+ht
	}

	if h.Nav.Active {
		if h.Nav.InArrivalZone && !h.Nav.Arrived {
			for deg := 0.0; deg < 360; deg += 10 {
				x, y := place(geo.Destination(h.Nav.Destination, deg, core.DefaultCloseThreshold))
				if inside(x, y) {
					screen.SetContent(x, y, '·', nil, zoneStyle)
				}
			}
		}
		x, y := place(h.Nav.Destination)
		if inside(x, y) {
			screen.SetContent(x, y, 'X', nil, markerStyle)
		} else {
			drawText(screen, x0, y0, fmt.Sprintf("destination %s away", formatDistance(h.Nav.RemainingDistance)), markerStyle)
		}
	}

	screen.SetContent(cx, cy, headingGlyph(h.Entity.HeadingDegrees()), nil, entityStyle)
}

// metersPerCell approximates web-map ground resolution at zoom for an
// eight pixel wide cell.
func metersPerCell(lat, zoom float64) float64 {
	const metersPerPixelZ0 = 156543.03392
	return metersPerPixelZ0 * math.Cos(lat*math.Pi/180) / math.Pow(2, zoom) * 8
}

var headingGlyphs = []rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}

// headingGlyph returns the arrow closest to a compass bearing.
func headingGlyph(bearing float64) rune {
	i := int(math.Round(geo.NormalizeBearing(bearing)/45)) % len(headingGlyphs)
	return headingGlyphs[i]
}
