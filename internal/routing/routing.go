// Package routing computes routes between two positions.
package routing

import (
	"context"
	"fmt"

	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// Result is a computed route.
type Result struct {
	Geometry core.Polyline
	Distance float64 // metres
	Duration float64 // seconds
}

// Service computes routes. Implementations must honour ctx cancellation.
type Service interface {
	ComputeRoute(ctx context.Context, origin, destination core.LngLat) (Result, error)
}

// Straight returns a direct line between the two points, travelled at Speed
// metres per second. It needs no server.
type Straight struct {
	Speed float64
}

func (s Straight) ComputeRoute(ctx context.Context, origin, destination core.LngLat) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	d := geo.Haversine(origin, destination)
	r := Result{
		Geometry: core.Polyline{origin, destination},
		Distance: d,
	}
	if s.Speed > 0 {
		r.Duration = d / s.Speed
	}
	return r, nil
}

// ByMode picks the service matching the entity's current movement mode.
type ByMode struct {
	Car     Service
	Walking Service
	Mode    func() core.Mode
}

func (b ByMode) ComputeRoute(ctx context.Context, origin, destination core.LngLat) (Result, error) {
	var mode core.Mode
	if b.Mode != nil {
		mode = b.Mode()
	}
	switch mode {
	case core.ModeWalking:
		if b.Walking != nil {
			return b.Walking.ComputeRoute(ctx, origin, destination)
		}
	case core.ModeCar, "":
	default:
		return Result{}, fmt.Errorf("no routing profile for mode %q", mode)
	}
	if b.Car == nil {
		return Result{}, fmt.Errorf("no car routing service configured")
	}
	return b.Car.ComputeRoute(ctx, origin, destination)
}
