package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/internal/routing"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// routeOutput is what the route command prints.
type routeOutput struct {
	core.Route
	Profile        string  `json:"profile"`
	StraightLine   float64 `json:"straightLine"`
	GeometryLength float64 `json:"geometryLength"`
}

// runRoute computes one route with the configured routing server and writes
// it as JSON to w. Arguments: origin, destination and an optional config dir.
// Warnings go to errw.
func runRoute(ctx context.Context, w, errw io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("need origin and destination as lng,lat")
	}
	origin, _, err := geo.LngLatFromString(args[0])
	if err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	dest, _, err := geo.LngLatFromString(args[1])
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	configDir := "."
	if len(args) > 2 {
		configDir = args[2]
	}
	if err := config.Load(configDir); err != nil {
		fmt.Fprintf(errw, "Failed to load config, using defaults! %v\n", err)
	}

	rc := config.GetRoutingConfig()
	var svc routing.Service = routing.Straight{Speed: 10}
	profile := "straight"
	if rc.ServerURL != "" {
		svc = routing.New(rc.ServerURL, rc.CarProfile, rc.Timeout)
		profile = rc.CarProfile
	}

	return writeRoute(ctx, w, svc, profile, origin, dest)
}

func writeRoute(ctx context.Context, w io.Writer, svc routing.Service, profile string, origin, dest core.LngLat) error {
	res, err := svc.ComputeRoute(ctx, origin, dest)
	if err != nil {
		return err
	}

	out := routeOutput{
		Route: core.Route{
			Origin:      origin,
			Destination: dest,
			Geometry:    res.Geometry,
			Distance:    res.Distance,
			Duration:    res.Duration,
		},
		Profile:        profile,
		StraightLine:   geo.Haversine(origin, dest),
		GeometryLength: geo.Length(res.Geometry),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
