// Package terrain provides ground elevation lookups.
package terrain

import (
	"fmt"
	"math"

	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// Service answers elevation queries. Unknown locations report 0.
type Service interface {
	QueryElevation(lng, lat float64) float64
}

// Flat is a constant-height terrain.
type Flat struct {
	Elevation float64
}

func (f Flat) QueryElevation(lng, lat float64) float64 {
	return f.Elevation
}

// Synthetic is a wavy terrain pattern evaluated on Web-Mercator metres.
// It can be replaced with real elevation data.
type Synthetic struct {
	Base float64
}

func (s Synthetic) QueryElevation(lng, lat float64) float64 {
	x, y := geo.ToWebMercator(core.LngLat{Lng: lng, Lat: lat})
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0
	}
	wave1 := math.Sin(x/1000) * 100
	wave2 := math.Sin((x+y)/500) * 50
	return math.Max(0, s.Base+wave1+wave2)
}

// New builds the terrain service named by kind ("flat" or "synthetic").
func New(kind string, base float64) (Service, error) {
	switch kind {
	case "", "flat":
		return Flat{Elevation: base}, nil
	case "synthetic":
		return Synthetic{Base: base}, nil
	default:
		return nil, fmt.Errorf("unknown terrain type: %s", kind)
	}
}
