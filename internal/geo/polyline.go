package geo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/OCAP2/mapdrive/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParsePolyline parses a JSON array of coordinates into a core.Polyline.
// Input format: "[[lng1,lat1],[lng2,lat2],...]"
func ParsePolyline(input string) (core.Polyline, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}
	return PolylineFromCoordinates(coords)
}

// PolylineFromCoordinates converts GeoJSON-style [lng, lat] pairs into a core.Polyline.
func PolylineFromCoordinates(coords [][]float64) (core.Polyline, error) {
	if len(coords) < 2 {
		return nil, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	polyline := make(core.Polyline, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		polyline[i] = core.LngLat{Lng: coord[0], Lat: coord[1]}
	}
	return polyline, nil
}

// ProjectedLineString converts a polyline into a geom.LineString in EPSG:3857 metres.
func ProjectedLineString(p core.Polyline) geom.LineString {
	flatCoords := make([]float64, 0, len(p)*2)
	for _, pt := range p {
		x, y := ToWebMercator(pt)
		flatCoords = append(flatCoords, x, y)
	}
	return geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXY))
}

// Length returns the haversine length of the polyline in metres.
func Length(p core.Polyline) float64 {
	var total float64
	for i := 1; i < len(p); i++ {
		total += Haversine(p[i-1], p[i])
	}
	return total
}

// Midpoint returns the position halfway along the polyline, measured in the
// Web Mercator plane.
func Midpoint(p core.Polyline) (core.LngLat, bool) {
	switch len(p) {
	case 0:
		return core.LngLat{}, false
	case 1:
		return p[0], true
	}

	ls := ProjectedLineString(p)
	half := ls.Length() / 2
	seq := ls.Coordinates()

	var walked float64
	for i := 1; i < seq.Length(); i++ {
		a, b := seq.GetXY(i-1), seq.GetXY(i)
		seg := math.Hypot(b.X-a.X, b.Y-a.Y)
		if walked+seg >= half && seg > 0 {
			t := (half - walked) / seg
			return FromWebMercator(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t), true
		}
		walked += seg
	}
	return p[len(p)-1], true
}
