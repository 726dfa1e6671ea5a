package geo

import (
	"math"

	"github.com/OCAP2/mapdrive/pkg/core"
)

const (
	// EarthRadius is the mean Earth radius in metres.
	EarthRadius = 6_371_000.0

	metersPerDegLat = 111_320.0
)

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// Haversine returns the great-circle distance between a and b in metres.
func Haversine(a, b core.LngLat) float64 {
	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLat := lat2 - lat1
	dLng := degToRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial compass bearing from a to b in degrees [0, 360).
func Bearing(a, b core.LngLat) float64 {
	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return NormalizeBearing(radToDeg(math.Atan2(y, x)))
}

// Destination returns the point reached from p after travelling distance metres
// along a great circle with the given initial compass bearing.
func Destination(p core.LngLat, bearingDeg, distance float64) core.LngLat {
	lat1 := degToRad(p.Lat)
	lng1 := degToRad(p.Lng)
	b := degToRad(bearingDeg)
	d := distance / EarthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(b))
	lng2 := lng1 + math.Atan2(math.Sin(b)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	return core.LngLat{Lng: normalizeLng(radToDeg(lng2)), Lat: radToDeg(lat2)}
}

// Offset translates p by local east/north metres using an equirectangular
// approximation. Accurate for the per-step displacements of a moving entity.
func Offset(p core.LngLat, east, north float64) core.LngLat {
	metersPerDegLng := metersPerDegLat * math.Cos(degToRad(p.Lat))
	out := core.LngLat{
		Lng: p.Lng,
		Lat: p.Lat + north/metersPerDegLat,
	}
	if metersPerDegLng > 1e-9 {
		out.Lng = normalizeLng(p.Lng + east/metersPerDegLng)
	}
	return out
}

// NormalizeBearing maps any angle in degrees onto [0, 360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
