package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/wroge/wgs84"
)

// All public positions are EPSG:4326 (lng, lat in degrees). Projected maths that
// needs metres goes through EPSG:3857 and back.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// LngLatFromString parses a string in the format "lng,lat" or "lng,lat,elev".
func LngLatFromString(coords string) (pos core.LngLat, elev float64, err error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.LngLat{}, 0, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.LngLat{}, 0, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.LngLat{}, 0, ErrInvalidCoordinates
	}
	if len(coordsSplit) > 2 {
		elev, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.LngLat{}, 0, ErrInvalidCoordinates
		}
	}
	pos = core.LngLat{Lng: lng, Lat: lat}
	if !pos.IsValid() {
		return core.LngLat{}, 0, ErrInvalidCoordinates
	}
	return pos, elev, nil
}

// ToWebMercator projects a WGS84 position to EPSG:3857 metres.
func ToWebMercator(p core.LngLat) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(p.Lng, p.Lat, 0)
	return x, y
}

// FromWebMercator converts EPSG:3857 metres back to a WGS84 position.
func FromWebMercator(x, y float64) core.LngLat {
	f := wgs84.EPSG().Transform(3857, 4326)
	lng, lat, _ := f(x, y, 0)
	return core.LngLat{Lng: lng, Lat: lat}
}

// MercatorOffset moves p by distance metres along a compass bearing (degrees),
// working in the Web Mercator plane. The projection scale 1/cos(lat) is applied
// so that distance is in ground metres near p.
func MercatorOffset(p core.LngLat, bearingDeg, distance float64) core.LngLat {
	x, y := ToWebMercator(p)
	scale := 1 / math.Cos(degToRad(p.Lat))
	b := degToRad(bearingDeg)
	x += math.Sin(b) * distance * scale
	y += math.Cos(b) * distance * scale
	return FromWebMercator(x, y)
}
