// pkg/core/route.go
package core

const (
	DefaultArrivalThreshold = 50.0
	DefaultCloseThreshold   = 100.0
)

// Route is a computed path between two positions.
type Route struct {
	Origin      LngLat   `json:"origin"`
	Destination LngLat   `json:"destination"`
	Geometry    Polyline `json:"geometry"`
	Distance    float64  `json:"distance"` // metres
	Duration    float64  `json:"duration"` // seconds
}

// NavigationStatus is the live progress of an active navigation.
type NavigationStatus struct {
	Active            bool    `json:"active"`
	Destination       LngLat  `json:"destination"`
	TotalDistance     float64 `json:"totalDistance"`
	RemainingDistance float64 `json:"remainingDistance"`
	RemainingDuration float64 `json:"remainingDuration"`
	Progress          float64 `json:"progress"` // percent
	InArrivalZone     bool    `json:"inArrivalZone"`
	Arrived           bool    `json:"arrived"`
}
