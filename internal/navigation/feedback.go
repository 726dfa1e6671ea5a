package navigation

import (
	"github.com/OCAP2/mapdrive/internal/dispatcher"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// Publisher receives feedback events.
type Publisher interface {
	Publish(kind string, data any)
}

// DispatchFeedback turns navigation visuals into dispatcher events.
type DispatchFeedback struct {
	Events Publisher
}

func (f DispatchFeedback) ShowMarker(destination core.LngLat) {
	f.Events.Publish(dispatcher.KindNavigationStarted, destination)
}

func (f DispatchFeedback) HideMarker() {
	f.Events.Publish(dispatcher.KindNavigationCancelled, nil)
}

func (f DispatchFeedback) ShowArrivalZone(destination core.LngLat, radius float64) {
	f.Events.Publish(dispatcher.KindArrivalZone, destination)
}

func (f DispatchFeedback) HideArrivalZone() {
	f.Events.Publish(dispatcher.KindArrivalZoneCleared, nil)
}

func (f DispatchFeedback) Arrived(status core.NavigationStatus) {
	f.Events.Publish(dispatcher.KindArrived, status)
}
