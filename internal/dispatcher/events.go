package dispatcher

// Event kinds raised by the simulation core.
const (
	// KindStateSwitched carries the new core.Entity after a movement state change.
	KindStateSwitched = "entity:stateSwitched"
	// KindFlyingChanged carries the new flying flag.
	KindFlyingChanged = "entity:flying"

	// KindNavigationStarted carries the destination core.LngLat.
	KindNavigationStarted = "navigation:started"
	// KindArrivalZone carries the destination when the entity enters the close radius.
	KindArrivalZone = "navigation:arrivalZone"
	// KindArrivalZoneCleared has no data.
	KindArrivalZoneCleared = "navigation:arrivalZoneCleared"
	// KindArrived carries the final core.NavigationStatus.
	KindArrived = "navigation:arrived"
	// KindNavigationCancelled has no data; the destination marker is removed.
	KindNavigationCancelled = "navigation:cancelled"
)
