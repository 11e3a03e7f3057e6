package views

// StorageEvent identifies a change to server-side storage state, broadcast
// on the app's event bus. Convention: "category.changed".
type StorageEvent string

const (
	PoolsChanged     StorageEvent = "pools.changed"
	DatasetsChanged  StorageEvent = "datasets.changed"
	SnapshotsChanged StorageEvent = "snapshots.changed"
)

// RefreshKey identifies one refreshable unit of a view's data. Keys are
// scoped to the view that registers them.
type RefreshKey string

const (
	KeyPools           RefreshKey = "pools"
	KeyDatasets        RefreshKey = "datasets"
	KeySnapshots       RefreshKey = "snapshots"
	KeyDetail          RefreshKey = "detail"
	KeyDetailSnapshots RefreshKey = "detail.snapshots"
)

// ViewLoaded is a custom vaxis event posted when a view finishes loading
// data. It is sent from background goroutines via PostEvent to notify the
// UI.
type ViewLoaded struct {
	Name string
	Err  error
}

// StorageChanged is a custom vaxis event used to hand a StorageEvent from a
// background goroutine to the UI loop, which republishes it on the event
// bus. Bus access stays confined to the event loop this way.
type StorageChanged struct {
	Event StorageEvent
}
