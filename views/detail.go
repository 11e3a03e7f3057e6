package views

import (
	"context"
	"fmt"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/nasview/eventbus"
	"github.com/deevus/nasview/refresh"
	"github.com/deevus/nasview/widgets"
	"github.com/deevus/truenas-go"
	"github.com/dustin/go-humanize"
)

// DatasetDetailViewParams holds configuration for creating a
// DatasetDetailView.
type DatasetDetailViewParams struct {
	Dataset   truenas.Dataset
	Datasets  truenas.DatasetServiceAPI
	Snapshots truenas.SnapshotServiceAPI
	Bus       *eventbus.Bus[StorageEvent]
	Policy    refresh.FailurePolicy
	PostEvent func(vaxis.Event)
}

// DatasetDetailView shows one dataset's properties and its snapshots. It is
// pushed over the datasets list. The two panels refresh independently: the
// property panel goes stale on DatasetsChanged, the snapshot panel on
// SnapshotsChanged.
type DatasetDetailView struct {
	datasetSvc  truenas.DatasetServiceAPI
	snapshotSvc truenas.SnapshotServiceAPI
	ctrl        *refresh.Controller[StorageEvent, RefreshKey]

	dataset   truenas.Dataset
	snapshots []truenas.Snapshot
	snapsOK   bool
	postEvent func(vaxis.Event)
}

// NewDatasetDetailView creates a DatasetDetailView for p.Dataset.
func NewDatasetDetailView(p DatasetDetailViewParams) *DatasetDetailView {
	v := &DatasetDetailView{
		datasetSvc:  p.Datasets,
		snapshotSvc: p.Snapshots,
		dataset:     p.Dataset,
		postEvent:   p.PostEvent,
	}

	v.ctrl = refresh.New(refresh.Params[StorageEvent, RefreshKey]{
		Bus: p.Bus,
		StaleEvents: map[StorageEvent][]RefreshKey{
			DatasetsChanged:  {KeyDetail},
			SnapshotsChanged: {KeyDetailSnapshots},
		},
		Policy: p.Policy,
	})
	v.ctrl.RegisterRefresher(KeyDetail, v.reloadDataset)
	v.ctrl.RegisterRefresher(KeyDetailSnapshots, v.reloadSnapshots)
	return v
}

// Load fetches the dataset's snapshots. The dataset itself was handed in at
// construction.
func (v *DatasetDetailView) Load(ctx context.Context) error {
	all, err := v.snapshotSvc.List(ctx)
	if err != nil {
		return err
	}
	v.snapshots = filterSnapshots(all, v.dataset.ID)
	v.snapsOK = true
	return nil
}

func filterSnapshots(all []truenas.Snapshot, datasetID string) []truenas.Snapshot {
	out := make([]truenas.Snapshot, 0, len(all))
	for _, s := range all {
		if s.Dataset == datasetID {
			out = append(out, s)
		}
	}
	return out
}

// reloadDataset is the refresher for KeyDetail: it re-lists datasets in the
// background and updates the property panel from the matching entry.
func (v *DatasetDetailView) reloadDataset() {
	go func() {
		datasets, err := v.datasetSvc.ListDatasets(context.Background())
		if err == nil {
			for _, d := range datasets {
				if d.ID == v.dataset.ID {
					v.dataset = d
					break
				}
			}
		}
		if v.postEvent != nil {
			v.postEvent(ViewLoaded{Name: "detail", Err: err})
		}
	}()
}

// reloadSnapshots is the refresher for KeyDetailSnapshots.
func (v *DatasetDetailView) reloadSnapshots() {
	go func() {
		err := v.Load(context.Background())
		if v.postEvent != nil {
			v.postEvent(ViewLoaded{Name: "detail.snapshots", Err: err})
		}
	}()
}

// Bind attaches the view's refresh controller to its navigation entry.
func (v *DatasetDetailView) Bind(nav refresh.Navigator) {
	v.ctrl.BindNavigator(nav)
}

// Close releases the view's bus and navigation subscriptions.
func (v *DatasetDetailView) Close() {
	v.ctrl.Close()
}

// Invalidate marks all of the view's refresh keys stale.
func (v *DatasetDetailView) Invalidate() {
	v.ctrl.MarkStaleAll([]RefreshKey{KeyDetail, KeyDetailSnapshots})
}

// Controller returns the view's refresh controller.
func (v *DatasetDetailView) Controller() *refresh.Controller[StorageEvent, RefreshKey] {
	return v.ctrl
}

// Dataset returns the dataset currently shown.
func (v *DatasetDetailView) Dataset() truenas.Dataset {
	return v.dataset
}

// Snapshots returns the dataset's loaded snapshots.
func (v *DatasetDetailView) Snapshots() []truenas.Snapshot {
	return v.snapshots
}

// Draw renders the property table and the snapshot table.
func (v *DatasetDetailView) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, v)

	d := v.dataset
	props := widgets.NewPropertyTable([][2]string{
		{"dataset", d.ID},
		{"pool", d.Pool},
		{"compression", d.Compression},
		{"used", humanize.IBytes(uint64(d.Used))},
		{"available", humanize.IBytes(uint64(d.Available))},
		{"mountpoint", d.Mountpoint},
	})
	propsSurf, err := props.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 6}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, propsSurf)

	if !v.snapsOK {
		sub, err := drawPlaceholder(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}), v, "Loading snapshots...")
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, 7, sub)
		return s, nil
	}

	if len(v.snapshots) == 0 {
		sub, err := drawPlaceholder(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}), v, "No snapshots")
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, 7, sub)
		return s, nil
	}

	rows := make([][]string, 0, len(v.snapshots))
	for _, snap := range v.snapshots {
		rows = append(rows, []string{
			snap.SnapshotName,
			humanize.IBytes(uint64(snap.Used)),
			humanize.IBytes(uint64(snap.Referenced)),
		})
	}
	snaps := &widgets.Table{
		Columns: []widgets.TableColumn{
			{Width: 30},
			{Width: 10, AlignRight: true},
			{Width: 10, AlignRight: true},
		},
		Header: []string{fmt.Sprintf("SNAPSHOTS (%d)", len(rows)), "USED", "REFER"},
		Rows:    rows,
	}
	snapsSurf, err := snaps.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: ctx.Max.Height - 7}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 7, snapsSurf)

	return s, nil
}

// HandleEvent is a no-op; the app handles popping this view.
func (v *DatasetDetailView) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	return nil, nil
}
