package views

import (
	"context"
	"fmt"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"git.sr.ht/~rockorager/vaxis/vxfw/list"
	"git.sr.ht/~rockorager/vaxis/vxfw/richtext"
	"github.com/deevus/nasview/eventbus"
	"github.com/deevus/nasview/refresh"
	"github.com/deevus/truenas-go"
	"github.com/dustin/go-humanize"
)

// DatasetsViewParams holds configuration for creating a DatasetsView.
type DatasetsViewParams struct {
	Service   truenas.DatasetServiceAPI
	Bus       *eventbus.Bus[StorageEvent]
	Policy    refresh.FailurePolicy
	PostEvent func(vaxis.Event)
	// OnSelect is called when the user presses Enter on a dataset. The app
	// uses it to push a detail view over this one.
	OnSelect func(truenas.Dataset)
}

// DatasetsView displays a list of TrueNAS datasets. The dataset list goes
// stale on DatasetsChanged and is reloaded when the view is next visible.
type DatasetsView struct {
	service   truenas.DatasetServiceAPI
	ctrl      *refresh.Controller[StorageEvent, RefreshKey]
	datasets  []truenas.Dataset
	list      list.Dynamic
	loaded    bool
	postEvent func(vaxis.Event)
	onSelect  func(truenas.Dataset)
}

// NewDatasetsView creates a DatasetsView backed by the given params.
func NewDatasetsView(p DatasetsViewParams) *DatasetsView {
	dv := &DatasetsView{
		service:   p.Service,
		postEvent: p.PostEvent,
		onSelect:  p.OnSelect,
	}
	dv.list.DrawCursor = true
	dv.list.Builder = dv.buildItem

	dv.ctrl = refresh.New(refresh.Params[StorageEvent, RefreshKey]{
		Bus:         p.Bus,
		StaleEvents: map[StorageEvent][]RefreshKey{DatasetsChanged: {KeyDatasets}},
		Policy:      p.Policy,
	})
	dv.ctrl.RegisterRefresher(KeyDatasets, dv.reload)
	return dv
}

// Load fetches datasets from the service.
func (dv *DatasetsView) Load(ctx context.Context) error {
	datasets, err := dv.service.ListDatasets(ctx)
	if err != nil {
		return err
	}
	dv.datasets = datasets
	dv.loaded = true
	return nil
}

// reload is the refresher for KeyDatasets. It reloads in the background and
// posts a ViewLoaded event when done.
func (dv *DatasetsView) reload() {
	go func() {
		err := dv.Load(context.Background())
		if dv.postEvent != nil {
			dv.postEvent(ViewLoaded{Name: "datasets", Err: err})
		}
	}()
}

// Bind attaches the view's refresh controller to its navigation entry.
func (dv *DatasetsView) Bind(nav refresh.Navigator) {
	dv.ctrl.BindNavigator(nav)
}

// Close releases the view's bus and navigation subscriptions.
func (dv *DatasetsView) Close() {
	dv.ctrl.Close()
}

// Invalidate marks all of the view's refresh keys stale.
func (dv *DatasetsView) Invalidate() {
	dv.ctrl.MarkStaleAll([]RefreshKey{KeyDatasets})
}

// Controller returns the view's refresh controller.
func (dv *DatasetsView) Controller() *refresh.Controller[StorageEvent, RefreshKey] {
	return dv.ctrl
}

// Loaded reports whether data has been successfully fetched.
func (dv *DatasetsView) Loaded() bool {
	return dv.loaded
}

// Datasets returns the currently loaded datasets.
func (dv *DatasetsView) Datasets() []truenas.Dataset {
	return dv.datasets
}

// ItemCount returns the number of loaded datasets.
func (dv *DatasetsView) ItemCount() int {
	return len(dv.datasets)
}

// SelectedDataset returns the dataset under the cursor, or nil if empty.
func (dv *DatasetsView) SelectedDataset() *truenas.Dataset {
	idx := int(dv.list.Cursor())
	if idx >= len(dv.datasets) {
		return nil
	}
	return &dv.datasets[idx]
}

func (dv *DatasetsView) buildItem(i uint, cursor uint) vxfw.Widget {
	if int(i) >= len(dv.datasets) {
		return nil
	}
	d := dv.datasets[i]

	return richtext.New([]vaxis.Segment{
		{Text: fmt.Sprintf("%-30s", d.ID)},
		{Text: fmt.Sprintf("%-10s", d.Compression)},
		{Text: fmt.Sprintf("%10s", humanize.IBytes(uint64(d.Used)))},
		{Text: fmt.Sprintf("%10s", humanize.IBytes(uint64(d.Available)))},
		{Text: fmt.Sprintf("  %s", d.Mountpoint)},
	})
}

// Draw renders the datasets list, or a placeholder if data hasn't arrived.
func (dv *DatasetsView) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	if !dv.loaded {
		return drawPlaceholder(ctx, dv, "Loading datasets...")
	}

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, dv)

	header := richtext.New([]vaxis.Segment{
		{Text: fmt.Sprintf("%-30s%-10s%10s%10s  %s", "NAME", "COMPRESS", "USED", "AVAIL", "MOUNTPOINT"),
			Style: vaxis.Style{Attribute: vaxis.AttrBold}},
	})
	headerSurf, err := header.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, headerSurf)

	listCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: ctx.Max.Height - 1})
	listSurf, err := dv.list.Draw(listCtx)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 1, listSurf)

	return s, nil
}

// HandleEvent opens the selected dataset on Enter, otherwise delegates to
// the list widget for navigation.
func (dv *DatasetsView) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	if key, ok := ev.(vaxis.Key); ok && key.Matches(vaxis.KeyEnter) {
		if d := dv.SelectedDataset(); d != nil && dv.onSelect != nil {
			dv.onSelect(*d)
			return vxfw.ConsumeAndRedraw(), nil
		}
		return nil, nil
	}
	return dv.list.HandleEvent(ev, phase)
}
