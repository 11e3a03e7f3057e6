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
	"github.com/deevus/nasview/widgets"
	"github.com/deevus/truenas-go"
	"github.com/dustin/go-humanize"
)

// PoolsViewParams holds configuration for creating a PoolsView.
type PoolsViewParams struct {
	Service   truenas.DatasetServiceAPI
	Bus       *eventbus.Bus[StorageEvent]
	Policy    refresh.FailurePolicy
	PostEvent func(vaxis.Event)
}

// PoolsView displays a list of TrueNAS storage pools with a capacity gauge
// for the selected pool. The pool list goes stale on PoolsChanged and is
// reloaded when the view is next visible.
type PoolsView struct {
	service   truenas.DatasetServiceAPI
	ctrl      *refresh.Controller[StorageEvent, RefreshKey]
	pools     []truenas.Pool
	list      list.Dynamic
	gauge     widgets.BarGauge
	loaded    bool
	postEvent func(vaxis.Event)
}

// NewPoolsView creates a PoolsView backed by the given params.
func NewPoolsView(p PoolsViewParams) *PoolsView {
	pv := &PoolsView{
		service:   p.Service,
		postEvent: p.PostEvent,
	}
	pv.list.DrawCursor = true
	pv.list.Builder = pv.buildItem
	pv.gauge.Label = "CAP"
	pv.gauge.BarWidth = 30

	pv.ctrl = refresh.New(refresh.Params[StorageEvent, RefreshKey]{
		Bus:         p.Bus,
		StaleEvents: map[StorageEvent][]RefreshKey{PoolsChanged: {KeyPools}},
		Policy:      p.Policy,
	})
	pv.ctrl.RegisterRefresher(KeyPools, pv.reload)
	return pv
}

// Load fetches pools from the service.
func (pv *PoolsView) Load(ctx context.Context) error {
	pools, err := pv.service.ListPools(ctx)
	if err != nil {
		return err
	}
	pv.pools = pools
	pv.loaded = true
	return nil
}

// reload is the refresher for KeyPools. It reloads in the background and
// posts a ViewLoaded event when done.
func (pv *PoolsView) reload() {
	go func() {
		err := pv.Load(context.Background())
		if pv.postEvent != nil {
			pv.postEvent(ViewLoaded{Name: "pools", Err: err})
		}
	}()
}

// Bind attaches the view's refresh controller to its navigation entry.
func (pv *PoolsView) Bind(nav refresh.Navigator) {
	pv.ctrl.BindNavigator(nav)
}

// Close releases the view's bus and navigation subscriptions.
func (pv *PoolsView) Close() {
	pv.ctrl.Close()
}

// Invalidate marks all of the view's refresh keys stale.
func (pv *PoolsView) Invalidate() {
	pv.ctrl.MarkStaleAll([]RefreshKey{KeyPools})
}

// Controller returns the view's refresh controller.
func (pv *PoolsView) Controller() *refresh.Controller[StorageEvent, RefreshKey] {
	return pv.ctrl
}

// Loaded reports whether data has been successfully fetched.
func (pv *PoolsView) Loaded() bool {
	return pv.loaded
}

// Pools returns the currently loaded pools.
func (pv *PoolsView) Pools() []truenas.Pool {
	return pv.pools
}

// ItemCount returns the number of loaded pools.
func (pv *PoolsView) ItemCount() int {
	return len(pv.pools)
}

// SelectedPool returns the pool under the cursor, or nil if empty.
func (pv *PoolsView) SelectedPool() *truenas.Pool {
	idx := int(pv.list.Cursor())
	if idx >= len(pv.pools) {
		return nil
	}
	return &pv.pools[idx]
}

func (pv *PoolsView) buildItem(i uint, cursor uint) vxfw.Widget {
	if int(i) >= len(pv.pools) {
		return nil
	}
	p := pv.pools[i]

	statusStyle := vaxis.Style{Foreground: vaxis.IndexColor(2)} // green
	if p.Status != "ONLINE" {
		statusStyle.Foreground = vaxis.IndexColor(1) // red
	}

	return richtext.New([]vaxis.Segment{
		{Text: fmt.Sprintf("%-20s", p.Name)},
		{Text: fmt.Sprintf("%-10s", p.Status), Style: statusStyle},
		{Text: fmt.Sprintf("%10s", humanize.IBytes(uint64(p.Size)))},
		{Text: fmt.Sprintf("%10s", humanize.IBytes(uint64(p.Allocated)))},
		{Text: fmt.Sprintf("%10s", humanize.IBytes(uint64(p.Free)))},
	})
}

// Draw renders the pools list with a capacity gauge for the selected pool,
// or a placeholder if data hasn't arrived.
func (pv *PoolsView) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	if !pv.loaded {
		return drawPlaceholder(ctx, pv, "Loading pools...")
	}

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, pv)

	// Header row
	header := richtext.New([]vaxis.Segment{
		{Text: fmt.Sprintf("%-20s%-10s%10s%10s%10s", "NAME", "STATUS", "SIZE", "ALLOC", "FREE"),
			Style: vaxis.Style{Attribute: vaxis.AttrBold}},
	})
	headerSurf, err := header.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, headerSurf)

	// List, leaving the bottom row for the gauge
	listCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: ctx.Max.Height - 2})
	listSurf, err := pv.list.Draw(listCtx)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 1, listSurf)

	// Capacity gauge for the selected pool
	if p := pv.SelectedPool(); p != nil && p.Size > 0 {
		pv.gauge.Value = float64(p.Allocated) / float64(p.Size) * 100
		pv.gauge.Suffix = fmt.Sprintf("%s / %s",
			humanize.IBytes(uint64(p.Allocated)), humanize.IBytes(uint64(p.Size)))
		gaugeSurf, err := pv.gauge.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, int(ctx.Max.Height)-1, gaugeSurf)
	}

	return s, nil
}

// HandleEvent delegates to the list widget for navigation.
func (pv *PoolsView) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	return pv.list.HandleEvent(ev, phase)
}
