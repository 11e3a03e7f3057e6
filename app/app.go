package app

import (
	"context"
	"log"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/nasview/eventbus"
	"github.com/deevus/nasview/internal"
	"github.com/deevus/nasview/nav"
	"github.com/deevus/nasview/refresh"
	"github.com/deevus/nasview/views"
	"github.com/deevus/nasview/widgets"
	"github.com/deevus/truenas-go"
)

// Section indices for the tab bar and its view stacks.
const (
	sectionPools = iota
	sectionDatasets
	sectionSnapshots
	sectionCount
)

// view is implemented by every widget hosted on a section stack.
type view interface {
	vxfw.Widget
	Load(ctx context.Context) error
	Bind(nav refresh.Navigator)
	Invalidate()
	Close()
	Controller() *refresh.Controller[views.StorageEvent, views.RefreshKey]
}

// Params holds configuration for creating an App.
type Params struct {
	Services   *internal.Services
	ServerName string
	Registry   *eventbus.Registry
	Policy     refresh.FailurePolicy
}

// App is the root vxfw widget. It owns the event-bus registry, a tab bar of
// sections, and one navigation stack per section; only the active section's
// stack is visible. Storage change events arriving from the watcher are
// republished on the bus, from where each view's refresh controller marks
// its keys stale.
type App struct {
	services   *internal.Services
	serverName string
	registry   *eventbus.Registry
	bus        *eventbus.Bus[views.StorageEvent]
	policy     refresh.FailurePolicy
	tabBar     *widgets.TabBar
	stacks     [sectionCount]*nav.Stack
	postEvent  func(vaxis.Event)
}

// New creates the root App widget connected to the given services. Each
// section's root view is pushed onto its stack and bound to its navigation
// entry; the non-active sections start covered, so their stale marks
// accumulate until the user switches to them.
func New(p Params) *App {
	registry := p.Registry
	if registry == nil {
		registry = eventbus.NewRegistry()
	}

	a := &App{
		services:   p.Services,
		serverName: p.ServerName,
		registry:   registry,
		bus:        eventbus.For[views.StorageEvent](registry),
		policy:     p.Policy,
		tabBar:     widgets.NewTabBar([]string{"Pools", "Datasets", "Snapshots"}),
	}

	pools := views.NewPoolsView(views.PoolsViewParams{
		Service:   p.Services.Datasets,
		Bus:       a.bus,
		Policy:    p.Policy,
		PostEvent: a.post,
	})
	datasets := views.NewDatasetsView(views.DatasetsViewParams{
		Service:   p.Services.Datasets,
		Bus:       a.bus,
		Policy:    p.Policy,
		PostEvent: a.post,
		OnSelect:  a.openDataset,
	})
	snapshots := views.NewSnapshotsView(views.SnapshotsViewParams{
		Service:   p.Services.Snapshots,
		Bus:       a.bus,
		Policy:    p.Policy,
		PostEvent: a.post,
	})

	for i := range a.stacks {
		a.stacks[i] = nav.NewStack()
	}
	a.push(sectionPools, pools)
	a.push(sectionDatasets, datasets)
	a.push(sectionSnapshots, snapshots)

	a.stacks[sectionDatasets].Cover()
	a.stacks[sectionSnapshots].Cover()

	return a
}

// SetPostEvent sets the function used to post events to the vaxis event
// loop. Must be called before LoadAll.
func (a *App) SetPostEvent(fn func(vaxis.Event)) {
	a.postEvent = fn
}

// post forwards ev to the vaxis event loop if a post function is wired.
func (a *App) post(ev vaxis.Event) {
	if a.postEvent != nil {
		a.postEvent(ev)
	}
}

// Bus returns the storage event bus owned by the app.
func (a *App) Bus() *eventbus.Bus[views.StorageEvent] {
	return a.bus
}

// ServerName returns the connected server profile name.
func (a *App) ServerName() string {
	return a.serverName
}

// Section returns the active section index.
func (a *App) Section() int {
	return a.tabBar.Active()
}

// StackLen returns the number of views on the given section's stack.
func (a *App) StackLen(section int) int {
	if section < 0 || section >= sectionCount {
		return 0
	}
	return a.stacks[section].Len()
}

// ActiveView returns the visible view of the active section.
func (a *App) ActiveView() vxfw.Widget {
	return a.stacks[a.tabBar.Active()].Top()
}

// push places v on the section's stack and binds its refresh controller to
// the new entry.
func (a *App) push(section int, v view) {
	entry := a.stacks[section].Push(v)
	v.Bind(entry)
}

// pop removes the top view of the active section and closes it. The root
// view of a section is never popped. Reports whether a view was popped.
func (a *App) pop() bool {
	st := a.stacks[a.tabBar.Active()]
	if st.Len() <= 1 {
		return false
	}
	w := st.Pop()
	if v, ok := w.(view); ok {
		v.Close()
	}
	return true
}

// openDataset pushes a detail view for d over the datasets list.
func (a *App) openDataset(d truenas.Dataset) {
	detail := views.NewDatasetDetailView(views.DatasetDetailViewParams{
		Dataset:   d,
		Datasets:  a.services.Datasets,
		Snapshots: a.services.Snapshots,
		Bus:       a.bus,
		Policy:    a.policy,
		PostEvent: a.post,
	})
	a.push(sectionDatasets, detail)
	a.loadAsync("detail", detail)
}

// SetSection switches to section i, covering the previous section's stack
// and revealing the new one. Revealing flushes any stale keys of the
// section's visible view.
func (a *App) SetSection(i int) {
	prev := a.tabBar.Active()
	a.tabBar.SetActive(i)
	if a.tabBar.Active() == prev {
		return
	}
	a.stacks[prev].Cover()
	a.stacks[a.tabBar.Active()].Reveal()
}

// LoadAll starts the initial load of every section's root view. Each view
// posts a ViewLoaded event when done.
func (a *App) LoadAll(ctx context.Context) {
	names := []string{"pools", "datasets", "snapshots"}
	for i, st := range a.stacks {
		if v, ok := st.Top().(view); ok {
			a.loadAsync(names[i], v)
		}
	}
}

// loadAsync runs v.Load on its own goroutine and posts a ViewLoaded event
// when it returns.
func (a *App) loadAsync(name string, v view) {
	go func() {
		err := v.Load(context.Background())
		a.post(views.ViewLoaded{Name: name, Err: err})
	}()
}

// updateBadges flags sections that have views with pending stale keys.
func (a *App) updateBadges() {
	for i, st := range a.stacks {
		badge := ""
		for _, w := range st.Widgets() {
			if v, ok := w.(view); ok && v.Controller().StaleLen() > 0 {
				badge = "*"
				break
			}
		}
		a.tabBar.SetBadge(i, badge)
	}
}

// Draw renders the tab bar and the active section's visible view.
func (a *App) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	a.updateBadges()

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, a)

	// Tab bar (1 row)
	tabCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1})
	tabSurf, err := a.tabBar.Draw(tabCtx)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, tabSurf)

	// Active view (remaining space)
	top := a.ActiveView()
	if top == nil {
		return s, nil
	}
	viewCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: ctx.Max.Height - 1})
	viewSurf, err := top.Draw(viewCtx)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 1, viewSurf)

	return s, nil
}

// CaptureEvent handles global keybindings before views process them.
func (a *App) CaptureEvent(ev vaxis.Event) (vxfw.Command, error) {
	switch ev := ev.(type) {
	case vaxis.Key:
		switch {
		case ev.Matches('q'):
			return vxfw.QuitCmd{}, nil
		case ev.Matches('r'):
			if v, ok := a.ActiveView().(view); ok {
				v.Invalidate()
			}
		case ev.Matches(vaxis.KeyEsc):
			if !a.pop() {
				return nil, nil
			}
		case ev.Matches('1'):
			a.SetSection(sectionPools)
		case ev.Matches('2'):
			a.SetSection(sectionDatasets)
		case ev.Matches('3'):
			a.SetSection(sectionSnapshots)
		case ev.Matches(vaxis.KeyTab):
			a.SetSection((a.tabBar.Active() + 1) % sectionCount)
		case ev.Matches(vaxis.KeyTab, vaxis.ModShift):
			a.SetSection((a.tabBar.Active() + sectionCount - 1) % sectionCount)
		default:
			return nil, nil
		}
		return vxfw.ConsumeAndRedraw(), nil
	}
	return nil, nil
}

// HandleEvent republishes watcher events on the bus and delegates the rest
// to the active view.
func (a *App) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	switch ev := ev.(type) {
	case views.StorageChanged:
		a.bus.Post(ev.Event, nil)
		return vxfw.RedrawCmd{}, nil
	case views.ViewLoaded:
		if ev.Err != nil {
			log.Printf("error loading %s: %v", ev.Name, ev.Err)
		}
		return vxfw.RedrawCmd{}, nil
	default:
		type handler interface {
			HandleEvent(vaxis.Event, vxfw.EventPhase) (vxfw.Command, error)
		}
		if h, ok := a.ActiveView().(handler); ok {
			return h.HandleEvent(ev, phase)
		}
	}
	return nil, nil
}
