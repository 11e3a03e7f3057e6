package internal

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"github.com/deevus/nasview/views"
	"github.com/deevus/truenas-go"
	"golang.org/x/sync/errgroup"
)

// WatcherParams holds configuration for creating a Watcher.
type WatcherParams struct {
	Services  *Services
	Interval  time.Duration
	PostEvent func(vaxis.Event)
}

// Watcher polls the server for storage changes and posts a StorageChanged
// vaxis event when a poll differs from the previous one. The UI loop
// republishes those on the event bus; the watcher itself never touches the
// bus, keeping bus access on the event loop.
type Watcher struct {
	services  *Services
	interval  time.Duration
	postEvent func(vaxis.Event)
	prev      map[views.StorageEvent]string
}

// NewWatcher creates a Watcher. Interval defaults to 30s when zero.
func NewWatcher(p WatcherParams) *Watcher {
	interval := p.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		services:  p.Services,
		interval:  interval,
		postEvent: p.PostEvent,
		prev:      make(map[views.StorageEvent]string),
	}
}

// Run polls at the configured interval until ctx is cancelled. It is meant
// to be run on its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll fetches pools, datasets and snapshots in parallel, compares each
// against the previous poll, and posts a StorageChanged event per category
// that differs. The first poll only seeds the comparison state.
func (w *Watcher) Poll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)

	var poolsFP, datasetsFP, snapshotsFP string

	g.Go(func() error {
		pools, err := w.services.Datasets.ListPools(gctx)
		if err != nil {
			return fmt.Errorf("pool.query: %w", err)
		}
		poolsFP = fingerprintPools(pools)
		return nil
	})

	g.Go(func() error {
		datasets, err := w.services.Datasets.ListDatasets(gctx)
		if err != nil {
			return fmt.Errorf("pool.dataset.query: %w", err)
		}
		datasetsFP = fingerprintDatasets(datasets)
		return nil
	})

	g.Go(func() error {
		snapshots, err := w.services.Snapshots.List(gctx)
		if err != nil {
			return fmt.Errorf("zfs.snapshot.query: %w", err)
		}
		snapshotsFP = fingerprintSnapshots(snapshots)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("watcher: poll failed: %v", err)
		return
	}

	w.compare(views.PoolsChanged, poolsFP)
	w.compare(views.DatasetsChanged, datasetsFP)
	w.compare(views.SnapshotsChanged, snapshotsFP)
}

func (w *Watcher) compare(ev views.StorageEvent, fp string) {
	prev, seen := w.prev[ev]
	w.prev[ev] = fp
	if seen && prev != fp && w.postEvent != nil {
		w.postEvent(views.StorageChanged{Event: ev})
	}
}

func fingerprintPools(pools []truenas.Pool) string {
	var b strings.Builder
	for _, p := range pools {
		fmt.Fprintf(&b, "%d:%s:%s:%d:%d;", p.ID, p.Name, p.Status, p.Size, p.Allocated)
	}
	return b.String()
}

func fingerprintDatasets(datasets []truenas.Dataset) string {
	var b strings.Builder
	for _, d := range datasets {
		fmt.Fprintf(&b, "%s:%s:%d:%d;", d.ID, d.Compression, d.Used, d.Available)
	}
	return b.String()
}

func fingerprintSnapshots(snapshots []truenas.Snapshot) string {
	var b strings.Builder
	for _, s := range snapshots {
		fmt.Fprintf(&b, "%s:%t;", s.ID, s.HasHold)
	}
	return b.String()
}
