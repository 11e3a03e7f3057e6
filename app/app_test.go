package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/nasview/app"
	"github.com/deevus/nasview/internal"
	"github.com/deevus/nasview/views"
	"github.com/deevus/truenas-go"
)

func testDrawContext(w, h uint16) vxfw.DrawContext {
	return vxfw.DrawContext{
		Max: vxfw.Size{Width: w, Height: h},
		Min: vxfw.Size{},
		Characters: func(s string) []vaxis.Character {
			chars := make([]vaxis.Character, 0, len(s))
			for _, r := range s {
				chars = append(chars, vaxis.Character{Grapheme: string(r), Width: 1})
			}
			return chars
		},
	}
}

func newTestServices() *internal.Services {
	return internal.NewServices(
		&truenas.MockDatasetService{},
		&truenas.MockSnapshotService{},
	)
}

func newTestServicesWithData() *internal.Services {
	return internal.NewServices(
		&truenas.MockDatasetService{
			ListPoolsFunc: func(ctx context.Context) ([]truenas.Pool, error) {
				return []truenas.Pool{
					{ID: 1, Name: "tank", Status: "ONLINE", Size: 1099511627776},
				}, nil
			},
			ListDatasetsFunc: func(ctx context.Context) ([]truenas.Dataset, error) {
				return []truenas.Dataset{
					{ID: "tank/data", Name: "data", Pool: "tank", Compression: "lz4"},
				}, nil
			},
		},
		&truenas.MockSnapshotService{
			ListFunc: func(ctx context.Context) ([]truenas.Snapshot, error) {
				return []truenas.Snapshot{
					{ID: "tank/data@snap1", Dataset: "tank/data", SnapshotName: "snap1"},
				}, nil
			},
		},
	)
}

func newApp(svc *internal.Services) *app.App {
	return app.New(app.Params{Services: svc, ServerName: "test-server"})
}

// loadCollector wires the app's post function to a channel of ViewLoaded
// events so tests can wait for the async load goroutines.
func loadCollector(a *app.App) <-chan views.ViewLoaded {
	ch := make(chan views.ViewLoaded, 16)
	a.SetPostEvent(func(ev vaxis.Event) {
		if vl, ok := ev.(views.ViewLoaded); ok {
			ch <- vl
		}
	})
	return ch
}

func waitLoaded(t *testing.T, ch <-chan views.ViewLoaded) views.ViewLoaded {
	t.Helper()
	select {
	case vl := <-ch:
		return vl
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ViewLoaded")
		return views.ViewLoaded{}
	}
}

func TestApp_New(t *testing.T) {
	a := newApp(newTestServices())
	if a == nil {
		t.Fatal("expected non-nil app")
	}
	for i := 0; i < 3; i++ {
		if a.StackLen(i) != 1 {
			t.Errorf("expected section %d stack len 1, got %d", i, a.StackLen(i))
		}
	}
}

func TestApp_Section(t *testing.T) {
	a := newApp(newTestServices())
	if a.Section() != 0 {
		t.Errorf("expected initial section 0, got %d", a.Section())
	}
}

func TestApp_SetSection(t *testing.T) {
	a := newApp(newTestServices())
	a.SetSection(1)
	if a.Section() != 1 {
		t.Errorf("expected section 1, got %d", a.Section())
	}
	a.SetSection(2)
	if a.Section() != 2 {
		t.Errorf("expected section 2, got %d", a.Section())
	}
}

func TestApp_ServerName(t *testing.T) {
	a := app.New(app.Params{Services: newTestServices(), ServerName: "home"})
	if a.ServerName() != "home" {
		t.Errorf("expected server name home, got %s", a.ServerName())
	}
}

func TestApp_LoadAll(t *testing.T) {
	a := newApp(newTestServicesWithData())
	ch := loadCollector(a)

	a.LoadAll(context.Background())

	names := map[string]bool{}
	for i := 0; i < 3; i++ {
		vl := waitLoaded(t, ch)
		if vl.Err != nil {
			t.Errorf("view %s had unexpected error: %v", vl.Name, vl.Err)
		}
		names[vl.Name] = true
	}
	for _, name := range []string{"pools", "datasets", "snapshots"} {
		if !names[name] {
			t.Errorf("missing ViewLoaded event for %s", name)
		}
	}
}

func TestApp_LoadAll_WithErrors(t *testing.T) {
	svc := internal.NewServices(
		&truenas.MockDatasetService{
			ListPoolsFunc: func(ctx context.Context) ([]truenas.Pool, error) {
				return nil, context.DeadlineExceeded
			},
		},
		&truenas.MockSnapshotService{
			ListFunc: func(ctx context.Context) ([]truenas.Snapshot, error) {
				return nil, context.Canceled
			},
		},
	)
	a := newApp(svc)
	ch := loadCollector(a)

	a.LoadAll(context.Background())

	errCount := 0
	for i := 0; i < 3; i++ {
		if vl := waitLoaded(t, ch); vl.Err != nil {
			errCount++
		}
	}
	if errCount != 2 {
		t.Errorf("expected 2 load errors, got %d", errCount)
	}
}

func TestApp_Draw(t *testing.T) {
	a := newApp(newTestServicesWithData())

	s, err := a.Draw(testDrawContext(80, 24))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Size.Width != 80 {
		t.Errorf("expected surface width=80, got %d", s.Size.Width)
	}
	if s.Size.Height != 24 {
		t.Errorf("expected surface height=24, got %d", s.Size.Height)
	}
}

func TestApp_Draw_AllSections(t *testing.T) {
	a := newApp(newTestServicesWithData())

	for i := 0; i < 3; i++ {
		a.SetSection(i)
		if _, err := a.Draw(testDrawContext(80, 24)); err != nil {
			t.Fatalf("unexpected error drawing section %d: %v", i, err)
		}
	}
}

func TestApp_CaptureEvent_Quit(t *testing.T) {
	a := newApp(newTestServices())

	cmd, err := a.CaptureEvent(vaxis.Key{Keycode: 'q'})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cmd.(vxfw.QuitCmd); !ok {
		t.Errorf("expected QuitCmd, got %T", cmd)
	}
}

func TestApp_CaptureEvent_NumberKeys(t *testing.T) {
	a := newApp(newTestServices())

	tests := []struct {
		key      rune
		expected int
	}{
		{'2', 1},
		{'3', 2},
		{'1', 0},
	}

	for _, tc := range tests {
		cmd, err := a.CaptureEvent(vaxis.Key{Keycode: tc.key})
		if err != nil {
			t.Fatalf("unexpected error for key '%c': %v", tc.key, err)
		}
		if cmd == nil {
			t.Fatalf("expected non-nil command for key '%c'", tc.key)
		}
		if a.Section() != tc.expected {
			t.Errorf("key '%c': expected section %d, got %d", tc.key, tc.expected, a.Section())
		}
	}
}

func TestApp_CaptureEvent_Tab(t *testing.T) {
	a := newApp(newTestServices())

	cmd, err := a.CaptureEvent(vaxis.Key{Keycode: vaxis.KeyTab})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd == nil {
		t.Fatal("expected non-nil command for Tab key")
	}
	if a.Section() != 1 {
		t.Errorf("expected section 1 after Tab, got %d", a.Section())
	}
}

func TestApp_CaptureEvent_ShiftTab(t *testing.T) {
	a := newApp(newTestServices())

	cmd, err := a.CaptureEvent(vaxis.Key{Keycode: vaxis.KeyTab, Modifiers: vaxis.ModShift})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd == nil {
		t.Fatal("expected non-nil command for Shift+Tab")
	}
	if a.Section() != 2 {
		t.Errorf("expected section 2 after Shift+Tab, got %d", a.Section())
	}
}

func TestApp_CaptureEvent_UnhandledKey(t *testing.T) {
	a := newApp(newTestServices())

	cmd, err := a.CaptureEvent(vaxis.Key{Keycode: 'x'})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != nil {
		t.Errorf("expected nil command for unhandled key, got %T", cmd)
	}
}

func TestApp_CaptureEvent_NonKeyEvent(t *testing.T) {
	a := newApp(newTestServices())

	cmd, err := a.CaptureEvent(vaxis.Redraw{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != nil {
		t.Errorf("expected nil command for non-key event, got %T", cmd)
	}
}

func TestApp_CaptureEvent_EscAtRoot(t *testing.T) {
	a := newApp(newTestServices())

	cmd, err := a.CaptureEvent(vaxis.Key{Keycode: vaxis.KeyEsc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != nil {
		t.Errorf("expected nil command when nothing to pop, got %T", cmd)
	}
	if a.StackLen(0) != 1 {
		t.Error("root view must not be popped")
	}
}

func TestApp_CaptureEvent_Refresh(t *testing.T) {
	a := newApp(newTestServicesWithData())
	ch := loadCollector(a)

	cmd, err := a.CaptureEvent(vaxis.Key{Keycode: 'r'})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd == nil {
		t.Fatal("expected non-nil command for 'r' key")
	}
	if vl := waitLoaded(t, ch); vl.Name != "pools" {
		t.Errorf("expected pools reload, got %s", vl.Name)
	}
}

func TestApp_HandleEvent_StorageChanged_ActiveSection(t *testing.T) {
	a := newApp(newTestServicesWithData())
	ch := loadCollector(a)

	cmd, err := a.HandleEvent(views.StorageChanged{Event: views.PoolsChanged}, vxfw.EventPhase(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cmd.(vxfw.RedrawCmd); !ok {
		t.Errorf("expected RedrawCmd, got %T", cmd)
	}

	// Pools is the active section, so the change refreshes immediately.
	if vl := waitLoaded(t, ch); vl.Name != "pools" {
		t.Errorf("expected pools reload, got %s", vl.Name)
	}
}

func TestApp_HandleEvent_StorageChanged_CoveredSection(t *testing.T) {
	a := newApp(newTestServicesWithData())
	ch := loadCollector(a)

	// Datasets is covered, so the change only marks it stale.
	_, err := a.HandleEvent(views.StorageChanged{Event: views.DatasetsChanged}, vxfw.EventPhase(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case vl := <-ch:
		t.Fatalf("unexpected reload of %s while covered", vl.Name)
	case <-time.After(50 * time.Millisecond):
	}

	// Switching to datasets reveals it and flushes the stale key.
	a.SetSection(1)
	if vl := waitLoaded(t, ch); vl.Name != "datasets" {
		t.Errorf("expected datasets reload on reveal, got %s", vl.Name)
	}
}

func TestApp_SectionSwitch_NoReloadWhenFresh(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	svc := internal.NewServices(
		&truenas.MockDatasetService{
			ListDatasetsFunc: func(ctx context.Context) ([]truenas.Dataset, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return nil, nil
			},
		},
		&truenas.MockSnapshotService{},
	)
	a := newApp(svc)

	a.SetSection(1)
	a.SetSection(0)
	a.SetSection(1)

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("expected no reloads without stale marks, got %d", calls)
	}
}

func TestApp_HandleEvent_ViewLoaded(t *testing.T) {
	a := newApp(newTestServices())

	cmd, err := a.HandleEvent(views.ViewLoaded{Name: "pools"}, vxfw.EventPhase(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cmd.(vxfw.RedrawCmd); !ok {
		t.Errorf("expected RedrawCmd, got %T", cmd)
	}
}

func TestApp_HandleEvent_ViewLoaded_WithError(t *testing.T) {
	a := newApp(newTestServices())

	cmd, err := a.HandleEvent(views.ViewLoaded{Name: "datasets", Err: context.DeadlineExceeded}, vxfw.EventPhase(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cmd.(vxfw.RedrawCmd); !ok {
		t.Errorf("expected RedrawCmd even on load error, got %T", cmd)
	}
}

func TestApp_HandleEvent_DelegatesToActiveView(t *testing.T) {
	a := newApp(newTestServicesWithData())

	_, err := a.HandleEvent(vaxis.Key{Keycode: 'j'}, vxfw.EventPhase(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApp_OpenDataset_PushesDetail(t *testing.T) {
	a := newApp(newTestServicesWithData())
	ch := loadCollector(a)

	a.LoadAll(context.Background())
	for i := 0; i < 3; i++ {
		waitLoaded(t, ch)
	}

	a.SetSection(1)
	cmd, err := a.HandleEvent(vaxis.Key{Keycode: vaxis.KeyEnter}, vxfw.EventPhase(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd == nil {
		t.Fatal("expected command from dataset selection")
	}
	if a.StackLen(1) != 2 {
		t.Fatalf("expected detail view pushed, stack len %d", a.StackLen(1))
	}
	if vl := waitLoaded(t, ch); vl.Name != "detail" {
		t.Errorf("expected detail load, got %s", vl.Name)
	}

	// Esc pops back to the list.
	cmd, err = a.CaptureEvent(vaxis.Key{Keycode: vaxis.KeyEsc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd == nil {
		t.Fatal("expected command for Esc with detail pushed")
	}
	if a.StackLen(1) != 1 {
		t.Errorf("expected detail view popped, stack len %d", a.StackLen(1))
	}
}

func TestApp_PoppedView_ReleasesBus(t *testing.T) {
	a := newApp(newTestServicesWithData())
	ch := loadCollector(a)

	a.LoadAll(context.Background())
	for i := 0; i < 3; i++ {
		waitLoaded(t, ch)
	}

	a.SetSection(1)
	before := a.Bus().Len()
	_, _ = a.HandleEvent(vaxis.Key{Keycode: vaxis.KeyEnter}, vxfw.EventPhase(0))
	waitLoaded(t, ch)
	if a.Bus().Len() <= before {
		t.Fatal("expected detail view to subscribe on push")
	}
	_, _ = a.CaptureEvent(vaxis.Key{Keycode: vaxis.KeyEsc})
	if a.Bus().Len() != before {
		t.Errorf("expected popped view to unsubscribe, bus len %d want %d", a.Bus().Len(), before)
	}
}
