package widgets_test

import (
	"testing"

	"git.sr.ht/~rockorager/vaxis"
	"github.com/deevus/nasview/widgets"
)

func TestBarGauge_Draw(t *testing.T) {
	bg := &widgets.BarGauge{
		Label:    "CAP",
		Value:    42.5,
		Suffix:   "512 GiB / 1.0 TiB",
		BarWidth: 20,
	}

	ctx := testDrawContext(80, 1)
	s, err := bg.Draw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Size.Height != 1 {
		t.Errorf("expected height=1, got %d", s.Size.Height)
	}
}

func TestBarGauge_Draw_Zero(t *testing.T) {
	bg := &widgets.BarGauge{
		Label:    "CAP",
		Value:    0,
		BarWidth: 20,
	}

	ctx := testDrawContext(80, 1)
	_, err := bg.Draw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBarGauge_Draw_Full(t *testing.T) {
	bg := &widgets.BarGauge{
		Label:    "CAP",
		Value:    100,
		BarWidth: 20,
	}

	ctx := testDrawContext(80, 1)
	_, err := bg.Draw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBarGauge_Draw_ClampNegative(t *testing.T) {
	bg := &widgets.BarGauge{
		Label:    "CAP",
		Value:    -10,
		BarWidth: 20,
	}

	ctx := testDrawContext(80, 1)
	_, err := bg.Draw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBarGauge_Draw_ClampOver100(t *testing.T) {
	bg := &widgets.BarGauge{
		Label:    "CAP",
		Value:    120,
		BarWidth: 20,
	}

	ctx := testDrawContext(80, 1)
	_, err := bg.Draw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBarGauge_Draw_WithSuffix(t *testing.T) {
	bg := &widgets.BarGauge{
		Label:    "CAP",
		Value:    81.3,
		Suffix:   "13.1 GiB / 16.0 GiB",
		BarWidth: 20,
	}

	ctx := testDrawContext(80, 1)
	_, err := bg.Draw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBarGauge_Draw_NoSuffix(t *testing.T) {
	bg := &widgets.BarGauge{
		Label:    "CAP",
		Value:    25.0,
		BarWidth: 20,
	}

	ctx := testDrawContext(80, 1)
	_, err := bg.Draw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBarGauge_Draw_CapacityColors(t *testing.T) {
	tests := []struct {
		value float64
		color vaxis.Color
	}{
		{50, vaxis.IndexColor(2)},
		{85, vaxis.IndexColor(3)},
		{95, vaxis.IndexColor(1)},
	}

	for _, tc := range tests {
		bg := &widgets.BarGauge{Label: "CAP", Value: tc.value, BarWidth: 20}
		surf, err := bg.Draw(testDrawContext(80, 1))
		if err != nil {
			t.Fatalf("Draw at %.0f%%: %v", tc.value, err)
		}
		// First fill cell sits after the 4-char label, a space, and "[".
		if got := surf.Buffer[6].Style.Foreground; got != tc.color {
			t.Errorf("fill color at %.0f%%: got %v, want %v", tc.value, got, tc.color)
		}
	}
}
