package visualizer

import (
	"image/color"
	"testing"
)

func TestBarLayoutHeightsClipped(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	for _, r := range BarLayout(data, CanvasWidth, CanvasHeight) {
		if r.H < 0 || r.H > CanvasHeight {
			t.Fatalf("bar height %g outside [0, %d]", r.H, CanvasHeight)
		}
		if r.Y+r.H != CanvasHeight {
			t.Fatalf("bar not anchored to bottom: %+v", r)
		}
	}
}

func TestBarLayoutGeometry(t *testing.T) {
	data := make([]byte, Bins)
	data[0] = 40
	data[1] = 250
	bars := BarLayout(data, CanvasWidth, CanvasHeight)
	if len(bars) != Bins {
		t.Fatalf("bars = %d", len(bars))
	}

	want0 := Rect{X: 0, Y: 60, W: 300.0/32 - 1, H: 40}
	if bars[0] != want0 {
		t.Errorf("bar 0 = %+v, want %+v", bars[0], want0)
	}
	if bars[1].X != 300.0/32 || bars[1].H != CanvasHeight || bars[1].Y != 0 {
		t.Errorf("bar 1 = %+v", bars[1])
	}
	if bars[2].H != 0 {
		t.Errorf("silent bar has height %g", bars[2].H)
	}
	if BarLayout(nil, CanvasWidth, CanvasHeight) != nil {
		t.Error("empty data produced bars")
	}
}

func TestRasterFlushPublishesFrame(t *testing.T) {
	r := NewRaster(CanvasWidth, CanvasHeight)
	r.Clear()
	r.FillRect(Rect{X: 0, Y: 50, W: 8.375, H: 50})

	if got := r.Snapshot().RGBAAt(1, 99); got != Black {
		t.Errorf("unflushed frame visible: %v", got)
	}

	r.Flush()
	img := r.Snapshot()
	checks := []struct {
		x, y int
		want color.RGBA
	}{
		{1, 99, Lime},
		{1, 50, Lime},
		{1, 49, Black},
		{8, 60, Black}, // gutter
		{200, 99, Black},
	}
	for _, c := range checks {
		if got := img.RGBAAt(c.x, c.y); got != c.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestRasterFillRectOutOfBounds(t *testing.T) {
	r := NewRaster(10, 10)
	r.FillRect(Rect{X: -5, Y: -5, W: 100, H: 100})
	r.FillRect(Rect{X: 50, Y: 50, W: 1, H: 1})
	r.Flush()
	if got := r.Snapshot().RGBAAt(9, 9); got != Lime {
		t.Errorf("clipped fill missing: %v", got)
	}
}
