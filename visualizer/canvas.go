package visualizer

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
)

const (
	CanvasWidth  = 300
	CanvasHeight = 100
)

var (
	Lime  = color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff}
	Black = color.RGBA{A: 0xff}
)

// Rect is a fill rectangle in canvas pixels, origin top-left.
type Rect struct {
	X, Y, W, H float64
}

// BarLayout returns one bottom-anchored bar per magnitude. Heights map 1:1
// to pixels and are clipped to the canvas height; each bar leaves a one
// pixel gutter on its right.
func BarLayout(data []byte, width, height int) []Rect {
	if len(data) == 0 {
		return nil
	}
	barWidth := float64(width) / float64(len(data))
	bars := make([]Rect, len(data))
	for i, v := range data {
		h := math.Min(float64(v), float64(height))
		bars[i] = Rect{
			X: float64(i) * barWidth,
			Y: float64(height) - h,
			W: math.Max(barWidth-1, 0),
			H: h,
		}
	}
	return bars
}

// Canvas receives one frame at a time: Clear, any number of FillRect, Flush.
type Canvas interface {
	Size() (width, height int)
	Clear()
	FillRect(r Rect)
	Flush()
}

// Raster is a double-buffered RGBA canvas. Drawing goes to a back buffer;
// Flush publishes it so readers never observe a half-drawn frame.
type Raster struct {
	fill color.RGBA
	bg   color.RGBA

	back *image.RGBA

	mu    sync.RWMutex
	front *image.RGBA
}

func NewRaster(width, height int) *Raster {
	r := &Raster{
		fill:  Lime,
		bg:    Black,
		back:  image.NewRGBA(image.Rect(0, 0, width, height)),
		front: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
	r.Clear()
	r.Flush()
	return r
}

func (r *Raster) Size() (int, int) {
	b := r.back.Bounds()
	return b.Dx(), b.Dy()
}

func (r *Raster) Clear() {
	draw.Draw(r.back, r.back.Bounds(), image.NewUniform(r.bg), image.Point{}, draw.Src)
}

func (r *Raster) FillRect(rect Rect) {
	px := image.Rect(
		int(math.Round(rect.X)),
		int(math.Round(rect.Y)),
		int(math.Round(rect.X+rect.W)),
		int(math.Round(rect.Y+rect.H)),
	).Intersect(r.back.Bounds())
	if px.Empty() {
		return
	}
	draw.Draw(r.back, px, image.NewUniform(r.fill), image.Point{}, draw.Src)
}

func (r *Raster) Flush() {
	r.mu.Lock()
	copy(r.front.Pix, r.back.Pix)
	r.mu.Unlock()
}

// Snapshot returns a copy of the last flushed frame.
func (r *Raster) Snapshot() *image.RGBA {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img := image.NewRGBA(r.front.Bounds())
	copy(img.Pix, r.front.Pix)
	return img
}
