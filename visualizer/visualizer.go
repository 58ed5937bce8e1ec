package visualizer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voxpad/audio"
	"voxpad/log"
	"voxpad/notify"
)

var ErrAlreadyRunning = errors.New("visualizer already running")

type Options struct {
	Canvas   Canvas
	FPS      int
	Notifier notify.Notifier
	// OnFrame runs on the loop goroutine after each flushed frame. It must
	// not call Stop.
	OnFrame func()
}

// Visualizer draws live microphone levels as bars on a canvas.
type Visualizer struct {
	mic  *audio.Microphone
	opts Options

	mu     sync.Mutex
	graph  *Graph
	loop   *Loop
	levels []byte
}

func New(mic *audio.Microphone, opts Options) *Visualizer {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Canvas == nil {
		opts.Canvas = NewRaster(CanvasWidth, CanvasHeight)
	}
	return &Visualizer{mic: mic, opts: opts, levels: make([]byte, Bins)}
}

func (v *Visualizer) Canvas() Canvas { return v.opts.Canvas }

func (v *Visualizer) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loop != nil
}

// Levels returns the magnitudes drawn in the most recent frame.
func (v *Visualizer) Levels() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.levels...)
}

// Start acquires the microphone, builds the analysis graph and starts the
// render loop. A refused microphone is logged and notified once; it is not
// retried.
func (v *Visualizer) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loop != nil {
		return ErrAlreadyRunning
	}

	stream, err := v.mic.GetUserMedia(ctx)
	if err != nil {
		if errors.Is(err, audio.ErrMicrophoneDenied) {
			log.MicrophoneDenied(err)
			v.opts.Notifier.Notify("Microphone access denied.")
		}
		return fmt.Errorf("visualizer: %w", err)
	}

	g := NewGraph(stream)
	data := make([]byte, Bins)
	v.graph = g
	// The loop outlives ctx, which only bounds acquisition.
	v.loop = StartLoop(context.Background(), v.opts.FPS, g.Closed, func() { v.frame(g, data) })
	log.Info(fmt.Sprintf("visualizer started on %s", g.DeviceName()))
	return nil
}

func (v *Visualizer) frame(g *Graph, data []byte) {
	g.Analyser().ByteFrequencyData(data)

	c := v.opts.Canvas
	w, h := c.Size()
	c.Clear()
	for _, r := range BarLayout(data, w, h) {
		c.FillRect(r)
	}
	c.Flush()

	v.mu.Lock()
	copy(v.levels, data)
	v.mu.Unlock()

	if v.opts.OnFrame != nil {
		v.opts.OnFrame()
	}
}

// Stop halts the render loop, waits for it to exit, then closes the graph
// and blanks the canvas. Safe to call when not running.
func (v *Visualizer) Stop() {
	v.mu.Lock()
	loop, g := v.loop, v.graph
	v.loop, v.graph = nil, nil
	v.mu.Unlock()

	if loop == nil {
		return
	}
	loop.Stop()
	g.Close()

	v.mu.Lock()
	clear(v.levels)
	v.mu.Unlock()
	v.opts.Canvas.Clear()
	v.opts.Canvas.Flush()
}
