package visualizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"voxpad/audio"
	"voxpad/notify"
)

func newTestVisualizer(fake *audio.FakeContext) (*Visualizer, *Raster, *notify.Recorder, chan struct{}) {
	raster := NewRaster(CanvasWidth, CanvasHeight)
	notes := &notify.Recorder{}
	frames := make(chan struct{}, 1)
	v := New(audio.NewMicrophone(fake, nil), Options{
		Canvas:   raster,
		FPS:      200,
		Notifier: notes,
		OnFrame: func() {
			select {
			case frames <- struct{}{}:
			default:
			}
		},
	})
	return v, raster, notes, frames
}

func TestVisualizerDrawsLiveLevels(t *testing.T) {
	fake := audio.NewFakeContext(nil, 0)
	v, raster, _, frames := newTestVisualizer(fake)

	if err := v.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer v.Stop()
	if !v.Running() || fake.Live() != 1 {
		t.Fatalf("running=%v live=%d", v.Running(), fake.Live())
	}
	if err := v.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start err = %v", err)
	}

	fake.PushAll(audio.Tone(2000, 10*time.Millisecond, 0.5))

	deadline := time.After(2 * time.Second)
	for v.Levels()[8] < 100 {
		select {
		case <-frames:
		case <-deadline:
			t.Fatalf("levels never rose: %v", v.Levels())
		}
	}

	<-frames
	img := raster.Snapshot()
	// Bin 8 spans x 75..83; its bar reaches the top of the canvas.
	if got := img.RGBAAt(78, CanvasHeight-1); got != Lime {
		t.Errorf("bar pixel = %v, want lime", got)
	}
}

func TestVisualizerStopReleasesMicrophone(t *testing.T) {
	fake := audio.NewFakeContext(nil, 0)
	v, raster, _, frames := newTestVisualizer(fake)

	if err := v.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	fake.PushAll(audio.Tone(2000, 10*time.Millisecond, 0.5))
	select {
	case <-frames:
	case <-time.After(time.Second):
		t.Fatal("no frame rendered")
	}

	v.Stop()
	v.Stop()

	if fake.Live() != 0 {
		t.Errorf("live captures = %d after Stop", fake.Live())
	}
	if v.Running() {
		t.Error("still running")
	}
	for i, l := range v.Levels() {
		if l != 0 {
			t.Fatalf("level %d = %d after Stop", i, l)
		}
	}
	if got := raster.Snapshot().RGBAAt(78, CanvasHeight-1); got != Black {
		t.Errorf("canvas not blanked: %v", got)
	}

	// restartable after stop
	if err := v.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	v.Stop()
	if fake.Opened() != 2 || fake.Live() != 0 {
		t.Errorf("opened=%d live=%d", fake.Opened(), fake.Live())
	}
}

func TestVisualizerMicrophoneDenied(t *testing.T) {
	fake := audio.NewFakeContext(nil, 0)
	fake.SetDeny(errors.New("NotAllowedError"))
	v, _, notes, _ := newTestVisualizer(fake)

	err := v.Start(context.Background())
	if !errors.Is(err, audio.ErrMicrophoneDenied) {
		t.Fatalf("err = %v, want ErrMicrophoneDenied", err)
	}
	if v.Running() {
		t.Error("running after denial")
	}
	if got := notes.Messages(); len(got) != 1 {
		t.Errorf("notifications = %v, want one", got)
	}
	v.Stop()
}

func TestVisualizerCancelledAcquisition(t *testing.T) {
	fake := audio.NewFakeContext(nil, 0)
	v, _, notes, _ := newTestVisualizer(fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := v.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if len(notes.Messages()) != 0 {
		t.Error("cancellation reported as denial")
	}
}

func TestGraphClosedWhenStreamEnds(t *testing.T) {
	fake := audio.NewFakeContext(nil, 0)
	stream, err := audio.NewMicrophone(fake, nil).GetUserMedia(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	g := NewGraph(stream)

	ticks := make(chan time.Time)
	l := startLoop(context.Background(), ticks, func() {}, g.Closed, func() {})
	stream.Close()
	ticks <- time.Now()

	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("loop kept running after the stream closed")
	}
	if !g.Closed() {
		t.Error("graph not closed")
	}
	g.Close()
	if fake.Live() != 0 {
		t.Error("capture still live")
	}
}
