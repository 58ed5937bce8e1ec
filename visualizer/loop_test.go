package visualizer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoopRunsFramesUntilStopped(t *testing.T) {
	ticks := make(chan time.Time)
	var frames atomic.Int32
	var released atomic.Bool
	l := startLoop(context.Background(), ticks, func() { released.Store(true) },
		func() bool { return false },
		func() { frames.Add(1) })

	for range 3 {
		ticks <- time.Now()
	}
	l.Stop()

	// The third frame may still be running when the tick is accepted, so
	// only check once the loop has exited.
	if n := frames.Load(); n < 2 || n > 3 {
		t.Errorf("frames = %d", n)
	}
	if !released.Load() {
		t.Error("ticker not released")
	}

	select {
	case ticks <- time.Now():
		t.Error("loop still consuming ticks after Stop")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestLoopGuardEndsLoop(t *testing.T) {
	ticks := make(chan time.Time)
	drawn := make(chan struct{}, 4)
	var closed atomic.Bool
	l := startLoop(context.Background(), ticks, func() {}, closed.Load, func() { drawn <- struct{}{} })

	ticks <- time.Now()
	<-drawn
	closed.Store(true)
	ticks <- time.Now()

	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit when guard tripped")
	}
	if len(drawn) != 0 {
		t.Error("frame drawn after guard tripped")
	}
	l.Stop()
}

func TestLoopContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := StartLoop(ctx, 1000, func() bool { return false }, func() {})
	cancel()
	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("loop ignored context cancellation")
	}
}
