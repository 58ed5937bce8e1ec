package visualizer

import (
	"context"
	"time"
)

const DefaultFPS = 60

// Loop runs a frame function on a fixed cadence until it is stopped or its
// guard returns true (the audio graph is gone). The guard is checked before
// every frame.
type Loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func StartLoop(ctx context.Context, fps int, guard func() bool, frame func()) *Loop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	return startLoop(ctx, ticker.C, ticker.Stop, guard, frame)
}

func startLoop(ctx context.Context, ticks <-chan time.Time, release func(), guard func() bool, frame func()) *Loop {
	ctx, cancel := context.WithCancel(ctx)
	l := &Loop{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		defer release()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
			}
			if ctx.Err() != nil || guard() {
				return
			}
			frame()
		}
	}()
	return l
}

// Stop cancels the loop and waits for the in-flight frame to finish. It must
// not be called from inside the frame function.
func (l *Loop) Stop() {
	l.cancel()
	<-l.done
}
