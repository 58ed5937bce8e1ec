package hotkey

import (
	"sync"
	"time"
)

// Gestures turns hotkey presses into toggle requests. A tap toggles. When a
// press starts a session and the key is held past the hold threshold, the
// release toggles again, so holding the chord works as push-to-talk. A
// press whose start failed gets no release toggle.
type Gestures struct {
	toggles chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewGestures watches hk. listening reports whether a session is active at
// the moment of a press. A hold of zero disables push-to-talk.
func NewGestures(hk Hotkey, hold time.Duration, listening func() bool) *Gestures {
	g := &Gestures{
		toggles: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go g.run(hk, hold, listening)
	return g
}

func (g *Gestures) Toggles() <-chan struct{} { return g.toggles }

func (g *Gestures) Close() {
	g.once.Do(func() { close(g.stop) })
	<-g.done
}

func (g *Gestures) emit() bool {
	select {
	case g.toggles <- struct{}{}:
		return true
	case <-g.stop:
		return false
	}
}

func (g *Gestures) run(hk Hotkey, hold time.Duration, listening func() bool) {
	defer close(g.done)
	for {
		select {
		case <-g.stop:
			return
		case <-hk.Keydown():
		}

		starting := !listening()
		if !g.emit() {
			return
		}

		if !g.awaitRelease(hk, hold, starting) {
			continue
		}

		select {
		case <-g.stop:
			return
		case <-hk.Keyup():
		}
		// the press may have failed to start a session; nothing to stop then
		if !listening() {
			continue
		}
		if !g.emit() {
			return
		}
	}
}

// awaitRelease waits for the key to come up and reports whether the press
// was a push-to-talk hold.
func (g *Gestures) awaitRelease(hk Hotkey, hold time.Duration, starting bool) bool {
	if hold <= 0 || !starting {
		select {
		case <-g.stop:
		case <-hk.Keyup():
		}
		return false
	}
	timer := time.NewTimer(hold)
	defer timer.Stop()
	select {
	case <-g.stop:
		return false
	case <-hk.Keyup():
		return false
	case <-timer.C:
		return true
	}
}
