package hotkey

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in      string
		want    Combo
		wantErr bool
	}{
		{"ctrl+shift+space", Combo{Ctrl: true, Shift: true, Key: "space"}, false},
		{" Ctrl + V ", Combo{Ctrl: true, Key: "v"}, false},
		{"shift+k", Combo{Shift: true, Key: "k"}, false},
		{"space", Combo{}, true},
		{"ctrl+shift", Combo{}, true},
		{"alt+space", Combo{}, true},
		{"ctrl+f1", Combo{}, true},
		{"", Combo{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCombo(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
	c, _ := ParseCombo(DefaultCombo)
	if c.String() != DefaultCombo {
		t.Errorf("String() = %q", c.String())
	}
}

func TestChordRequiresModifiers(t *testing.T) {
	c := newChord(Combo{Ctrl: true, Shift: true, Key: "space"})

	if down, _ := c.feed(keySpace, keyPress); down {
		t.Fatal("space alone fired")
	}
	c.feed(keySpace, keyRelease)

	c.feed(keyLCtrl, keyPress)
	c.feed(keyRShift, keyPress)
	if down, _ := c.feed(keySpace, keyPress); !down {
		t.Fatal("chord did not fire")
	}
	// autorepeat
	if down, _ := c.feed(keySpace, 2); down {
		t.Error("autorepeat fired again")
	}
	c.feed(keyLCtrl, keyRelease)
	if _, up := c.feed(keySpace, keyRelease); !up {
		t.Error("release not reported after modifier lifted")
	}

	c.feed(keyRShift, keyRelease)
	if down, _ := c.feed(keySpace, keyPress); down {
		t.Error("fired after modifiers released")
	}
}

func TestChordLetter(t *testing.T) {
	c := newChord(Combo{Ctrl: true, Key: "v"})
	c.feed(keyRCtrl, keyPress)
	if down, _ := c.feed(47, keyPress); !down {
		t.Error("ctrl+v did not fire")
	}
}

func nextToggle(t *testing.T, g *Gestures) {
	t.Helper()
	select {
	case <-g.Toggles():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for toggle")
	}
}

func noToggle(t *testing.T, g *Gestures, wait time.Duration) {
	t.Helper()
	select {
	case <-g.Toggles():
		t.Fatal("unexpected toggle")
	case <-time.After(wait):
	}
}

func TestGesturesTapToggles(t *testing.T) {
	fk := NewFake()
	var listening atomic.Bool
	g := NewGestures(fk, 200*time.Millisecond, listening.Load)
	defer g.Close()

	fk.Tap()
	nextToggle(t, g)
	listening.Store(true)
	noToggle(t, g, 50*time.Millisecond)

	fk.Tap()
	nextToggle(t, g)
}

func TestGesturesHoldToTalk(t *testing.T) {
	fk := NewFake()
	var listening atomic.Bool
	g := NewGestures(fk, 30*time.Millisecond, listening.Load)
	defer g.Close()

	fk.SimKeydown()
	nextToggle(t, g)
	listening.Store(true)
	time.Sleep(60 * time.Millisecond)
	fk.SimKeyup()
	nextToggle(t, g)
}

func TestGesturesHoldAfterFailedStartTogglesOnce(t *testing.T) {
	fk := NewFake()
	g := NewGestures(fk, 30*time.Millisecond, func() bool { return false })
	defer g.Close()

	fk.SimKeydown()
	nextToggle(t, g)
	time.Sleep(60 * time.Millisecond)
	fk.SimKeyup()
	noToggle(t, g, 50*time.Millisecond)

	// the next press is still an explicit start
	fk.Tap()
	nextToggle(t, g)
}

func TestGesturesHoldWhileListeningStopsOnce(t *testing.T) {
	fk := NewFake()
	g := NewGestures(fk, 30*time.Millisecond, func() bool { return true })
	defer g.Close()

	fk.SimKeydown()
	nextToggle(t, g)
	time.Sleep(60 * time.Millisecond)
	fk.SimKeyup()
	noToggle(t, g, 50*time.Millisecond)
}

func TestGesturesHoldDisabled(t *testing.T) {
	fk := NewFake()
	g := NewGestures(fk, 0, func() bool { return false })
	defer g.Close()

	fk.SimKeydown()
	nextToggle(t, g)
	time.Sleep(30 * time.Millisecond)
	fk.SimKeyup()
	noToggle(t, g, 50*time.Millisecond)
}
