package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

const sampleRate = 44100

// Cue is one of the short sounds played around a listening period.
type Cue int

const (
	Start Cue = iota
	Stop
	Error
)

func (c Cue) String() string {
	switch c {
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Error:
		return "error"
	}
	return "unknown"
}

var (
	disabled atomic.Bool

	cueOnce    sync.Once
	cueSamples map[Cue][]int16
)

func Disable() { disabled.Store(true) }

func Disabled() bool { return disabled.Load() }

// Samples returns the mono 16-bit waveform for c.
func Samples(c Cue) []int16 {
	cueOnce.Do(func() {
		cueSamples = map[Cue][]int16{
			// high and short
			Start: tick(1200, 0.06, 0.5, 60),
			// lower, slower decay
			Stop: tick(900, 0.08, 0.5, 40),
			// low double beep
			Error: doubleBeep(350, 0.08, 0.05, 0.6, 30),
		}
	})
	return cueSamples[c]
}

func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}

// Play sounds c asynchronously. It never blocks the caller and silently
// gives up when no output device is available.
func Play(c Cue) {
	if disabled.Load() {
		return
	}
	go play(Samples(c))
}

func PlayStart() { Play(Start) }
func PlayStop()  { Play(Stop) }
func PlayError() { Play(Error) }

// Notifier plays the error cue for every user notification.
type Notifier struct{}

func (Notifier) Notify(string) { PlayError() }
