package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

const fakeFrameSize = 512

// FakeContext plays back fixed PCM instead of a real microphone. Tests use
// SetDeny to simulate a refused permission prompt.
type FakeContext struct {
	pcm      []byte
	interval time.Duration

	mu       sync.Mutex
	deny     error
	opened   int
	live     int
	captures []*FakeCapture
}

// NewFakeContext returns a context whose captures loop pcm every interval.
// A zero interval disables automatic feeding; use FakeCapture.Push instead.
func NewFakeContext(pcm []byte, interval time.Duration) *FakeContext {
	return &FakeContext{pcm: pcm, interval: interval}
}

// NewFakeContextFromFile plays back a recording loaded with LoadPCM.
func NewFakeContextFromFile(path string, interval time.Duration) (*FakeContext, error) {
	pcm, err := LoadPCM(path)
	if err != nil {
		return nil, err
	}
	return NewFakeContext(pcm, interval), nil
}

// Tone synthesises 16-bit mono PCM at SampleRate.
func Tone(freq float64, dur time.Duration, amplitude float64) []byte {
	n := int(dur.Seconds() * SampleRate)
	pcm := make([]byte, n*2)
	for i := range n {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}
	return pcm
}

func (f *FakeContext) SetDeny(err error) {
	f.mu.Lock()
	f.deny = err
	f.mu.Unlock()
}

// Live reports how many captures are started and not yet stopped.
func (f *FakeContext) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

// Opened reports how many captures were ever created.
func (f *FakeContext) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deny != nil {
		return nil, f.deny
	}
	f.opened++
	c := &FakeCapture{ctx: f}
	f.captures = append(f.captures, c)
	return c, nil
}

// PushAll delivers pcm to every running capture.
func (f *FakeContext) PushAll(pcm []byte) {
	f.mu.Lock()
	captures := append([]*FakeCapture(nil), f.captures...)
	f.mu.Unlock()
	for _, c := range captures {
		c.Push(pcm)
	}
}

type FakeCapture struct {
	ctx *FakeContext

	mu      sync.Mutex
	cb      DataCallback
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func (c *FakeCapture) DeviceName() string { return "fake" }

func (c *FakeCapture) SetCallback(cb DataCallback) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

func (c *FakeCapture) ClearCallback() {
	c.mu.Lock()
	c.cb = nil
	c.mu.Unlock()
}

// Push delivers pcm to the callback synchronously.
func (c *FakeCapture) Push(pcm []byte) {
	c.mu.Lock()
	cb := c.cb
	running := c.running
	c.mu.Unlock()
	if cb != nil && running {
		cb(pcm, uint32(len(pcm)/BytesPerFrame))
	}
}

func (c *FakeCapture) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	stopCh, done := c.stopCh, c.done
	c.mu.Unlock()

	c.ctx.mu.Lock()
	c.ctx.live++
	c.ctx.mu.Unlock()

	if c.ctx.interval <= 0 || len(c.ctx.pcm) == 0 {
		close(done)
		return nil
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.ctx.interval)
		defer ticker.Stop()
		chunk := fakeFrameSize * BytesPerFrame
		pos := 0
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
			}
			end := min(pos+chunk, len(c.ctx.pcm))
			buf := make([]byte, end-pos)
			copy(buf, c.ctx.pcm[pos:end])
			c.Push(buf)
			pos = end
			if pos >= len(c.ctx.pcm) {
				pos = 0
			}
		}
	}()
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	done := c.done
	c.mu.Unlock()
	<-done

	c.ctx.mu.Lock()
	c.ctx.live--
	c.ctx.mu.Unlock()
}

func (c *FakeCapture) Close() {
	c.Stop()
}
