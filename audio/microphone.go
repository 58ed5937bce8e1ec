package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrMicrophoneDenied is returned when the platform refuses to open or start
// a capture stream.
var ErrMicrophoneDenied = errors.New("microphone access denied")

// Microphone hands out live capture streams from one input device.
type Microphone struct {
	ctx    Context
	device *DeviceInfo
	config CaptureConfig
}

func NewMicrophone(ctx Context, device *DeviceInfo) *Microphone {
	return &Microphone{ctx: ctx, device: device, config: DefaultCaptureConfig()}
}

func (m *Microphone) DeviceName() string {
	if m.device != nil {
		return m.device.Name
	}
	return "system default"
}

// GetUserMedia opens and starts a capture stream. A failure to open or start
// the device is reported as ErrMicrophoneDenied. If ctx is done before the
// platform answers, the late stream is closed and ctx.Err() is returned.
func (m *Microphone) GetUserMedia(ctx context.Context) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type acquired struct {
		stream *Stream
		err    error
	}
	ch := make(chan acquired, 1)
	go func() {
		s, err := m.open()
		ch <- acquired{s, err}
	}()

	select {
	case a := <-ch:
		return a.stream, a.err
	case <-ctx.Done():
		go func() {
			if a := <-ch; a.stream != nil {
				a.stream.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (m *Microphone) open() (*Stream, error) {
	capture, err := m.ctx.NewCapture(m.device, m.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMicrophoneDenied, err)
	}
	s := newStream(capture)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return nil, fmt.Errorf("%w: %v", ErrMicrophoneDenied, err)
	}
	return s, nil
}

// Stream is a started capture that fans PCM out to connected nodes.
type Stream struct {
	capture CaptureDevice

	mu     sync.Mutex
	sinks  map[int]DataCallback
	nextID int
	closed bool
}

func newStream(capture CaptureDevice) *Stream {
	s := &Stream{capture: capture, sinks: make(map[int]DataCallback)}
	capture.SetCallback(s.dispatch)
	return s
}

func (s *Stream) dispatch(data []byte, frameCount uint32) {
	s.mu.Lock()
	if s.closed || len(s.sinks) == 0 {
		s.mu.Unlock()
		return
	}
	sinks := make([]DataCallback, 0, len(s.sinks))
	for _, cb := range s.sinks {
		sinks = append(sinks, cb)
	}
	s.mu.Unlock()

	for _, cb := range sinks {
		cb(data, frameCount)
	}
}

// Connect registers cb for every captured buffer. The returned func
// disconnects it; calling it more than once is harmless.
func (s *Stream) Connect(cb DataCallback) (disconnect func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.sinks[id] = cb
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.sinks, id)
		s.mu.Unlock()
	}
}

func (s *Stream) DeviceName() string {
	return s.capture.DeviceName()
}

func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the capture and releases the device. Idempotent.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.sinks = map[int]DataCallback{}
	s.mu.Unlock()

	s.capture.Stop()
	s.capture.ClearCallback()
	s.capture.Close()
}
