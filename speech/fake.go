package speech

import (
	"context"
	"sync"
)

const fakeEventBuffer = 256

// FakeRecognizer hands out scripted engines. Tests drive them through
// FakeEngine.Say* and Halt.
type FakeRecognizer struct {
	available bool

	mu       sync.Mutex
	startErr error
	linger   bool
	engines  []*FakeEngine
}

func NewFakeRecognizer(available bool) *FakeRecognizer {
	return &FakeRecognizer{available: available}
}

func (f *FakeRecognizer) Name() string    { return "fake" }
func (f *FakeRecognizer) Available() bool { return f.available }

// SetStartErr makes the next engines fail to start.
func (f *FakeRecognizer) SetStartErr(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

// SetLinger keeps engine streams open after Stop until Halt is called,
// like an engine finishing its last utterance.
func (f *FakeRecognizer) SetLinger(on bool) {
	f.mu.Lock()
	f.linger = on
	f.mu.Unlock()
}

func (f *FakeRecognizer) NewEngine(cfg Config) (Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &FakeEngine{
		Config:   cfg,
		events:   make(chan Event, fakeEventBuffer),
		startErr: f.startErr,
		linger:   f.linger,
	}
	f.engines = append(f.engines, e)
	return e, nil
}

// Last returns the most recently created engine, or nil.
func (f *FakeRecognizer) Last() *FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

func (f *FakeRecognizer) Engines() []*FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeEngine(nil), f.engines...)
}

type FakeEngine struct {
	Config Config

	events   chan Event
	startErr error
	linger   bool

	mu      sync.Mutex
	started bool
	stopped bool
	halted  bool
	index   int
}

func (e *FakeEngine) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.startErr != nil {
		return e.startErr
	}
	e.mu.Lock()
	e.started = true
	e.mu.Unlock()
	return nil
}

func (e *FakeEngine) Stop() {
	e.mu.Lock()
	e.stopped = true
	linger := e.linger
	e.mu.Unlock()
	if !linger {
		e.Halt()
	}
}

func (e *FakeEngine) Events() <-chan Event { return e.events }

// Listening reports whether the engine was started and not yet stopped or
// halted.
func (e *FakeEngine) Listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started && !e.stopped && !e.halted
}

// Emit delivers a raw event. It returns false once the engine has halted.
func (e *FakeEngine) Emit(ev Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.halted {
		return false
	}
	e.events <- ev
	return true
}

// SayInterim reports a provisional hypothesis for the current utterance.
func (e *FakeEngine) SayInterim(text string) bool {
	e.mu.Lock()
	idx := e.index
	e.mu.Unlock()
	return e.Emit(Event{ResultIndex: idx, Results: []Slot{{Transcript: text}}})
}

// SayFinal finalises the current utterance and moves to the next one.
func (e *FakeEngine) SayFinal(text string) bool {
	e.mu.Lock()
	idx := e.index
	e.index++
	e.mu.Unlock()
	return e.Emit(Event{ResultIndex: idx, Results: []Slot{{Transcript: text, IsFinal: true}}})
}

// Fail reports an engine error code such as "network" or "no-speech".
func (e *FakeEngine) Fail(code string) bool {
	return e.Emit(Event{Error: code})
}

// Halt ends the event stream.
func (e *FakeEngine) Halt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.halted {
		return
	}
	e.halted = true
	close(e.events)
}
