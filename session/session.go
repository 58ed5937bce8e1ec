// Package session coordinates speech recognition and the level visualizer
// as one toggleable listening session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"voxpad/log"
	"voxpad/printer"
	"voxpad/speech"
	"voxpad/transcript"
)

type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Speech is the part of speech.Session the coordinator drives.
type Speech interface {
	Start(ctx context.Context, lang speech.Tag) error
	Stop()
	State() speech.State
}

// Visualizer is the part of visualizer.Visualizer the coordinator drives.
type Visualizer interface {
	Start(ctx context.Context) error
	Stop()
}

type Options struct {
	Lang speech.Tag
	// OnStateChange runs after every committed transition, outside locks.
	OnStateChange func(State)
}

// Coordinator owns the listening state. Toggling from Idle starts speech and
// the visualizer together and commits only if both succeed.
type Coordinator struct {
	speech Speech
	viz    Visualizer
	store  *transcript.Store
	opts   Options

	// mu serialises transitions; stateMu guards the fields read by getters
	// while a transition is in flight.
	mu       sync.Mutex
	stateMu  sync.Mutex
	state    State
	lang     speech.Tag
	sessions int
}

func New(sp Speech, viz Visualizer, store *transcript.Store, opts Options) *Coordinator {
	lang := opts.Lang
	if lang == "" {
		lang = speech.DefaultTag
	}
	return &Coordinator{speech: sp, viz: viz, store: store, opts: opts, lang: lang}
}

func (c *Coordinator) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Sessions reports how many listening periods were started.
func (c *Coordinator) Sessions() int {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.sessions
}

func (c *Coordinator) Language() speech.Tag {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.lang
}

// SetLanguage selects the recognition language. A change while listening
// takes effect at the next start.
func (c *Coordinator) SetLanguage(tag speech.Tag) error {
	if _, err := speech.ParseTag(string(tag)); err != nil {
		return err
	}
	c.stateMu.Lock()
	c.lang = tag
	c.stateMu.Unlock()
	return nil
}

// CycleLanguage moves to the next supported language and returns it.
func (c *Coordinator) CycleLanguage() speech.Tag {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.lang = c.lang.Next()
	return c.lang
}

func (c *Coordinator) Transcript() string { return c.store.Text() }

func (c *Coordinator) Edit(text string) error { return c.store.Edit(text) }

// Print hands the current transcript to p unmodified.
func (c *Coordinator) Print(p printer.Printer) error {
	text := c.store.Text()
	if err := p.Print(text); err != nil {
		return fmt.Errorf("print to %s: %w", p.Name(), err)
	}
	log.Printed(p.Name(), len(text))
	return nil
}

// Toggle starts a session when idle and stops it when listening.
func (c *Coordinator) Toggle(ctx context.Context) error {
	c.mu.Lock()
	if c.State() == Listening {
		c.stop()
		c.mu.Unlock()
		c.changed(Idle)
		return nil
	}
	err := c.start(ctx)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.changed(Listening)
	return nil
}

// Stop ends a session if one is active.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.State() != Listening {
		c.mu.Unlock()
		return
	}
	c.stop()
	c.mu.Unlock()
	c.changed(Idle)
}

// SpeechHalted is wired to the speech session's halt hook: the engine ended
// the listening period on its own, so the visualizer is stopped too.
func (c *Coordinator) SpeechHalted() {
	c.mu.Lock()
	// a newer period may already be running if this hook was delayed
	if c.State() != Listening || c.speech.State() == speech.Listening {
		c.mu.Unlock()
		return
	}
	c.viz.Stop()
	c.setState(Idle)
	c.mu.Unlock()
	c.changed(Idle)
}

func (c *Coordinator) start(ctx context.Context) error {
	lang := c.Language()

	// Both halves get the caller's ctx: one failing must not abort the
	// other's acquisition, since whatever came up is rolled back below.
	var g errgroup.Group
	var speechErr, vizErr error
	g.Go(func() error {
		speechErr = c.speech.Start(ctx, lang)
		return speechErr
	})
	g.Go(func() error {
		vizErr = c.viz.Start(ctx)
		return vizErr
	})
	if g.Wait() == nil {
		c.stateMu.Lock()
		c.state = Listening
		c.sessions++
		c.stateMu.Unlock()
		return nil
	}

	if speechErr == nil {
		c.speech.Stop()
	}
	if vizErr == nil {
		c.viz.Stop()
	}
	return errors.Join(wrap("speech", speechErr), wrap("visualizer", vizErr))
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("start %s: %w", what, err)
}

func (c *Coordinator) stop() {
	c.speech.Stop()
	c.viz.Stop()
	c.setState(Idle)
}

func (c *Coordinator) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

func (c *Coordinator) changed(s State) {
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}
