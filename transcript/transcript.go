// Package transcript holds the text shown in the voice-typing widget.
//
// Recognition output accumulates as finalised text plus one provisional
// interim tail. The displayed text is always recomputed as Final+Interim,
// which makes applying the same recognition event twice harmless.
package transcript

import (
	"errors"
	"sync"
)

// Separator is appended after every finalised segment.
const Separator = " "

// ErrEditFrozen is returned by Edit under EditFreeze while listening.
var ErrEditFrozen = errors.New("transcript is read-only while listening")

// EditPolicy decides how manual edits interact with recognition output.
type EditPolicy int

const (
	// EditOverwrite lets the user edit at any time. While listening, the
	// next recognition event recomputes the text and replaces the edit.
	EditOverwrite EditPolicy = iota
	// EditFreeze rejects edits while listening.
	EditFreeze
)

func (p EditPolicy) String() string {
	switch p {
	case EditOverwrite:
		return "overwrite"
	case EditFreeze:
		return "freeze"
	}
	return "unknown"
}

func ParseEditPolicy(s string) (EditPolicy, error) {
	switch s {
	case "overwrite", "":
		return EditOverwrite, nil
	case "freeze":
		return EditFreeze, nil
	}
	return 0, errors.New("unknown edit policy " + s + " (use overwrite or freeze)")
}

type State struct {
	Final   string
	Interim string
}

func (s State) Text() string { return s.Final + s.Interim }

type Store struct {
	policy EditPolicy

	mu        sync.Mutex
	state     State
	display   string
	edited    bool // display holds a manual edit newer than state
	listening bool
}

func NewStore(policy EditPolicy) *Store {
	return &Store{policy: policy}
}

func (s *Store) Policy() EditPolicy { return s.policy }

func (s *Store) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// SetListening marks the start or end of a listening period. Ending one
// adopts a pending manual edit as the finalised base.
func (s *Store) SetListening(on bool) {
	s.mu.Lock()
	s.listening = on
	if !on && s.edited {
		s.state = State{Final: s.display}
		s.edited = false
	}
	s.mu.Unlock()
}

// Apply appends finals (each followed by Separator), replaces the interim
// tail and returns the recomputed text.
func (s *Store) Apply(finals []string, interim string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range finals {
		s.state.Final += f + Separator
	}
	s.state.Interim = interim
	s.edited = false
	return s.recompute()
}

// AppendFinals appends late finalised segments and leaves the interim tail
// untouched.
func (s *Store) AppendFinals(finals []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range finals {
		s.state.Final += f + Separator
	}
	s.edited = false
	return s.recompute()
}

// DiscardInterim drops the provisional tail without promoting it. A manual
// edit made after the last recognition event is left on display.
func (s *Store) DiscardInterim() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Interim == "" || s.edited {
		s.state.Interim = ""
		return s.display
	}
	s.state.Interim = ""
	return s.recompute()
}

// Edit overwrites the displayed text with a manual edit. While idle the
// edit becomes the new finalised base, so the next listening period
// appends after it.
func (s *Store) Edit(text string) error {
	s.mu.Lock()
	if s.listening {
		if s.policy == EditFreeze {
			s.mu.Unlock()
			return ErrEditFrozen
		}
		s.display = text
		s.edited = true
	} else {
		s.state = State{Final: text}
		s.display = text
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	s.edited = false
	s.recompute()
}

func (s *Store) recompute() string {
	s.display = s.state.Text()
	return s.display
}
